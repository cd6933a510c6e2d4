package handlers

import (
	"accessctl/internal/middleware"
	"accessctl/internal/services"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SelectRoleRequest struct {
	UserID          uint   `json:"user_id" binding:"required"`
	RoleID          uint   `json:"role_id" binding:"required"`
	SelectionTicket string `json:"selection_ticket" binding:"required"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	if result.RequireRoleSelection {
		response.SuccessWithMessage(c, "请选择角色", result)
		return
	}
	response.SuccessWithMessage(c, "登录成功", result)
}

// SelectRole 多角色用户选择本次会话的角色
func (h *AuthHandler) SelectRole(c *gin.Context) {
	var req SelectRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.VerifySelectionTicket(req.SelectionTicket, req.UserID); err != nil {
		response.HandleError(c, err)
		return
	}

	session, err := h.authService.SelectRole(c.Request.Context(), req.UserID, req.RoleID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色选择成功", session)
}

// Profile 当前用户信息
func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Unauthorized(c, "未登录")
		return
	}

	profile, err := h.authService.Profile(c.Request.Context(), claims)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, profile)
}

// RefreshToken 刷新Token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Unauthorized(c, "未登录")
		return
	}

	result, err := h.authService.Refresh(claims)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Token刷新成功", result)
}

// Logout 用户登出
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.CurrentClaims(c); ok {
		h.authService.Logout(claims)
	}
	response.SuccessWithMessage(c, "登出成功", nil)
}
