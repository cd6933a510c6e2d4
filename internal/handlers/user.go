package handlers

import (
	"accessctl/internal/services"
	"accessctl/pkg/pagination"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=50,username"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required,max=100"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,max=50,username"`
	FullName *string `json:"full_name" binding:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type AssignUserRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
	permissionFields
}

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// ========== 基础CRUD方法 ==========

// List 分页获取用户
func (h *UserHandler) List(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	users, total, err := h.service.List(c.Request.Context(), pageParams)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithPage(c, users, pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total))
}

// GetByID 获取用户及其角色
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}

	user, err := h.service.GetUserWithRoles(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, user)
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Create(c.Request.Context(), services.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, "用户创建成功", user)
}

// Update 更新用户
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Update(c.Request.Context(), id, services.UpdateUserInput{
		Username: req.Username,
		FullName: req.FullName,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户更新成功", user)
}

// UpdatePassword 修改密码
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}
	var req UpdatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.UpdatePassword(c.Request.Context(), id, req.Password); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "密码修改成功", nil)
}

// Delete 删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户删除成功", nil)
}

// ========== 状态管理 ==========

func (h *UserHandler) Activate(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}

	user, err := h.service.Activate(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户已启用", user)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}

	user, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户已停用", user)
}

// ========== 角色管理 ==========

// GetRoles 用户持有的角色
func (h *UserHandler) GetRoles(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}

	user, err := h.service.GetUserWithRoles(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, user.Roles)
}

// AssignRole 给用户分配角色，已存在时覆盖权限
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}
	var req AssignUserRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	assignment, err := h.service.AssignRole(c.Request.Context(), id, req.RoleID, req.toSet())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色分配成功", assignment)
}

// RemoveRole 移除用户角色
func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := parseID(c, "id", "用户ID")
	if !ok {
		return
	}
	roleID, ok := parseID(c, "role_id", "角色ID")
	if !ok {
		return
	}

	if err := h.service.RemoveRole(c.Request.Context(), id, roleID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色移除成功", nil)
}
