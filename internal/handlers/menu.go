package handlers

import (
	"strings"

	"accessctl/internal/services"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateMenuRequest struct {
	MenuName  string `json:"menu_name" binding:"required,max=100"`
	MenuCode  string `json:"menu_code" binding:"required,max=50,menucode"`
	ParentID  *uint  `json:"parent_id"`
	MenuOrder int    `json:"menu_order"`
	IsActive  *bool  `json:"is_active"`
}

// UpdateMenuRequest detach_parent 为 true 时移为根菜单
type UpdateMenuRequest struct {
	MenuName     *string `json:"menu_name" binding:"omitempty,max=100"`
	MenuCode     *string `json:"menu_code" binding:"omitempty,max=50,menucode"`
	ParentID     *uint   `json:"parent_id"`
	DetachParent bool    `json:"detach_parent"`
	MenuOrder    *int    `json:"menu_order"`
	IsActive     *bool   `json:"is_active"`
}

type MenuHandler struct {
	service *services.MenuService
}

func NewMenuHandler(service *services.MenuService) *MenuHandler {
	return &MenuHandler{
		service: service,
	}
}

// List 扁平菜单列表
func (h *MenuHandler) List(c *gin.Context) {
	menus, err := h.service.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, menus)
}

// Hierarchical 菜单树
func (h *MenuHandler) Hierarchical(c *gin.Context) {
	tree, err := h.service.Hierarchical(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, tree)
}

// ByRole 角色可见的菜单树
func (h *MenuHandler) ByRole(c *gin.Context) {
	roleID, ok := parseID(c, "roleId", "角色ID")
	if !ok {
		return
	}

	tree, err := h.service.ResolveForRole(c.Request.Context(), roleID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, tree)
}

func (h *MenuHandler) ByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		response.BadRequest(c, "菜单编码不能为空")
		return
	}

	menu, err := h.service.GetByCode(c.Request.Context(), code)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, menu)
}

func (h *MenuHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "menuId", "菜单ID")
	if !ok {
		return
	}

	menu, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, menu)
}

func (h *MenuHandler) Children(c *gin.Context) {
	id, ok := parseID(c, "menuId", "菜单ID")
	if !ok {
		return
	}

	menus, err := h.service.Children(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, menus)
}

// Create 创建菜单
func (h *MenuHandler) Create(c *gin.Context) {
	var req CreateMenuRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := h.service.Create(c.Request.Context(), services.CreateMenuInput{
		MenuName:  req.MenuName,
		MenuCode:  req.MenuCode,
		ParentID:  req.ParentID,
		MenuOrder: req.MenuOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, "菜单创建成功", menu)
}

// Update 更新菜单
func (h *MenuHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "menuId", "菜单ID")
	if !ok {
		return
	}
	var req UpdateMenuRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := h.service.Update(c.Request.Context(), id, services.UpdateMenuInput{
		MenuName:     req.MenuName,
		MenuCode:     req.MenuCode,
		ParentID:     req.ParentID,
		DetachParent: req.DetachParent,
		MenuOrder:    req.MenuOrder,
		IsActive:     req.IsActive,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "菜单更新成功", menu)
}

// Delete 删除菜单
func (h *MenuHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "menuId", "菜单ID")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "菜单删除成功", nil)
}
