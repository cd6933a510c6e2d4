package handlers

import (
	"accessctl/internal/services"
	"accessctl/pkg/pagination"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

type AssignRoleUserRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	permissionFields
}

type BulkAssignUsersRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
	permissionFields
}

type BulkRemoveUsersRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
}

type AssignRoleMenuRequest struct {
	MenuID uint `json:"menu_id" binding:"required"`
	permissionFields
}

type MenuGrantRequest struct {
	MenuID uint `json:"menu_id" binding:"required"`
	permissionFields
}

type BulkGrantMenusRequest struct {
	Grants []MenuGrantRequest `json:"grants" binding:"required,min=1,dive"`
}

type BulkRevokeMenusRequest struct {
	MenuIDs []uint `json:"menu_ids" binding:"required,min=1"`
}

type CloneRoleRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type RoleHandler struct {
	service *services.RoleService
}

func NewRoleHandler(service *services.RoleService) *RoleHandler {
	return &RoleHandler{
		service: service,
	}
}

// ========== 基础CRUD方法 ==========

// List 分页获取角色
func (h *RoleHandler) List(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	roles, total, err := h.service.List(c.Request.Context(), pageParams)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithPage(c, roles, pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total))
}

// GetByID 获取角色
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}

	role, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, role)
}

// GetDetails 角色详情，含用户和菜单
func (h *RoleHandler) GetDetails(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}

	details, err := h.service.GetDetails(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, details)
}

// Create 创建角色
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.service.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, "角色创建成功", role)
}

// Update 更新角色
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.service.Update(c.Request.Context(), id, services.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色更新成功", role)
}

// Delete 删除角色，仍有用户时拒绝
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色删除成功", nil)
}

// Clone 复制角色及其菜单授权
func (h *RoleHandler) Clone(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req CloneRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.service.Clone(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, "角色复制成功", role)
}

func (h *RoleHandler) Statistics(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, stats)
}

// ========== 用户管理 ==========

func (h *RoleHandler) GetUsers(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}

	users, err := h.service.GetUsers(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, users)
}

func (h *RoleHandler) AssignUser(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req AssignRoleUserRequest
	if !bindJSON(c, &req) {
		return
	}

	assignment, err := h.service.AssignUser(c.Request.Context(), id, req.UserID, req.toSet())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户分配成功", assignment)
}

func (h *RoleHandler) RemoveUser(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id", "用户ID")
	if !ok {
		return
	}

	if err := h.service.RemoveUser(c.Request.Context(), id, userID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户移除成功", nil)
}

// BulkAssignUsers 批量分配用户，已分配的跳过
func (h *RoleHandler) BulkAssignUsers(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req BulkAssignUsersRequest
	if !bindJSON(c, &req) {
		return
	}

	count, err := h.service.BulkAssignUsers(c.Request.Context(), id, req.UserIDs, req.toSet())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "批量分配成功", gin.H{"assigned": count})
}

func (h *RoleHandler) BulkRemoveUsers(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req BulkRemoveUsersRequest
	if !bindJSON(c, &req) {
		return
	}

	count, err := h.service.BulkRemoveUsers(c.Request.Context(), id, req.UserIDs)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "批量移除成功", gin.H{"removed": count})
}

// ========== 菜单授权 ==========

func (h *RoleHandler) GetMenus(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}

	menus, err := h.service.GetMenus(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, menus)
}

// AssignMenu 授权菜单，已存在时覆盖
func (h *RoleHandler) AssignMenu(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req AssignRoleMenuRequest
	if !bindJSON(c, &req) {
		return
	}

	grant, err := h.service.AssignMenu(c.Request.Context(), id, req.MenuID, req.toSet())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "菜单授权成功", grant)
}

func (h *RoleHandler) RemoveMenu(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	menuID, ok := parseID(c, "menu_id", "菜单ID")
	if !ok {
		return
	}

	if err := h.service.RemoveMenu(c.Request.Context(), id, menuID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "菜单授权已移除", nil)
}

func (h *RoleHandler) BulkGrantMenus(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req BulkGrantMenusRequest
	if !bindJSON(c, &req) {
		return
	}

	grants := make([]services.MenuGrant, 0, len(req.Grants))
	for _, g := range req.Grants {
		grants = append(grants, services.MenuGrant{MenuID: g.MenuID, Permissions: g.toSet()})
	}

	count, err := h.service.BulkGrantMenus(c.Request.Context(), id, grants)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "批量授权成功", gin.H{"granted": count})
}

func (h *RoleHandler) BulkRevokeMenus(c *gin.Context) {
	id, ok := parseID(c, "id", "角色ID")
	if !ok {
		return
	}
	var req BulkRevokeMenusRequest
	if !bindJSON(c, &req) {
		return
	}

	count, err := h.service.BulkRevokeMenus(c.Request.Context(), id, req.MenuIDs)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "批量撤销成功", gin.H{"revoked": count})
}
