package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"
	"accessctl/pkg/logger"
	"accessctl/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	roleUserColumns = "users.id AS user_id, users.username, users.full_name, users.is_active, " +
		"user_roles.can_create, user_roles.can_read, user_roles.can_update, user_roles.can_delete"
	roleMenuColumns = "menus.id AS menu_id, menus.menu_name, menus.menu_code, menus.parent_id, menus.menu_order, " +
		"role_menus.can_create, role_menus.can_read, role_menus.can_update, role_menus.can_delete"
)

type RoleService struct {
	db *gorm.DB
}

// RoleSummary 角色及关联数量
type RoleSummary struct {
	models.Role
	UserCount int64 `json:"user_count"`
	MenuCount int64 `json:"menu_count"`
}

// RoleUserView 角色下的用户
type RoleUserView struct {
	UserID      uint                 `json:"user_id"`
	Username    string               `json:"username"`
	FullName    string               `json:"full_name"`
	IsActive    bool                 `json:"is_active"`
	Permissions models.PermissionSet `json:"permissions"`
}

// RoleMenuView 角色显式授权的菜单
type RoleMenuView struct {
	MenuID      uint                 `json:"menu_id"`
	MenuName    string               `json:"menu_name"`
	MenuCode    string               `json:"menu_code"`
	ParentID    *uint                `json:"parent_id"`
	MenuOrder   int                  `json:"menu_order"`
	Permissions models.PermissionSet `json:"permissions"`
}

// RoleDetails 角色详情
type RoleDetails struct {
	models.Role
	Users     []RoleUserView `json:"users"`
	Menus     []RoleMenuView `json:"menus"`
	UserCount int            `json:"user_count"`
	MenuCount int            `json:"menu_count"`
}

// RoleStatistics 角色授权统计
type RoleStatistics struct {
	TotalUsers      int64 `json:"total_users"`
	TotalMenus      int64 `json:"total_menus"`
	MenusWithCreate int64 `json:"menus_with_create"`
	MenusWithUpdate int64 `json:"menus_with_update"`
	MenusWithDelete int64 `json:"menus_with_delete"`
}

// UpdateRoleInput nil 字段保持原值
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

// MenuGrant 批量授权中的一项
type MenuGrant struct {
	MenuID      uint
	Permissions *models.PermissionSet
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{
		db: db,
	}
}

// ========== 基础CRUD方法 ==========

// List 分页获取角色及用户数、菜单数
func (s *RoleService) List(ctx context.Context, page *pagination.PageParams) ([]RoleSummary, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Role{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("查询角色失败", err)
	}

	var summaries []RoleSummary
	err := db.Model(&models.Role{}).
		Select("roles.*, " +
			"(SELECT COUNT(*) FROM user_roles WHERE user_roles.role_id = roles.id) AS user_count, " +
			"(SELECT COUNT(*) FROM role_menus WHERE role_menus.role_id = roles.id) AS menu_count").
		Order("roles.id ASC").
		Scopes(page.Scope()).
		Scan(&summaries).Error
	if err != nil {
		return nil, 0, apperrors.Internal("查询角色失败", err)
	}
	return summaries, total, nil
}

// GetByID 根据ID获取角色
func (s *RoleService) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, translateDBError(err, "角色不存在")
	}
	return &role, nil
}

// GetDetails 角色、用户、显式授权菜单
func (s *RoleService) GetDetails(ctx context.Context, id uint) (*RoleDetails, error) {
	role, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.GetUsers(ctx, id)
	if err != nil {
		return nil, err
	}
	menus, err := s.GetMenus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RoleDetails{
		Role:      *role,
		Users:     users,
		Menus:     menus,
		UserCount: len(users),
		MenuCount: len(menus),
	}, nil
}

// Create 创建角色
func (s *RoleService) Create(ctx context.Context, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, s.db, name, 0); err != nil {
		return nil, err
	}

	role := &models.Role{Name: name, Description: description}
	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		return nil, translateDBError(err, "")
	}
	return role, nil
}

// Update 更新角色
func (s *RoleService) Update(ctx context.Context, id uint, in UpdateRoleInput) (*models.Role, error) {
	role, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateRoleName(name); err != nil {
			return nil, err
		}
		if name != role.Name {
			if err := s.ensureNameFree(ctx, s.db, name, id); err != nil {
				return nil, err
			}
			updates["name"] = name
		}
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if len(updates) == 0 {
		return role, nil
	}

	if err := s.db.WithContext(ctx).Model(role).Updates(updates).Error; err != nil {
		return nil, translateDBError(err, "角色不存在")
	}
	return s.GetByID(ctx, id)
}

// Delete 删除角色，仍有关联用户时拒绝
func (s *RoleService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住角色行，并发分配用户会等待本事务结束后因外键失败
		var role models.Role
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&role, id).Error; err != nil {
			return err
		}

		var userCount int64
		if err := tx.Model(&models.UserRole{}).Where("role_id = ?", id).Count(&userCount).Error; err != nil {
			return err
		}
		if userCount > 0 {
			logger.GetLogger().WithFields(map[string]interface{}{
				"role_id":    id,
				"user_count": userCount,
			}).Warn("角色仍有关联用户，拒绝删除")
			return apperrors.Conflict("角色仍有关联用户，无法删除")
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.RoleMenu{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, id).Error
	})
	if err != nil {
		return translateDBError(err, "角色不存在")
	}

	logger.GetLogger().WithField("role_id", id).Info("角色已删除")
	return nil
}

// ========== 用户管理方法 ==========

// GetUsers 角色下的全部用户
func (s *RoleService) GetUsers(ctx context.Context, roleID uint) ([]RoleUserView, error) {
	if err := ensureExists(s.db.WithContext(ctx), &models.Role{}, roleID, "角色不存在"); err != nil {
		return nil, err
	}
	type row struct {
		UserID    uint
		Username  string
		FullName  string
		IsActive  bool
		CanCreate bool
		CanRead   bool
		CanUpdate bool
		CanDelete bool
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Select(roleUserColumns).
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.role_id = ?", roleID).
		Order("users.username ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal("查询角色用户失败", err)
	}

	users := make([]RoleUserView, 0, len(rows))
	for _, r := range rows {
		users = append(users, RoleUserView{
			UserID:   r.UserID,
			Username: r.Username,
			FullName: r.FullName,
			IsActive: r.IsActive,
			Permissions: models.PermissionSet{
				CanCreate: r.CanCreate,
				CanRead:   r.CanRead,
				CanUpdate: r.CanUpdate,
				CanDelete: r.CanDelete,
			},
		})
	}
	return users, nil
}

// AssignUser 为角色分配用户，已存在时覆盖权限
func (s *RoleService) AssignUser(ctx context.Context, roleID, userID uint, perms *models.PermissionSet) (*models.UserRole, error) {
	return upsertUserRole(ctx, s.db, userID, roleID, perms)
}

// RemoveUser 从角色移除用户
func (s *RoleService) RemoveUser(ctx context.Context, roleID, userID uint) error {
	return deleteUserRole(ctx, s.db, userID, roleID)
}

// BulkAssignUsers 事务内批量分配，任一用户不存在则全部回滚，已有关联保持不变
func (s *RoleService) BulkAssignUsers(ctx context.Context, roleID uint, userIDs []uint, perms *models.PermissionSet) (int, error) {
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return 0, apperrors.Validation("用户ID列表不能为空")
	}

	assigned := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Role{}, roleID, "角色不存在"); err != nil {
			return err
		}

		var found int64
		if err := tx.Model(&models.User{}).Where("id IN ?", userIDs).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(userIDs) {
			return apperrors.NotFound("部分用户不存在")
		}

		set := perms.OrDefault()
		for _, userID := range userIDs {
			row := models.UserRole{UserID: userID, RoleID: roleID, PermissionSet: set}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if result.Error != nil {
				return result.Error
			}
			assigned += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, translateDBError(err, "")
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"role_id":  roleID,
		"assigned": assigned,
	}).Info("批量分配用户完成")
	return assigned, nil
}

// BulkRemoveUsers 批量移除用户
func (s *RoleService) BulkRemoveUsers(ctx context.Context, roleID uint, userIDs []uint) (int64, error) {
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return 0, apperrors.Validation("用户ID列表不能为空")
	}
	if err := ensureExists(s.db.WithContext(ctx), &models.Role{}, roleID, "角色不存在"); err != nil {
		return 0, err
	}

	result := s.db.WithContext(ctx).
		Where("role_id = ? AND user_id IN ?", roleID, userIDs).
		Delete(&models.UserRole{})
	if result.Error != nil {
		return 0, apperrors.Internal("批量移除用户失败", result.Error)
	}
	return result.RowsAffected, nil
}

// ========== 菜单授权方法 ==========

// GetMenus 角色显式授权的启用菜单
func (s *RoleService) GetMenus(ctx context.Context, roleID uint) ([]RoleMenuView, error) {
	if err := ensureExists(s.db.WithContext(ctx), &models.Role{}, roleID, "角色不存在"); err != nil {
		return nil, err
	}
	type row struct {
		MenuID    uint
		MenuName  string
		MenuCode  string
		ParentID  *uint
		MenuOrder int
		CanCreate bool
		CanRead   bool
		CanUpdate bool
		CanDelete bool
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Table("role_menus").
		Select(roleMenuColumns).
		Joins("JOIN menus ON menus.id = role_menus.menu_id").
		Where("role_menus.role_id = ? AND menus.is_active = ?", roleID, true).
		Order(menuOrdering).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal("查询角色菜单失败", err)
	}

	menus := make([]RoleMenuView, 0, len(rows))
	for _, r := range rows {
		menus = append(menus, RoleMenuView{
			MenuID:    r.MenuID,
			MenuName:  r.MenuName,
			MenuCode:  r.MenuCode,
			ParentID:  r.ParentID,
			MenuOrder: r.MenuOrder,
			Permissions: models.PermissionSet{
				CanCreate: r.CanCreate,
				CanRead:   r.CanRead,
				CanUpdate: r.CanUpdate,
				CanDelete: r.CanDelete,
			},
		})
	}
	return menus, nil
}

// Grants 角色全部显式授权，按菜单ID索引
func (s *RoleService) Grants(ctx context.Context, roleID uint) (map[uint]models.PermissionSet, error) {
	var rows []models.RoleMenu
	if err := s.db.WithContext(ctx).Where("role_id = ?", roleID).Find(&rows).Error; err != nil {
		return nil, apperrors.Internal("查询角色菜单失败", err)
	}
	grants := make(map[uint]models.PermissionSet, len(rows))
	for _, r := range rows {
		grants[r.MenuID] = r.PermissionSet
	}
	return grants, nil
}

// AssignMenu 授权菜单，已存在时覆盖权限
func (s *RoleService) AssignMenu(ctx context.Context, roleID, menuID uint, perms *models.PermissionSet) (*models.RoleMenu, error) {
	return upsertRoleMenu(ctx, s.db, roleID, menuID, perms)
}

// RemoveMenu 撤销菜单授权
func (s *RoleService) RemoveMenu(ctx context.Context, roleID, menuID uint) error {
	result := s.db.WithContext(ctx).
		Where("role_id = ? AND menu_id = ?", roleID, menuID).
		Delete(&models.RoleMenu{})
	if result.Error != nil {
		return apperrors.Internal("撤销菜单授权失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("角色未授权该菜单")
	}
	return nil
}

// BulkGrantMenus 事务内批量授权
func (s *RoleService) BulkGrantMenus(ctx context.Context, roleID uint, grants []MenuGrant) (int, error) {
	if len(grants) == 0 {
		return 0, apperrors.Validation("菜单授权列表不能为空")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range grants {
			if _, err := upsertRoleMenu(ctx, tx, roleID, g.MenuID, g.Permissions); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, translateDBError(err, "")
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"role_id": roleID,
		"granted": len(grants),
	}).Info("批量授权菜单完成")
	return len(grants), nil
}

// BulkRevokeMenus 批量撤销授权
func (s *RoleService) BulkRevokeMenus(ctx context.Context, roleID uint, menuIDs []uint) (int64, error) {
	menuIDs = uniqueIDs(menuIDs)
	if len(menuIDs) == 0 {
		return 0, apperrors.Validation("菜单ID列表不能为空")
	}
	db := s.db.WithContext(ctx)
	if err := ensureExists(db, &models.Role{}, roleID, "角色不存在"); err != nil {
		return 0, err
	}
	result := db.
		Where("role_id = ? AND menu_id IN ?", roleID, menuIDs).
		Delete(&models.RoleMenu{})
	if result.Error != nil {
		return 0, apperrors.Internal("批量撤销授权失败", result.Error)
	}
	return result.RowsAffected, nil
}

// Clone 复制角色及其菜单授权，不复制用户
func (s *RoleService) Clone(ctx context.Context, sourceID uint, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if err := validateRoleName(name); err != nil {
		return nil, err
	}

	var clone *models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Role{}, sourceID, "源角色不存在"); err != nil {
			return err
		}
		if err := s.ensureNameFree(ctx, tx, name, 0); err != nil {
			return err
		}

		clone = &models.Role{Name: name, Description: description}
		if err := tx.Create(clone).Error; err != nil {
			return err
		}

		var grants []models.RoleMenu
		if err := tx.Where("role_id = ?", sourceID).Order("menu_id ASC").Find(&grants).Error; err != nil {
			return err
		}
		if len(grants) == 0 {
			return nil
		}

		copies := make([]models.RoleMenu, 0, len(grants))
		for _, g := range grants {
			copies = append(copies, models.RoleMenu{
				RoleID:        clone.ID,
				MenuID:        g.MenuID,
				PermissionSet: g.PermissionSet,
			})
		}
		return tx.Create(&copies).Error
	})
	if err != nil {
		return nil, translateDBError(err, "")
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"source_role_id": sourceID,
		"role_id":        clone.ID,
	}).Info("角色已复制")
	return clone, nil
}

// Statistics 角色授权统计
func (s *RoleService) Statistics(ctx context.Context, roleID uint) (*RoleStatistics, error) {
	db := s.db.WithContext(ctx)
	if err := ensureExists(db, &models.Role{}, roleID, "角色不存在"); err != nil {
		return nil, err
	}

	stats := &RoleStatistics{}
	counts := []struct {
		query *gorm.DB
		dst   *int64
	}{
		{db.Model(&models.UserRole{}).Where("role_id = ?", roleID), &stats.TotalUsers},
		{db.Model(&models.RoleMenu{}).Where("role_id = ?", roleID), &stats.TotalMenus},
		{db.Model(&models.RoleMenu{}).Where("role_id = ? AND can_create = ?", roleID, true), &stats.MenusWithCreate},
		{db.Model(&models.RoleMenu{}).Where("role_id = ? AND can_update = ?", roleID, true), &stats.MenusWithUpdate},
		{db.Model(&models.RoleMenu{}).Where("role_id = ? AND can_delete = ?", roleID, true), &stats.MenusWithDelete},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, apperrors.Internal("统计角色授权失败", err)
		}
	}
	return stats, nil
}

// HasMenuPermission 角色对菜单是否有显式授权的指定权限
func (s *RoleService) HasMenuPermission(ctx context.Context, roleID, menuID uint, perm models.Permission) (bool, error) {
	if _, ok := models.ParsePermission(string(perm)); !ok {
		return false, apperrors.Validation("无效的权限类型")
	}

	var rows []models.RoleMenu
	err := s.db.WithContext(ctx).
		Where("role_id = ? AND menu_id = ?", roleID, menuID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return false, apperrors.Internal("权限检查失败", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	return rows[0].Allows(perm), nil
}

// ========== 验证方法 ==========

func validateRoleName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > 100 {
		return apperrors.Validation("角色名称长度必须在1-100个字符之间")
	}
	return nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, db *gorm.DB, name string, exceptID uint) error {
	var count int64
	err := db.WithContext(ctx).Model(&models.Role{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	if err != nil {
		return apperrors.Internal("查询角色失败", err)
	}
	if count > 0 {
		return apperrors.Conflict("角色名称已存在")
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
