package services

import (
	"context"
	"errors"

	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 菜单列表统一排序：根节点在前，再按父节点、顺序号、ID
const menuOrdering = "CASE WHEN menus.parent_id IS NULL THEN 0 ELSE 1 END, menus.parent_id, menus.menu_order, menus.id"

// translateDBError 把 gorm 错误转换成业务错误
func translateDBError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(notFoundMsg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict("数据已存在")
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Internal("数据库操作失败", err)
	}
}

func permissionUpsertColumns() []string {
	cols := make([]string, 0, len(models.PermissionColumns)+1)
	cols = append(cols, models.PermissionColumns...)
	return append(cols, "updated_at")
}

func ensureExists(db *gorm.DB, model interface{}, id uint, notFoundMsg string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Internal("数据库操作失败", err)
	}
	if count == 0 {
		return apperrors.NotFound(notFoundMsg)
	}
	return nil
}

// upsertUserRole 单条语句写入用户角色，冲突时覆盖权限
func upsertUserRole(ctx context.Context, db *gorm.DB, userID, roleID uint, perms *models.PermissionSet) (*models.UserRole, error) {
	db = db.WithContext(ctx)
	if err := ensureExists(db, &models.User{}, userID, "用户不存在"); err != nil {
		return nil, err
	}
	if err := ensureExists(db, &models.Role{}, roleID, "角色不存在"); err != nil {
		return nil, err
	}

	row := models.UserRole{UserID: userID, RoleID: roleID, PermissionSet: perms.OrDefault()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "role_id"}},
		DoUpdates: clause.AssignmentColumns(permissionUpsertColumns()),
	}).Create(&row).Error
	if err != nil {
		return nil, translateDBError(err, "")
	}

	var saved models.UserRole
	if err := db.Where("user_id = ? AND role_id = ?", userID, roleID).First(&saved).Error; err != nil {
		return nil, translateDBError(err, "用户角色不存在")
	}
	return &saved, nil
}

// upsertRoleMenu 单条语句写入角色菜单授权，冲突时覆盖权限
func upsertRoleMenu(ctx context.Context, db *gorm.DB, roleID, menuID uint, perms *models.PermissionSet) (*models.RoleMenu, error) {
	db = db.WithContext(ctx)
	if err := ensureExists(db, &models.Role{}, roleID, "角色不存在"); err != nil {
		return nil, err
	}
	if err := ensureExists(db, &models.Menu{}, menuID, "菜单不存在"); err != nil {
		return nil, err
	}

	row := models.RoleMenu{RoleID: roleID, MenuID: menuID, PermissionSet: perms.OrDefault()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "menu_id"}},
		DoUpdates: clause.AssignmentColumns(permissionUpsertColumns()),
	}).Create(&row).Error
	if err != nil {
		return nil, translateDBError(err, "")
	}

	var saved models.RoleMenu
	if err := db.Where("role_id = ? AND menu_id = ?", roleID, menuID).First(&saved).Error; err != nil {
		return nil, translateDBError(err, "角色菜单授权不存在")
	}
	return &saved, nil
}

func deleteUserRole(ctx context.Context, db *gorm.DB, userID, roleID uint) error {
	result := db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&models.UserRole{})
	if result.Error != nil {
		return apperrors.Internal("移除用户角色失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("用户未分配该角色")
	}
	return nil
}
