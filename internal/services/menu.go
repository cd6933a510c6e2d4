package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"
	"accessctl/pkg/logger"

	"gorm.io/gorm"
)

type MenuService struct {
	db    *gorm.DB
	roles *RoleService
}

// CreateMenuInput 创建菜单参数
type CreateMenuInput struct {
	MenuName  string
	MenuCode  string
	ParentID  *uint
	MenuOrder int
	IsActive  *bool
}

// UpdateMenuInput nil 字段保持原值，DetachParent 把菜单移为根节点
type UpdateMenuInput struct {
	MenuName     *string
	MenuCode     *string
	ParentID     *uint
	DetachParent bool
	MenuOrder    *int
	IsActive     *bool
}

func NewMenuService(db *gorm.DB, roles *RoleService) *MenuService {
	return &MenuService{
		db:    db,
		roles: roles,
	}
}

// ========== 查询 ==========

// List 全部启用菜单，扁平有序
func (s *MenuService) List(ctx context.Context) ([]models.Menu, error) {
	var menus []models.Menu
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order(menuOrdering).
		Find(&menus).Error
	if err != nil {
		return nil, apperrors.Internal("查询菜单失败", err)
	}
	return menus, nil
}

// Hierarchical 全部启用菜单组成的树
func (s *MenuService) Hierarchical(ctx context.Context) ([]*MenuNode, error) {
	menus, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]*MenuNode, 0, len(menus))
	for i := range menus {
		nodes = append(nodes, NewMenuNode(&menus[i], nil))
	}
	return BuildMenuTree(nodes), nil
}

// GetByID 根据ID获取菜单
func (s *MenuService) GetByID(ctx context.Context, id uint) (*models.Menu, error) {
	var menu models.Menu
	if err := s.db.WithContext(ctx).First(&menu, id).Error; err != nil {
		return nil, translateDBError(err, "菜单不存在")
	}
	return &menu, nil
}

// GetByCode 根据编码获取菜单
func (s *MenuService) GetByCode(ctx context.Context, code string) (*models.Menu, error) {
	var menu models.Menu
	if err := s.db.WithContext(ctx).Where("menu_code = ?", code).First(&menu).Error; err != nil {
		return nil, translateDBError(err, "菜单不存在")
	}
	return &menu, nil
}

// Children 启用的直接子菜单
func (s *MenuService) Children(ctx context.Context, id uint) ([]models.Menu, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	var menus []models.Menu
	err := s.db.WithContext(ctx).
		Where("parent_id = ? AND is_active = ?", id, true).
		Order("menu_order ASC, id ASC").
		Find(&menus).Error
	if err != nil {
		return nil, apperrors.Internal("查询子菜单失败", err)
	}
	return menus, nil
}

// ResolveForRole 角色可见的菜单树
func (s *MenuService) ResolveForRole(ctx context.Context, roleID uint) ([]*MenuNode, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	menus, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.roles.Grants(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return ResolveRoleMenus(menus, grants), nil
}

// ========== 基础CRUD方法 ==========

// Create 创建菜单
func (s *MenuService) Create(ctx context.Context, in CreateMenuInput) (*models.Menu, error) {
	in.MenuName = strings.TrimSpace(in.MenuName)
	in.MenuCode = strings.TrimSpace(in.MenuCode)
	if in.MenuName == "" || in.MenuCode == "" {
		return nil, apperrors.Validation("菜单名称和编码不能为空")
	}
	if err := validateMenuFields(in.MenuName, in.MenuCode); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if _, err := s.GetByID(ctx, *in.ParentID); err != nil {
			return nil, apperrors.NotFound("父菜单不存在")
		}
	}
	if err := s.ensureCodeFree(ctx, in.MenuCode, 0); err != nil {
		return nil, err
	}

	menu := &models.Menu{
		MenuName:  in.MenuName,
		MenuCode:  in.MenuCode,
		ParentID:  in.ParentID,
		MenuOrder: in.MenuOrder,
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(menu).Error; err != nil {
		return nil, translateDBError(err, "")
	}
	return menu, nil
}

// Update 更新菜单。
// 只拒绝把父节点设为自身，更深的环不做检查。
func (s *MenuService) Update(ctx context.Context, id uint, in UpdateMenuInput) (*models.Menu, error) {
	menu, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.MenuName != nil {
		name := strings.TrimSpace(*in.MenuName)
		if name == "" {
			return nil, apperrors.Validation("菜单名称不能为空")
		}
		updates["menu_name"] = name
	}
	if in.MenuCode != nil {
		code := strings.TrimSpace(*in.MenuCode)
		if code == "" {
			return nil, apperrors.Validation("菜单编码不能为空")
		}
		if code != menu.MenuCode {
			if err := s.ensureCodeFree(ctx, code, id); err != nil {
				return nil, err
			}
			updates["menu_code"] = code
		}
	}
	if err := validateMenuFields(stringOr(updates["menu_name"], menu.MenuName), stringOr(updates["menu_code"], menu.MenuCode)); err != nil {
		return nil, err
	}

	switch {
	case in.DetachParent:
		updates["parent_id"] = nil
	case in.ParentID != nil:
		if *in.ParentID == id {
			return nil, apperrors.Validation("菜单不能作为自己的父菜单")
		}
		if _, err := s.GetByID(ctx, *in.ParentID); err != nil {
			return nil, apperrors.NotFound("父菜单不存在")
		}
		updates["parent_id"] = *in.ParentID
	}
	if in.MenuOrder != nil {
		updates["menu_order"] = *in.MenuOrder
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) == 0 {
		return menu, nil
	}
	if err := s.db.WithContext(ctx).Model(menu).Updates(updates).Error; err != nil {
		return nil, translateDBError(err, "菜单不存在")
	}
	return s.GetByID(ctx, id)
}

// Delete 删除菜单，有子菜单时拒绝
func (s *MenuService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var childCount int64
		if err := tx.Model(&models.Menu{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return err
		}
		if childCount > 0 {
			return apperrors.Conflict("菜单下存在子菜单，无法删除")
		}
		if err := tx.Where("menu_id = ?", id).Delete(&models.RoleMenu{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Menu{}, id).Error
	})
	if err != nil {
		return translateDBError(err, "菜单不存在")
	}

	logger.GetLogger().WithField("menu_id", id).Info("菜单已删除")
	return nil
}

func (s *MenuService) ensureCodeFree(ctx context.Context, code string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Menu{}).
		Where("menu_code = ? AND id <> ?", code, exceptID).
		Count(&count).Error
	if err != nil {
		return apperrors.Internal("查询菜单失败", err)
	}
	if count > 0 {
		return apperrors.Conflict("菜单编码已存在")
	}
	return nil
}

func validateMenuFields(name, code string) error {
	if utf8.RuneCountInString(name) > 100 {
		return apperrors.Validation("菜单名称不能超过100个字符")
	}
	if utf8.RuneCountInString(code) > 50 {
		return apperrors.Validation("菜单编码不能超过50个字符")
	}
	return nil
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
