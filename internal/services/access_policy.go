package services

import (
	"context"
	"fmt"

	"accessctl/internal/models"
	"accessctl/pkg/config"
	apperrors "accessctl/pkg/errors"
)

// Identity 已认证的调用方
type Identity struct {
	UserID   uint
	RoleID   uint
	RoleName string
}

// AccessRequest 对某个菜单执行某种操作，MenuID 为空表示未指定目标
type AccessRequest struct {
	MenuID     *uint
	Permission models.Permission
}

// AccessPolicy 访问控制策略
type AccessPolicy interface {
	Name() string
	// Authorize 放行返回 nil，拒绝返回 Forbidden，存储失败返回 Internal
	Authorize(ctx context.Context, id Identity, req AccessRequest) error
}

// MenuPermissionChecker 查询角色对菜单的显式授权
type MenuPermissionChecker interface {
	HasMenuPermission(ctx context.Context, roleID, menuID uint, perm models.Permission) (bool, error)
}

// MenuPermissionPolicy 按角色菜单授权判断；未指定菜单时放行
type MenuPermissionPolicy struct {
	checker MenuPermissionChecker
}

func NewMenuPermissionPolicy(checker MenuPermissionChecker) *MenuPermissionPolicy {
	return &MenuPermissionPolicy{checker: checker}
}

func (p *MenuPermissionPolicy) Name() string { return config.PolicyMenu }

func (p *MenuPermissionPolicy) Authorize(ctx context.Context, id Identity, req AccessRequest) error {
	if req.MenuID == nil {
		return nil
	}
	ok, err := p.checker.HasMenuPermission(ctx, id.RoleID, *req.MenuID, req.Permission)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindValidation) {
			return err
		}
		return apperrors.Internal("权限检查失败", err)
	}
	if !ok {
		return apperrors.Forbidden(fmt.Sprintf("权限不足：需要 %s 权限", req.Permission))
	}
	return nil
}

// RoleNamePolicy 角色名在白名单内即放行，忽略菜单
type RoleNamePolicy struct {
	allowed map[string]struct{}
}

func NewRoleNamePolicy(allowed []string) *RoleNamePolicy {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return &RoleNamePolicy{allowed: set}
}

func (p *RoleNamePolicy) Name() string { return config.PolicyRoleName }

func (p *RoleNamePolicy) Authorize(_ context.Context, id Identity, _ AccessRequest) error {
	if _, ok := p.allowed[id.RoleName]; ok {
		return nil
	}
	return apperrors.Forbidden("当前角色无权执行此操作")
}

// NewAccessPolicy 按配置选择策略
func NewAccessPolicy(cfg config.AuthConfig, checker MenuPermissionChecker) (AccessPolicy, error) {
	switch cfg.Policy {
	case config.PolicyMenu, "":
		return NewMenuPermissionPolicy(checker), nil
	case config.PolicyRoleName:
		return NewRoleNamePolicy(cfg.AllowedRoles), nil
	default:
		return nil, fmt.Errorf("不支持的访问控制策略: %s", cfg.Policy)
	}
}
