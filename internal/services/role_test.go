package services

import (
	"context"
	"testing"

	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"
	"accessctl/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignMenuLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Manager")
	m := f.menu(t, "MENU_1", nil, 1)

	f.grant(t, r, m, models.FullPermissionSet())
	readOnly := models.PermissionSet{CanRead: true}
	saved, err := f.roles.AssignMenu(ctx, r.ID, m.ID, &readOnly)
	require.NoError(t, err)
	assert.Equal(t, readOnly, saved.PermissionSet)

	var rows []models.RoleMenu
	require.NoError(t, f.db.Where("role_id = ? AND menu_id = ?", r.ID, m.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, readOnly, rows[0].PermissionSet)
}

func TestAssignWithoutPermissionsUsesDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Staff")
	u := f.user(t, "karyawan3")
	m := f.menu(t, "MENU_3", nil, 3)

	ur, err := f.roles.AssignUser(ctx, r.ID, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPermissionSet(), ur.PermissionSet)

	rm, err := f.roles.AssignMenu(ctx, r.ID, m.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPermissionSet(), rm.PermissionSet)

	_, err = f.roles.AssignMenu(ctx, r.ID, 9999, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteRoleGuardedByUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Staff")
	u := f.user(t, "karyawan3")
	m := f.menu(t, "MENU_3", nil, 3)
	f.assign(t, u, r)
	f.grant(t, r, m, models.DefaultPermissionSet())

	err := f.roles.Delete(ctx, r.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	_, err = f.roles.GetByID(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, f.roles.RemoveUser(ctx, r.ID, u.ID))
	require.NoError(t, f.roles.Delete(ctx, r.ID))

	var grants int64
	require.NoError(t, f.db.Model(&models.RoleMenu{}).Where("role_id = ?", r.ID).Count(&grants).Error)
	assert.Zero(t, grants)

	err = f.roles.Delete(ctx, r.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	// 删除后不能再分配
	_, err = f.roles.AssignUser(ctx, r.ID, u.ID, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRoleQueriesOnMissingRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.menu(t, "MENU_1", nil, 1)

	tests := []struct {
		name string
		call func() error
	}{
		{"get users", func() error {
			_, err := f.roles.GetUsers(ctx, 9999)
			return err
		}},
		{"get menus", func() error {
			_, err := f.roles.GetMenus(ctx, 9999)
			return err
		}},
		{"bulk revoke menus", func() error {
			_, err := f.roles.BulkRevokeMenus(ctx, 9999, []uint{m.ID})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), "got %v", err)
		})
	}

	// 存在但没有关联时返回空
	r := f.role(t, "Empty")
	users, err := f.roles.GetUsers(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
	revoked, err := f.roles.BulkRevokeMenus(ctx, r.ID, []uint{m.ID})
	require.NoError(t, err)
	assert.Zero(t, revoked)
}

func TestRemoveMissingPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Staff")
	u := f.user(t, "nobody")
	m := f.menu(t, "MENU_1", nil, 1)

	assert.True(t, apperrors.IsKind(f.roles.RemoveUser(ctx, r.ID, u.ID), apperrors.KindNotFound))
	assert.True(t, apperrors.IsKind(f.roles.RemoveMenu(ctx, r.ID, m.ID), apperrors.KindNotFound))
}

func TestRoleCreateUpdateConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.role(t, "Manager")
	staff := f.role(t, "Staff")

	_, err := f.roles.Create(ctx, "Manager", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	_, err = f.roles.Create(ctx, "  ", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = f.roles.Update(ctx, staff.ID, UpdateRoleInput{Name: strPtr("Manager")})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	updated, err := f.roles.Update(ctx, staff.ID, UpdateRoleInput{Description: strPtr("read only")})
	require.NoError(t, err)
	assert.Equal(t, "Staff", updated.Name)
	assert.Equal(t, "read only", updated.Description)
}

func TestBulkAssignUsersIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Manager")
	a := f.user(t, "bulk-a")
	b := f.user(t, "bulk-b")

	_, err := f.roles.BulkAssignUsers(ctx, r.ID, []uint{a.ID, b.ID, 9999}, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	var count int64
	require.NoError(t, f.db.Model(&models.UserRole{}).Where("role_id = ?", r.ID).Count(&count).Error)
	assert.Zero(t, count)

	full := models.FullPermissionSet()
	_, err = f.roles.AssignUser(ctx, r.ID, a.ID, &full)
	require.NoError(t, err)

	assigned, err := f.roles.BulkAssignUsers(ctx, r.ID, []uint{a.ID, b.ID, b.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, assigned)

	users, err := f.roles.GetUsers(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, full, users[0].Permissions)
	assert.Equal(t, models.DefaultPermissionSet(), users[1].Permissions)

	removed, err := f.roles.BulkRemoveUsers(ctx, r.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = f.roles.BulkAssignUsers(ctx, r.ID, nil, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestBulkGrantAndRevokeMenus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Manager")
	m1 := f.menu(t, "MENU_1", nil, 1)
	m2 := f.menu(t, "MENU_2", nil, 2)

	cru := models.PermissionSet{CanCreate: true, CanRead: true, CanUpdate: true}
	n, err := f.roles.BulkGrantMenus(ctx, r.ID, []MenuGrant{{MenuID: m1.ID, Permissions: &cru}, {MenuID: m2.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	menus, err := f.roles.GetMenus(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, menus, 2)
	assert.Equal(t, cru, menus[0].Permissions)
	assert.Equal(t, models.DefaultPermissionSet(), menus[1].Permissions)

	// 任一菜单不存在时整体回滚
	_, err = f.roles.BulkGrantMenus(ctx, r.ID, []MenuGrant{{MenuID: m1.ID}, {MenuID: 9999}})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	menus, err = f.roles.GetMenus(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, cru, menus[0].Permissions)

	revoked, err := f.roles.BulkRevokeMenus(ctx, r.ID, []uint{m1.ID, m2.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)
}

func TestCloneCopiesGrantsNotUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.role(t, "Manager")
	u := f.user(t, "karyawan2")
	m1 := f.menu(t, "MENU_1", nil, 1)
	m2 := f.menu(t, "MENU_2", nil, 2)
	f.assign(t, u, src)
	f.grant(t, src, m1, models.FullPermissionSet())
	f.grant(t, src, m2, models.DefaultPermissionSet())

	clone, err := f.roles.Clone(ctx, src.ID, "Manager Copy", "copied")
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, clone.ID)

	details, err := f.roles.GetDetails(ctx, clone.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, details.UserCount)
	assert.Equal(t, 2, details.MenuCount)
	assert.Equal(t, models.FullPermissionSet(), details.Menus[0].Permissions)

	_, err = f.roles.Clone(ctx, src.ID, "Manager Copy", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	_, err = f.roles.Clone(ctx, 9999, "Other", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRoleStatisticsAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Manager")
	f.role(t, "Staff")
	u := f.user(t, "karyawan1")
	f.assign(t, u, r)
	f.grant(t, r, f.menu(t, "MENU_1", nil, 1), models.PermissionSet{CanCreate: true, CanRead: true, CanUpdate: true})
	f.grant(t, r, f.menu(t, "MENU_2", nil, 2), models.FullPermissionSet())
	f.grant(t, r, f.menu(t, "MENU_3", nil, 3), models.DefaultPermissionSet())

	stats, err := f.roles.Statistics(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, &RoleStatistics{
		TotalUsers:      1,
		TotalMenus:      3,
		MenusWithCreate: 2,
		MenusWithUpdate: 2,
		MenusWithDelete: 1,
	}, stats)

	list, total, err := f.roles.List(ctx, pagination.Normalize(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "Manager", list[0].Name)
	assert.Equal(t, int64(1), list[0].UserCount)
	assert.Equal(t, int64(3), list[0].MenuCount)
	assert.Equal(t, int64(0), list[1].UserCount)
}

func TestHasMenuPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "Manager")
	granted := f.menu(t, "MENU_1", nil, 1)
	other := f.menu(t, "MENU_2", nil, 2)
	f.grant(t, r, granted, models.PermissionSet{CanCreate: true, CanRead: true, CanUpdate: true})

	tests := []struct {
		name string
		menu uint
		perm models.Permission
		want bool
	}{
		{"granted update", granted.ID, models.PermissionUpdate, true},
		{"denied delete", granted.ID, models.PermissionDelete, false},
		{"no grant", other.ID, models.PermissionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.roles.HasMenuPermission(ctx, r.ID, tt.menu, tt.perm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	_, err := f.roles.HasMenuPermission(ctx, r.ID, granted.ID, models.Permission("can_read OR 1=1"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
