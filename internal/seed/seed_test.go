package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"accessctl/internal/database"
	"accessctl/internal/models"
	"accessctl/internal/services"
	"accessctl/pkg/config"
	"accessctl/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seeded struct {
	db   *gorm.DB
	auth *services.AuthService
}

func setup(t *testing.T) *seeded {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "seed.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	jwtManager, err := jwt.NewJWTManager(jwt.Options{SecretKey: "seed-secret", TokenDuration: time.Hour})
	require.NoError(t, err)

	users := services.NewUserService(db, bcrypt.MinCost)
	roles := services.NewRoleService(db)
	menus := services.NewMenuService(db, roles)
	require.NoError(t, NewSeeder(db, users, roles, menus).Run(context.Background()))

	return &seeded{db: db, auth: services.NewAuthService(users, roles, menus, jwtManager)}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestRun_SeedsDemoData(t *testing.T) {
	s := setup(t)

	assert.EqualValues(t, 3, count(t, s.db, &models.Role{}))
	assert.EqualValues(t, 5, count(t, s.db, &models.User{}))
	assert.EqualValues(t, 19, count(t, s.db, &models.Menu{}))
	assert.EqualValues(t, 7, count(t, s.db, &models.UserRole{}))
	// Super Admin 19 + Manager 16 + Staff 3
	assert.EqualValues(t, 38, count(t, s.db, &models.RoleMenu{}))
}

func TestRun_SkipsWhenRolesExist(t *testing.T) {
	s := setup(t)

	users := services.NewUserService(s.db, bcrypt.MinCost)
	roles := services.NewRoleService(s.db)
	menus := services.NewMenuService(s.db, roles)
	require.NoError(t, NewSeeder(s.db, users, roles, menus).Run(context.Background()))

	assert.EqualValues(t, 3, count(t, s.db, &models.Role{}))
	assert.EqualValues(t, 5, count(t, s.db, &models.User{}))
	assert.EqualValues(t, 19, count(t, s.db, &models.Menu{}))
}

func TestSuperAdminLogin_FullTree(t *testing.T) {
	s := setup(t)

	result, err := s.auth.Login(context.Background(), "superadmin", SuperAdminPassword)
	require.NoError(t, err)
	require.False(t, result.RequireRoleSelection)
	require.NotNil(t, result.Session)
	assert.Equal(t, models.RoleSuperAdmin, result.Session.Role.Name)
	assert.NotEmpty(t, result.Session.Token)

	require.Len(t, result.Session.Menus, 3)
	codes := []string{result.Session.Menus[0].MenuCode, result.Session.Menus[1].MenuCode, result.Session.Menus[2].MenuCode}
	assert.Equal(t, []string{"MENU_1", "MENU_2", "MENU_3"}, codes)

	flat := services.FlattenMenuTree(result.Session.Menus)
	require.Len(t, flat, 19)
	for _, n := range flat {
		require.NotNil(t, n.Permissions, n.MenuCode)
		assert.Equal(t, models.FullPermissionSet(), *n.Permissions, n.MenuCode)
	}
}

func TestManagerLogin_ManagementMenus(t *testing.T) {
	s := setup(t)

	result, err := s.auth.Login(context.Background(), "karyawan2", StaffPassword)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, models.RoleManager, result.Session.Role.Name)

	require.Len(t, result.Session.Menus, 2)
	assert.Equal(t, "MENU_1", result.Session.Menus[0].MenuCode)
	assert.Equal(t, "MENU_2", result.Session.Menus[1].MenuCode)

	flat := services.FlattenMenuTree(result.Session.Menus)
	assert.Len(t, flat, 16)
	for _, n := range flat {
		assert.True(t, n.Permissions.CanCreate, n.MenuCode)
		assert.True(t, n.Permissions.CanUpdate, n.MenuCode)
		assert.False(t, n.Permissions.CanDelete, n.MenuCode)
	}
}

func TestStaffLogin_ReadOnlyMenus(t *testing.T) {
	s := setup(t)

	result, err := s.auth.Login(context.Background(), "karyawan3", StaffPassword)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, models.RoleStaff, result.Session.Role.Name)

	flat := services.FlattenMenuTree(result.Session.Menus)
	require.Len(t, flat, 3)
	assert.Equal(t, "MENU_3", flat[0].MenuCode)
	for _, n := range flat {
		assert.Equal(t, models.DefaultPermissionSet(), *n.Permissions, n.MenuCode)
	}
}

func TestMultiRoleLogin_RequiresSelection(t *testing.T) {
	s := setup(t)

	result, err := s.auth.Login(context.Background(), "karyawan1", StaffPassword)
	require.NoError(t, err)
	require.True(t, result.RequireRoleSelection)
	require.Nil(t, result.Session)
	require.NotNil(t, result.Selection)
	require.Len(t, result.Selection.Roles, 2)
	assert.Equal(t, models.RoleManager, result.Selection.Roles[0].RoleName)
	assert.Equal(t, models.RoleStaff, result.Selection.Roles[1].RoleName)
	assert.NotEmpty(t, result.Selection.SelectionTicket)
}

func TestMenuCodeHelpers(t *testing.T) {
	cases := []struct {
		code   string
		parent string
		order  int
		name   string
	}{
		{"MENU_1", "", 1, "Menu 1"},
		{"MENU_1_2", "MENU_1", 2, "Menu 1.2"},
		{"MENU_2_2_2_1", "MENU_2_2_2", 1, "Menu 2.2.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.parent, parentCode(tc.code))
			assert.Equal(t, tc.order, menuOrder(tc.code))
			assert.Equal(t, tc.name, menuName(tc.code))
		})
	}
}

func TestMenuCodesListParentsFirst(t *testing.T) {
	seen := map[string]bool{}
	for _, code := range menuCodes {
		if p := parentCode(code); p != "" {
			assert.True(t, seen[p], "%s listed before its parent %s", code, p)
		}
		seen[code] = true
	}
}
