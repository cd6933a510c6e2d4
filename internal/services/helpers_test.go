package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"accessctl/internal/database"
	"accessctl/internal/models"
	"accessctl/pkg/config"
	"accessctl/pkg/jwt"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	users *UserService
	roles *RoleService
	menus *MenuService
	auth  *AuthService
	jwt   *jwt.JWTManager
}

// newTestDB 临时文件 sqlite，开启外键
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "accessctl.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	jwtManager, err := jwt.NewJWTManager(jwt.Options{SecretKey: "test-secret", TokenDuration: time.Hour})
	require.NoError(t, err)

	users := NewUserService(db, bcrypt.MinCost)
	roles := NewRoleService(db)
	menus := NewMenuService(db, roles)
	return &fixture{
		db:    db,
		users: users,
		roles: roles,
		menus: menus,
		auth:  NewAuthService(users, roles, menus, jwtManager),
		jwt:   jwtManager,
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), CreateUserInput{
		Username: username,
		Password: username + "-pass",
		FullName: "User " + username,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) role(t *testing.T, name string) *models.Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), name, name+" role")
	require.NoError(t, err)
	return r
}

func (f *fixture) menu(t *testing.T, code string, parent *models.Menu, order int) *models.Menu {
	t.Helper()
	in := CreateMenuInput{MenuName: "Menu " + code, MenuCode: code, MenuOrder: order}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	m, err := f.menus.Create(context.Background(), in)
	require.NoError(t, err)
	return m
}

func (f *fixture) grant(t *testing.T, role *models.Role, menu *models.Menu, perms models.PermissionSet) {
	t.Helper()
	_, err := f.roles.AssignMenu(context.Background(), role.ID, menu.ID, &perms)
	require.NoError(t, err)
}

func (f *fixture) assign(t *testing.T, user *models.User, role *models.Role) {
	t.Helper()
	_, err := f.users.AssignRole(context.Background(), user.ID, role.ID, nil)
	require.NoError(t, err)
}

func uintPtr(v uint) *uint { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool { return &v }
