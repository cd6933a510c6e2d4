package seed

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"accessctl/internal/models"
	"accessctl/internal/services"
	"accessctl/pkg/logger"

	"gorm.io/gorm"
)

// 演示账号的初始密码
const (
	SuperAdminPassword = "superadmin123"
	StaffPassword      = "karyawan123"
)

var roleSeeds = []struct {
	name        string
	description string
}{
	{models.RoleSuperAdmin, "Super administrator dengan akses penuh"},
	{models.RoleManager, "Manager dengan akses management"},
	{models.RoleStaff, "Staff dengan akses terbatas"},
}

var userSeeds = []struct {
	username string
	password string
	fullName string
	roles    map[string]models.PermissionSet
}{
	{"superadmin", SuperAdminPassword, "Super Administrator", map[string]models.PermissionSet{
		models.RoleSuperAdmin: models.FullPermissionSet(),
	}},
	{"karyawan1", StaffPassword, "Karyawan Satu", map[string]models.PermissionSet{
		models.RoleManager: createReadUpdate,
		models.RoleStaff:   models.DefaultPermissionSet(),
	}},
	{"karyawan2", StaffPassword, "Karyawan Dua", map[string]models.PermissionSet{
		models.RoleManager: createReadUpdate,
	}},
	{"karyawan3", StaffPassword, "Karyawan Tiga", map[string]models.PermissionSet{
		models.RoleStaff: models.DefaultPermissionSet(),
	}},
	{"karyawan4", StaffPassword, "Karyawan Empat", map[string]models.PermissionSet{
		models.RoleManager: createReadUpdate,
		models.RoleStaff:   models.DefaultPermissionSet(),
	}},
}

var createReadUpdate = models.PermissionSet{CanCreate: true, CanRead: true, CanUpdate: true}

// 编码即层级：MENU_1_2 的父菜单是 MENU_1，顺序号取最后一段
var menuCodes = []string{
	"MENU_1", "MENU_2", "MENU_3",
	"MENU_1_1", "MENU_1_2", "MENU_1_3",
	"MENU_1_2_1", "MENU_1_2_2",
	"MENU_1_3_1",
	"MENU_2_1", "MENU_2_2", "MENU_2_3",
	"MENU_2_2_1", "MENU_2_2_2", "MENU_2_2_3",
	"MENU_2_2_2_1", "MENU_2_2_2_2",
	"MENU_3_1", "MENU_3_2",
}

// Seeder 写入演示数据
type Seeder struct {
	db    *gorm.DB
	users *services.UserService
	roles *services.RoleService
	menus *services.MenuService
}

func NewSeeder(db *gorm.DB, users *services.UserService, roles *services.RoleService, menus *services.MenuService) *Seeder {
	return &Seeder{db: db, users: users, roles: roles, menus: menus}
}

// Run 已有角色数据时跳过
func (s *Seeder) Run(ctx context.Context) error {
	appLogger := logger.GetLogger()

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		appLogger.Info("Seed data already present, skipping")
		return nil
	}

	appLogger.Info("Starting seed data initialization...")

	roleIDs := make(map[string]uint, len(roleSeeds))
	for _, r := range roleSeeds {
		role, err := s.roles.Create(ctx, r.name, r.description)
		if err != nil {
			return fmt.Errorf("创建角色 %s 失败: %w", r.name, err)
		}
		roleIDs[r.name] = role.ID
	}

	for _, u := range userSeeds {
		user, err := s.users.Create(ctx, services.CreateUserInput{
			Username: u.username,
			Password: u.password,
			FullName: u.fullName,
		})
		if err != nil {
			return fmt.Errorf("创建用户 %s 失败: %w", u.username, err)
		}
		for _, r := range roleSeeds {
			perms, ok := u.roles[r.name]
			if !ok {
				continue
			}
			if _, err := s.users.AssignRole(ctx, user.ID, roleIDs[r.name], &perms); err != nil {
				return fmt.Errorf("分配角色失败: %w", err)
			}
		}
	}

	menuIDs := make(map[string]uint, len(menuCodes))
	for _, code := range menuCodes {
		in := services.CreateMenuInput{
			MenuName:  menuName(code),
			MenuCode:  code,
			MenuOrder: menuOrder(code),
		}
		if parent := parentCode(code); parent != "" {
			id := menuIDs[parent]
			in.ParentID = &id
		}
		menu, err := s.menus.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("创建菜单 %s 失败: %w", code, err)
		}
		menuIDs[code] = menu.ID
	}

	for _, code := range menuCodes {
		for _, g := range grantsFor(code) {
			perms := g.perms
			if _, err := s.roles.AssignMenu(ctx, roleIDs[g.role], menuIDs[code], &perms); err != nil {
				return fmt.Errorf("授权菜单 %s 失败: %w", code, err)
			}
		}
	}

	appLogger.WithFields(map[string]interface{}{
		"roles": len(roleSeeds),
		"users": len(userSeeds),
		"menus": len(menuCodes),
	}).Info("Seed data initialization completed successfully")
	return nil
}

type menuGrant struct {
	role  string
	perms models.PermissionSet
}

// grantsFor Super Admin 全部菜单全权限，Manager 对 MENU_1/MENU_2 增查改，Staff 对 MENU_3 只读
func grantsFor(code string) []menuGrant {
	grants := []menuGrant{{models.RoleSuperAdmin, models.FullPermissionSet()}}
	switch {
	case strings.HasPrefix(code, "MENU_1"), strings.HasPrefix(code, "MENU_2"):
		grants = append(grants, menuGrant{models.RoleManager, createReadUpdate})
	case strings.HasPrefix(code, "MENU_3"):
		grants = append(grants, menuGrant{models.RoleStaff, models.DefaultPermissionSet()})
	}
	return grants
}

func parentCode(code string) string {
	parts := strings.Split(code, "_")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], "_")
}

func menuName(code string) string {
	return "Menu " + strings.ReplaceAll(strings.TrimPrefix(code, "MENU_"), "_", ".")
}

func menuOrder(code string) int {
	parts := strings.Split(code, "_")
	n, _ := strconv.Atoi(parts[len(parts)-1])
	return n
}
