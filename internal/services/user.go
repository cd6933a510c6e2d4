package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"
	"accessctl/pkg/logger"
	"accessctl/pkg/pagination"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 6
	// bcrypt 只接受72字节以内的输入
	maxPasswordBytes = 72
)

const userRoleColumns = "user_roles.user_id, roles.id AS role_id, roles.name AS role_name, roles.description, " +
	"user_roles.can_create, user_roles.can_read, user_roles.can_update, user_roles.can_delete"

type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

// UserRoleView 用户持有的角色及其用户角色权限
type UserRoleView struct {
	RoleID      uint                 `json:"role_id"`
	RoleName    string               `json:"role_name"`
	Description string               `json:"description"`
	Permissions models.PermissionSet `json:"permissions"`
}

// UserWithRoles 用户及其全部角色，角色按ID升序
type UserWithRoles struct {
	models.User
	Roles []UserRoleView `json:"roles"`
}

// UserListItem 用户列表项
type UserListItem struct {
	models.User
	RoleNames []string `json:"roles"`
}

// CreateUserInput 创建用户参数
type CreateUserInput struct {
	Username string
	Password string
	FullName string
}

// UpdateUserInput nil 字段保持原值
type UpdateUserInput struct {
	Username *string
	FullName *string
	IsActive *bool
}

type userRoleRow struct {
	UserID      uint
	RoleID      uint
	RoleName    string
	Description string
	CanCreate   bool
	CanRead     bool
	CanUpdate   bool
	CanDelete   bool
}

func (r userRoleRow) view() UserRoleView {
	return UserRoleView{
		RoleID:      r.RoleID,
		RoleName:    r.RoleName,
		Description: r.Description,
		Permissions: models.PermissionSet{
			CanCreate: r.CanCreate,
			CanRead:   r.CanRead,
			CanUpdate: r.CanUpdate,
			CanDelete: r.CanDelete,
		},
	}
}

func NewUserService(db *gorm.DB, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		db:         db,
		bcryptCost: bcryptCost,
	}
}

// ========== 凭证 ==========

// FindByUsername 只返回启用状态的用户
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
	if err != nil {
		return nil, translateDBError(err, "用户不存在")
	}
	return &user, nil
}

// VerifyPassword 常量时间比较
func (s *UserService) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ========== 基础CRUD方法 ==========

// Create 创建用户
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Username == "" || in.Password == "" || in.FullName == "" {
		return nil, apperrors.Validation("用户名、密码和姓名不能为空")
	}
	if err := s.validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.FullName) > 100 {
		return nil, apperrors.Validation("姓名不能超过100个字符")
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, apperrors.Internal("创建用户失败", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("用户名已存在")
	}

	user := &models.User{
		Username: in.Username,
		FullName: in.FullName,
		IsActive: true,
	}
	if err := user.SetPassword(in.Password, s.bcryptCost); err != nil {
		return nil, apperrors.Internal("密码加密失败", err)
	}

	if err := db.Create(user).Error; err != nil {
		return nil, translateDBError(err, "")
	}

	logger.GetLogger().WithField("user_id", user.ID).Info("用户已创建")
	return user, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateDBError(err, "用户不存在")
	}
	return &user, nil
}

// List 分页获取用户及其角色名
func (s *UserService) List(ctx context.Context, page *pagination.PageParams) ([]UserListItem, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("查询用户失败", err)
	}

	var users []models.User
	if err := db.Scopes(page.Scope()).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, apperrors.Internal("查询用户失败", err)
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	rows, err := s.roleRows(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	names := make(map[uint][]string)
	for _, r := range rows {
		names[r.UserID] = append(names[r.UserID], r.RoleName)
	}

	items := make([]UserListItem, 0, len(users))
	for _, u := range users {
		roleNames := names[u.ID]
		if roleNames == nil {
			roleNames = []string{}
		}
		items = append(items, UserListItem{User: u, RoleNames: roleNames})
	}
	return items, total, nil
}

// Update 更新用户，未提供的字段不修改
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := s.validateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("username = ? AND id <> ?", username, id).
				Count(&count).Error; err != nil {
				return nil, apperrors.Internal("更新用户失败", err)
			}
			if count > 0 {
				return nil, apperrors.Conflict("用户名已存在")
			}
			updates["username"] = username
		}
	}
	if in.FullName != nil {
		fullName := strings.TrimSpace(*in.FullName)
		if fullName == "" || utf8.RuneCountInString(fullName) > 100 {
			return nil, apperrors.Validation("姓名长度必须在1-100个字符之间")
		}
		updates["full_name"] = fullName
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, translateDBError(err, "用户不存在")
	}
	return s.GetByID(ctx, id)
}

// UpdatePassword 重新加密后保存
func (s *UserService) UpdatePassword(ctx context.Context, id uint, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword, s.bcryptCost); err != nil {
		return apperrors.Internal("密码加密失败", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return apperrors.Internal("更新密码失败", err)
	}
	logger.GetLogger().WithField("user_id", id).Info("用户密码已更新")
	return nil
}

// Activate 启用用户
func (s *UserService) Activate(ctx context.Context, id uint) (*models.User, error) {
	active := true
	return s.Update(ctx, id, UpdateUserInput{IsActive: &active})
}

// Deactivate 停用用户，停用后无法登录
func (s *UserService) Deactivate(ctx context.Context, id uint) (*models.User, error) {
	active := false
	return s.Update(ctx, id, UpdateUserInput{IsActive: &active})
}

// Delete 删除用户及其角色关联
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return apperrors.Internal("删除用户失败", err)
	}
	logger.GetLogger().WithField("user_id", id).Info("用户已删除")
	return nil
}

// ========== 角色 ==========

// GetUserWithRoles 获取用户及其角色
func (s *UserService) GetUserWithRoles(ctx context.Context, id uint) (*UserWithRoles, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.roleRows(ctx, []uint{id})
	if err != nil {
		return nil, err
	}

	roles := make([]UserRoleView, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, r.view())
	}
	return &UserWithRoles{User: *user, Roles: roles}, nil
}

// AssignRole 分配角色，已存在时覆盖权限
func (s *UserService) AssignRole(ctx context.Context, userID, roleID uint, perms *models.PermissionSet) (*models.UserRole, error) {
	return upsertUserRole(ctx, s.db, userID, roleID, perms)
}

// RemoveRole 移除角色
func (s *UserService) RemoveRole(ctx context.Context, userID, roleID uint) error {
	return deleteUserRole(ctx, s.db, userID, roleID)
}

// HasRole 检查用户是否持有指定角色
func (s *UserService) HasRole(ctx context.Context, userID, roleID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Internal("查询用户角色失败", err)
	}
	return count > 0, nil
}

func (s *UserService) roleRows(ctx context.Context, userIDs []uint) ([]userRoleRow, error) {
	var rows []userRoleRow
	if len(userIDs) == 0 {
		return rows, nil
	}
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Select(userRoleColumns).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", userIDs).
		Order("user_roles.user_id ASC, roles.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal("查询用户角色失败", err)
	}
	return rows, nil
}

// ========== 验证方法 ==========

func (s *UserService) validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 1 || n > 50 {
		return apperrors.Validation("用户名长度必须在1-50个字符之间")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.Validation("密码长度不能少于6位")
	}
	if len(password) > maxPasswordBytes {
		return apperrors.Validation("密码长度不能超过72字节")
	}
	return nil
}
