package services

import (
	"context"
	"time"

	"accessctl/internal/metrics"
	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"
	"accessctl/pkg/jwt"
	"accessctl/pkg/logger"
)

// 用户不存在、已停用、密码错误使用同一提示
const invalidCredentialsMessage = "用户名或密码错误"

// RoleBrief 会话中的角色
type RoleBrief struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SessionResult 认证完成后的会话
type SessionResult struct {
	User      *models.User `json:"user"`
	Role      RoleBrief    `json:"role"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Menus     []*MenuNode  `json:"menus"`
}

// RoleSelection 多角色用户等待选择角色
type RoleSelection struct {
	User            *models.User   `json:"user"`
	Roles           []UserRoleView `json:"roles"`
	SelectionTicket string         `json:"selection_ticket"`
	ExpiresAt       time.Time      `json:"expires_at"`
}

// LoginResult 二者只有一个非空
type LoginResult struct {
	RequireRoleSelection bool           `json:"require_role_selection"`
	Session              *SessionResult `json:"session,omitempty"`
	Selection            *RoleSelection `json:"selection,omitempty"`
}

// Profile 当前会话信息
type Profile struct {
	User           *models.User   `json:"user"`
	CurrentRole    RoleBrief      `json:"current_role"`
	AvailableRoles []UserRoleView `json:"available_roles"`
	Menus          []*MenuNode    `json:"menus"`
}

// TokenResult 刷新后的令牌
type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService struct {
	users *UserService
	roles *RoleService
	menus *MenuService
	jwt   *jwt.JWTManager
}

func NewAuthService(users *UserService, roles *RoleService, menus *MenuService, jwtManager *jwt.JWTManager) *AuthService {
	return &AuthService{
		users: users,
		roles: roles,
		menus: menus,
		jwt:   jwtManager,
	}
}

// Login 校验凭证。单角色直接签发会话，多角色返回角色选择凭据。
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := logger.GetLogger().WithField("username", username)

	if username == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalidCredentials).Inc()
		return nil, apperrors.Validation("用户名和密码不能为空")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalidCredentials).Inc()
			log.Warn("登录失败：用户不存在或已停用")
			return nil, apperrors.New(apperrors.KindInvalidCredentials, invalidCredentialsMessage)
		}
		metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		return nil, err
	}

	if !s.users.VerifyPassword(password, user.PasswordHash) {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalidCredentials).Inc()
		log.Warn("登录失败：密码错误")
		return nil, apperrors.New(apperrors.KindInvalidCredentials, invalidCredentialsMessage)
	}

	withRoles, err := s.users.GetUserWithRoles(ctx, user.ID)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		return nil, err
	}

	switch len(withRoles.Roles) {
	case 0:
		metrics.LoginAttempts.WithLabelValues(metrics.LoginNoRoles).Inc()
		log.Warn("登录失败：用户未分配角色")
		return nil, apperrors.New(apperrors.KindNoRolesAssigned, "用户未分配任何角色")

	case 1:
		r := withRoles.Roles[0]
		session, err := s.issueSession(ctx, user, RoleBrief{ID: r.RoleID, Name: r.RoleName, Description: r.Description})
		if err != nil {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
			return nil, err
		}
		metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
		log.WithField("role_id", r.RoleID).Info("登录成功")
		return &LoginResult{Session: session}, nil

	default:
		ticket, expiresAt, err := s.jwt.GenerateSelectionTicket(user.ID)
		if err != nil {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
			return nil, apperrors.Internal("生成角色选择凭据失败", err)
		}
		metrics.LoginAttempts.WithLabelValues(metrics.LoginSelectionRequired).Inc()
		log.WithField("role_count", len(withRoles.Roles)).Info("登录成功，等待选择角色")
		return &LoginResult{
			RequireRoleSelection: true,
			Selection: &RoleSelection{
				User:            user,
				Roles:           withRoles.Roles,
				SelectionTicket: ticket,
				ExpiresAt:       expiresAt,
			},
		}, nil
	}
}

// SelectRole 确认用户持有该角色后签发会话
func (s *AuthService) SelectRole(ctx context.Context, userID, roleID uint) (*SessionResult, error) {
	session, outcome, err := s.selectRole(ctx, userID, roleID)
	metrics.RoleSelections.WithLabelValues(outcome).Inc()
	return session, err
}

func (s *AuthService) selectRole(ctx context.Context, userID, roleID uint) (*SessionResult, string, error) {
	ok, err := s.users.HasRole(ctx, userID, roleID)
	if err != nil {
		return nil, metrics.SelectionError, err
	}
	if !ok {
		logger.GetLogger().WithFields(map[string]interface{}{
			"user_id": userID,
			"role_id": roleID,
		}).Warn("选择的角色未分配给该用户")
		return nil, metrics.SelectionInvalidRole, apperrors.New(apperrors.KindInvalidRoleForUser, "用户未分配该角色")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, metrics.SelectionError, err
	}
	if !user.IsActive {
		return nil, metrics.SelectionInactive, apperrors.New(apperrors.KindInvalidCredentials, invalidCredentialsMessage)
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, metrics.SelectionError, err
	}

	session, err := s.issueSession(ctx, user, RoleBrief{ID: role.ID, Name: role.Name, Description: role.Description})
	if err != nil {
		return nil, metrics.SelectionError, err
	}
	return session, metrics.SelectionSuccess, nil
}

// VerifySelectionTicket 校验凭据并确认其属于该用户
func (s *AuthService) VerifySelectionTicket(ticket string, userID uint) error {
	claims, err := s.jwt.VerifySelectionTicket(ticket)
	if err != nil || claims.UserID != userID {
		return apperrors.New(apperrors.KindUnauthorized, "角色选择凭据无效或已过期")
	}
	return nil
}

// Profile 当前用户、当前角色、可选角色和菜单
func (s *AuthService) Profile(ctx context.Context, claims *jwt.Claims) (*Profile, error) {
	withRoles, err := s.users.GetUserWithRoles(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	current := RoleBrief{ID: claims.RoleID, Name: claims.RoleName}
	for _, r := range withRoles.Roles {
		if r.RoleID == claims.RoleID {
			current.Description = r.Description
		}
	}

	menus, err := s.menus.ResolveForRole(ctx, claims.RoleID)
	if err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, err
		}
		menus = []*MenuNode{}
	}

	user := withRoles.User
	return &Profile{
		User:           &user,
		CurrentRole:    current,
		AvailableRoles: withRoles.Roles,
		Menus:          menus,
	}, nil
}

// Refresh 以相同身份重新签发令牌
func (s *AuthService) Refresh(claims *jwt.Claims) (*TokenResult, error) {
	token, expiresAt, err := s.jwt.RefreshToken(claims)
	if err != nil {
		return nil, apperrors.Internal("刷新令牌失败", err)
	}
	return &TokenResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout 令牌无状态，只记录日志
func (s *AuthService) Logout(claims *jwt.Claims) {
	logger.GetLogger().WithFields(map[string]interface{}{
		"user_id": claims.UserID,
		"role_id": claims.RoleID,
	}).Info("用户登出")
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, role RoleBrief) (*SessionResult, error) {
	token, expiresAt, err := s.jwt.GenerateToken(user.ID, role.ID, role.Name)
	if err != nil {
		return nil, apperrors.Internal("生成令牌失败", err)
	}
	menus, err := s.menus.ResolveForRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		User:      user,
		Role:      role,
		Token:     token,
		ExpiresAt: expiresAt,
		Menus:     menus,
	}, nil
}
