package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// SessionAudience 会话令牌
	SessionAudience = "session"
	// SelectionAudience 多角色登录后的角色选择凭据
	SelectionAudience = "role-selection"
)

var (
	// ErrInvalidToken 格式错误、过期、签名不符、用途不符统一返回此错误
	ErrInvalidToken = errors.New("token无效或已过期")
	ErrEmptySecret  = errors.New("JWT密钥不能为空")
)

// Claims 会话声明
type Claims struct {
	UserID   uint   `json:"user_id"`
	RoleID   uint   `json:"role_id"`
	RoleName string `json:"role_name"`
	jwt.RegisteredClaims
}

// SelectionClaims 角色选择凭据声明
type SelectionClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Options JWT管理器配置
type Options struct {
	SecretKey         string
	TokenDuration     time.Duration
	SelectionDuration time.Duration
	Issuer            string
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey         []byte
	tokenDuration     time.Duration
	selectionDuration time.Duration
	issuer            string
	now               func() time.Time
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(opts Options) (*JWTManager, error) {
	if opts.SecretKey == "" {
		return nil, ErrEmptySecret
	}
	if opts.TokenDuration == 0 {
		opts.TokenDuration = 24 * time.Hour
	}
	if opts.SelectionDuration == 0 {
		opts.SelectionDuration = 5 * time.Minute
	}
	if opts.Issuer == "" {
		opts.Issuer = "accessctl"
	}
	return &JWTManager{
		secretKey:         []byte(opts.SecretKey),
		tokenDuration:     opts.TokenDuration,
		selectionDuration: opts.SelectionDuration,
		issuer:            opts.Issuer,
		now:               time.Now,
	}, nil
}

func (manager *JWTManager) registered(audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := manager.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    manager.issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

// GenerateToken 生成会话令牌
func (manager *JWTManager) GenerateToken(userID, roleID uint, roleName string) (string, time.Time, error) {
	claims := Claims{
		UserID:           userID,
		RoleID:           roleID,
		RoleName:         roleName,
		RegisteredClaims: manager.registered(SessionAudience, manager.tokenDuration),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(manager.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyToken 验证会话令牌
func (manager *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := manager.parse(tokenString, claims, SessionAudience); err != nil {
		return nil, err
	}
	return claims, nil
}

// RefreshToken 以相同身份签发新令牌，不重新校验角色分配
func (manager *JWTManager) RefreshToken(claims *Claims) (string, time.Time, error) {
	return manager.GenerateToken(claims.UserID, claims.RoleID, claims.RoleName)
}

// GenerateSelectionTicket 生成角色选择凭据
func (manager *JWTManager) GenerateSelectionTicket(userID uint) (string, time.Time, error) {
	claims := SelectionClaims{
		UserID:           userID,
		RegisteredClaims: manager.registered(SelectionAudience, manager.selectionDuration),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(manager.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// VerifySelectionTicket 验证角色选择凭据
func (manager *JWTManager) VerifySelectionTicket(tokenString string) (*SelectionClaims, error) {
	claims := &SelectionClaims{}
	if err := manager.parse(tokenString, claims, SelectionAudience); err != nil {
		return nil, err
	}
	return claims, nil
}

func (manager *JWTManager) parse(tokenString string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return manager.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(manager.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(manager.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// GetTokenDuration 获取令牌有效期
func (manager *JWTManager) GetTokenDuration() time.Duration {
	return manager.tokenDuration
}
