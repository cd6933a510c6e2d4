package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"accessctl/internal/metrics"
	"accessctl/internal/models"
	"accessctl/internal/services"
	apperrors "accessctl/pkg/errors"
	"accessctl/pkg/jwt"
	"accessctl/pkg/logger"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
)

// 缺少令牌和令牌无效返回同一提示
const unauthorizedMessage = "未登录或令牌无效"

// 上下文键
const (
	ContextUserID   = "user_id"
	ContextRoleID   = "role_id"
	ContextRoleName = "role_name"
	ContextClaims   = "claims"
)

// 需要从请求体读取 menu_id 时允许的最大请求体
const maxInspectBody = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// AuthMiddleware 认证与访问控制中间件
type AuthMiddleware struct {
	jwtManager *jwt.JWTManager
	policy     services.AccessPolicy
}

func NewAuthMiddleware(jwtManager *jwt.JWTManager, policy services.AccessPolicy) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		policy:     policy,
	}
}

// RequireLogin 校验 Bearer 令牌并写入上下文
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			response.Unauthorized(c, unauthorizedMessage)
			c.Abort()
			return
		}

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, unauthorizedMessage)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRoleID, claims.RoleID)
		c.Set(ContextRoleName, claims.RoleName)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// Require 按配置的策略检查当前角色对目标菜单的权限。
// 目标菜单依次取自路径参数 menuId、查询参数 menu_id、JSON 请求体 menu_id，都没有时按策略处理。
func (m *AuthMiddleware) Require(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Unauthorized(c, unauthorizedMessage)
			c.Abort()
			return
		}

		menuID, err := targetMenuID(c)
		if err != nil {
			if errors.Is(err, errBodyTooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, "请求体过大")
			} else {
				response.BadRequest(c, "菜单ID格式错误")
			}
			c.Abort()
			return
		}

		identity := services.Identity{
			UserID:   claims.UserID,
			RoleID:   claims.RoleID,
			RoleName: claims.RoleName,
		}
		err = m.policy.Authorize(c.Request.Context(), identity, services.AccessRequest{
			MenuID:     menuID,
			Permission: perm,
		})

		outcome := metrics.DecisionAllow
		switch apperrors.KindOf(err) {
		case "":
		case apperrors.KindForbidden:
			outcome = metrics.DecisionDeny
		default:
			outcome = metrics.DecisionError
		}
		metrics.AuthorizationDecisions.WithLabelValues(m.policy.Name(), string(perm), outcome).Inc()

		if err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"user_id":    claims.UserID,
				"role_id":    claims.RoleID,
				"permission": perm,
				"path":       c.FullPath(),
			}).Warn("访问被拒绝")
			response.HandleError(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole 当前角色名必须在列表中
func (m *AuthMiddleware) RequireRole(roleNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Unauthorized(c, unauthorizedMessage)
			c.Abort()
			return
		}
		for _, name := range roleNames {
			if claims.RoleName == name {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "权限不足：需要 "+strings.Join(roleNames, " 或 ")+" 角色")
		c.Abort()
	}
}

// CombineMiddleware 组合中间件（登录 + 权限）
func (m *AuthMiddleware) CombineMiddleware(perm models.Permission) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RequireLogin(),
		m.Require(perm),
	}
}

// CurrentClaims 读取 RequireLogin 写入的声明
func CurrentClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

func targetMenuID(c *gin.Context) (*uint, error) {
	if raw := c.Param("menuId"); raw != "" {
		return parseMenuID(raw)
	}
	if raw := c.Query("menu_id"); raw != "" {
		return parseMenuID(raw)
	}
	return menuIDFromBody(c)
}

func parseMenuID(raw string) (*uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	v := uint(id)
	return &v, nil
}

// menuIDFromBody 读取后恢复完整请求体，供后续 handler 绑定；超过上限直接拒绝
func menuIDFromBody(c *gin.Context) (*uint, error) {
	if c.Request.Body == nil || c.ContentType() != gin.MIMEJSON {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInspectBody+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInspectBody {
		return nil, errBodyTooLarge
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(data))

	var payload struct {
		MenuID *uint `json:"menu_id"`
	}
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		// 请求体格式交给 handler 校验
		return nil, nil
	}
	return payload.MenuID, nil
}
