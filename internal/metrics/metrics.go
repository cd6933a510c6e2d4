package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 登录结果
const (
	LoginSuccess            = "success"
	LoginSelectionRequired  = "selection_required"
	LoginInvalidCredentials = "invalid_credentials"
	LoginNoRoles            = "no_roles"
	LoginError              = "error"
)

// 角色选择结果
const (
	SelectionSuccess     = "success"
	SelectionInvalidRole = "invalid_role"
	SelectionInactive    = "inactive_user"
	SelectionError       = "error"
)

// 鉴权结果
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
	DecisionError = "error"
)

var (
	// LoginAttempts 登录次数，按结果区分
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessctl_login_attempts_total",
			Help: "登录请求次数",
		},
		[]string{"outcome"},
	)

	// RoleSelections 角色选择次数
	RoleSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessctl_role_selections_total",
			Help: "角色选择请求次数",
		},
		[]string{"outcome"},
	)

	// AuthorizationDecisions 访问守卫的决策次数
	AuthorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessctl_authorization_decisions_total",
			Help: "访问控制决策次数",
		},
		[]string{"policy", "permission", "outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessctl_http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accessctl_http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Middleware 记录请求数与耗时，路径使用路由模板避免标签膨胀
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
