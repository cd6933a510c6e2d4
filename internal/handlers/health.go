package handlers

import (
	"context"
	"net/http"
	"time"

	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler 健康检查
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check 检查数据库连通性
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "数据库不可用")
		return
	}

	response.Success(c, gin.H{
		"status":   "ok",
		"database": h.db.Dialector.Name(),
		"time":     time.Now().Format(time.RFC3339),
	})
}
