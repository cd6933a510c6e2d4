package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"accessctl/internal/models"
	"accessctl/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// permissionFields 请求中的可选 CRUD 权限，全部缺省时使用服务端默认（只读）
type permissionFields struct {
	CanCreate *bool `json:"can_create"`
	CanRead   *bool `json:"can_read"`
	CanUpdate *bool `json:"can_update"`
	CanDelete *bool `json:"can_delete"`
}

func (p permissionFields) toSet() *models.PermissionSet {
	if p.CanCreate == nil && p.CanRead == nil && p.CanUpdate == nil && p.CanDelete == nil {
		return nil
	}
	set := models.DefaultPermissionSet()
	if p.CanCreate != nil {
		set.CanCreate = *p.CanCreate
	}
	if p.CanRead != nil {
		set.CanRead = *p.CanRead
	}
	if p.CanUpdate != nil {
		set.CanUpdate = *p.CanUpdate
	}
	if p.CanDelete != nil {
		set.CanDelete = *p.CanDelete
	}
	return &set
}

// parseID 解析路径中的ID，失败时已写回 400
func parseID(c *gin.Context, param, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, label+"格式错误")
		return 0, false
	}
	return uint(id), true
}

// bindJSON 绑定请求体，失败时已写回 400
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErr validator.ValidationErrors
		if errors.As(err, &validationErr) && len(validationErr) > 0 {
			// 只返回第一个错误
			response.BadRequest(c, validationMessage(validationErr[0]))
			return false
		}
		response.BadRequest(c, "请求参数格式错误")
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 不能为空", field)
	case "min":
		return fmt.Sprintf("%s 不能少于 %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s 不能超过 %s", field, fe.Param())
	case "menucode":
		return "菜单编码只能包含字母、数字和下划线"
	case "username":
		return "用户名不能包含空白字符"
	default:
		return fmt.Sprintf("字段 %s 验证失败", field)
	}
}
