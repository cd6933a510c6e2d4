package models

// Role 角色模型
type Role struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName 表名
func (r *Role) TableName() string {
	return "roles"
}

// 演示数据中的角色名
const (
	RoleSuperAdmin = "Super Admin"
	RoleManager    = "Manager"
	RoleStaff      = "Staff"
)
