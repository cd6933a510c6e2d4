package models

// UserRole 用户角色关联，(user_id, role_id) 唯一
type UserRole struct {
	BaseModel
	UserID        uint `gorm:"not null;uniqueIndex:idx_user_roles_pair" json:"user_id"`
	RoleID        uint `gorm:"not null;uniqueIndex:idx_user_roles_pair;index" json:"role_id"`
	PermissionSet `gorm:"embedded"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Role *Role `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (ur *UserRole) TableName() string {
	return "user_roles"
}
