package models

// RoleMenu 角色菜单授权，(role_id, menu_id) 唯一
type RoleMenu struct {
	BaseModel
	RoleID        uint `gorm:"not null;uniqueIndex:idx_role_menus_pair" json:"role_id"`
	MenuID        uint `gorm:"not null;uniqueIndex:idx_role_menus_pair;index" json:"menu_id"`
	PermissionSet `gorm:"embedded"`

	Role *Role `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Menu *Menu `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (rm *RoleMenu) TableName() string {
	return "role_menus"
}
