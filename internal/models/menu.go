package models

// Menu 菜单节点，parent_id 为空表示根节点
type Menu struct {
	BaseModel
	MenuName  string `gorm:"size:100;not null" json:"menu_name"`
	MenuCode  string `gorm:"uniqueIndex;size:50;not null" json:"menu_code"`
	ParentID  *uint  `gorm:"index" json:"parent_id"`
	MenuOrder int    `gorm:"not null" json:"menu_order"`
	IsActive  bool   `gorm:"not null" json:"is_active"`

	Parent *Menu `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (m *Menu) TableName() string {
	return "menus"
}

// IsRoot 是否根节点
func (m *Menu) IsRoot() bool {
	return m.ParentID == nil
}
