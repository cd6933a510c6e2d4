package models

// Permission 菜单操作权限，取值即权限列名
type Permission string

const (
	PermissionCreate Permission = "can_create"
	PermissionRead   Permission = "can_read"
	PermissionUpdate Permission = "can_update"
	PermissionDelete Permission = "can_delete"
)

// ParsePermission 仅接受四个权限列名
func ParsePermission(s string) (Permission, bool) {
	switch p := Permission(s); p {
	case PermissionCreate, PermissionRead, PermissionUpdate, PermissionDelete:
		return p, true
	}
	return "", false
}

// PermissionSet 四个权限标记
type PermissionSet struct {
	CanCreate bool `gorm:"not null" json:"can_create"`
	CanRead   bool `gorm:"not null" json:"can_read"`
	CanUpdate bool `gorm:"not null" json:"can_update"`
	CanDelete bool `gorm:"not null" json:"can_delete"`
}

// DefaultPermissionSet 未指定时的默认权限：只读
func DefaultPermissionSet() PermissionSet {
	return PermissionSet{CanRead: true}
}

// FullPermissionSet 全部权限
func FullPermissionSet() PermissionSet {
	return PermissionSet{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}
}

// OrDefault nil 时返回默认权限
func (p *PermissionSet) OrDefault() PermissionSet {
	if p == nil {
		return DefaultPermissionSet()
	}
	return *p
}

// Allows 是否包含指定权限
func (p PermissionSet) Allows(perm Permission) bool {
	switch perm {
	case PermissionCreate:
		return p.CanCreate
	case PermissionRead:
		return p.CanRead
	case PermissionUpdate:
		return p.CanUpdate
	case PermissionDelete:
		return p.CanDelete
	}
	return false
}

// PermissionColumns 权限列，用于 upsert
var PermissionColumns = []string{
	string(PermissionCreate),
	string(PermissionRead),
	string(PermissionUpdate),
	string(PermissionDelete),
}
