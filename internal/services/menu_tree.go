package services

import (
	"sort"

	"accessctl/internal/models"
)

// MenuNode 菜单树节点
type MenuNode struct {
	ID          uint                  `json:"id"`
	MenuName    string                `json:"menu_name"`
	MenuCode    string                `json:"menu_code"`
	ParentID    *uint                 `json:"parent_id"`
	MenuOrder   int                   `json:"menu_order"`
	IsActive    bool                  `json:"is_active"`
	Permissions *models.PermissionSet `json:"permissions,omitempty"`
	Children    []*MenuNode           `json:"children,omitempty"`
}

// NewMenuNode 从菜单模型构造节点
func NewMenuNode(m *models.Menu, perms *models.PermissionSet) *MenuNode {
	return &MenuNode{
		ID:          m.ID,
		MenuName:    m.MenuName,
		MenuCode:    m.MenuCode,
		ParentID:    m.ParentID,
		MenuOrder:   m.MenuOrder,
		IsActive:    m.IsActive,
		Permissions: perms,
	}
}

// BuildMenuTree 把扁平节点组装成树。
// 同级按 menu_order 稳定排序；父节点不在输入中的节点不可达，直接丢弃。
// 不修改输入节点。
func BuildMenuTree(nodes []*MenuNode) []*MenuNode {
	nodeMap := make(map[uint]*MenuNode, len(nodes))
	ordered := make([]*MenuNode, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := nodeMap[n.ID]; dup {
			continue
		}
		cp := *n
		cp.Children = nil
		nodeMap[n.ID] = &cp
		ordered = append(ordered, &cp)
	}

	roots := make([]*MenuNode, 0)
	for _, n := range ordered {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodeMap[*n.ParentID]; ok && parent != n {
			parent.Children = append(parent.Children, n)
		}
	}

	// 环上的节点不会从根可达，这里不需要额外处理
	sortSiblings(roots)
	return roots
}

func sortSiblings(level []*MenuNode) {
	sort.SliceStable(level, func(i, j int) bool {
		return level[i].MenuOrder < level[j].MenuOrder
	})
	for _, n := range level {
		if len(n.Children) > 0 {
			sortSiblings(n.Children)
		}
	}
}

// ResolveRoleMenus 计算角色可见的菜单树。
// 起点是角色有显式可读授权的启用根菜单，向下包含全部启用的后代；
// 后代有显式授权时使用该授权，否则为只读。停用的菜单及其子树不可见。
func ResolveRoleMenus(menus []models.Menu, grants map[uint]models.PermissionSet) []*MenuNode {
	byID := make(map[uint]*models.Menu, len(menus))
	children := make(map[uint][]uint)
	var rootIDs []uint

	for i := range menus {
		m := &menus[i]
		if !m.IsActive {
			continue
		}
		byID[m.ID] = m
		if m.ParentID == nil {
			rootIDs = append(rootIDs, m.ID)
		} else {
			children[*m.ParentID] = append(children[*m.ParentID], m.ID)
		}
	}

	visited := make(map[uint]bool, len(byID))
	var visible []*MenuNode
	var walk func(id uint)
	walk = func(id uint) {
		if visited[id] {
			return
		}
		visited[id] = true

		perms := models.DefaultPermissionSet()
		if g, ok := grants[id]; ok {
			perms = g
		}
		visible = append(visible, NewMenuNode(byID[id], &perms))

		for _, child := range children[id] {
			walk(child)
		}
	}

	for _, id := range rootIDs {
		if g, ok := grants[id]; ok && g.CanRead {
			walk(id)
		}
	}

	return BuildMenuTree(visible)
}

// FlattenMenuTree 前序遍历
func FlattenMenuTree(roots []*MenuNode) []*MenuNode {
	var out []*MenuNode
	var walk func([]*MenuNode)
	walk = func(level []*MenuNode) {
		for _, n := range level {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}
