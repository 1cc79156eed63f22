package model

import "time"

// Resource is an entry of the resource catalog, e.g. "orders"
type Resource struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Code        string    `json:"code" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Resource) TableName() string { return "cat_resources" }

// Action is an entry of the action catalog, e.g. "approve"
type Action struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Code        string    `json:"code" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Action) TableName() string { return "cat_actions" }

// Permission is a (resource, action) pair, optionally pinned to one tenant
type Permission struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ResourceID  uint      `json:"resource_id" gorm:"not null;uniqueIndex:idx_permissions_resource_action_tenant"`
	ActionID    uint      `json:"action_id" gorm:"not null;uniqueIndex:idx_permissions_resource_action_tenant"`
	TenantID    *uint     `json:"tenant_id,omitempty" gorm:"uniqueIndex:idx_permissions_resource_action_tenant"`
	Scope       Scope     `json:"scope" gorm:"type:varchar(20);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`

	Resource *Resource `json:"resource,omitempty" gorm:"foreignKey:ResourceID"`
	Action   *Action   `json:"action,omitempty" gorm:"foreignKey:ActionID"`
}

// Key renders the permission as "resource:action"
func (p Permission) Key() string {
	if p.Resource == nil || p.Action == nil {
		return ""
	}
	return p.Resource.Code + ":" + p.Action.Code
}

// RolePermission grants a permission to a role
type RolePermission struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RoleID       uint      `json:"role_id" gorm:"not null;uniqueIndex:idx_role_permissions_role_permission"`
	PermissionID uint      `json:"permission_id" gorm:"not null;uniqueIndex:idx_role_permissions_role_permission;index"`
	GrantedAt    time.Time `json:"granted_at"`
	GrantedBy    *uint     `json:"granted_by,omitempty"`

	Permission *Permission `json:"permission,omitempty" gorm:"foreignKey:PermissionID"`
}
