package model

import "time"

// Scope tells whether a role or permission spans all tenants or one
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeTenant Scope = "TENANT"
)

// Valid reports whether s is a known scope
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeTenant
}

// Built-in role names seeded by the migrate command
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleMember      = "MEMBER"
)

// Role is a named bundle of permissions. TENANT roles carry the owning
// tenant and their name is unique within it.
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_roles_tenant_name"`
	Description string    `json:"description" gorm:"type:text"`
	Scope       Scope     `json:"scope" gorm:"type:varchar(20);not null"`
	TenantID    *uint     `json:"tenant_id,omitempty" gorm:"uniqueIndex:idx_roles_tenant_name;index"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
