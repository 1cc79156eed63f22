package model

import "time"

// UserTenant assigns a role to a user within a tenant. A user holding two
// roles in one tenant has two rows; the (user, tenant, role) triple is unique.
// At most one row per user has IsPrimary set.
type UserTenant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_tenants_user_tenant_role"`
	TenantID  uint      `json:"tenant_id" gorm:"not null;uniqueIndex:idx_user_tenants_user_tenant_role;index"`
	RoleID    uint      `json:"role_id" gorm:"not null;uniqueIndex:idx_user_tenants_user_tenant_role"`
	IsPrimary bool      `json:"is_primary"`
	IsActive  bool      `json:"is_active"`
	InvitedBy *uint     `json:"invited_by,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Role   *Role   `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

// AllModels lists every table of the service in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&Role{},
		&Resource{},
		&Action{},
		&Permission{},
		&RolePermission{},
		&UserTenant{},
	}
}
