package model

import (
	"time"

	"gorm.io/datatypes"
)

// TenantStatus is the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusInactive  TenantStatus = "INACTIVE"
)

// Valid reports whether s is a known status
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusInactive:
		return true
	}
	return false
}

// SubscriptionTier is the plan a tenant is on
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "FREE"
	TierBasic      SubscriptionTier = "BASIC"
	TierPremium    SubscriptionTier = "PREMIUM"
	TierEnterprise SubscriptionTier = "ENTERPRISE"
)

// Valid reports whether t is a known tier
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium, TierEnterprise:
		return true
	}
	return false
}

// Tenant represents an organization isolated from every other tenant.
// Tenants are never hard-deleted; they move to INACTIVE instead.
type Tenant struct {
	ID                    uint              `json:"id" gorm:"primaryKey"`
	Code                  string            `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name                  string            `json:"name" gorm:"type:varchar(255);not null"`
	DisplayName           string            `json:"display_name" gorm:"type:varchar(255)"`
	TaxCode               *string           `json:"tax_code,omitempty" gorm:"type:varchar(50);uniqueIndex"`
	Status                TenantStatus      `json:"status" gorm:"type:varchar(20);not null;index"`
	SubscriptionTier      SubscriptionTier  `json:"subscription_tier" gorm:"type:varchar(20);not null"`
	SubscriptionExpiresAt *time.Time        `json:"subscription_expires_at,omitempty"`
	MaxUsers              int               `json:"max_users" gorm:"not null"`
	MaxStorageMB          int               `json:"max_storage_mb" gorm:"not null"`
	Settings              datatypes.JSONMap `json:"settings,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}
