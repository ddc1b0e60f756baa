// Package models contains domain entities of the report bot
package models

import (
	"time"
)

// Operator is an allowlisted phone number allowed to log in.
type Operator struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Phone       string    `gorm:"size:20;not null;uniqueIndex:idx_operators_phone" json:"phone"`
	DisplayName string    `gorm:"size:255;not null" json:"display_name"`
	Tier        string    `gorm:"size:20;not null;default:user" json:"tier"`
	Status      string    `gorm:"size:20;not null;default:approved;index:idx_operators_status" json:"status"`
	AddedBy     *string   `gorm:"size:64" json:"added_by,omitempty"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Operator) TableName() string {
	return "operators"
}

// Operator tiers, highest first
const (
	TierSuperAdmin = "superadmin"
	TierAdmin      = "admin"
	TierUser       = "user"
)

// Operator status constants
const (
	OperatorStatusApproved = "approved"
	OperatorStatusRevoked  = "revoked"
)

var tierRank = map[string]int{
	TierUser:       1,
	TierAdmin:      2,
	TierSuperAdmin: 3,
}

// TierRank returns the rank of a tier; unknown tiers rank 0.
func TierRank(tier string) int {
	return tierRank[tier]
}

// IsValidTier reports whether tier is a known operator tier.
func IsValidTier(tier string) bool {
	return TierRank(tier) > 0
}

// IsValidOperatorStatus reports whether status is a known operator status.
func IsValidOperatorStatus(status string) bool {
	return status == OperatorStatusApproved || status == OperatorStatusRevoked
}

// OutranksTier reports whether actorTier is strictly higher than other.
func OutranksTier(actorTier, other string) bool {
	return TierRank(actorTier) > TierRank(other)
}

func (o *Operator) IsApproved() bool {
	return o.Status == OperatorStatusApproved
}

// OperatorFilter represents filter criteria for operator queries
type OperatorFilter struct {
	ID     *uint
	Phone  *string
	Tier   *string
	Status *string
}
