package dto

import (
	"time"
)

// UpdateOperatorRequest changes tier and/or status of an operator
type UpdateOperatorRequest struct {
	Tier   *string `json:"tier,omitempty" validate:"omitempty,oneof=superadmin admin user"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=approved revoked"`
}

// OperatorDTO is the public view of an allowlisted operator
type OperatorDTO struct {
	Phone       string    `json:"phone"`
	DisplayName string    `json:"display_name"`
	Tier        string    `json:"tier"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}
