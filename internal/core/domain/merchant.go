package domain

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is the business profile attached to a user with RoleMerchant.
// Restaurants, deals and vouchers all hang off a merchant.
type Merchant struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BusinessName string    `json:"business_name"`
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
