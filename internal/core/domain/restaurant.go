package domain

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is a merchant-owned venue. Deletion is soft: DeletedAt is set
// and the row is excluded from listings, so historical deal and voucher
// records keep a valid parent.
type Restaurant struct {
	ID          uuid.UUID  `json:"id"`
	MerchantID  uuid.UUID  `json:"merchant_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	PriceRange  int16      `json:"price_range"` // 1 (cheap) .. 4 (expensive)
	IsVerified  bool       `json:"is_verified"`
	IsFeatured  bool       `json:"is_featured"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Visible reports whether the restaurant should appear in public listings.
func (r *Restaurant) Visible() bool {
	return r.IsActive && r.DeletedAt == nil
}
