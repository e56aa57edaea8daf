package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Voucher is a prepaid offer with a fixed stock. SoldQuantity only ever
// moves forward and never past TotalQuantity.
type Voucher struct {
	ID              uuid.UUID       `json:"id"`
	RestaurantID    uuid.UUID       `json:"restaurant_id"`
	Code            string          `json:"code"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	DiscountPercent int16           `json:"discount_percent"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	TotalQuantity   int32           `json:"total_quantity"`
	SoldQuantity    int32           `json:"sold_quantity"`
	MaxPerUser      int32           `json:"max_per_user"`
	StartsAt        time.Time       `json:"starts_at"`
	EndsAt          time.Time       `json:"ends_at"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// InWindow reports whether now falls inside [StartsAt, EndsAt].
func (v *Voucher) InWindow(now time.Time) bool {
	return !now.Before(v.StartsAt) && !now.After(v.EndsAt)
}

// ActiveNow reports whether the voucher is purchasable: active, not deleted
// and inside its sale window.
func (v *Voucher) ActiveNow(now time.Time) bool {
	return v.IsActive && v.DeletedAt == nil && v.InWindow(now)
}

// Remaining returns how many units are still unsold.
func (v *Voucher) Remaining() int32 {
	left := v.TotalQuantity - v.SoldQuantity
	if left < 0 {
		left = 0
	}
	return left
}

// HasCapacity reports whether at least one unit is still unsold.
func (v *Voucher) HasCapacity() bool {
	return v.SoldQuantity < v.TotalQuantity
}

// VoucherRedemption is the append-only record of a single voucher purchase.
type VoucherRedemption struct {
	ID           uuid.UUID       `json:"id"`
	VoucherID    uuid.UUID       `json:"voucher_id"`
	UserID       uuid.UUID       `json:"user_id"`
	PricePaid    decimal.Decimal `json:"price_paid"`
	IsSuccessful bool            `json:"is_successful"`
	RedeemedAt   time.Time       `json:"redeemed_at"`
}
