package domain

import (
	"time"

	"github.com/google/uuid"
)

// DealType describes the shape of the discount a deal offers.
type DealType string

const (
	DealTypeTwoForOne  DealType = "two_for_one"
	DealTypePercentage DealType = "percentage"
	DealTypeFixed      DealType = "fixed"
	DealTypeOther      DealType = "other"
)

// Valid reports whether the deal type is one of the known types.
func (t DealType) Valid() bool {
	switch t {
	case DealTypeTwoForOne, DealTypePercentage, DealTypeFixed, DealTypeOther:
		return true
	}
	return false
}

// Deal is a limited-use offer attached to a restaurant. MaxUses nil means
// unlimited; UsedCount only ever moves forward, and never past MaxUses.
type Deal struct {
	ID           uuid.UUID  `json:"id"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	DealType     DealType   `json:"deal_type"`
	MaxUses      *int32     `json:"max_uses,omitempty"`
	UsedCount    int32      `json:"used_count"`
	MaxPerUser   int32      `json:"max_per_user"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// InWindow reports whether now falls inside [StartsAt, EndsAt].
func (d *Deal) InWindow(now time.Time) bool {
	return !now.Before(d.StartsAt) && !now.After(d.EndsAt)
}

// ActiveNow reports whether the deal is live: active, not deleted and
// inside its time window.
func (d *Deal) ActiveNow(now time.Time) bool {
	return d.IsActive && d.DeletedAt == nil && d.InWindow(now)
}

// Remaining returns how many uses are left, or nil when unlimited.
func (d *Deal) Remaining() *int32 {
	if d.MaxUses == nil {
		return nil
	}
	left := *d.MaxUses - d.UsedCount
	if left < 0 {
		left = 0
	}
	return &left
}

// HasCapacity reports whether at least one use is still available.
func (d *Deal) HasCapacity() bool {
	return d.MaxUses == nil || d.UsedCount < *d.MaxUses
}

// DealUse is the append-only record of a single redemption of a deal.
type DealUse struct {
	ID                  uuid.UUID `json:"id"`
	DealID              uuid.UUID `json:"deal_id"`
	UserID              uuid.UUID `json:"user_id"`
	RestaurantConfirmed bool      `json:"restaurant_confirmed"`
	Notes               string    `json:"notes,omitempty"`
	UsedAt              time.Time `json:"used_at"`
}
