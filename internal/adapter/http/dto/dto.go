package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email,max=254"`
	Password       string `json:"password" binding:"required,min=8,max=128"`
	Role           string `json:"role" binding:"omitempty,oneof=customer merchant"`
	PhoneNumber    string `json:"phone_number" binding:"omitempty,max=32"`
	MarketingOptIn bool   `json:"marketing_opt_in"`
	BusinessName   string `json:"business_name" binding:"omitempty,min=1,max=100"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	MarketingOptIn bool   `json:"marketing_opt_in"`
	CreatedAt      string `json:"created_at"`
}

// RestaurantRequest is the request body for creating or updating a
// restaurant.
type RestaurantRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Slug        string `json:"slug" binding:"omitempty,slug,max=100"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	Address     string `json:"address" binding:"required,min=1,max=255"`
	City        string `json:"city" binding:"required,min=1,max=100"`
	PriceRange  int16  `json:"price_range" binding:"required,min=1,max=4"`
}

// RestaurantResponse is the public view of a restaurant.
type RestaurantResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PriceRange  int16  `json:"price_range"`
	IsVerified  bool   `json:"is_verified"`
	IsFeatured  bool   `json:"is_featured"`
}

// DealRequest is the request body for creating or updating a deal.
type DealRequest struct {
	RestaurantID string    `json:"restaurant_id" binding:"required,uuid"`
	Title        string    `json:"title" binding:"required,min=1,max=150"`
	Description  string    `json:"description" binding:"omitempty,max=2000"`
	DealType     string    `json:"deal_type" binding:"required,oneof=two_for_one percentage fixed other"`
	MaxUses      *int32    `json:"max_uses" binding:"omitempty,min=0"`
	MaxPerUser   int32     `json:"max_per_user" binding:"omitempty,min=1"`
	StartsAt     time.Time `json:"starts_at" binding:"required"`
	EndsAt       time.Time `json:"ends_at" binding:"required"`
	IsActive     *bool     `json:"is_active"`
}

// DealResponse is the public view of a deal.
type DealResponse struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	DealType     string    `json:"deal_type"`
	MaxUses      *int32    `json:"max_uses,omitempty"`
	Remaining    *int32    `json:"remaining,omitempty"` // nil = unlimited
	MaxPerUser   int32     `json:"max_per_user"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	IsActive     bool      `json:"is_active"`
}

// RedeemDealRequest is the request body for redeeming a deal. The deal ID
// comes from the URL path.
type RedeemDealRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=500"`
}

// DealUseResponse is a single entry in a user's redemption history.
type DealUseResponse struct {
	ID                  string `json:"id"`
	DealID              string `json:"deal_id"`
	RestaurantConfirmed bool   `json:"restaurant_confirmed"`
	Notes               string `json:"notes,omitempty"`
	UsedAt              string `json:"used_at"`
}

// VoucherRequest is the request body for creating or updating a voucher.
type VoucherRequest struct {
	RestaurantID    string          `json:"restaurant_id" binding:"required,uuid"`
	Title           string          `json:"title" binding:"required,min=1,max=150"`
	Description     string          `json:"description" binding:"omitempty,max=2000"`
	Code            string          `json:"code" binding:"required,voucher_code,max=32"`
	DiscountPercent int16           `json:"discount_percent" binding:"min=0,max=100"`
	OriginalPrice   decimal.Decimal `json:"original_price" binding:"required"`
	SalePrice       decimal.Decimal `json:"sale_price" binding:"required"`
	TotalQuantity   int32           `json:"total_quantity" binding:"required,min=0"`
	MaxPerUser      int32           `json:"max_per_user" binding:"omitempty,min=1"`
	StartsAt        time.Time       `json:"starts_at" binding:"required"`
	EndsAt          time.Time       `json:"ends_at" binding:"required"`
	IsActive        *bool           `json:"is_active"`
}

// VoucherResponse is the public view of a voucher.
type VoucherResponse struct {
	ID              string    `json:"id"`
	RestaurantID    string    `json:"restaurant_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Code            string    `json:"code"`
	DiscountPercent int16     `json:"discount_percent"`
	OriginalPrice   string    `json:"original_price"`
	SalePrice       string    `json:"sale_price"`
	Remaining       int32     `json:"remaining"`
	MaxPerUser      int32     `json:"max_per_user"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	IsActive        bool      `json:"is_active"`
}

// VoucherRedemptionResponse is a single entry in a user's purchase history.
type VoucherRedemptionResponse struct {
	ID           string `json:"id"`
	VoucherID    string `json:"voucher_id"`
	PricePaid    string `json:"price_paid"`
	IsSuccessful bool   `json:"is_successful"`
	RedeemedAt   string `json:"redeemed_at"`
}

// TopupRequest is the request body for a wallet top-up.
type TopupRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// WalletResponse is the response for a balance query.
type WalletResponse struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

// LedgerEntryResponse is a single wallet ledger line.
type LedgerEntryResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}
