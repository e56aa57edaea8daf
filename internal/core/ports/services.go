package ports

import (
	"context"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// ListingCache is a read-through cache for public listings.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Clock abstracts time.Now so window checks are testable.
type Clock interface {
	Now() time.Time
}

// --- Service Ports (Business Logic) ---

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// RegisterRequest holds validated input for user registration.
type RegisterRequest struct {
	Email          string
	Password       string
	Role           domain.Role
	PhoneNumber    string
	MarketingOptIn bool
	BusinessName   string // Required when Role is merchant
}

// WalletService defines wallet business logic. Every mutation appends a
// ledger entry and moves the balance in the same database transaction.
type WalletService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason string) (*domain.Wallet, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason string) (*domain.Wallet, error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEntry, error)
}

// RedemptionService defines the redemption business logic for deals and
// vouchers. Eligibility is checked in a fixed order (inactive, window,
// capacity, per-user limit) and the counter bump plus the record insert
// commit together.
type RedemptionService interface {
	RedeemDeal(ctx context.Context, req RedeemDealRequest) (*domain.DealUse, error)
	PurchaseVoucher(ctx context.Context, req PurchaseVoucherRequest) (*domain.VoucherRedemption, error)
	ListDealUses(ctx context.Context, userID uuid.UUID) ([]domain.DealUse, error)
	ListVoucherRedemptions(ctx context.Context, userID uuid.UUID) ([]domain.VoucherRedemption, error)
}

// RedeemDealRequest holds validated input for a deal redemption.
type RedeemDealRequest struct {
	DealID uuid.UUID
	UserID uuid.UUID
	Notes  string
}

// PurchaseVoucherRequest holds validated input for a voucher purchase.
type PurchaseVoucherRequest struct {
	VoucherID uuid.UUID
	UserID    uuid.UUID
}

// CatalogService defines restaurant/deal/voucher management and public
// listings.
type CatalogService interface {
	CreateRestaurant(ctx context.Context, userID uuid.UUID, restaurant *domain.Restaurant) (*domain.Restaurant, error)
	UpdateRestaurant(ctx context.Context, userID uuid.UUID, restaurant *domain.Restaurant) (*domain.Restaurant, error)
	DeleteRestaurant(ctx context.Context, userID, restaurantID uuid.UUID) error
	GetRestaurant(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error)
	ListRestaurants(ctx context.Context, city string) ([]domain.Restaurant, error)
	ListMyRestaurants(ctx context.Context, userID uuid.UUID) ([]domain.Restaurant, error)

	CreateDeal(ctx context.Context, userID uuid.UUID, deal *domain.Deal) (*domain.Deal, error)
	UpdateDeal(ctx context.Context, userID uuid.UUID, deal *domain.Deal) (*domain.Deal, error)
	DeleteDeal(ctx context.Context, userID, dealID uuid.UUID) error
	GetDeal(ctx context.Context, id uuid.UUID) (*domain.Deal, error)
	ListActiveDeals(ctx context.Context) ([]domain.Deal, error)

	CreateVoucher(ctx context.Context, userID uuid.UUID, voucher *domain.Voucher) (*domain.Voucher, error)
	UpdateVoucher(ctx context.Context, userID uuid.UUID, voucher *domain.Voucher) (*domain.Voucher, error)
	DeleteVoucher(ctx context.Context, userID, voucherID uuid.UUID) error
	GetVoucher(ctx context.Context, id uuid.UUID) (*domain.Voucher, error)
	ListActiveVouchers(ctx context.Context) ([]domain.Voucher, error)
}
