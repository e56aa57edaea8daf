package ports

import (
	"context"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// MerchantRepository defines persistence operations for merchant profiles.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Merchant, error)
}

// RestaurantRepository defines persistence operations for restaurants.
// Delete is a soft delete: the row stays for historical deal/voucher records.
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *domain.Restaurant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Restaurant, error)
	Update(ctx context.Context, restaurant *domain.Restaurant) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListVisible(ctx context.Context, city string) ([]domain.Restaurant, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Restaurant, error)
}

// DealRepository defines persistence operations for deals.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// locking; IncrementUsedCount is the guarded counter bump and reports whether
// a row was actually updated.
type DealRepository interface {
	Create(ctx context.Context, deal *domain.Deal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deal, error)
	Update(ctx context.Context, deal *domain.Deal) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]domain.Deal, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Deal, error)
	// IncrementUsedCount bumps used_count by one only while capacity remains.
	// Returns false when the deal is already at max_uses.
	IncrementUsedCount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	CountUserUses(ctx context.Context, tx pgx.Tx, dealID, userID uuid.UUID) (int32, error)
	CreateUse(ctx context.Context, tx pgx.Tx, use *domain.DealUse) error
	ListUsesByUser(ctx context.Context, userID uuid.UUID) ([]domain.DealUse, error)
}

// VoucherRepository defines persistence operations for vouchers, mirroring
// DealRepository's locking and guarded-increment approach.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *domain.Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Voucher, error)
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	Update(ctx context.Context, voucher *domain.Voucher) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]domain.Voucher, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Voucher, error)
	// IncrementSoldQuantity bumps sold_quantity by one only while stock
	// remains. Returns false when the voucher is sold out.
	IncrementSoldQuantity(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	CountUserRedemptions(ctx context.Context, tx pgx.Tx, voucherID, userID uuid.UUID) (int32, error)
	CreateRedemption(ctx context.Context, tx pgx.Tx, redemption *domain.VoucherRedemption) error
	ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.VoucherRedemption, error)
}

// WalletRepository defines persistence operations for wallets and their
// ledger. UpdateBalance and CreateEntry only run inside a transaction so the
// balance and the ledger move together.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
	CreateEntry(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListEntries(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error)
	// SumEntries returns sum(credits) - sum(debits) for the wallet, read
	// under the same transaction as the pending mutation.
	SumEntries(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
