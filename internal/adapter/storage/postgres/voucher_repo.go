package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const voucherColumns = `id, restaurant_id, code, title, description, discount_percent,
	original_price, sale_price, total_quantity, sold_quantity, max_per_user,
	starts_at, ends_at, is_active, created_at, updated_at, deleted_at`

// VoucherRepo implements ports.VoucherRepository.
type VoucherRepo struct {
	pool Pool
}

// NewVoucherRepo creates a new VoucherRepo.
func NewVoucherRepo(pool Pool) *VoucherRepo {
	return &VoucherRepo{pool: pool}
}

// Create inserts a new voucher into the database.
func (r *VoucherRepo) Create(ctx context.Context, v *domain.Voucher) error {
	query := `INSERT INTO vouchers (id, restaurant_id, code, title, description, discount_percent,
		original_price, sale_price, total_quantity, sold_quantity, max_per_user,
		starts_at, ends_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.RestaurantID, v.Code, v.Title, v.Description, v.DiscountPercent,
		v.OriginalPrice, v.SalePrice, v.TotalQuantity, v.SoldQuantity, v.MaxPerUser,
		v.StartsAt, v.EndsAt, v.IsActive, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// GetByID fetches a voucher by its UUID (without locking).
func (r *VoucherRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`
	return scanVoucher(r.pool.QueryRow(ctx, query, id), "get voucher by id")
}

// GetByIDForUpdate fetches a voucher by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *VoucherRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1 FOR UPDATE`
	return scanVoucher(tx.QueryRow(ctx, query, id), "get voucher for update")
}

// GetByCode fetches a live voucher by its public code.
func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1 AND deleted_at IS NULL`
	return scanVoucher(r.pool.QueryRow(ctx, query, code), "get voucher by code")
}

// Update rewrites the mutable fields of a voucher. sold_quantity is owned by
// IncrementSoldQuantity and never written here.
func (r *VoucherRepo) Update(ctx context.Context, v *domain.Voucher) error {
	query := `UPDATE vouchers SET title = $1, description = $2, discount_percent = $3,
		original_price = $4, sale_price = $5, total_quantity = $6, max_per_user = $7,
		starts_at = $8, ends_at = $9, is_active = $10, updated_at = NOW()
		WHERE id = $11 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query,
		v.Title, v.Description, v.DiscountPercent,
		v.OriginalPrice, v.SalePrice, v.TotalQuantity, v.MaxPerUser,
		v.StartsAt, v.EndsAt, v.IsActive, v.ID,
	)
	if err != nil {
		return fmt.Errorf("update voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("voucher not found: %s", v.ID)
	}
	return nil
}

// SoftDelete marks a voucher deleted without removing the row.
func (r *VoucherRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE vouchers SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("voucher not found: %s", id)
	}
	return nil
}

// ListActive returns vouchers that are active, not deleted and inside their
// sale window right now.
func (r *VoucherRepo) ListActive(ctx context.Context) ([]domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE is_active = TRUE AND deleted_at IS NULL
		AND starts_at <= NOW() AND ends_at >= NOW()
		ORDER BY ends_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}
	defer rows.Close()
	return collectVouchers(rows)
}

// ListByRestaurant returns all non-deleted vouchers of a restaurant.
func (r *VoucherRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE restaurant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list vouchers by restaurant: %w", err)
	}
	defer rows.Close()
	return collectVouchers(rows)
}

// IncrementSoldQuantity bumps sold_quantity by one, guarded so it can never
// pass total_quantity. Zero rows affected means the voucher is sold out.
func (r *VoucherRepo) IncrementSoldQuantity(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE vouchers SET sold_quantity = sold_quantity + 1, updated_at = NOW()
		WHERE id = $1 AND sold_quantity < total_quantity`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment voucher sold quantity: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountUserRedemptions counts a user's successful purchases of a voucher,
// read under the caller's transaction.
func (r *VoucherRepo) CountUserRedemptions(ctx context.Context, tx pgx.Tx, voucherID, userID uuid.UUID) (int32, error) {
	query := `SELECT COUNT(*) FROM voucher_redemptions
		WHERE voucher_id = $1 AND user_id = $2 AND is_successful = TRUE`

	var count int32
	if err := tx.QueryRow(ctx, query, voucherID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count user voucher redemptions: %w", err)
	}
	return count, nil
}

// CreateRedemption inserts a voucher redemption record within a transaction.
func (r *VoucherRepo) CreateRedemption(ctx context.Context, tx pgx.Tx, red *domain.VoucherRedemption) error {
	query := `INSERT INTO voucher_redemptions (id, voucher_id, user_id, price_paid, is_successful, redeemed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		red.ID, red.VoucherID, red.UserID, red.PricePaid, red.IsSuccessful, red.RedeemedAt,
	)
	if err != nil {
		return fmt.Errorf("insert voucher redemption: %w", err)
	}
	return nil
}

// ListRedemptionsByUser returns a user's voucher purchase history, newest
// first.
func (r *VoucherRepo) ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.VoucherRedemption, error) {
	query := `SELECT id, voucher_id, user_id, price_paid, is_successful, redeemed_at
		FROM voucher_redemptions WHERE user_id = $1 ORDER BY redeemed_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list voucher redemptions by user: %w", err)
	}
	defer rows.Close()

	var out []domain.VoucherRedemption
	for rows.Next() {
		var red domain.VoucherRedemption
		if err := rows.Scan(
			&red.ID, &red.VoucherID, &red.UserID,
			&red.PricePaid, &red.IsSuccessful, &red.RedeemedAt,
		); err != nil {
			return nil, fmt.Errorf("scan voucher redemption row: %w", err)
		}
		out = append(out, red)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher redemption rows: %w", err)
	}
	return out, nil
}

func scanVoucher(row pgx.Row, op string) (*domain.Voucher, error) {
	v := &domain.Voucher{}
	err := row.Scan(
		&v.ID, &v.RestaurantID, &v.Code, &v.Title, &v.Description, &v.DiscountPercent,
		&v.OriginalPrice, &v.SalePrice, &v.TotalQuantity, &v.SoldQuantity, &v.MaxPerUser,
		&v.StartsAt, &v.EndsAt, &v.IsActive,
		&v.CreatedAt, &v.UpdatedAt, &v.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func collectVouchers(rows pgx.Rows) ([]domain.Voucher, error) {
	var out []domain.Voucher
	for rows.Next() {
		var v domain.Voucher
		if err := rows.Scan(
			&v.ID, &v.RestaurantID, &v.Code, &v.Title, &v.Description, &v.DiscountPercent,
			&v.OriginalPrice, &v.SalePrice, &v.TotalQuantity, &v.SoldQuantity, &v.MaxPerUser,
			&v.StartsAt, &v.EndsAt, &v.IsActive,
			&v.CreatedAt, &v.UpdatedAt, &v.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan voucher row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}
	return out, nil
}
