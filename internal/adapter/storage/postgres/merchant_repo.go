package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a new merchant profile into the database.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (id, user_id, business_name, is_verified, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.UserID, m.BusinessName, m.IsVerified,
		m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT id, user_id, business_name, is_verified, is_active, created_at, updated_at
		FROM merchants WHERE id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get merchant by id")
}

// GetByUserID fetches the merchant profile owned by a user.
func (r *MerchantRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT id, user_id, business_name, is_verified, is_active, created_at, updated_at
		FROM merchants WHERE user_id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, userID), "get merchant by user id")
}

func (r *MerchantRepo) scanOne(row pgx.Row, op string) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(
		&m.ID, &m.UserID, &m.BusinessName, &m.IsVerified,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}
