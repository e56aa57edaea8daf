package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const dealColumns = `id, restaurant_id, title, description, deal_type, max_uses, used_count,
	max_per_user, starts_at, ends_at, is_active, created_at, updated_at, deleted_at`

// DealRepo implements ports.DealRepository.
type DealRepo struct {
	pool Pool
}

// NewDealRepo creates a new DealRepo.
func NewDealRepo(pool Pool) *DealRepo {
	return &DealRepo{pool: pool}
}

// Create inserts a new deal into the database.
func (r *DealRepo) Create(ctx context.Context, d *domain.Deal) error {
	query := `INSERT INTO deals (id, restaurant_id, title, description, deal_type, max_uses, used_count,
		max_per_user, starts_at, ends_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.RestaurantID, d.Title, d.Description, d.DealType,
		d.MaxUses, d.UsedCount, d.MaxPerUser,
		d.StartsAt, d.EndsAt, d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

// GetByID fetches a deal by its UUID (without locking).
func (r *DealRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`
	return scanDeal(r.pool.QueryRow(ctx, query, id), "get deal by id")
}

// GetByIDForUpdate fetches a deal by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *DealRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 FOR UPDATE`
	return scanDeal(tx.QueryRow(ctx, query, id), "get deal for update")
}

// Update rewrites the mutable fields of a deal. Counters are never touched
// here; IncrementUsedCount owns used_count.
func (r *DealRepo) Update(ctx context.Context, d *domain.Deal) error {
	query := `UPDATE deals SET title = $1, description = $2, deal_type = $3, max_uses = $4,
		max_per_user = $5, starts_at = $6, ends_at = $7, is_active = $8, updated_at = NOW()
		WHERE id = $9 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query,
		d.Title, d.Description, d.DealType, d.MaxUses,
		d.MaxPerUser, d.StartsAt, d.EndsAt, d.IsActive, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deal not found: %s", d.ID)
	}
	return nil
}

// SoftDelete marks a deal deleted without removing the row.
func (r *DealRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE deals SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deal not found: %s", id)
	}
	return nil
}

// ListActive returns deals that are active, not deleted and inside their
// time window right now.
func (r *DealRepo) ListActive(ctx context.Context) ([]domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals
		WHERE is_active = TRUE AND deleted_at IS NULL
		AND starts_at <= NOW() AND ends_at >= NOW()
		ORDER BY ends_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active deals: %w", err)
	}
	defer rows.Close()
	return collectDeals(rows)
}

// ListByRestaurant returns all non-deleted deals of a restaurant.
func (r *DealRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals
		WHERE restaurant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list deals by restaurant: %w", err)
	}
	defer rows.Close()
	return collectDeals(rows)
}

// IncrementUsedCount bumps used_count by one, guarded so it can never pass
// max_uses. The WHERE clause re-checks capacity so a concurrent increment
// between read and write cannot oversell; zero rows affected means the deal
// is exhausted.
func (r *DealRepo) IncrementUsedCount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE deals SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment deal used count: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountUserUses counts how many times a user has already used a deal, read
// under the caller's transaction.
func (r *DealRepo) CountUserUses(ctx context.Context, tx pgx.Tx, dealID, userID uuid.UUID) (int32, error) {
	query := `SELECT COUNT(*) FROM deal_uses WHERE deal_id = $1 AND user_id = $2`

	var count int32
	if err := tx.QueryRow(ctx, query, dealID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count user deal uses: %w", err)
	}
	return count, nil
}

// CreateUse inserts a deal use record within a transaction.
func (r *DealRepo) CreateUse(ctx context.Context, tx pgx.Tx, use *domain.DealUse) error {
	query := `INSERT INTO deal_uses (id, deal_id, user_id, restaurant_confirmed, notes, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		use.ID, use.DealID, use.UserID, use.RestaurantConfirmed, use.Notes, use.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deal use: %w", err)
	}
	return nil
}

// ListUsesByUser returns a user's deal use history, newest first.
func (r *DealRepo) ListUsesByUser(ctx context.Context, userID uuid.UUID) ([]domain.DealUse, error) {
	query := `SELECT id, deal_id, user_id, restaurant_confirmed, notes, used_at
		FROM deal_uses WHERE user_id = $1 ORDER BY used_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list deal uses by user: %w", err)
	}
	defer rows.Close()

	var out []domain.DealUse
	for rows.Next() {
		var use domain.DealUse
		if err := rows.Scan(
			&use.ID, &use.DealID, &use.UserID,
			&use.RestaurantConfirmed, &use.Notes, &use.UsedAt,
		); err != nil {
			return nil, fmt.Errorf("scan deal use row: %w", err)
		}
		out = append(out, use)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal use rows: %w", err)
	}
	return out, nil
}

func scanDeal(row pgx.Row, op string) (*domain.Deal, error) {
	d := &domain.Deal{}
	err := row.Scan(
		&d.ID, &d.RestaurantID, &d.Title, &d.Description, &d.DealType,
		&d.MaxUses, &d.UsedCount, &d.MaxPerUser,
		&d.StartsAt, &d.EndsAt, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

func collectDeals(rows pgx.Rows) ([]domain.Deal, error) {
	var out []domain.Deal
	for rows.Next() {
		var d domain.Deal
		if err := rows.Scan(
			&d.ID, &d.RestaurantID, &d.Title, &d.Description, &d.DealType,
			&d.MaxUses, &d.UsedCount, &d.MaxPerUser,
			&d.StartsAt, &d.EndsAt, &d.IsActive,
			&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal rows: %w", err)
	}
	return out, nil
}
