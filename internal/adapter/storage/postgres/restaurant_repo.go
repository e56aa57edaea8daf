package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const restaurantColumns = `id, merchant_id, name, slug, description, address, city, price_range,
	is_verified, is_featured, is_active, created_at, updated_at, deleted_at`

// RestaurantRepo implements ports.RestaurantRepository.
type RestaurantRepo struct {
	pool Pool
}

// NewRestaurantRepo creates a new RestaurantRepo.
func NewRestaurantRepo(pool Pool) *RestaurantRepo {
	return &RestaurantRepo{pool: pool}
}

// Create inserts a new restaurant into the database.
func (r *RestaurantRepo) Create(ctx context.Context, rest *domain.Restaurant) error {
	query := `INSERT INTO restaurants (id, merchant_id, name, slug, description, address, city, price_range,
		is_verified, is_featured, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		rest.ID, rest.MerchantID, rest.Name, rest.Slug, rest.Description,
		rest.Address, rest.City, rest.PriceRange,
		rest.IsVerified, rest.IsFeatured, rest.IsActive, rest.CreatedAt, rest.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

// GetByID fetches a restaurant by its UUID, including soft-deleted rows.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`
	return scanRestaurant(r.pool.QueryRow(ctx, query, id), "get restaurant by id")
}

// GetBySlug fetches a live restaurant by its slug.
func (r *RestaurantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE slug = $1 AND deleted_at IS NULL`
	return scanRestaurant(r.pool.QueryRow(ctx, query, slug), "get restaurant by slug")
}

// Update rewrites the mutable fields of a restaurant.
func (r *RestaurantRepo) Update(ctx context.Context, rest *domain.Restaurant) error {
	query := `UPDATE restaurants SET name = $1, slug = $2, description = $3, address = $4, city = $5,
		price_range = $6, is_verified = $7, is_featured = $8, is_active = $9, updated_at = NOW()
		WHERE id = $10 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query,
		rest.Name, rest.Slug, rest.Description, rest.Address, rest.City,
		rest.PriceRange, rest.IsVerified, rest.IsFeatured, rest.IsActive, rest.ID,
	)
	if err != nil {
		return fmt.Errorf("update restaurant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restaurant not found: %s", rest.ID)
	}
	return nil
}

// SoftDelete marks a restaurant deleted without removing the row.
func (r *RestaurantRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE restaurants SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete restaurant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restaurant not found: %s", id)
	}
	return nil
}

// ListVisible returns active, non-deleted restaurants, optionally filtered
// by city.
func (r *RestaurantRepo) ListVisible(ctx context.Context, city string) ([]domain.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants
		WHERE is_active = TRUE AND deleted_at IS NULL`
	args := []any{}
	if city != "" {
		query += ` AND city = $1`
		args = append(args, city)
	}
	query += ` ORDER BY is_featured DESC, name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visible restaurants: %w", err)
	}
	defer rows.Close()
	return collectRestaurants(rows)
}

// ListByMerchant returns all non-deleted restaurants owned by a merchant.
func (r *RestaurantRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants
		WHERE merchant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list restaurants by merchant: %w", err)
	}
	defer rows.Close()
	return collectRestaurants(rows)
}

func scanRestaurant(row pgx.Row, op string) (*domain.Restaurant, error) {
	rest := &domain.Restaurant{}
	err := row.Scan(
		&rest.ID, &rest.MerchantID, &rest.Name, &rest.Slug, &rest.Description,
		&rest.Address, &rest.City, &rest.PriceRange,
		&rest.IsVerified, &rest.IsFeatured, &rest.IsActive,
		&rest.CreatedAt, &rest.UpdatedAt, &rest.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rest, nil
}

func collectRestaurants(rows pgx.Rows) ([]domain.Restaurant, error) {
	var out []domain.Restaurant
	for rows.Next() {
		var rest domain.Restaurant
		if err := rows.Scan(
			&rest.ID, &rest.MerchantID, &rest.Name, &rest.Slug, &rest.Description,
			&rest.Address, &rest.City, &rest.PriceRange,
			&rest.IsVerified, &rest.IsFeatured, &rest.IsActive,
			&rest.CreatedAt, &rest.UpdatedAt, &rest.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan restaurant row: %w", err)
		}
		out = append(out, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurant rows: %w", err)
	}
	return out, nil
}
