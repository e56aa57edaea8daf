package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CatalogServiceImpl implements ports.CatalogService. Public listings are
// served through a read-path cache keyed by day bucket; writes never
// invalidate, entries just expire.
type CatalogServiceImpl struct {
	restaurantRepo ports.RestaurantRepository
	dealRepo       ports.DealRepository
	voucherRepo    ports.VoucherRepository
	merchantRepo   ports.MerchantRepository
	cache          ports.ListingCache
	clock          ports.Clock
	dealTTL        time.Duration
	voucherTTL     time.Duration
	log            zerolog.Logger
}

// NewCatalogService creates a new CatalogServiceImpl.
func NewCatalogService(
	restaurantRepo ports.RestaurantRepository,
	dealRepo ports.DealRepository,
	voucherRepo ports.VoucherRepository,
	merchantRepo ports.MerchantRepository,
	cache ports.ListingCache,
	clock ports.Clock,
	dealTTL, voucherTTL time.Duration,
	log zerolog.Logger,
) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		restaurantRepo: restaurantRepo,
		dealRepo:       dealRepo,
		voucherRepo:    voucherRepo,
		merchantRepo:   merchantRepo,
		cache:          cache,
		clock:          clock,
		dealTTL:        dealTTL,
		voucherTTL:     voucherTTL,
		log:            log,
	}
}

// --- Restaurants ---

// CreateRestaurant creates a restaurant owned by the caller's merchant
// profile.
func (s *CatalogServiceImpl) CreateRestaurant(ctx context.Context, userID uuid.UUID, rest *domain.Restaurant) (*domain.Restaurant, error) {
	merchant, err := s.requireMerchant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateRestaurant(rest); err != nil {
		return nil, err
	}

	if rest.Slug == "" {
		rest.Slug = slugify(rest.Name)
	}
	existing, err := s.restaurantRepo.GetBySlug(ctx, rest.Slug)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check slug: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrSlugExists()
	}

	now := time.Now().UTC()
	rest.ID = uuid.New()
	rest.MerchantID = merchant.ID
	rest.IsVerified = false
	rest.IsFeatured = false
	rest.IsActive = true
	rest.CreatedAt = now
	rest.UpdatedAt = now

	if err := s.restaurantRepo.Create(ctx, rest); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create restaurant: %w", err))
	}

	s.log.Info().Str("restaurant_id", rest.ID.String()).Str("merchant_id", merchant.ID.String()).Msg("restaurant created")
	return rest, nil
}

// UpdateRestaurant rewrites a restaurant the caller owns.
func (s *CatalogServiceImpl) UpdateRestaurant(ctx context.Context, userID uuid.UUID, rest *domain.Restaurant) (*domain.Restaurant, error) {
	current, err := s.ownedRestaurant(ctx, userID, rest.ID)
	if err != nil {
		return nil, err
	}
	if err := validateRestaurant(rest); err != nil {
		return nil, err
	}

	if rest.Slug == "" {
		rest.Slug = current.Slug
	}
	if rest.Slug != current.Slug {
		existing, err := s.restaurantRepo.GetBySlug(ctx, rest.Slug)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check slug: %w", err))
		}
		if existing != nil {
			return nil, apperror.ErrSlugExists()
		}
	}

	rest.MerchantID = current.MerchantID
	rest.IsVerified = current.IsVerified
	rest.IsFeatured = current.IsFeatured
	if err := s.restaurantRepo.Update(ctx, rest); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update restaurant: %w", err))
	}
	return rest, nil
}

// DeleteRestaurant soft-deletes a restaurant the caller owns.
func (s *CatalogServiceImpl) DeleteRestaurant(ctx context.Context, userID, restaurantID uuid.UUID) error {
	if _, err := s.ownedRestaurant(ctx, userID, restaurantID); err != nil {
		return err
	}
	if err := s.restaurantRepo.SoftDelete(ctx, restaurantID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete restaurant: %w", err))
	}
	s.log.Info().Str("restaurant_id", restaurantID.String()).Msg("restaurant deleted")
	return nil
}

// GetRestaurant returns a visible restaurant by ID.
func (s *CatalogServiceImpl) GetRestaurant(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error) {
	rest, err := s.restaurantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get restaurant: %w", err))
	}
	if rest == nil || !rest.Visible() {
		return nil, apperror.ErrNotFound("restaurant")
	}
	return rest, nil
}

// ListRestaurants returns visible restaurants, optionally filtered by city.
func (s *CatalogServiceImpl) ListRestaurants(ctx context.Context, city string) ([]domain.Restaurant, error) {
	restaurants, err := s.restaurantRepo.ListVisible(ctx, city)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list restaurants: %w", err))
	}
	return restaurants, nil
}

// ListMyRestaurants returns the caller's restaurants.
func (s *CatalogServiceImpl) ListMyRestaurants(ctx context.Context, userID uuid.UUID) ([]domain.Restaurant, error) {
	merchant, err := s.requireMerchant(ctx, userID)
	if err != nil {
		return nil, err
	}
	restaurants, err := s.restaurantRepo.ListByMerchant(ctx, merchant.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list merchant restaurants: %w", err))
	}
	return restaurants, nil
}

// --- Deals ---

// CreateDeal creates a deal on a restaurant the caller owns.
func (s *CatalogServiceImpl) CreateDeal(ctx context.Context, userID uuid.UUID, deal *domain.Deal) (*domain.Deal, error) {
	if _, err := s.ownedRestaurant(ctx, userID, deal.RestaurantID); err != nil {
		return nil, err
	}
	if err := validateDeal(deal); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	deal.ID = uuid.New()
	deal.UsedCount = 0
	deal.IsActive = true
	deal.CreatedAt = now
	deal.UpdatedAt = now
	if deal.MaxPerUser <= 0 {
		deal.MaxPerUser = 1
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deal: %w", err))
	}

	s.log.Info().Str("deal_id", deal.ID.String()).Str("restaurant_id", deal.RestaurantID.String()).Msg("deal created")
	return deal, nil
}

// UpdateDeal rewrites a deal on a restaurant the caller owns. used_count is
// never writable through this path.
func (s *CatalogServiceImpl) UpdateDeal(ctx context.Context, userID uuid.UUID, deal *domain.Deal) (*domain.Deal, error) {
	current, err := s.dealRepo.GetByID(ctx, deal.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get deal: %w", err))
	}
	if current == nil || current.DeletedAt != nil {
		return nil, apperror.ErrNotFound("deal")
	}
	if _, err := s.ownedRestaurant(ctx, userID, current.RestaurantID); err != nil {
		return nil, err
	}
	if err := validateDeal(deal); err != nil {
		return nil, err
	}

	deal.RestaurantID = current.RestaurantID
	deal.UsedCount = current.UsedCount
	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update deal: %w", err))
	}
	return deal, nil
}

// DeleteDeal soft-deletes a deal on a restaurant the caller owns.
func (s *CatalogServiceImpl) DeleteDeal(ctx context.Context, userID, dealID uuid.UUID) error {
	current, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get deal: %w", err))
	}
	if current == nil || current.DeletedAt != nil {
		return apperror.ErrNotFound("deal")
	}
	if _, err := s.ownedRestaurant(ctx, userID, current.RestaurantID); err != nil {
		return err
	}
	if err := s.dealRepo.SoftDelete(ctx, dealID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete deal: %w", err))
	}
	return nil
}

// GetDeal returns a deal by ID.
func (s *CatalogServiceImpl) GetDeal(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get deal: %w", err))
	}
	if deal == nil || deal.DeletedAt != nil {
		return nil, apperror.ErrNotFound("deal")
	}
	return deal, nil
}

// ListActiveDeals returns currently active deals through the listing cache.
func (s *CatalogServiceImpl) ListActiveDeals(ctx context.Context) ([]domain.Deal, error) {
	key := "active_deals:" + s.clock.Now().UTC().Format("2006-01-02")

	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("listing cache read failed, serving from DB")
	} else if cached != nil {
		var deals []domain.Deal
		if err := json.Unmarshal(cached, &deals); err == nil {
			return deals, nil
		}
		s.log.Warn().Str("key", key).Msg("corrupt cached deal listing, serving from DB")
	}

	deals, err := s.dealRepo.ListActive(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list active deals: %w", err))
	}

	if payload, err := json.Marshal(deals); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.dealTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("listing cache write failed")
		}
	}
	return deals, nil
}

// --- Vouchers ---

// CreateVoucher creates a voucher on a restaurant the caller owns.
func (s *CatalogServiceImpl) CreateVoucher(ctx context.Context, userID uuid.UUID, v *domain.Voucher) (*domain.Voucher, error) {
	if _, err := s.ownedRestaurant(ctx, userID, v.RestaurantID); err != nil {
		return nil, err
	}
	if err := validateVoucher(v); err != nil {
		return nil, err
	}

	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	existing, err := s.voucherRepo.GetByCode(ctx, v.Code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check code: %w", err))
	}
	if existing != nil {
		return nil, apperror.Validation("voucher code already exists")
	}

	now := time.Now().UTC()
	v.ID = uuid.New()
	v.SoldQuantity = 0
	v.IsActive = true
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.MaxPerUser <= 0 {
		v.MaxPerUser = 5
	}

	if err := s.voucherRepo.Create(ctx, v); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create voucher: %w", err))
	}

	s.log.Info().Str("voucher_id", v.ID.String()).Str("code", v.Code).Msg("voucher created")
	return v, nil
}

// UpdateVoucher rewrites a voucher on a restaurant the caller owns.
// sold_quantity is never writable through this path, and total_quantity
// cannot drop below what has already been sold.
func (s *CatalogServiceImpl) UpdateVoucher(ctx context.Context, userID uuid.UUID, v *domain.Voucher) (*domain.Voucher, error) {
	current, err := s.voucherRepo.GetByID(ctx, v.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get voucher: %w", err))
	}
	if current == nil || current.DeletedAt != nil {
		return nil, apperror.ErrNotFound("voucher")
	}
	if _, err := s.ownedRestaurant(ctx, userID, current.RestaurantID); err != nil {
		return nil, err
	}
	if err := validateVoucher(v); err != nil {
		return nil, err
	}
	if v.TotalQuantity < current.SoldQuantity {
		return nil, apperror.Validation("total_quantity cannot be below sold_quantity")
	}

	v.RestaurantID = current.RestaurantID
	v.Code = current.Code
	v.SoldQuantity = current.SoldQuantity
	if err := s.voucherRepo.Update(ctx, v); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update voucher: %w", err))
	}
	return v, nil
}

// DeleteVoucher soft-deletes a voucher on a restaurant the caller owns.
func (s *CatalogServiceImpl) DeleteVoucher(ctx context.Context, userID, voucherID uuid.UUID) error {
	current, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get voucher: %w", err))
	}
	if current == nil || current.DeletedAt != nil {
		return apperror.ErrNotFound("voucher")
	}
	if _, err := s.ownedRestaurant(ctx, userID, current.RestaurantID); err != nil {
		return err
	}
	if err := s.voucherRepo.SoftDelete(ctx, voucherID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete voucher: %w", err))
	}
	return nil
}

// GetVoucher returns a voucher by ID.
func (s *CatalogServiceImpl) GetVoucher(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	v, err := s.voucherRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get voucher: %w", err))
	}
	if v == nil || v.DeletedAt != nil {
		return nil, apperror.ErrNotFound("voucher")
	}
	return v, nil
}

// ListActiveVouchers returns currently purchasable vouchers through the
// listing cache.
func (s *CatalogServiceImpl) ListActiveVouchers(ctx context.Context) ([]domain.Voucher, error) {
	key := "active_vouchers:" + s.clock.Now().UTC().Format("2006-01-02")

	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("listing cache read failed, serving from DB")
	} else if cached != nil {
		var vouchers []domain.Voucher
		if err := json.Unmarshal(cached, &vouchers); err == nil {
			return vouchers, nil
		}
		s.log.Warn().Str("key", key).Msg("corrupt cached voucher listing, serving from DB")
	}

	vouchers, err := s.voucherRepo.ListActive(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list active vouchers: %w", err))
	}

	if payload, err := json.Marshal(vouchers); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.voucherTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("listing cache write failed")
		}
	}
	return vouchers, nil
}

// --- helpers ---

func (s *CatalogServiceImpl) requireMerchant(ctx context.Context, userID uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.merchantRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant profile: %w", err))
	}
	if merchant == nil || !merchant.IsActive {
		return nil, apperror.ErrForbidden()
	}
	return merchant, nil
}

// ownedRestaurant loads a restaurant and verifies the caller's merchant
// profile owns it.
func (s *CatalogServiceImpl) ownedRestaurant(ctx context.Context, userID, restaurantID uuid.UUID) (*domain.Restaurant, error) {
	merchant, err := s.requireMerchant(ctx, userID)
	if err != nil {
		return nil, err
	}
	rest, err := s.restaurantRepo.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get restaurant: %w", err))
	}
	if rest == nil || rest.DeletedAt != nil {
		return nil, apperror.ErrNotFound("restaurant")
	}
	if rest.MerchantID != merchant.ID {
		return nil, apperror.ErrNotOwner()
	}
	return rest, nil
}

func validateRestaurant(r *domain.Restaurant) error {
	if strings.TrimSpace(r.Name) == "" {
		return apperror.Validation("name is required")
	}
	if strings.TrimSpace(r.Address) == "" || strings.TrimSpace(r.City) == "" {
		return apperror.Validation("address and city are required")
	}
	if r.PriceRange < 1 || r.PriceRange > 4 {
		return apperror.Validation("price_range must be between 1 and 4")
	}
	return nil
}

func validateDeal(d *domain.Deal) error {
	if strings.TrimSpace(d.Title) == "" {
		return apperror.Validation("title is required")
	}
	if !d.DealType.Valid() {
		return apperror.Validation("invalid deal_type")
	}
	if d.MaxUses != nil && *d.MaxUses < 0 {
		return apperror.Validation("max_uses cannot be negative")
	}
	if !d.EndsAt.After(d.StartsAt) {
		return apperror.Validation("ends_at must be after starts_at")
	}
	return nil
}

func validateVoucher(v *domain.Voucher) error {
	if strings.TrimSpace(v.Title) == "" {
		return apperror.Validation("title is required")
	}
	if strings.TrimSpace(v.Code) == "" {
		return apperror.Validation("code is required")
	}
	if v.DiscountPercent < 0 || v.DiscountPercent > 100 {
		return apperror.Validation("discount_percent must be between 0 and 100")
	}
	if v.OriginalPrice.IsNegative() || v.SalePrice.IsNegative() {
		return apperror.Validation("prices cannot be negative")
	}
	if v.TotalQuantity < 0 {
		return apperror.Validation("total_quantity cannot be negative")
	}
	if !v.EndsAt.After(v.StartsAt) {
		return apperror.Validation("ends_at must be after starts_at")
	}
	return nil
}

// slugify builds a URL-safe slug from a display name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
