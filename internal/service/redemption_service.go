package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// RedemptionServiceImpl implements ports.RedemptionService with pessimistic
// locking. The entity row is locked first, eligibility is checked in a fixed
// order, and the guarded counter bump plus the record insert commit in one
// transaction. Retrying the same redemption request redeems again; callers
// get a fresh use each time they ask.
type RedemptionServiceImpl struct {
	dealRepo    ports.DealRepository
	voucherRepo ports.VoucherRepository
	walletRepo  ports.WalletRepository
	walletSvc   ports.WalletService
	transactor  ports.DBTransactor
	clock       ports.Clock
	log         zerolog.Logger
}

// NewRedemptionService creates a new RedemptionServiceImpl.
func NewRedemptionService(
	dealRepo ports.DealRepository,
	voucherRepo ports.VoucherRepository,
	walletRepo ports.WalletRepository,
	walletSvc ports.WalletService,
	transactor ports.DBTransactor,
	clock ports.Clock,
	log zerolog.Logger,
) *RedemptionServiceImpl {
	return &RedemptionServiceImpl{
		dealRepo:    dealRepo,
		voucherRepo: voucherRepo,
		walletRepo:  walletRepo,
		walletSvc:   walletSvc,
		transactor:  transactor,
		clock:       clock,
		log:         log,
	}
}

// RedeemDeal records one use of a deal for a user.
func (s *RedemptionServiceImpl) RedeemDeal(ctx context.Context, req ports.RedeemDealRequest) (*domain.DealUse, error) {
	var use *domain.DealUse
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		u, err := s.redeemDealOnce(ctx, req)
		if err != nil {
			return err
		}
		use = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("deal_id", req.DealID.String()).
		Str("user_id", req.UserID.String()).
		Str("use_id", use.ID.String()).
		Msg("deal redeemed")

	return use, nil
}

func (s *RedemptionServiceImpl) redeemDealOnce(ctx context.Context, req ports.RedeemDealRequest) (*domain.DealUse, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock the deal row so concurrent redemptions serialize here.
	deal, err := s.dealRepo.GetByIDForUpdate(ctx, dbTx, req.DealID)
	if err != nil {
		return nil, fmt.Errorf("lock deal: %w", err)
	}
	if deal == nil {
		return nil, apperror.ErrNotFound("deal")
	}

	// Eligibility, cheapest check first.
	now := s.clock.Now()
	if !deal.IsActive || deal.DeletedAt != nil {
		return nil, apperror.ErrNotEligible("deal is not active")
	}
	if !deal.InWindow(now) {
		return nil, apperror.ErrNotEligible("deal is outside its active window")
	}
	if !deal.HasCapacity() {
		return nil, apperror.ErrCapacityExhausted()
	}

	uses, err := s.dealRepo.CountUserUses(ctx, dbTx, deal.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("count user uses: %w", err)
	}
	if uses >= deal.MaxPerUser {
		return nil, apperror.ErrUserLimitReached()
	}

	// Guarded bump. The WHERE clause re-checks capacity, so even if the
	// lock were bypassed the counter cannot pass max_uses.
	bumped, err := s.dealRepo.IncrementUsedCount(ctx, dbTx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("increment used count: %w", err)
	}
	if !bumped {
		return nil, apperror.ErrCapacityExhausted()
	}

	use := &domain.DealUse{
		ID:     uuid.New(),
		DealID: deal.ID,
		UserID: req.UserID,
		Notes:  req.Notes,
		UsedAt: now.UTC(),
	}
	if err := s.dealRepo.CreateUse(ctx, dbTx, use); err != nil {
		return nil, fmt.Errorf("create deal use: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return use, nil
}

// PurchaseVoucher sells one unit of a voucher to a user, debiting the sale
// price from their wallet in the same transaction as the stock bump.
func (s *RedemptionServiceImpl) PurchaseVoucher(ctx context.Context, req ports.PurchaseVoucherRequest) (*domain.VoucherRedemption, error) {
	// Make sure the wallet row exists before entering the locking path.
	if _, err := s.walletSvc.GetOrCreate(ctx, req.UserID); err != nil {
		return nil, err
	}

	var redemption *domain.VoucherRedemption
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		r, err := s.purchaseVoucherOnce(ctx, req)
		if err != nil {
			return err
		}
		redemption = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("voucher_id", req.VoucherID.String()).
		Str("user_id", req.UserID.String()).
		Str("price_paid", redemption.PricePaid.String()).
		Msg("voucher purchased")

	return redemption, nil
}

func (s *RedemptionServiceImpl) purchaseVoucherOnce(ctx context.Context, req ports.PurchaseVoucherRequest) (*domain.VoucherRedemption, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	voucher, err := s.voucherRepo.GetByIDForUpdate(ctx, dbTx, req.VoucherID)
	if err != nil {
		return nil, fmt.Errorf("lock voucher: %w", err)
	}
	if voucher == nil {
		return nil, apperror.ErrNotFound("voucher")
	}

	now := s.clock.Now()
	if !voucher.IsActive || voucher.DeletedAt != nil {
		return nil, apperror.ErrNotEligible("voucher is not active")
	}
	if !voucher.InWindow(now) {
		return nil, apperror.ErrNotEligible("voucher is outside its sale window")
	}
	if !voucher.HasCapacity() {
		return nil, apperror.ErrCapacityExhausted()
	}

	redeemed, err := s.voucherRepo.CountUserRedemptions(ctx, dbTx, voucher.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("count user redemptions: %w", err)
	}
	if redeemed >= voucher.MaxPerUser {
		return nil, apperror.ErrUserLimitReached()
	}

	bumped, err := s.voucherRepo.IncrementSoldQuantity(ctx, dbTx, voucher.ID)
	if err != nil {
		return nil, fmt.Errorf("increment sold quantity: %w", err)
	}
	if !bumped {
		return nil, apperror.ErrCapacityExhausted()
	}

	// Charge the sale price. A failed debit (insufficient funds) rolls the
	// stock bump back with the rest of the transaction.
	reason := fmt.Sprintf("Voucher purchase %s", voucher.Code)
	if _, err := applyLedgerMutation(ctx, s.walletRepo, dbTx, req.UserID, domain.EntryDebit, voucher.SalePrice, reason); err != nil {
		return nil, err
	}

	redemption := &domain.VoucherRedemption{
		ID:           uuid.New(),
		VoucherID:    voucher.ID,
		UserID:       req.UserID,
		PricePaid:    voucher.SalePrice,
		IsSuccessful: true,
		RedeemedAt:   now.UTC(),
	}
	if err := s.voucherRepo.CreateRedemption(ctx, dbTx, redemption); err != nil {
		return nil, fmt.Errorf("create redemption: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return redemption, nil
}

// ListDealUses returns a user's deal use history.
func (s *RedemptionServiceImpl) ListDealUses(ctx context.Context, userID uuid.UUID) ([]domain.DealUse, error) {
	uses, err := s.dealRepo.ListUsesByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list deal uses: %w", err))
	}
	return uses, nil
}

// ListVoucherRedemptions returns a user's voucher purchase history.
func (s *RedemptionServiceImpl) ListVoucherRedemptions(ctx context.Context, userID uuid.UUID) ([]domain.VoucherRedemption, error) {
	redemptions, err := s.voucherRepo.ListRedemptionsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list voucher redemptions: %w", err))
	}
	return redemptions, nil
}

func (s *RedemptionServiceImpl) withConflictRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewConstant(txRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if isSerializationFailure(err) {
		return apperror.ErrConcurrencyConflict(err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.InternalError(err)
}
