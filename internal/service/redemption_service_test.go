package service

import (
	"context"
	"testing"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type redemptionTestDeps struct {
	svc         *RedemptionServiceImpl
	dealRepo    *mocks.MockDealRepository
	voucherRepo *mocks.MockVoucherRepository
	walletRepo  *mocks.MockWalletRepository
	walletSvc   *mocks.MockWalletService
	transactor  *mocks.MockDBTransactor
	clock       *mocks.MockClock
}

func setupRedemptionService(t *testing.T) redemptionTestDeps {
	ctrl := gomock.NewController(t)
	dealRepo := mocks.NewMockDealRepository(ctrl)
	voucherRepo := mocks.NewMockVoucherRepository(ctrl)
	walletRepo := mocks.NewMockWalletRepository(ctrl)
	walletSvc := mocks.NewMockWalletService(ctrl)
	transactor := mocks.NewMockDBTransactor(ctrl)
	clock := mocks.NewMockClock(ctrl)
	svc := NewRedemptionService(dealRepo, voucherRepo, walletRepo, walletSvc, transactor, clock, zerolog.Nop())
	return redemptionTestDeps{
		svc:         svc,
		dealRepo:    dealRepo,
		voucherRepo: voucherRepo,
		walletRepo:  walletRepo,
		walletSvc:   walletSvc,
		transactor:  transactor,
		clock:       clock,
	}
}

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func activeDeal(id uuid.UUID) *domain.Deal {
	maxUses := int32(100)
	return &domain.Deal{
		ID:           id,
		RestaurantID: uuid.New(),
		Title:        "Two-for-one Tuesdays",
		DealType:     domain.DealTypeTwoForOne,
		MaxUses:      &maxUses,
		UsedCount:    10,
		MaxPerUser:   2,
		StartsAt:     testNow.Add(-24 * time.Hour),
		EndsAt:       testNow.Add(24 * time.Hour),
		IsActive:     true,
	}
}

func activeVoucher(id uuid.UUID) *domain.Voucher {
	return &domain.Voucher{
		ID:            id,
		RestaurantID:  uuid.New(),
		Title:         "Lunch for two",
		Code:          "LUNCH50",
		OriginalPrice: dec("100.00"),
		SalePrice:     dec("50.00"),
		TotalQuantity: 200,
		SoldQuantity:  40,
		MaxPerUser:    5,
		StartsAt:      testNow.Add(-24 * time.Hour),
		EndsAt:        testNow.Add(24 * time.Hour),
		IsActive:      true,
	}
}

func TestRedemptionService_RedeemDeal_Success(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.dealRepo.EXPECT().CountUserUses(ctx, tx, dealID, userID).Return(int32(0), nil)
	d.dealRepo.EXPECT().IncrementUsedCount(ctx, tx, dealID).Return(true, nil)
	d.dealRepo.EXPECT().CreateUse(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, use *domain.DealUse) error {
			assert.Equal(t, dealID, use.DealID)
			assert.Equal(t, userID, use.UserID)
			assert.Equal(t, "table by the window", use.Notes)
			assert.Equal(t, testNow, use.UsedAt)
			return nil
		})

	use, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{
		DealID: dealID, UserID: userID, Notes: "table by the window",
	})
	require.NoError(t, err)
	assert.Equal(t, dealID, use.DealID)
}

func TestRedemptionService_RedeemDeal_NotFound(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	tx := mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(nil, nil)

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: uuid.New()})
	assertAppError(t, err, "CAT_001")
}

func TestRedemptionService_RedeemDeal_Inactive(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)
	deal.IsActive = false

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: uuid.New()})
	assertAppError(t, err, "RDM_001")
}

func TestRedemptionService_RedeemDeal_SoftDeleted(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)
	deletedAt := testNow.Add(-time.Hour)
	deal.DeletedAt = &deletedAt

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: uuid.New()})
	assertAppError(t, err, "RDM_001")
}

func TestRedemptionService_RedeemDeal_OutsideWindow(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	// A day past the end of the window.
	d.clock.EXPECT().Now().Return(deal.EndsAt.Add(24 * time.Hour))

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: uuid.New()})
	assertAppError(t, err, "RDM_001")
}

func TestRedemptionService_RedeemDeal_NoMaxUses(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)
	// No cap at all: any used count still has capacity.
	deal.MaxUses = nil
	deal.UsedCount = 100000

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.dealRepo.EXPECT().CountUserUses(ctx, tx, dealID, userID).Return(int32(1), nil)
	d.dealRepo.EXPECT().IncrementUsedCount(ctx, tx, dealID).Return(true, nil)
	d.dealRepo.EXPECT().CreateUse(ctx, tx, gomock.Any()).Return(nil)

	use, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, dealID, use.DealID)
}

func TestRedemptionService_RedeemDeal_CapacityExhausted(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)
	deal.UsedCount = *deal.MaxUses

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: uuid.New()})
	assertAppError(t, err, "RDM_002")
}

func TestRedemptionService_RedeemDeal_GuardedBumpLosesRace(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.dealRepo.EXPECT().CountUserUses(ctx, tx, dealID, userID).Return(int32(0), nil)
	// The row looked fine but the guarded UPDATE matched nothing.
	d.dealRepo.EXPECT().IncrementUsedCount(ctx, tx, dealID).Return(false, nil)

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: userID})
	assertAppError(t, err, "RDM_002")
}

func TestRedemptionService_RedeemDeal_UserLimitReached(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.dealRepo.EXPECT().CountUserUses(ctx, tx, dealID, userID).Return(deal.MaxPerUser, nil)

	_, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: userID})
	assertAppError(t, err, "RDM_003")
}

func TestRedemptionService_RedeemDeal_RetriesOnDeadlock(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	dealID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	deal := activeDeal(dealID)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	first := d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).
		Return(nil, &pgconn.PgError{Code: "40P01"})
	d.dealRepo.EXPECT().GetByIDForUpdate(ctx, tx, dealID).Return(deal, nil).After(first)
	d.clock.EXPECT().Now().Return(testNow)
	d.dealRepo.EXPECT().CountUserUses(ctx, tx, dealID, userID).Return(int32(0), nil)
	d.dealRepo.EXPECT().IncrementUsedCount(ctx, tx, dealID).Return(true, nil)
	d.dealRepo.EXPECT().CreateUse(ctx, tx, gomock.Any()).Return(nil)

	use, err := d.svc.RedeemDeal(ctx, ports.RedeemDealRequest{DealID: dealID, UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, dealID, use.DealID)
}

func TestRedemptionService_PurchaseVoucher_Success(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	voucherID := uuid.New()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}
	voucher := activeVoucher(voucherID)

	d.walletSvc.EXPECT().GetOrCreate(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.voucherRepo.EXPECT().GetByIDForUpdate(ctx, tx, voucherID).Return(voucher, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.voucherRepo.EXPECT().CountUserRedemptions(ctx, tx, voucherID, userID).Return(int32(0), nil)
	d.voucherRepo.EXPECT().IncrementSoldQuantity(ctx, tx, voucherID).Return(true, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("100.00"), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decEq("50.00")).Return(nil)
	d.walletRepo.EXPECT().CreateEntry(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, domain.EntryDebit, entry.Kind)
			assert.True(t, entry.Amount.Equal(dec("50.00")))
			assert.Equal(t, "Voucher purchase LUNCH50", entry.Reason)
			return nil
		})
	d.voucherRepo.EXPECT().CreateRedemption(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, r *domain.VoucherRedemption) error {
			assert.Equal(t, voucherID, r.VoucherID)
			assert.Equal(t, userID, r.UserID)
			assert.True(t, r.PricePaid.Equal(dec("50.00")))
			assert.True(t, r.IsSuccessful)
			return nil
		})

	redemption, err := d.svc.PurchaseVoucher(ctx, ports.PurchaseVoucherRequest{VoucherID: voucherID, UserID: userID})
	require.NoError(t, err)
	assert.True(t, redemption.PricePaid.Equal(dec("50.00")))
}

func TestRedemptionService_PurchaseVoucher_InsufficientFunds(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	voucherID := uuid.New()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}
	voucher := activeVoucher(voucherID)

	d.walletSvc.EXPECT().GetOrCreate(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("10.00")}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.voucherRepo.EXPECT().GetByIDForUpdate(ctx, tx, voucherID).Return(voucher, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.voucherRepo.EXPECT().CountUserRedemptions(ctx, tx, voucherID, userID).Return(int32(0), nil)
	d.voucherRepo.EXPECT().IncrementSoldQuantity(ctx, tx, voucherID).Return(true, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("10.00")}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("10.00"), nil)

	// The stock bump rolls back with the failed debit; no redemption row.
	_, err := d.svc.PurchaseVoucher(ctx, ports.PurchaseVoucherRequest{VoucherID: voucherID, UserID: userID})
	assertAppError(t, err, "WLT_001")
}

func TestRedemptionService_PurchaseVoucher_SoldOut(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	voucherID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	voucher := activeVoucher(voucherID)
	voucher.SoldQuantity = voucher.TotalQuantity

	d.walletSvc.EXPECT().GetOrCreate(ctx, userID).Return(
		&domain.Wallet{ID: uuid.New(), UserID: userID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.voucherRepo.EXPECT().GetByIDForUpdate(ctx, tx, voucherID).Return(voucher, nil)
	d.clock.EXPECT().Now().Return(testNow)

	_, err := d.svc.PurchaseVoucher(ctx, ports.PurchaseVoucherRequest{VoucherID: voucherID, UserID: userID})
	assertAppError(t, err, "RDM_002")
}

func TestRedemptionService_PurchaseVoucher_UserLimitReached(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	voucherID := uuid.New()
	userID := uuid.New()
	tx := mockTx{}
	voucher := activeVoucher(voucherID)

	d.walletSvc.EXPECT().GetOrCreate(ctx, userID).Return(
		&domain.Wallet{ID: uuid.New(), UserID: userID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.voucherRepo.EXPECT().GetByIDForUpdate(ctx, tx, voucherID).Return(voucher, nil)
	d.clock.EXPECT().Now().Return(testNow)
	d.voucherRepo.EXPECT().CountUserRedemptions(ctx, tx, voucherID, userID).Return(voucher.MaxPerUser, nil)

	_, err := d.svc.PurchaseVoucher(ctx, ports.PurchaseVoucherRequest{VoucherID: voucherID, UserID: userID})
	assertAppError(t, err, "RDM_003")
}

func TestRedemptionService_ListDealUses(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.dealRepo.EXPECT().ListUsesByUser(ctx, userID).Return([]domain.DealUse{
		{ID: uuid.New(), DealID: uuid.New(), UserID: userID, UsedAt: testNow},
	}, nil)

	uses, err := d.svc.ListDealUses(ctx, userID)
	require.NoError(t, err)
	require.Len(t, uses, 1)
	assert.Equal(t, userID, uses[0].UserID)
}

func TestRedemptionService_ListVoucherRedemptions(t *testing.T) {
	d := setupRedemptionService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.voucherRepo.EXPECT().ListRedemptionsByUser(ctx, userID).Return([]domain.VoucherRedemption{
		{ID: uuid.New(), VoucherID: uuid.New(), UserID: userID, PricePaid: dec("50.00"), IsSuccessful: true},
	}, nil)

	redemptions, err := d.svc.ListVoucherRedemptions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, redemptions, 1)
	assert.True(t, redemptions[0].IsSuccessful)
}
