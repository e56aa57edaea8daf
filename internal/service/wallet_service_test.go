package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports/mocks"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// decEq matches a decimal argument by numeric equality, so "150" and
// "150.00" compare equal.
func decEq(s string) gomock.Matcher {
	return decimalMatcher{want: decimal.RequireFromString(s)}
}

type decimalMatcher struct {
	want decimal.Decimal
}

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return "decimal equal to " + m.want.String()
}

// mockTx is a no-op pgx.Tx for service tests. Only Commit and Rollback are
// called by the services; everything else panics via the embedded nil.
type mockTx struct {
	pgx.Tx
}

func (mockTx) Rollback(ctx context.Context) error { return nil }
func (mockTx) Commit(ctx context.Context) error   { return nil }

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	transactor *mocks.MockDBTransactor
}

func setupWalletService(t *testing.T) walletTestDeps {
	ctrl := gomock.NewController(t)
	walletRepo := mocks.NewMockWalletRepository(ctrl)
	transactor := mocks.NewMockDBTransactor(ctrl)
	svc := NewWalletService(walletRepo, transactor, zerolog.Nop())
	return walletTestDeps{svc: svc, walletRepo: walletRepo, transactor: transactor}
}

func TestWalletService_GetOrCreate_Existing(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	existing := &domain.Wallet{ID: uuid.New(), UserID: userID, Balance: dec("150.00")}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(existing, nil)

	wallet, err := d.svc.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, wallet.ID)
	assert.True(t, wallet.Balance.Equal(dec("150.00")))
}

func TestWalletService_GetOrCreate_CreatesOnFirstUse(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, w *domain.Wallet) error {
			assert.Equal(t, userID, w.UserID)
			assert.True(t, w.Balance.IsZero())
			return nil
		})

	wallet, err := d.svc.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, wallet.UserID)
	assert.True(t, wallet.Balance.IsZero())
}

func TestWalletService_GetOrCreate_LostInsertRace(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	winner := &domain.Wallet{ID: uuid.New(), UserID: userID}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("duplicate key"))
	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(winner, nil)

	wallet, err := d.svc.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, wallet.ID)
}

func TestWalletService_Credit_Success(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}
	wallet := &domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(wallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("100.00"), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decEq("150.00")).Return(nil)
	d.walletRepo.EXPECT().CreateEntry(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, walletID, entry.WalletID)
			assert.Equal(t, domain.EntryCredit, entry.Kind)
			assert.True(t, entry.Amount.Equal(dec("50.00")))
			assert.Equal(t, "Top-up", entry.Reason)
			return nil
		})

	result, err := d.svc.Credit(ctx, userID, dec("50.00"), "Top-up")
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(dec("150.00")))
}

func TestWalletService_Debit_Success(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("100.00"), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decEq("25.00")).Return(nil)
	d.walletRepo.EXPECT().CreateEntry(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.Debit(ctx, userID, dec("75.00"), "Voucher purchase LUNCH50")
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(dec("25.00")))
}

func TestWalletService_Debit_InsufficientFunds(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("10.00")}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("10.00")}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("10.00"), nil)

	_, err := d.svc.Debit(ctx, userID, dec("75.00"), "Voucher purchase LUNCH50")
	assertAppError(t, err, "WLT_001")
}

func TestWalletService_Mutate_RejectsNonPositiveAmount(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := d.svc.Credit(ctx, userID, dec("0"), "Top-up")
	assertAppError(t, err, "WLT_002")

	_, err = d.svc.Debit(ctx, userID, dec("-5.00"), "Top-up")
	assertAppError(t, err, "WLT_002")
}

func TestWalletService_Mutate_LedgerMismatch(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	// Ledger sum disagrees with the stored balance: refuse to move money.
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("90.00"), nil)

	_, err := d.svc.Credit(ctx, userID, dec("50.00"), "Top-up")
	assertAppError(t, err, "WLT_003")
}

func TestWalletService_Mutate_ConflictAfterRetries(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	tx := mockTx{}
	serialization := &pgconn.PgError{Code: "40001"}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(
		&domain.Wallet{ID: uuid.New(), UserID: userID, Balance: dec("100.00")}, nil)
	// Every attempt (first try plus retries) hits a serialization failure.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(int(txMaxRetries) + 1)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(nil, serialization).Times(int(txMaxRetries) + 1)

	_, err := d.svc.Credit(ctx, userID, dec("50.00"), "Top-up")
	assertAppError(t, err, "SYS_002")
}

func TestWalletService_Mutate_RecoversAfterConflict(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	first := d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(nil, &pgconn.PgError{Code: "40P01"})
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).
		Return(&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("100.00")}, nil).
		After(first)
	d.walletRepo.EXPECT().SumEntries(ctx, tx, walletID).Return(dec("100.00"), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, decEq("150.00")).Return(nil)
	d.walletRepo.EXPECT().CreateEntry(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.Credit(ctx, userID, dec("50.00"), "Top-up")
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(dec("150.00")))
}

func TestWalletService_ListEntries(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(
		&domain.Wallet{ID: walletID, UserID: userID, Balance: dec("50.00")}, nil)
	d.walletRepo.EXPECT().ListEntries(ctx, walletID).Return([]domain.LedgerEntry{
		{ID: uuid.New(), WalletID: walletID, Kind: domain.EntryCredit, Amount: dec("100.00"), Reason: "Top-up", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), WalletID: walletID, Kind: domain.EntryDebit, Amount: dec("50.00"), Reason: "Voucher purchase LUNCH50", CreatedAt: time.Now().UTC()},
	}, nil)

	entries, err := d.svc.ListEntries(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryCredit, entries[0].Kind)
	assert.Equal(t, domain.EntryDebit, entries[1].Kind)
}
