package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// Serialization failures and deadlocks are retried a bounded number of
// times before surfacing as a conflict.
const txRetryBase = 10 * time.Millisecond

const txMaxRetries = 2

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		transactor: transactor,
		log:        log,
	}
}

// GetOrCreate returns the user's wallet, creating an empty one on first use.
func (s *WalletServiceImpl) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	wallet = &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		// A concurrent first request may have won the insert.
		existing, getErr := s.walletRepo.GetByUserID(ctx, userID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().Str("user_id", userID.String()).Str("wallet_id", wallet.ID.String()).Msg("wallet created")
	return wallet, nil
}

// Credit adds funds to the user's wallet.
func (s *WalletServiceImpl) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason string) (*domain.Wallet, error) {
	return s.mutate(ctx, userID, domain.EntryCredit, amount, reason)
}

// Debit removes funds from the user's wallet, failing when the balance
// would go negative.
func (s *WalletServiceImpl) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason string) (*domain.Wallet, error) {
	return s.mutate(ctx, userID, domain.EntryDebit, amount, reason)
}

// ListEntries returns the user's ledger history.
func (s *WalletServiceImpl) ListEntries(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEntry, error) {
	wallet, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.walletRepo.ListEntries(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, nil
}

func (s *WalletServiceImpl) mutate(ctx context.Context, userID uuid.UUID, kind domain.EntryKind, amount decimal.Decimal, reason string) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	// Make sure the wallet row exists before we try to lock it.
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	var wallet *domain.Wallet
	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewConstant(txRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		w, err := s.mutateOnce(ctx, userID, kind, amount, reason)
		if err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return nil, apperror.ErrConcurrencyConflict(err)
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("kind", string(kind)).
		Str("amount", amount.String()).
		Str("reason", reason).
		Msg("wallet mutated")

	return wallet, nil
}

func (s *WalletServiceImpl) mutateOnce(ctx context.Context, userID uuid.UUID, kind domain.EntryKind, amount decimal.Decimal, reason string) (*domain.Wallet, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := applyLedgerMutation(ctx, s.walletRepo, dbTx, userID, kind, amount, reason)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return wallet, nil
}

// applyLedgerMutation is the single place a wallet balance moves. It locks
// the wallet row, verifies the balance still equals the ledger sum, applies
// the movement and appends the entry. Callers own the surrounding
// transaction and commit.
func applyLedgerMutation(ctx context.Context, repo ports.WalletRepository, dbTx pgx.Tx, userID uuid.UUID, kind domain.EntryKind, amount decimal.Decimal, reason string) (*domain.Wallet, error) {
	wallet, err := repo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	// Reconcile: balance must equal sum(credits) - sum(debits) before we
	// touch anything.
	ledgerSum, err := repo.SumEntries(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	if !ledgerSum.Equal(wallet.Balance) {
		return nil, apperror.ErrLedgerMismatch(fmt.Errorf(
			"wallet %s: balance %s, ledger sum %s", wallet.ID, wallet.Balance, ledgerSum))
	}

	var newBalance decimal.Decimal
	switch kind {
	case domain.EntryCredit:
		newBalance = wallet.Balance.Add(amount)
	case domain.EntryDebit:
		if wallet.Balance.LessThan(amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		newBalance = wallet.Balance.Sub(amount)
	default:
		return nil, apperror.InternalError(fmt.Errorf("unknown entry kind: %s", kind))
	}

	if err := repo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateEntry(ctx, dbTx, entry); err != nil {
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}

	wallet.Balance = newBalance
	return wallet, nil
}

// isSerializationFailure reports whether err is a PostgreSQL serialization
// failure (40001) or deadlock (40P01), both of which are safe to retry.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
