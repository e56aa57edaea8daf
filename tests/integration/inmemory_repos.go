package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// The in-memory repos mimic the PostgreSQL adapters closely enough for
// full-stack tests: not-found is (nil, nil), deletes are soft, and the
// guarded increments refuse to move past capacity. Transactional exclusion
// comes from lockingTransactor below, which serializes whole transactions
// the way row locks serialize them in PostgreSQL.

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMerchantRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Restaurant Repo ---

type inMemoryRestaurantRepo struct {
	mu          sync.RWMutex
	restaurants map[uuid.UUID]*domain.Restaurant
}

func newInMemoryRestaurantRepo() *inMemoryRestaurantRepo {
	return &inMemoryRestaurantRepo{restaurants: make(map[uuid.UUID]*domain.Restaurant)}
}

func (r *inMemoryRestaurantRepo) Create(ctx context.Context, rest *domain.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rest
	r.restaurants[rest.ID] = &cp
	return nil
}

func (r *inMemoryRestaurantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rest, ok := r.restaurants[id]
	if !ok {
		return nil, nil
	}
	cp := *rest
	return &cp, nil
}

func (r *inMemoryRestaurantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rest := range r.restaurants {
		if rest.Slug == slug && rest.DeletedAt == nil {
			cp := *rest
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryRestaurantRepo) Update(ctx context.Context, rest *domain.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.restaurants[rest.ID]; !ok {
		return fmt.Errorf("restaurant not found")
	}
	cp := *rest
	r.restaurants[rest.ID] = &cp
	return nil
}

func (r *inMemoryRestaurantRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rest, ok := r.restaurants[id]
	if !ok {
		return fmt.Errorf("restaurant not found")
	}
	now := time.Now()
	rest.DeletedAt = &now
	rest.IsActive = false
	return nil
}

func (r *inMemoryRestaurantRepo) ListVisible(ctx context.Context, city string) ([]domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Restaurant
	for _, rest := range r.restaurants {
		if !rest.Visible() {
			continue
		}
		if city != "" && rest.City != city {
			continue
		}
		out = append(out, *rest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *inMemoryRestaurantRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Restaurant
	for _, rest := range r.restaurants {
		if rest.MerchantID == merchantID && rest.DeletedAt == nil {
			out = append(out, *rest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- In-Memory Deal Repo ---

type inMemoryDealRepo struct {
	mu    sync.RWMutex
	deals map[uuid.UUID]*domain.Deal
	uses  []domain.DealUse
}

func newInMemoryDealRepo() *inMemoryDealRepo {
	return &inMemoryDealRepo{deals: make(map[uuid.UUID]*domain.Deal)}
}

func (r *inMemoryDealRepo) Create(ctx context.Context, d *domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deals[d.ID] = &cp
	return nil
}

func (r *inMemoryDealRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deals[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDealRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deal, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryDealRepo) Update(ctx context.Context, d *domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deals[d.ID]; !ok {
		return fmt.Errorf("deal not found")
	}
	cp := *d
	r.deals[d.ID] = &cp
	return nil
}

func (r *inMemoryDealRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[id]
	if !ok {
		return fmt.Errorf("deal not found")
	}
	now := time.Now()
	d.DeletedAt = &now
	d.IsActive = false
	return nil
}

func (r *inMemoryDealRepo) ListActive(ctx context.Context) ([]domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var out []domain.Deal
	for _, d := range r.deals {
		if d.ActiveNow(now) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (r *inMemoryDealRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Deal
	for _, d := range r.deals {
		if d.RestaurantID == restaurantID && d.DeletedAt == nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *inMemoryDealRepo) IncrementUsedCount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[id]
	if !ok {
		return false, nil
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return false, nil
	}
	d.UsedCount++
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		d.UsedCount--
	})
	return true, nil
}

func (r *inMemoryDealRepo) CountUserUses(ctx context.Context, tx pgx.Tx, dealID, userID uuid.UUID) (int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int32
	for _, u := range r.uses {
		if u.DealID == dealID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryDealRepo) CreateUse(ctx context.Context, tx pgx.Tx, use *domain.DealUse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uses = append(r.uses, *use)
	id := use.ID
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := len(r.uses) - 1; i >= 0; i-- {
			if r.uses[i].ID == id {
				r.uses = append(r.uses[:i], r.uses[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *inMemoryDealRepo) ListUsesByUser(ctx context.Context, userID uuid.UUID) ([]domain.DealUse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.DealUse
	for i := len(r.uses) - 1; i >= 0; i-- {
		if r.uses[i].UserID == userID {
			out = append(out, r.uses[i])
		}
	}
	return out, nil
}

// --- In-Memory Voucher Repo ---

type inMemoryVoucherRepo struct {
	mu          sync.RWMutex
	vouchers    map[uuid.UUID]*domain.Voucher
	redemptions []domain.VoucherRedemption
}

func newInMemoryVoucherRepo() *inMemoryVoucherRepo {
	return &inMemoryVoucherRepo{vouchers: make(map[uuid.UUID]*domain.Voucher)}
}

func (r *inMemoryVoucherRepo) Create(ctx context.Context, v *domain.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.vouchers[v.ID] = &cp
	return nil
}

func (r *inMemoryVoucherRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vouchers[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *inMemoryVoucherRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Voucher, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryVoucherRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.vouchers {
		if v.Code == code && v.DeletedAt == nil {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryVoucherRepo) Update(ctx context.Context, v *domain.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vouchers[v.ID]; !ok {
		return fmt.Errorf("voucher not found")
	}
	cp := *v
	r.vouchers[v.ID] = &cp
	return nil
}

func (r *inMemoryVoucherRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[id]
	if !ok {
		return fmt.Errorf("voucher not found")
	}
	now := time.Now()
	v.DeletedAt = &now
	v.IsActive = false
	return nil
}

func (r *inMemoryVoucherRepo) ListActive(ctx context.Context) ([]domain.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var out []domain.Voucher
	for _, v := range r.vouchers {
		if v.ActiveNow(now) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (r *inMemoryVoucherRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Voucher
	for _, v := range r.vouchers {
		if v.RestaurantID == restaurantID && v.DeletedAt == nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *inMemoryVoucherRepo) IncrementSoldQuantity(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[id]
	if !ok {
		return false, nil
	}
	if v.SoldQuantity >= v.TotalQuantity {
		return false, nil
	}
	v.SoldQuantity++
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		v.SoldQuantity--
	})
	return true, nil
}

func (r *inMemoryVoucherRepo) CountUserRedemptions(ctx context.Context, tx pgx.Tx, voucherID, userID uuid.UUID) (int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int32
	for _, red := range r.redemptions {
		if red.VoucherID == voucherID && red.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryVoucherRepo) CreateRedemption(ctx context.Context, tx pgx.Tx, redemption *domain.VoucherRedemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redemptions = append(r.redemptions, *redemption)
	id := redemption.ID
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := len(r.redemptions) - 1; i >= 0; i-- {
			if r.redemptions[i].ID == id {
				r.redemptions = append(r.redemptions[:i], r.redemptions[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *inMemoryVoucherRepo) ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.VoucherRedemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.VoucherRedemption
	for i := len(r.redemptions) - 1; i >= 0; i-- {
		if r.redemptions[i].UserID == userID {
			out = append(out, r.redemptions[i])
		}
	}
	return out, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
	entries []domain.LedgerEntry
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	prev := w.Balance
	w.Balance = balance
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		w.Balance = prev
	})
	return nil
}

func (r *inMemoryWalletRepo) CreateEntry(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	id := entry.ID
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := len(r.entries) - 1; i >= 0; i-- {
			if r.entries[i].ID == id {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *inMemoryWalletRepo) ListEntries(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].WalletID == walletID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *inMemoryWalletRepo) SumEntries(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.WalletID != walletID {
			continue
		}
		if e.Kind == domain.EntryCredit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}

// --- Locking Transactor ---

// lockingTransactor serializes whole transactions with a single mutex,
// standing in for the row locks PostgreSQL takes under SELECT FOR UPDATE.
// Concurrency tests get the same exclusion guarantees as production: two
// racing redemptions see each other's committed counter bumps.
type lockingTransactor struct {
	mu sync.Mutex
}

func newLockingTransactor() *lockingTransactor {
	return &lockingTransactor{}
}

func (t *lockingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockedTx{release: &t.mu}, nil
}

// lockedTx holds the transactor lock until the first Commit or Rollback.
// Repo mutations made through the transaction register compensating
// actions via onRollback; Rollback replays them in reverse so an aborted
// transaction leaves no trace (a mid-transaction failure must not leak a
// counter bump without its record). The deferred Rollback after a
// successful Commit must not double-unlock or undo anything.
type lockedTx struct {
	release *sync.Mutex
	once    sync.Once
	undo    []func()
}

func (t *lockedTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *lockedTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *lockedTx) Commit(ctx context.Context) error {
	t.once.Do(func() {
		t.undo = nil
		t.release.Unlock()
	})
	return nil
}

func (t *lockedTx) Rollback(ctx context.Context) error {
	t.once.Do(func() {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		t.undo = nil
		t.release.Unlock()
	})
	return nil
}

// registerUndo hooks a compensating action onto the transaction, when one
// is in play. Plain pgx transactions (never used here) are left alone.
func registerUndo(tx pgx.Tx, fn func()) {
	if lt, ok := tx.(*lockedTx); ok {
		lt.onRollback(fn)
	}
}
func (t *lockedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockedTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockedTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockedTx) Conn() *pgx.Conn { return nil }
