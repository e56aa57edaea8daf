package integration

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The locking transactor gives these tests the same exclusion the production
// stack gets from SELECT FOR UPDATE plus conditional increments, so the
// counts below are exact, not probabilistic.

// TestConcurrentDealRedemptions fires more racing redemptions than the deal
// has capacity. Exactly max_uses of them must commit.
func TestConcurrentDealRedemptions(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	merchant := app.registerAndLogin(t, "race-owner@example.com", "StrongPass123!", "merchant", "Race House")
	restID := app.createRestaurant(t, merchant, "Race House")
	dealID := app.createDeal(t, merchant, restID, 5, 1)

	// 10 distinct customers race for 5 slots
	concurrency := 10
	tokens := make([]string, concurrency)
	for i := range tokens {
		tokens[i] = app.registerAndLogin(t,
			"racer"+string(rune('a'+i))+"@example.com", "StrongPass123!", "customer", "")
	}

	var wg sync.WaitGroup
	var successCount, conflictCount, otherCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			code, _ := app.do(t, http.MethodPost, "/api/v1/deals/"+dealID+"/use", token, nil)
			switch code {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}(tokens[i])
	}
	wg.Wait()

	assert.Equal(t, int64(5), successCount.Load(), "exactly max_uses redemptions commit")
	assert.Equal(t, int64(5), conflictCount.Load(), "the rest are rejected with a capacity conflict")
	assert.Zero(t, otherCount.Load())

	// The counter never overshoots
	code, resp := app.do(t, http.MethodGet, "/api/v1/deals/"+dealID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), dataOf(t, resp)["remaining"])
}

// TestConcurrentVoucherPurchases_LastUnit races two funded buyers for a
// single remaining unit. One wins, one gets a capacity conflict, and only
// the winner's wallet is debited.
func TestConcurrentVoucherPurchases_LastUnit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	merchant := app.registerAndLogin(t, "last-owner@example.com", "StrongPass123!", "merchant", "Last Unit House")
	restID := app.createRestaurant(t, merchant, "Last Unit House")
	voucherID := app.createVoucher(t, merchant, restID, "LAST1", "50.00", 1, 1)

	buyerA := app.registerAndLogin(t, "buyera@example.com", "StrongPass123!", "customer", "")
	buyerB := app.registerAndLogin(t, "buyerb@example.com", "StrongPass123!", "customer", "")
	app.topup(t, buyerA, "100.00")
	app.topup(t, buyerB, "100.00")

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int64

	for _, token := range []string{buyerA, buyerB} {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			code, _ := app.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/purchase", tok, nil)
			switch code {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			}
		}(token)
	}
	wg.Wait()

	assert.Equal(t, int64(1), successCount.Load(), "one buyer gets the last unit")
	assert.Equal(t, int64(1), conflictCount.Load(), "the other gets a capacity conflict")

	// Exactly one wallet paid
	var debited int
	for _, token := range []string{buyerA, buyerB} {
		code, resp := app.do(t, http.MethodGet, "/api/v1/wallet", token, nil)
		require.Equal(t, http.StatusOK, code)
		if dataOf(t, resp)["balance"] == "50.00" {
			debited++
		} else {
			assert.Equal(t, "100.00", dataOf(t, resp)["balance"])
		}
	}
	assert.Equal(t, 1, debited)
}

// TestConcurrentPurchases_InsufficientFunds races one buyer's purchases
// against their own balance. With 100.00 in the wallet and a 30.00 price,
// exactly three commit and the balance never goes negative.
func TestConcurrentPurchases_InsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	merchant := app.registerAndLogin(t, "fund-owner@example.com", "StrongPass123!", "merchant", "Fund House")
	restID := app.createRestaurant(t, merchant, "Fund House")
	voucherID := app.createVoucher(t, merchant, restID, "BULK30", "30.00", 100, 10)

	buyer := app.registerAndLogin(t, "spender@example.com", "StrongPass123!", "customer", "")
	app.topup(t, buyer, "100.00")

	concurrency := 10
	var wg sync.WaitGroup
	var successCount, declinedCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := app.do(t, http.MethodPost, "/api/v1/vouchers/"+voucherID+"/purchase", buyer, nil)
			switch code {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusPaymentRequired:
				declinedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), successCount.Load(), "three purchases fit in the balance")
	assert.Equal(t, int64(7), declinedCount.Load(), "the rest are declined for insufficient funds")

	code, resp := app.do(t, http.MethodGet, "/api/v1/wallet", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "10.00", dataOf(t, resp)["balance"])

	// Ledger matches: one credit, three debits
	code, resp = app.do(t, http.MethodGet, "/api/v1/wallet/transactions", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], 4)
}

// TestConcurrentRedemptions_PerUserLimit races one customer against their
// own per-user allowance.
func TestConcurrentRedemptions_PerUserLimit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	merchant := app.registerAndLogin(t, "limit-owner@example.com", "StrongPass123!", "merchant", "Limit House")
	restID := app.createRestaurant(t, merchant, "Limit House")
	dealID := app.createDeal(t, merchant, restID, 100, 1)

	customer := app.registerAndLogin(t, "greedy@example.com", "StrongPass123!", "customer", "")

	concurrency := 5
	var wg sync.WaitGroup
	var successCount, limitCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := app.do(t, http.MethodPost, "/api/v1/deals/"+dealID+"/use", customer, nil)
			switch code {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusConflict:
				limitCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successCount.Load(), "per-user limit admits one")
	assert.Equal(t, int64(4), limitCount.Load())

	code, resp := app.do(t, http.MethodGet, "/api/v1/deals/uses", customer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], 1)
}

// TestConcurrentTopups verifies ledger and balance stay consistent under
// parallel credits.
func TestConcurrentTopups(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	customer := app.registerAndLogin(t, "parallel@example.com", "StrongPass123!", "customer", "")

	concurrency := 20
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := app.do(t, http.MethodPost, "/api/v1/wallet/topup", customer, map[string]any{"amount": "5.00"})
			assert.Equal(t, http.StatusCreated, code)
		}()
	}
	wg.Wait()

	code, resp := app.do(t, http.MethodGet, "/api/v1/wallet", customer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100.00", dataOf(t, resp)["balance"])

	code, resp = app.do(t, http.MethodGet, "/api/v1/wallet/transactions", customer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], concurrency)
}
