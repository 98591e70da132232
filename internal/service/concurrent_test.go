package service_test

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// TestConcurrentWithdrawals simulates 50 goroutines simultaneously withdrawing
// a fixed amount from a shared balance — protected by a mutex.
// This test verifies our concurrency guard pattern compiles and passes -race.
//
// In the real AccountService, the DB row-level FOR UPDATE lock provides this
// guarantee.  Here we replicate the same guard with sync primitives so
// the race detector can confirm the pattern is sound.
func TestConcurrentWithdrawals(t *testing.T) {
	const workers = 50
	const amountEach = 10

	balance := decimal.NewFromInt(int64(workers * amountEach)) // exact total
	var mu sync.Mutex
	var rejected int64 // withdrawals bounced for insufficient funds (zero expected)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			amount := decimal.NewFromInt(amountEach)

			mu.Lock()
			defer mu.Unlock()

			if balance.LessThan(amount) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			balance = balance.Sub(amount)
		}()
	}
	wg.Wait()

	if rejected > 0 {
		t.Errorf("expected 0 rejected withdrawals, got %d", rejected)
	}
	if !balance.IsZero() {
		t.Errorf("final balance should be 0, got %s", balance)
	}
}

// TestConcurrentOverdraftGuard: when the balance only covers some of the
// withdrawals, exactly that many succeed and the rest bounce — never an
// overdraft.
func TestConcurrentOverdraftGuard(t *testing.T) {
	const workers = 50
	const amountEach = 10
	const funded = 30 // balance covers only 30 of the 50

	balance := decimal.NewFromInt(funded * amountEach)
	var mu sync.Mutex
	var succeeded, rejected int64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			amount := decimal.NewFromInt(amountEach)

			mu.Lock()
			defer mu.Unlock()

			if balance.LessThan(amount) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			balance = balance.Sub(amount)
			atomic.AddInt64(&succeeded, 1)
		}()
	}
	wg.Wait()

	if succeeded != funded {
		t.Errorf("succeeded = %d, want %d", succeeded, funded)
	}
	if rejected != workers-funded {
		t.Errorf("rejected = %d, want %d", rejected, workers-funded)
	}
	if balance.IsNegative() {
		t.Errorf("balance went negative: %s", balance)
	}
}

// TestSeededPriceWalkDeterminism: two price walks driven by identically
// seeded generators produce identical paths, and the floor holds throughout.
// The market pass draws its uniforms the same way.
func TestSeededPriceWalkDeterminism(t *testing.T) {
	walk := func(seed int64) []decimal.Decimal {
		rng := rand.New(rand.NewSource(seed))
		price := decimal.NewFromInt(100)
		path := make([]decimal.Decimal, 0, 30)
		for i := 0; i < 30; i++ {
			u := rng.Float64()*2 - 1
			price = domain.NextStockPrice(price, domain.SectorTechnology.Volatility(), 0, u)
			path = append(path, price)
		}
		return path
	}

	first, second := walk(42), walk(42)
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("step %d diverged: %s vs %s", i, first[i], second[i])
		}
		if first[i].LessThan(domain.MinStockPrice) {
			t.Fatalf("step %d broke the price floor: %s", i, first[i])
		}
	}

	other := walk(7)
	same := true
	for i := range first {
		if !first[i].Equal(other[i]) {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical 30-step paths")
	}
	t.Logf("30-step walk from 100: final=%s", first[len(first)-1])
}
