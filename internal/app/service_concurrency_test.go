package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	acc := openActiveAccount(t, svc, "111", 100)

	// Two racing withdrawals of 60 from a balance of 100: exactly one can
	// commit, the other must see insufficient funds.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Withdraw(ctx, acc.Number, decimal.NewFromInt(60))
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", succeeded, rejected)
	}

	balance, err := svc.Balance(ctx, acc.Number)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected balance=40, got %s", balance)
	}
}

func TestOpposedConcurrentTransfersComplete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a := openActiveAccount(t, svc, "111", 100)
	b := openActiveAccount(t, svc, "222", 100)

	// A->B and B->A at the same time must both commit; the ascending lock
	// order rules out a deadlock.
	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(ctx, a.Number, b.Number, decimal.NewFromInt(1)); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(ctx, b.Number, a.Number, decimal.NewFromInt(1)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected transfer error: %v", err)
	}

	// Equal flows in both directions leave both balances where they started.
	for _, number := range []int64{a.Number, b.Number} {
		balance, err := svc.Balance(ctx, number)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("account %d: expected balance=100, got %s", number, balance)
		}
	}
}

func TestConcurrentMixedOperationsReconcile(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	accounts := []int64{
		openActiveAccount(t, svc, "111", 500).Number,
		openActiveAccount(t, svc, "222", 500).Number,
		openActiveAccount(t, svc, "333", 500).Number,
	}

	const workers = 8
	const opsPerWorker = 40
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < opsPerWorker; i++ {
				origin := accounts[rng.Intn(len(accounts))]
				amount := decimal.NewFromInt(int64(rng.Intn(50) + 1))
				var err error
				switch rng.Intn(3) {
				case 0:
					_, err = svc.Deposit(ctx, origin, amount)
				case 1:
					_, err = svc.Withdraw(ctx, origin, amount)
				default:
					target := accounts[rng.Intn(len(accounts))]
					_, err = svc.Transfer(ctx, origin, target, amount)
				}
				if err != nil && !errors.Is(err, ErrInsufficientFunds) && !errors.Is(err, ErrSameAccount) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	// Whatever interleaving happened, the stored balances must be
	// non-negative and equal to the ledger replay.
	for _, number := range accounts {
		stored, derived, err := svc.Reconcile(ctx, number)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.IsNegative() {
			t.Fatalf("account %d: negative balance %s", number, stored)
		}
		if !stored.Equal(derived) {
			t.Fatalf("account %d: stored=%s does not match ledger=%s", number, stored, derived)
		}
	}
}
