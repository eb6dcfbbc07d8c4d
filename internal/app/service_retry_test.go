package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GabriellaFranco/BankProject/internal/store"
	"github.com/GabriellaFranco/BankProject/pkg/events"
)

// conflictStore delegates to a memory store but fails the first N atomic
// units with a version conflict.
type conflictStore struct {
	store.Store
	failuresLeft int
	failWith     error
	attempts     int
}

func (s *conflictStore) Atomic(ctx context.Context, fn func(ctx context.Context, st store.Store) error) error {
	s.attempts++
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return s.failWith
	}
	return s.Store.Atomic(ctx, fn)
}

// recordingPublisher counts published ledger events.
type recordingPublisher struct {
	published []events.TransactionPostedEvent
}

func (p *recordingPublisher) PublishTransactionPosted(_ context.Context, event events.TransactionPostedEvent) error {
	p.published = append(p.published, event)
	return nil
}

func (p *recordingPublisher) Close() {}

func seedConflictStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	mem := store.NewMemoryStore()
	inner := NewService(mem, nil, 1)
	ctx := context.Background()
	acc, err := inner.OpenAccount(ctx, testAccountParams("CHECKING", "111"))
	if err != nil {
		t.Fatalf("opening account: %v", err)
	}
	if _, err := inner.Activate(ctx, acc.Number); err != nil {
		t.Fatalf("activating account: %v", err)
	}
	if _, err := inner.Deposit(ctx, acc.Number, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return mem
}

func TestConflictRetriesWithinBudgetSucceed(t *testing.T) {
	mem := seedConflictStore(t)
	cs := &conflictStore{Store: mem, failuresLeft: 2, failWith: store.ErrVersionConflict}
	svc := NewService(cs, nil, 3)

	acc, err := svc.Withdraw(context.Background(), 1, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if !acc.Balance.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected balance=90, got %s", acc.Balance)
	}
	if cs.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cs.attempts)
	}
}

func TestConflictRetryBudgetExhaustion(t *testing.T) {
	mem := seedConflictStore(t)
	cs := &conflictStore{Store: mem, failuresLeft: 5, failWith: store.ErrVersionConflict}
	svc := NewService(cs, nil, 3)

	_, err := svc.Withdraw(context.Background(), 1, decimal.NewFromInt(10))
	if !errors.Is(err, ErrStorageConflict) {
		t.Fatalf("expected ErrStorageConflict, got %v", err)
	}
	if cs.attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", cs.attempts)
	}

	// The account is untouched once the budget runs out.
	probe := NewService(mem, nil, 1)
	balance, balErr := probe.Balance(context.Background(), 1)
	if balErr != nil {
		t.Fatalf("unexpected error: %v", balErr)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance=100, got %s", balance)
	}
}

func TestNonConflictErrorsAreNotRetried(t *testing.T) {
	mem := seedConflictStore(t)
	boom := errors.New("connection reset")
	cs := &conflictStore{Store: mem, failuresLeft: 5, failWith: boom}
	svc := NewService(cs, nil, 3)

	_, err := svc.Withdraw(context.Background(), 1, decimal.NewFromInt(10))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if cs.attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", cs.attempts)
	}
}

func TestEventsPublishOnlyOnCommit(t *testing.T) {
	mem := seedConflictStore(t)
	pub := &recordingPublisher{}
	svc := NewService(mem, pub, 3)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, 1, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Withdraw(ctx, 1, decimal.NewFromInt(5000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	event := pub.published[0]
	if event.Type != "DEPOSIT" || event.Value != "5" || event.OriginAccount != 1 {
		t.Fatalf("unexpected event payload: %+v", event)
	}
	if event.TransactionID == 0 {
		t.Fatal("expected the event to carry the committed entry id")
	}
}
