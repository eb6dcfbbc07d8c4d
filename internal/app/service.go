/**
 * @description
 * This file contains the transaction engine, the core of the ledger service.
 * The `Service` struct orchestrates deposits, withdrawals and transfers as
 * atomic units of work: the balance mutation(s) and the ledger append commit
 * together or not at all, and every committed mutation leaves exactly one
 * ledger entry behind.
 *
 * Key properties:
 * - Fixed, deterministic validation order per operation; the first failing
 *   precondition is the one reported.
 * - Balances never go negative; the ledger-derived balance always equals the
 *   stored balance.
 * - Storage conflicts (lost optimistic races) retry with a fresh read up to a
 *   bounded attempt budget; every other failure returns immediately.
 * - Transfers acquire both accounts in ascending number order so two opposed
 *   concurrent transfers cannot deadlock.
 *
 * @dependencies
 * - internal/domain, internal/store: models and persistence contract.
 * - github.com/shopspring/decimal: exact monetary arithmetic.
 * - pkg/events: post-commit ledger event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GabriellaFranco/BankProject/internal/domain"
	"github.com/GabriellaFranco/BankProject/internal/store"
	"github.com/GabriellaFranco/BankProject/pkg/events"
)

// DefaultConflictRetryAttempts bounds internal retries of a conflicted unit.
const DefaultConflictRetryAttempts = 3

// Service is the transaction engine. It owns no storage: the store handle and
// event producer are injected at construction.
type Service struct {
	store         store.Store
	events        events.Publisher
	retryAttempts int
	now           func() time.Time
}

// NewService creates a transaction engine over the given store. producer may
// be nil when event publishing is not wired.
func NewService(st store.Store, producer events.Publisher, conflictRetryAttempts int) *Service {
	if conflictRetryAttempts <= 0 {
		conflictRetryAttempts = DefaultConflictRetryAttempts
	}
	return &Service{
		store:         st,
		events:        producer,
		retryAttempts: conflictRetryAttempts,
		now:           time.Now,
	}
}

// OpenAccountParams holds the caller-validated data for a new account.
type OpenAccountParams struct {
	Type            string
	Holder          string
	HolderPhone     string
	HolderBirthdate time.Time
	HolderCPF       string
}

// OpenAccount creates an inactive account with zero balance. The holder
// identity fields arrive already validated by the caller; the engine only
// enforces the closed account-type set and the one-account-per-type rule.
func (s *Service) OpenAccount(ctx context.Context, params OpenAccountParams) (*domain.Account, error) {
	accType, err := domain.ParseAccountType(params.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountType, err)
	}

	acc := &domain.Account{
		Type:            accType,
		Balance:         decimal.Zero,
		Active:          false,
		Holder:          params.Holder,
		HolderPhone:     params.HolderPhone,
		HolderBirthdate: params.HolderBirthdate,
		HolderCPF:       params.HolderCPF,
		OpeningDate:     s.postingDate(),
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, classify(err)
	}
	return acc, nil
}

// Activate marks an account active. The session layer calls this after the
// first successful login; repeated calls are harmless.
func (s *Service) Activate(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	var updated *domain.Account
	err := s.withRetry(ctx, func(ctx context.Context, st store.Store) error {
		acc, err := st.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}
		if !acc.Active {
			acc.Active = true
			if err := st.SaveAccount(ctx, acc); err != nil {
				return err
			}
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// Deposit credits an account and appends one DEPOSIT ledger entry.
func (s *Service) Deposit(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var (
		updated *domain.Account
		entry   *domain.Transaction
	)
	err := s.withRetry(ctx, func(ctx context.Context, st store.Store) error {
		acc, err := st.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}

		acc.Balance = acc.Balance.Add(amount)
		if err := st.SaveAccount(ctx, acc); err != nil {
			return err
		}

		tx := &domain.Transaction{
			Type:          domain.TransactionDeposit,
			Value:         amount,
			Date:          s.postingDate(),
			OriginAccount: acc.Number,
		}
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}

		updated, entry = acc, tx
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.publishPosted(ctx, entry)
	return updated, nil
}

// Withdraw debits an account and appends one WITHDRAWAL ledger entry.
// Validation order: positive amount, then sufficient funds.
func (s *Service) Withdraw(ctx context.Context, accountNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var (
		updated *domain.Account
		entry   *domain.Transaction
	)
	err := s.withRetry(ctx, func(ctx context.Context, st store.Store) error {
		acc, err := st.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}
		if amount.GreaterThan(acc.Balance) {
			return ErrInsufficientFunds
		}

		acc.Balance = acc.Balance.Sub(amount)
		if err := st.SaveAccount(ctx, acc); err != nil {
			return err
		}

		tx := &domain.Transaction{
			Type:          domain.TransactionWithdrawal,
			Value:         amount,
			Date:          s.postingDate(),
			OriginAccount: acc.Number,
		}
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}

		updated, entry = acc, tx
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.publishPosted(ctx, entry)
	return updated, nil
}

// Transfer moves funds between two accounts and appends one TRANSFER entry.
// Preconditions, first failure wins: target exists and is active; target
// differs from origin; amount is positive; origin balance covers the amount.
// No partial mutation is visible on any failure path.
func (s *Service) Transfer(ctx context.Context, originNumber, targetNumber int64, amount decimal.Decimal) (*domain.Account, error) {
	var (
		updated *domain.Account
		entry   *domain.Transaction
	)
	err := s.withRetry(ctx, func(ctx context.Context, st store.Store) error {
		if originNumber == targetNumber {
			acc, err := st.GetAccount(ctx, originNumber)
			if err != nil {
				if errors.Is(err, store.ErrAccountNotFound) {
					return ErrTargetNotFound
				}
				return err
			}
			if !acc.Active {
				return ErrTargetNotFound
			}
			return ErrSameAccount
		}

		origin, target, err := s.lockPair(ctx, st, originNumber, targetNumber)
		if err != nil {
			return err
		}
		if !target.Active {
			return ErrTargetNotFound
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}
		if amount.GreaterThan(origin.Balance) {
			return ErrInsufficientFunds
		}

		origin.Balance = origin.Balance.Sub(amount)
		target.Balance = target.Balance.Add(amount)
		if err := st.SaveAccount(ctx, origin); err != nil {
			return err
		}
		if err := st.SaveAccount(ctx, target); err != nil {
			return err
		}

		counterparty := target.Number
		tx := &domain.Transaction{
			Type:            domain.TransactionTransfer,
			Value:           amount,
			Date:            s.postingDate(),
			OriginAccount:   origin.Number,
			TransferAccount: &counterparty,
		}
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}

		updated, entry = origin, tx
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.publishPosted(ctx, entry)
	return updated, nil
}

// lockPair fetches origin and target in ascending account-number order so two
// transfers targeting each other acquire their locks in the same order. A
// missing target reports ErrTargetNotFound; a missing origin reports the plain
// lookup miss.
func (s *Service) lockPair(ctx context.Context, st store.Store, originNumber, targetNumber int64) (origin, target *domain.Account, err error) {
	fetch := func(number int64) (*domain.Account, error) {
		acc, err := st.GetAccount(ctx, number)
		if err != nil && errors.Is(err, store.ErrAccountNotFound) && number == targetNumber {
			return nil, ErrTargetNotFound
		}
		return acc, err
	}

	first, second := originNumber, targetNumber
	if second < first {
		first, second = second, first
	}
	a, err := fetch(first)
	if err != nil {
		return nil, nil, err
	}
	b, err := fetch(second)
	if err != nil {
		return nil, nil, err
	}

	if a.Number == originNumber {
		return a, b, nil
	}
	return b, a, nil
}

// Balance returns the current balance. Pure read, no locks.
func (s *Service) Balance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	acc, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, classify(err)
	}
	return acc.Balance, nil
}

// Statement replays the account's ledger entries into a chronologically
// ordered, signed view. Read-only and safe to call concurrently with any
// engine operation.
func (s *Service) Statement(ctx context.Context, accountNumber int64) ([]domain.StatementEntry, error) {
	if _, err := s.store.GetAccount(ctx, accountNumber); err != nil {
		return nil, classify(err)
	}

	entries, err := s.store.TransactionsByAccount(ctx, accountNumber)
	if err != nil {
		return nil, classify(err)
	}

	statement := make([]domain.StatementEntry, 0, len(entries))
	for _, tx := range entries {
		statement = append(statement, domain.StatementEntryFor(tx, accountNumber))
	}
	return statement, nil
}

// Reconcile returns the stored balance next to the ledger-derived balance.
// The two must match for any committed history; auditors call this.
func (s *Service) Reconcile(ctx context.Context, accountNumber int64) (stored, derived decimal.Decimal, err error) {
	acc, err := s.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, decimal.Zero, classify(err)
	}
	entries, err := s.store.TransactionsByAccount(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, decimal.Zero, classify(err)
	}
	return acc.Balance, domain.LedgerBalanceFor(entries, accountNumber), nil
}

// withRetry runs one atomic unit, retrying only on storage conflicts. Each
// retry re-reads everything; after the attempt budget the conflict surfaces
// as ErrStorageConflict.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context, st store.Store) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		err := s.store.Atomic(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		lastErr = err
		log.Printf("level=warn component=engine msg=\"storage conflict; retrying with fresh read\" attempt=%d max=%d", attempt, s.retryAttempts)
	}
	return fmt.Errorf("%w: %w", ErrStorageConflict, lastErr)
}

// classify maps store-level misses through unchanged and wraps anything
// unexpected as a storage outage.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrTargetNotFound),
		errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrInvalidAccountType),
		errors.Is(err, ErrStorageConflict),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrDuplicateAccountType):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}

func (s *Service) postingDate() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) publishPosted(ctx context.Context, tx *domain.Transaction) {
	if s.events == nil || tx == nil {
		return
	}
	event := events.TransactionPostedEvent{
		EventID:         uuid.New(),
		TransactionID:   tx.ID,
		Type:            string(tx.Type),
		Value:           tx.Value.String(),
		Date:            tx.Date,
		OriginAccount:   tx.OriginAccount,
		TransferAccount: tx.TransferAccount,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.events.PublishTransactionPosted(ctx, event); err != nil {
		log.Printf("level=warn component=engine msg=\"ledger event publish failed\" transaction_id=%d err=%v", tx.ID, err)
	}
}
