/**
 * @description
 * This file defines the `Store` interface, the contract for account and ledger
 * persistence used by the transaction engine. Defining an interface decouples
 * the engine from the database implementation and lets tests run against the
 * in-memory store.
 *
 * @notes
 * - `Atomic` is the unit-of-work boundary: every mutation the callback makes
 *   through the store it receives commits or rolls back as one unit. Account
 *   reads inside an atomic unit acquire that account's mutation rights.
 * - `SaveAccount` is version-guarded: it fails with ErrVersionConflict when the
 *   persisted version no longer matches the one the caller read.
 */

package store

import (
	"context"
	"errors"

	"github.com/GabriellaFranco/BankProject/internal/domain"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateAccountType = errors.New("holder already has an account of this type")
	ErrVersionConflict      = errors.New("account changed since it was read")
)

// Store is the persistence contract for accounts and ledger entries.
type Store interface {
	// GetAccount returns the account for a number, or ErrAccountNotFound.
	// Inside an Atomic unit the read locks the account row for update.
	GetAccount(ctx context.Context, number int64) (*domain.Account, error)

	// CreateAccount persists a new account and assigns its number and initial
	// version. Fails with ErrDuplicateAccountType when the holder already has
	// an account of the same type.
	CreateAccount(ctx context.Context, acc *domain.Account) error

	// SaveAccount persists balance/status changes. The account's Version must
	// match the persisted one; on success the version is bumped in place.
	SaveAccount(ctx context.Context, acc *domain.Account) error

	// AppendTransaction appends one immutable ledger entry and assigns its
	// monotonically increasing id. There is no update or delete.
	AppendTransaction(ctx context.Context, tx *domain.Transaction) error

	// TransactionsByAccount returns every entry where the account is the
	// origin or the transfer counterparty, ascending by id.
	TransactionsByAccount(ctx context.Context, number int64) ([]domain.Transaction, error)

	// Atomic runs fn against a store whose operations form one atomic unit.
	// Nested calls join the enclosing unit.
	Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
