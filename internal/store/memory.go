/**
 * @description
 * In-memory Store implementation. A single mutex serializes atomic units, and
 * the state is snapshotted on entry so a failed unit rolls back completely —
 * the same all-or-nothing contract the Postgres store gets from database
 * transactions. Used by the test suite and as a storage-free way to run the
 * engine.
 */

package store

import (
	"context"
	"sync"

	"github.com/GabriellaFranco/BankProject/internal/domain"
)

type memoryState struct {
	accounts   map[int64]domain.Account
	entries    []domain.Transaction
	nextNumber int64
	nextEntry  int64
}

func (st *memoryState) clone() *memoryState {
	accounts := make(map[int64]domain.Account, len(st.accounts))
	for n, a := range st.accounts {
		accounts[n] = a
	}
	entries := make([]domain.Transaction, len(st.entries))
	copy(entries, st.entries)
	return &memoryState{
		accounts:   accounts,
		entries:    entries,
		nextNumber: st.nextNumber,
		nextEntry:  st.nextEntry,
	}
}

// MemoryStore keeps accounts and the ledger in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	inTx  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			accounts:   make(map[int64]domain.Account),
			nextNumber: 1,
			nextEntry:  1,
		},
	}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		// Already inside an atomic unit; the unit holds the mutex.
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) GetAccount(_ context.Context, number int64) (*domain.Account, error) {
	defer s.lock()()

	acc, ok := s.state.accounts[number]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := acc
	return &copied, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, acc *domain.Account) error {
	defer s.lock()()

	for _, existing := range s.state.accounts {
		if existing.Type == acc.Type && existing.HolderCPF == acc.HolderCPF {
			return ErrDuplicateAccountType
		}
	}

	acc.Number = s.state.nextNumber
	s.state.nextNumber++
	acc.Version = 1
	s.state.accounts[acc.Number] = *acc
	return nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, acc *domain.Account) error {
	defer s.lock()()

	stored, ok := s.state.accounts[acc.Number]
	if !ok {
		return ErrAccountNotFound
	}
	if stored.Version != acc.Version {
		return ErrVersionConflict
	}

	acc.Version++
	s.state.accounts[acc.Number] = *acc
	return nil
}

func (s *MemoryStore) AppendTransaction(_ context.Context, tx *domain.Transaction) error {
	defer s.lock()()

	tx.ID = s.state.nextEntry
	s.state.nextEntry++
	s.state.entries = append(s.state.entries, *tx)
	return nil
}

func (s *MemoryStore) TransactionsByAccount(_ context.Context, number int64) ([]domain.Transaction, error) {
	defer s.lock()()

	var result []domain.Transaction
	for _, e := range s.state.entries {
		if e.OriginAccount == number || (e.TransferAccount != nil && *e.TransferAccount == number) {
			result = append(result, e)
		}
	}
	return result, nil
}

// Atomic serializes the unit under the store mutex and restores the previous
// state when fn fails, so partial mutations are never observable.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	txStore := &MemoryStore{state: s.state, inTx: true}
	if err := fn(ctx, txStore); err != nil {
		s.state.accounts = snapshot.accounts
		s.state.entries = snapshot.entries
		s.state.nextNumber = snapshot.nextNumber
		s.state.nextEntry = snapshot.nextEntry
		return err
	}
	return nil
}
