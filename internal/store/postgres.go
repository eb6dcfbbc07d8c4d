/**
 * @description
 * PostgreSQL implementation of the Store interface over the two-table ledger
 * schema. All queries run through pgx/v5; `Atomic` wraps a database
 * transaction and account reads inside it take a `FOR UPDATE` row lock so
 * concurrent mutations of the same account serialize at the database.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and transaction handling.
 * - internal/domain: the persisted models.
 */

package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GabriellaFranco/BankProject/internal/domain"
)

//go:embed schema.sql
var SchemaSQL string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the production Store backed by a pgx connection pool.
type PostgresStore struct {
	conn querier
	pool *pgxpool.Pool
	inTx bool
}

// NewPostgresStore creates a Store over an established connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{conn: pool, pool: pool}
}

const accountColumns = `number, type, balance, active, holder, holder_phone,
	holder_birthdate, holder_cpf, opening_date, version`

func (s *PostgresStore) GetAccount(ctx context.Context, number int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE number = $1`
	if s.inTx {
		// Mutation rights for the row: concurrent writers queue here.
		query += ` FOR UPDATE`
	}

	var acc domain.Account
	err := s.conn.QueryRow(ctx, query, number).Scan(
		&acc.Number, &acc.Type, &acc.Balance, &acc.Active, &acc.Holder,
		&acc.HolderPhone, &acc.HolderBirthdate, &acc.HolderCPF,
		&acc.OpeningDate, &acc.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("querying account %d: %w", number, err)
	}
	return &acc, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acc *domain.Account) error {
	query := `
		INSERT INTO account (type, balance, active, holder, holder_phone,
			holder_birthdate, holder_cpf, opening_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING number, version
	`
	err := s.conn.QueryRow(ctx, query,
		acc.Type, acc.Balance, acc.Active, acc.Holder, acc.HolderPhone,
		acc.HolderBirthdate, acc.HolderCPF, acc.OpeningDate,
	).Scan(&acc.Number, &acc.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccountType
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveAccount(ctx context.Context, acc *domain.Account) error {
	query := `
		UPDATE account
		SET balance = $1, active = $2, version = version + 1
		WHERE number = $3 AND version = $4
	`
	tag, err := s.conn.Exec(ctx, query, acc.Balance, acc.Active, acc.Number, acc.Version)
	if err != nil {
		return fmt.Errorf("updating account %d: %w", acc.Number, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a stale read from a missing row.
		var exists bool
		if probeErr := s.conn.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM account WHERE number = $1)`, acc.Number,
		).Scan(&exists); probeErr != nil {
			return fmt.Errorf("probing account %d: %w", acc.Number, probeErr)
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrVersionConflict
	}
	acc.Version++
	return nil
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transaction (type, value, transaction_date, origin_account, transfer_account)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.conn.QueryRow(ctx, query,
		tx.Type, tx.Value, tx.Date, tx.OriginAccount, tx.TransferAccount,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("appending ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) TransactionsByAccount(ctx context.Context, number int64) ([]domain.Transaction, error) {
	query := `
		SELECT id, type, value, transaction_date, origin_account, transfer_account
		FROM transaction
		WHERE origin_account = $1 OR transfer_account = $1
		ORDER BY id
	`
	rows, err := s.conn.Query(ctx, query, number)
	if err != nil {
		return nil, fmt.Errorf("querying ledger for account %d: %w", number, err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Value, &tx.Date,
			&tx.OriginAccount, &tx.TransferAccount); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger rows: %w", err)
	}
	return entries, nil
}

// Atomic runs fn inside a database transaction. Serialization and deadlock
// failures surface as ErrVersionConflict so the engine can retry with a fresh
// read.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := &PostgresStore{conn: tx, pool: s.pool, inTx: true}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
			return ErrVersionConflict
		}
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ApplySchema creates the ledger tables when they do not exist yet.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("applying ledger schema: %w", err)
	}
	return nil
}
