package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }

func TestStatementEntryFor(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name             string
		tx               Transaction
		account          int64
		wantDirection    StatementDirection
		wantCounterparty *int64
	}{
		{
			name:          "deposit is an inflow",
			tx:            Transaction{Type: TransactionDeposit, Value: decimal.NewFromInt(50), Date: date, OriginAccount: 1},
			account:       1,
			wantDirection: StatementInflow,
		},
		{
			name:          "withdrawal is an outflow",
			tx:            Transaction{Type: TransactionWithdrawal, Value: decimal.NewFromInt(20), Date: date, OriginAccount: 1},
			account:       1,
			wantDirection: StatementOutflow,
		},
		{
			name:             "transfer viewed from origin is an outflow to the target",
			tx:               Transaction{Type: TransactionTransfer, Value: decimal.NewFromInt(30), Date: date, OriginAccount: 1, TransferAccount: int64Ptr(2)},
			account:          1,
			wantDirection:    StatementOutflow,
			wantCounterparty: int64Ptr(2),
		},
		{
			name:             "transfer viewed from target is an inflow from the origin",
			tx:               Transaction{Type: TransactionTransfer, Value: decimal.NewFromInt(30), Date: date, OriginAccount: 1, TransferAccount: int64Ptr(2)},
			account:          2,
			wantDirection:    StatementInflow,
			wantCounterparty: int64Ptr(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := StatementEntryFor(tt.tx, tt.account)
			if entry.Direction != tt.wantDirection {
				t.Fatalf("expected direction=%q, got %q", tt.wantDirection, entry.Direction)
			}
			if tt.wantCounterparty == nil {
				if entry.Counterparty != nil {
					t.Fatalf("expected no counterparty, got %d", *entry.Counterparty)
				}
			} else {
				if entry.Counterparty == nil {
					t.Fatalf("expected counterparty=%d, got none", *tt.wantCounterparty)
				}
				if *entry.Counterparty != *tt.wantCounterparty {
					t.Fatalf("expected counterparty=%d, got %d", *tt.wantCounterparty, *entry.Counterparty)
				}
			}
			if !entry.Amount.Equal(tt.tx.Value) {
				t.Fatalf("expected amount=%s, got %s", tt.tx.Value, entry.Amount)
			}
			if !entry.Date.Equal(date) {
				t.Fatalf("expected date=%s, got %s", date, entry.Date)
			}
			if entry.Type != tt.tx.Type {
				t.Fatalf("expected type=%s, got %s", tt.tx.Type, entry.Type)
			}
		})
	}
}

func TestLedgerBalanceFor(t *testing.T) {
	entries := []Transaction{
		{Type: TransactionDeposit, Value: decimal.NewFromInt(100), OriginAccount: 1},
		{Type: TransactionWithdrawal, Value: decimal.NewFromInt(30), OriginAccount: 1},
		{Type: TransactionTransfer, Value: decimal.NewFromInt(25), OriginAccount: 1, TransferAccount: int64Ptr(2)},
		{Type: TransactionDeposit, Value: decimal.NewFromInt(10), OriginAccount: 2},
		{Type: TransactionTransfer, Value: decimal.NewFromInt(5), OriginAccount: 2, TransferAccount: int64Ptr(1)},
	}

	if got := LedgerBalanceFor(entries, 1); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected account 1 balance=50, got %s", got)
	}
	if got := LedgerBalanceFor(entries, 2); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected account 2 balance=30, got %s", got)
	}
	if got := LedgerBalanceFor(entries, 3); !got.IsZero() {
		t.Fatalf("expected untouched account balance=0, got %s", got)
	}
}
