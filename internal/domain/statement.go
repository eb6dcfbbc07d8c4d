package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementDirection marks a statement line as money in or money out.
type StatementDirection string

const (
	StatementInflow  StatementDirection = "+"
	StatementOutflow StatementDirection = "-"
)

// StatementEntry is one line of an account statement: a ledger entry seen from
// the queried account's perspective.
type StatementEntry struct {
	Direction    StatementDirection `json:"direction"`
	Type         TransactionType    `json:"type"`
	Counterparty *int64             `json:"counterparty,omitempty"`
	Amount       decimal.Decimal    `json:"amount"`
	Date         time.Time          `json:"date"`
}

// StatementEntryFor resolves the direction and counterparty of a ledger entry
// for the given account. DEPOSIT is always an inflow and WITHDRAWAL always an
// outflow. A TRANSFER is an outflow to the transfer account when viewed from
// the origin, and an inflow from the origin when viewed from the transfer
// account.
func StatementEntryFor(tx Transaction, accountNumber int64) StatementEntry {
	entry := StatementEntry{
		Type:   tx.Type,
		Amount: tx.Value,
		Date:   tx.Date,
	}

	switch tx.Type {
	case TransactionDeposit:
		entry.Direction = StatementInflow
	case TransactionWithdrawal:
		entry.Direction = StatementOutflow
	case TransactionTransfer:
		if tx.TransferAccount != nil && *tx.TransferAccount == accountNumber {
			entry.Direction = StatementInflow
			origin := tx.OriginAccount
			entry.Counterparty = &origin
		} else {
			entry.Direction = StatementOutflow
			entry.Counterparty = tx.TransferAccount
		}
	}

	return entry
}
