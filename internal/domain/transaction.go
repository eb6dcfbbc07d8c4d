/**
 * @description
 * This file defines the ledger entry model. A Transaction is the immutable
 * record of one monetary movement; the ledger store assigns its id on append
 * and the id order is the system's total order of commits.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTransfer   TransactionType = "TRANSFER"
)

// Transaction is one immutable ledger entry.
//
// OriginAccount is the account debited for WITHDRAWAL/TRANSFER and credited
// for DEPOSIT. TransferAccount is set only for TRANSFER and names the credited
// counterparty.
type Transaction struct {
	ID              int64           `json:"id"`
	Type            TransactionType `json:"type"`
	Value           decimal.Decimal `json:"value"`
	Date            time.Time       `json:"date"`
	OriginAccount   int64           `json:"origin_account"`
	TransferAccount *int64          `json:"transfer_account,omitempty"`
}

// LedgerBalanceFor replays entries and returns the signed sum for an account:
// deposits and inbound transfers add, withdrawals and outbound transfers
// subtract. For any committed history this must equal the stored balance.
func LedgerBalanceFor(entries []Transaction, accountNumber int64) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case TransactionDeposit:
			if e.OriginAccount == accountNumber {
				total = total.Add(e.Value)
			}
		case TransactionWithdrawal:
			if e.OriginAccount == accountNumber {
				total = total.Sub(e.Value)
			}
		case TransactionTransfer:
			if e.TransferAccount != nil && *e.TransferAccount == accountNumber {
				total = total.Add(e.Value)
			} else if e.OriginAccount == accountNumber {
				total = total.Sub(e.Value)
			}
		}
	}
	return total
}
