/**
 * @description
 * This file defines the account model for the ledger service. An account holds
 * the current balance and status for one holder/type pair; every balance change
 * it ever sees is mirrored by exactly one ledger entry.
 *
 * @notes
 * - Balances use shopspring/decimal so monetary values stay exact; never floats.
 * - `Version` backs the store's optimistic concurrency check: a save only
 *   succeeds when the caller read the version currently persisted.
 */

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies the closed set of account products offered.
type AccountType string

const (
	AccountChecking   AccountType = "CHECKING"
	AccountSavings    AccountType = "SAVINGS"
	AccountSalary     AccountType = "SALARY"
	AccountBusiness   AccountType = "BUSINESS"
	AccountStudent    AccountType = "STUDENT"
	AccountInvestment AccountType = "INVESTMENT"
)

// AccountTypes lists every valid account type.
var AccountTypes = []AccountType{
	AccountChecking,
	AccountSavings,
	AccountSalary,
	AccountBusiness,
	AccountStudent,
	AccountInvestment,
}

// ParseAccountType converts free-form input into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	candidate := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range AccountTypes {
		if candidate == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Account represents one bank account. The holder identity fields are
// immutable business data validated by the caller at creation time.
type Account struct {
	Number          int64           `json:"number"`
	Type            AccountType     `json:"type"`
	Balance         decimal.Decimal `json:"balance"`
	Active          bool            `json:"active"`
	Holder          string          `json:"holder"`
	HolderPhone     string          `json:"holder_phone"`
	HolderBirthdate time.Time       `json:"holder_birthdate"`
	HolderCPF       string          `json:"holder_cpf"`
	OpeningDate     time.Time       `json:"opening_date"`
	Version         int64           `json:"-"`
}
