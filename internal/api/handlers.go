/**
 * @description
 * This file contains the HTTP handlers for the ledger service's API endpoints.
 * Handlers parse incoming requests, call the transaction engine, and write the
 * HTTP response. Monetary amounts travel as decimal strings in both directions;
 * the handlers never touch floats.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/shopspring/decimal: parsing request amounts exactly.
 * - internal/app, internal/domain, internal/store: engine, models and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/GabriellaFranco/BankProject/internal/app"
	"github.com/GabriellaFranco/BankProject/internal/domain"
	"github.com/GabriellaFranco/BankProject/internal/store"
)

// LedgerHandlers holds the transaction engine and the mutation rate limiter.
type LedgerHandlers struct {
	service       *app.Service
	limiter       *RedisRateLimiter
	mutationLimit int
}

// NewLedgerHandlers creates a new instance of LedgerHandlers. limiter may be
// nil, and a non-positive mutationLimit disables limiting entirely.
func NewLedgerHandlers(service *app.Service, limiter *RedisRateLimiter, mutationLimit int) *LedgerHandlers {
	return &LedgerHandlers{service: service, limiter: limiter, mutationLimit: mutationLimit}
}

type openAccountRequest struct {
	Type            string `json:"type"`
	Holder          string `json:"holder"`
	HolderPhone     string `json:"holder_phone"`
	HolderBirthdate string `json:"holder_birthdate"`
	HolderCPF       string `json:"holder_cpf"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	TargetAccount int64  `json:"target_account"`
	Amount        string `json:"amount"`
}

type accountResponse struct {
	Number      int64  `json:"number"`
	Type        string `json:"type"`
	Balance     string `json:"balance"`
	Active      bool   `json:"active"`
	Holder      string `json:"holder"`
	OpeningDate string `json:"opening_date"`
}

type balanceResponse struct {
	Number  int64  `json:"number"`
	Balance string `json:"balance"`
}

type statementEntryResponse struct {
	Direction    string `json:"direction"`
	Type         string `json:"type"`
	Counterparty *int64 `json:"counterparty,omitempty"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
}

type reconciliationResponse struct {
	Number        int64  `json:"number"`
	StoredBalance string `json:"stored_balance"`
	LedgerBalance string `json:"ledger_balance"`
	Consistent    bool   `json:"consistent"`
}

func buildAccountResponse(acc *domain.Account) accountResponse {
	return accountResponse{
		Number:      acc.Number,
		Type:        string(acc.Type),
		Balance:     acc.Balance.String(),
		Active:      acc.Active,
		Holder:      acc.Holder,
		OpeningDate: acc.OpeningDate.Format("2006-01-02"),
	}
}

// OpenAccountHandler handles internal requests to open a new account. The
// session layer validates the holder's identity before calling this.
func (h *LedgerHandlers) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=open_account outcome=reject reason=invalid_json err=%v", err)
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Holder) == "" || strings.TrimSpace(req.HolderCPF) == "" {
		http.Error(w, "Holder name and CPF are required", http.StatusBadRequest)
		return
	}
	birthdate, err := time.Parse("2006-01-02", req.HolderBirthdate)
	if err != nil {
		http.Error(w, "Invalid holder birthdate, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	acc, err := h.service.OpenAccount(r.Context(), app.OpenAccountParams{
		Type:            req.Type,
		Holder:          strings.TrimSpace(req.Holder),
		HolderPhone:     strings.TrimSpace(req.HolderPhone),
		HolderBirthdate: birthdate,
		HolderCPF:       strings.TrimSpace(req.HolderCPF),
	})
	if err != nil {
		log.Printf("level=warn component=api endpoint=open_account outcome=failed holder_cpf=%s err=%v", req.HolderCPF, err)
		if errors.Is(err, app.ErrInvalidAccountType) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, store.ErrDuplicateAccountType) {
			http.Error(w, "Holder already has an account of this type", http.StatusConflict)
			return
		}
		h.respondEngineFailure(w, "open_account", err)
		return
	}

	log.Printf("level=info component=api endpoint=open_account outcome=created account=%d type=%s", acc.Number, acc.Type)
	h.writeJSON(w, http.StatusCreated, buildAccountResponse(acc))
}

// ActivateAccountHandler handles internal requests to mark an account active
// after its holder's first successful login. Repeated calls are harmless.
func (h *LedgerHandlers) ActivateAccountHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.pathAccount(w, r)
	if !ok {
		return
	}

	acc, err := h.service.Activate(r.Context(), number)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		h.respondEngineFailure(w, "activate_account", err)
		return
	}

	log.Printf("level=info component=api endpoint=activate_account outcome=ok account=%d", acc.Number)
	h.writeJSON(w, http.StatusOK, buildAccountResponse(acc))
}

// DepositHandler handles requests to credit the authenticated account.
func (h *LedgerHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.authorizedAccount(w, r)
	if !ok {
		return
	}
	if !h.allowMutation(w, r, number) {
		return
	}

	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}

	acc, err := h.service.Deposit(r.Context(), number, amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=deposit outcome=failed account=%d err=%v", number, err)
		h.respondEngineFailure(w, "deposit", err)
		return
	}

	log.Printf("level=info component=api endpoint=deposit outcome=ok account=%d amount=%s", number, amount)
	h.writeJSON(w, http.StatusCreated, buildAccountResponse(acc))
}

// WithdrawHandler handles requests to debit the authenticated account.
func (h *LedgerHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.authorizedAccount(w, r)
	if !ok {
		return
	}
	if !h.allowMutation(w, r, number) {
		return
	}

	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}

	acc, err := h.service.Withdraw(r.Context(), number, amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=withdraw outcome=failed account=%d err=%v", number, err)
		h.respondEngineFailure(w, "withdraw", err)
		return
	}

	log.Printf("level=info component=api endpoint=withdraw outcome=ok account=%d amount=%s", number, amount)
	h.writeJSON(w, http.StatusCreated, buildAccountResponse(acc))
}

// TransferHandler handles requests to move funds from the authenticated
// account to another account.
func (h *LedgerHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.authorizedAccount(w, r)
	if !ok {
		return
	}
	if !h.allowMutation(w, r, number) {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=transfer outcome=reject reason=invalid_json err=%v", err)
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		http.Error(w, "Invalid amount, expected a decimal string", http.StatusBadRequest)
		return
	}

	acc, err := h.service.Transfer(r.Context(), number, req.TargetAccount, amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=transfer outcome=failed account=%d target=%d err=%v", number, req.TargetAccount, err)
		h.respondEngineFailure(w, "transfer", err)
		return
	}

	log.Printf("level=info component=api endpoint=transfer outcome=ok account=%d target=%d amount=%s", number, req.TargetAccount, amount)
	h.writeJSON(w, http.StatusCreated, buildAccountResponse(acc))
}

// BalanceHandler handles requests to read the authenticated account's balance.
func (h *LedgerHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.authorizedAccount(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), number)
	if err != nil {
		h.respondEngineFailure(w, "balance", err)
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{Number: number, Balance: balance.String()})
}

// StatementHandler handles requests for the authenticated account's statement:
// every ledger entry touching the account, chronologically, signed from the
// account's perspective.
func (h *LedgerHandlers) StatementHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.authorizedAccount(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Statement(r.Context(), number)
	if err != nil {
		h.respondEngineFailure(w, "statement", err)
		return
	}

	response := make([]statementEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, statementEntryResponse{
			Direction:    string(entry.Direction),
			Type:         string(entry.Type),
			Counterparty: entry.Counterparty,
			Amount:       entry.Amount.String(),
			Date:         entry.Date.Format("2006-01-02"),
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// ReconcileHandler handles internal requests to compare an account's stored
// balance against its ledger-derived balance. Back-office tooling calls this.
func (h *LedgerHandlers) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := h.pathAccount(w, r)
	if !ok {
		return
	}

	stored, derived, err := h.service.Reconcile(r.Context(), number)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		h.respondEngineFailure(w, "reconcile", err)
		return
	}

	if !stored.Equal(derived) {
		log.Printf("level=error component=api endpoint=reconcile outcome=mismatch account=%d stored=%s ledger=%s", number, stored, derived)
	}
	h.writeJSON(w, http.StatusOK, reconciliationResponse{
		Number:        number,
		StoredBalance: stored.String(),
		LedgerBalance: derived.String(),
		Consistent:    stored.Equal(derived),
	})
}

// pathAccount parses the {number} URL parameter.
func (h *LedgerHandlers) pathAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "number")
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || number <= 0 {
		http.Error(w, "Invalid account number", http.StatusBadRequest)
		return 0, false
	}
	return number, true
}

// authorizedAccount parses the {number} URL parameter and verifies it matches
// the session token's account. Holders only operate their own accounts.
func (h *LedgerHandlers) authorizedAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sessionAccount, ok := GetSessionAccount(r.Context())
	if !ok {
		http.Error(w, "Could not get account from context", http.StatusInternalServerError)
		return 0, false
	}

	number, ok := h.pathAccount(w, r)
	if !ok {
		return 0, false
	}
	if number != sessionAccount {
		log.Printf("level=warn component=api outcome=reject reason=account_mismatch session_account=%d path_account=%d", sessionAccount, number)
		http.Error(w, "Token does not grant access to this account", http.StatusForbidden)
		return 0, false
	}
	return number, true
}

func (h *LedgerHandlers) parseAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		http.Error(w, "Invalid amount, expected a decimal string", http.StatusBadRequest)
		return decimal.Zero, false
	}
	return amount, true
}

// allowMutation consumes one rate-limit slot for the account. Limiter outages
// fail open so a Redis blip never takes the ledger down with it.
func (h *LedgerHandlers) allowMutation(w http.ResponseWriter, r *http.Request, accountNumber int64) bool {
	if h.limiter == nil || h.mutationLimit <= 0 {
		return true
	}

	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "mutation", strconv.FormatInt(accountNumber, 10), h.mutationLimit, time.Minute)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" account=%d err=%v", accountNumber, err)
		return true
	}
	if count > h.mutationLimit {
		log.Printf("level=warn component=api outcome=reject reason=rate_limited account=%d count=%d limit=%d", accountNumber, count, h.mutationLimit)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests, slow down"})
		return false
	}
	return true
}

// respondEngineFailure maps engine errors onto HTTP statuses.
func (h *LedgerHandlers) respondEngineFailure(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrSameAccount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, app.ErrTargetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrAccountNotFound):
		http.Error(w, "Account not found", http.StatusNotFound)
	case errors.Is(err, app.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, app.ErrStorageConflict):
		http.Error(w, "The operation kept conflicting with concurrent updates, try again", http.StatusConflict)
	case errors.Is(err, app.ErrStorageUnavailable):
		http.Error(w, "Ledger storage unavailable", http.StatusServiceUnavailable)
	default:
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
