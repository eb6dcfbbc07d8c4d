/**
 * @description
 * This file sets up the HTTP router for the ledger service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * authentication middleware: session tokens for holder operations, the internal
 * API key for account lifecycle and audit endpoints.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns the router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, sessionSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Internal endpoints for the session layer and back-office tooling.
	r.Group(func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))

		r.Post("/accounts", h.OpenAccountHandler)
		r.Post("/accounts/{number}/activation", h.ActivateAccountHandler)
		r.Get("/accounts/{number}/reconciliation", h.ReconcileHandler)
	})

	// Holder operations require a session token for the account being operated.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(sessionSecret))

		r.Post("/accounts/{number}/deposits", h.DepositHandler)
		r.Post("/accounts/{number}/withdrawals", h.WithdrawHandler)
		r.Post("/accounts/{number}/transfers", h.TransferHandler)
		r.Get("/accounts/{number}/balance", h.BalanceHandler)
		r.Get("/accounts/{number}/statement", h.StatementHandler)
	})

	return r
}
