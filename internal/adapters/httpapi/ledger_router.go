package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rideway-co/marketplace-api/internal/app/ledger"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

// NewLedgerRouter serves balance reads, deposits, settlement adjustments
// and account provisioning. Every endpoint acts on the token subject's own
// account; the service rejects any mismatch.
func NewLedgerRouter(svc *ledger.Service, codec *token.Codec) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(codec))
		r.Post("/accounts", handleCreateAccount(svc))
		r.Get("/balance/{username}", handleBalance(svc))
		r.Post("/deposit", handleDeposit(svc))
		r.Post("/adjust", handleAdjust(svc))
	})
	return r
}

type createAccountRequest struct {
	Username string `json:"username"`
	Opening  string `json:"opening"`
}

func handleCreateAccount(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := SubjectFromContext(r.Context())
		var req createAccountRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		opening, err := domain.ParseAmount(req.Opening)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid opening balance",
				map[string]any{"opening": "must be a decimal"})
			return
		}
		if err := svc.CreateAccount(r.Context(), caller, domain.Username(req.Username), opening); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":   "ok",
			"username": req.Username,
			"balance":  domain.FormatAmount(opening),
		})
	}
}

func handleBalance(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := SubjectFromContext(r.Context())
		username := domain.Username(chi.URLParam(r, "username"))
		bal, err := svc.Balance(r.Context(), caller, username)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"balance": domain.FormatAmount(bal),
		})
	}
}

type depositRequest struct {
	Amount string `json:"amount"`
}

func handleDeposit(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := SubjectFromContext(r.Context())
		var req depositRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		amount, err := domain.ParseAmount(req.Amount)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid amount",
				map[string]any{"amount": "must be a decimal"})
			return
		}
		bal, err := svc.Deposit(r.Context(), caller, amount)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"balance": domain.FormatAmount(bal),
		})
	}
}

type adjustRequest struct {
	Username string `json:"username"`
	Delta    string `json:"delta"`
}

// handleAdjust is the settlement debit endpoint. The Idempotency-Key header
// ties the call to one settlement attempt and is echoed back for
// correlation; the rejection of overdrafts is atomic in the repository.
func handleAdjust(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := SubjectFromContext(r.Context())
		var req adjustRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		delta, err := domain.ParseAmount(req.Delta)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid delta",
				map[string]any{"delta": "must be a decimal"})
			return
		}
		bal, err := svc.Adjust(r.Context(), caller, domain.Username(req.Username), delta)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		resp := map[string]any{
			"status":  "ok",
			"balance": domain.FormatAmount(bal),
		}
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			resp["idempotency_key"] = key
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
