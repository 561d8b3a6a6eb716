package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rideway-co/marketplace-api/internal/app/reservations"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
	"github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
)

// NewReservationsRouter serves settlement, the latest-reservation view and
// the reconciliation read. metricsHandler is mounted at /metrics when
// non-nil.
func NewReservationsRouter(svc *reservations.Service, codec *token.Codec, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(codec))
		r.Post("/reserve", handleReserve(svc))
		r.Get("/view", handleView(svc))
		r.Get("/reconcile", handleReconcile(svc))
	})
	return r
}

type reserveRequest struct {
	ListingID string `json:"listing_id"`
}

type reservationPayload struct {
	ID        int64  `json:"id"`
	ListingID string `json:"listing_id"`
	Day       string `json:"day"`
	Driver    string `json:"driver"`
	Renter    string `json:"renter"`
}

func toReservationPayload(res domain.Reservation) reservationPayload {
	return reservationPayload{
		ID:        int64(res.ID),
		ListingID: string(res.ListingID),
		Day:       res.Day,
		Driver:    string(res.Driver),
		Renter:    string(res.Renter),
	}
}

func handleReserve(svc *reservations.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renter, _ := SubjectFromContext(r.Context())
		tok, _ := TokenFromContext(r.Context())
		var req reserveRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.Reserve(r.Context(), renter, tok, domain.ListingID(req.ListingID))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":      "ok",
			"reservation": toReservationPayload(res),
		})
	}
}

func handleView(svc *reservations.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := SubjectFromContext(r.Context())
		tok, _ := TokenFromContext(r.Context())
		view, err := svc.ViewLatest(r.Context(), caller, tok)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if view.Empty {
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"empty":  true,
			})
			return
		}
		resp := map[string]any{
			"status":      "ok",
			"empty":       false,
			"reservation": toReservationPayload(view.Reservation),
			"counterpart": string(view.Counterpart),
			"price":       domain.FormatAmount(view.Price),
		}
		if view.HasRating {
			resp["rating"] = view.Rating.StringFixed(2)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type stuckAttemptPayload struct {
	Key       string    `json:"key"`
	Renter    string    `json:"renter"`
	Driver    string    `json:"driver"`
	ListingID string    `json:"listing_id"`
	Amount    string    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleReconcile lists settlement attempts whose debit committed but whose
// booking never did. min_age bounds how fresh an attempt may be before it
// counts as stuck; in-flight settlements younger than that are excluded.
func handleReconcile(svc *reservations.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		age := time.Minute
		if raw := r.URL.Query().Get("min_age"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d < 0 {
				writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid min_age",
					map[string]any{"min_age": "must be a non-negative duration"})
				return
			}
			age = d
		}
		attempts, err := svc.StuckSettlements(r.Context(), age)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		rows := make([]stuckAttemptPayload, 0, len(attempts))
		for _, a := range attempts {
			rows = append(rows, toStuckPayload(a))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"stuck":  rows,
		})
	}
}

func toStuckPayload(a settlementjournal.Attempt) stuckAttemptPayload {
	return stuckAttemptPayload{
		Key:       a.Key,
		Renter:    string(a.Renter),
		Driver:    string(a.Driver),
		ListingID: string(a.ListingID),
		Amount:    domain.FormatAmount(a.Amount),
		UpdatedAt: a.UpdatedAt,
	}
}
