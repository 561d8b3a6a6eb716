package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/app/reputation"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

// NewReputationRouter serves rating submission and the two average reads.
func NewReputationRouter(svc *reputation.Service, codec *token.Codec) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(codec))
		r.Post("/ratings", handleSubmitRating(svc))
		r.Get("/ratings/average", handleAverage(svc))
	})
	return r
}

type submitRatingRequest struct {
	Target string `json:"target"`
	Value  int    `json:"value"`
}

func handleSubmitRating(svc *reputation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rater, _ := SubjectFromContext(r.Context())
		tok, _ := TokenFromContext(r.Context())
		var req submitRatingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.Submit(r.Context(), rater, tok, domain.Username(req.Target), req.Value); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"status": "ok"})
	}
}

// handleAverage returns a driver's mean rating: across all raters by
// default, or restricted to one rater when the rater parameter is present.
// No ratings is a result, not an error.
func handleAverage(svc *reputation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver := domain.Username(r.URL.Query().Get("driver"))
		if driver == "" {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing driver parameter",
				map[string]any{"driver": "must be non-empty"})
			return
		}
		rater := domain.Username(r.URL.Query().Get("rater"))

		var (
			avg decimal.Decimal
			ok  bool
			err error
		)
		if rater != "" {
			avg, ok, err = svc.AveragePair(r.Context(), driver, rater)
		} else {
			avg, ok, err = svc.AverageForDriver(r.Context(), driver)
		}
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		resp := map[string]any{
			"status":      "ok",
			"has_ratings": ok,
		}
		if ok {
			resp["average"] = avg.StringFixed(2)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
