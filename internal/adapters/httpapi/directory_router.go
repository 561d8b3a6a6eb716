package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rideway-co/marketplace-api/internal/app/directory"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

// NewDirectoryRouter serves listing submission, search and lookup.
func NewDirectoryRouter(svc *directory.Service, codec *token.Codec) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(codec))
		r.Post("/listings", handleSubmitListing(svc))
		r.Get("/listings", handleSearchListings(svc))
		r.Get("/listings/{id}", handleLookupListing(svc))
	})
	return r
}

type submitListingRequest struct {
	ListingID string `json:"listing_id,omitempty"`
	Day       string `json:"day"`
	Price     string `json:"price"`
}

type listingPayload struct {
	ListingID string `json:"listing_id"`
	Day       string `json:"day"`
	Price     string `json:"price"`
	Driver    string `json:"driver"`
}

func toListingPayload(l domain.Listing) listingPayload {
	return listingPayload{
		ListingID: string(l.ID),
		Day:       l.Day,
		Price:     domain.FormatAmount(l.Price),
		Driver:    string(l.Driver),
	}
}

func handleSubmitListing(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := SubjectFromContext(r.Context())
		tok, _ := TokenFromContext(r.Context())
		var req submitListingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		l, err := svc.Submit(r.Context(), caller, tok, directory.SubmitInput{
			ListingID: req.ListingID,
			Day:       req.Day,
			Price:     req.Price,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":  "ok",
			"listing": toListingPayload(l),
		})
	}
}

type searchRowPayload struct {
	listingPayload
	DriverRating string `json:"driver_rating,omitempty"`
}

func handleSearchListings(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, _ := TokenFromContext(r.Context())
		day := r.URL.Query().Get("day")
		results, err := svc.Search(r.Context(), tok, day)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		rows := make([]searchRowPayload, 0, len(results))
		for _, res := range results {
			row := searchRowPayload{listingPayload: toListingPayload(res.Listing)}
			if res.HasRating {
				row.DriverRating = res.DriverRating.StringFixed(2)
			}
			rows = append(rows, row)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"listings": rows,
		})
	}
}

func handleLookupListing(svc *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.ListingID(chi.URLParam(r, "id"))
		l, err := svc.Lookup(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"listing": toListingPayload(l),
		})
	}
}
