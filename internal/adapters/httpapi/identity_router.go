package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rideway-co/marketplace-api/internal/app/identity"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

// NewIdentityRouter serves registration, login and profile reads.
// Registration and login are the only unauthenticated endpoints in the
// system; everything else requires a token this service issued.
func NewIdentityRouter(svc *identity.Service, codec *token.Codec) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)
	r.Post("/users", handleRegister(svc))
	r.Post("/login", handleLogin(svc))

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(codec))
		r.Get("/users/{username}", handleGetUser(svc))
	})
	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Driver    bool   `json:"driver"`
	Deposit   string `json:"deposit"`
}

type userPayload struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Driver    bool   `json:"driver"`
}

func toUserPayload(u domain.User) userPayload {
	return userPayload{
		Username:  string(u.Username),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Driver:    u.Driver,
	}
}

func handleRegister(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := svc.Register(r.Context(), identity.RegisterInput{
			Username:  req.Username,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Driver:    req.Driver,
			Deposit:   req.Deposit,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status": "ok",
			"user":   toUserPayload(u),
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func handleLogin(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		tok, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"token":  tok,
		})
	}
}

func handleGetUser(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := domain.Username(chi.URLParam(r, "username"))
		u, err := svc.GetUser(r.Context(), username)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"user":   toUserPayload(u),
		})
	}
}
