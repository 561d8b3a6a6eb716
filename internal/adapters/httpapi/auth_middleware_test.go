package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.New([]byte("test-secret"))
	if err != nil {
		t.Fatalf("token.New() err=%v", err)
	}
	return codec
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	t.Parallel()

	h := NewAuthMiddleware(newTestCodec(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
	var env struct {
		Status string `json:"status"`
		Error  struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if env.Status != "unauthorized" || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestAuthMiddleware_RejectsForgedToken(t *testing.T) {
	t.Parallel()

	h := NewAuthMiddleware(newTestCodec(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a forged token")
	}))

	other, err := token.New([]byte("other-secret"))
	if err != nil {
		t.Fatalf("token.New() err=%v", err)
	}
	forged, err := other.Issue("mallory")
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("Authorization", forged)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_StoresSubjectAndRawToken(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	tok, err := codec.Issue("rita")
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}

	var gotSubject domain.Username
	var gotToken string
	h := NewAuthMiddleware(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromContext(r.Context())
		gotToken, _ = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// The token is carried raw, with no Bearer prefix.
	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("Authorization", tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", rec.Code)
	}
	if gotSubject != "rita" {
		t.Fatalf("subject=%q, want rita", gotSubject)
	}
	if gotToken != tok {
		t.Fatalf("token not forwarded verbatim")
	}
}
