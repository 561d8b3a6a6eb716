package httpapi

import (
	"context"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

type subjectKey struct{}
type tokenKey struct{}

func WithSubject(ctx context.Context, username domain.Username) context.Context {
	return context.WithValue(ctx, subjectKey{}, username)
}

func SubjectFromContext(ctx context.Context) (domain.Username, bool) {
	v, ok := ctx.Value(subjectKey{}).(domain.Username)
	return v, ok && v != ""
}

// WithToken stores the raw verified token so handlers can forward it on
// cross-service calls without re-signing.
func WithToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, tokenKey{}, raw)
}

func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey{}).(string)
	return v, ok && v != ""
}
