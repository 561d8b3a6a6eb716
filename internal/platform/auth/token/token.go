// Package token is the single canonical implementation of the identity token
// scheme. Every service verifies through this package; none re-implements it.
//
// A token is "<b64url-header>.<b64url-payload>.<hex-signature>" where the
// signature is HMAC-SHA256 over the first two parts, keyed with a secret
// shared by all services. Tokens are stateless and carry no expiry: validity
// is purely cryptographic for the lifetime of the secret.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

var (
	// ErrUnauthorized is returned for every malformed or forged token.
	// Verification deliberately does not distinguish failure causes to the
	// caller.
	ErrUnauthorized = errors.New("unauthorized")
)

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

type payload struct {
	Username string `json:"username"`
}

// Codec issues and verifies identity tokens with a pre-shared secret.
// The secret is loaded once at startup and read-only thereafter; Codec is
// safe for concurrent use. It must never log or transmit the secret.
type Codec struct {
	secret []byte
}

// New returns a Codec keyed with secret.
func New(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty token secret")
	}
	// Defensive copy: callers may zero or reuse their buffer.
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Codec{secret: s}, nil
}

// Issue builds a signed token asserting username.
func (c *Codec) Issue(username domain.Username) (string, error) {
	if username == "" {
		return "", errors.New("empty username")
	}
	hb, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	pb, err := json.Marshal(payload{Username: string(username)})
	if err != nil {
		return "", err
	}

	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(hb) + "." + enc.EncodeToString(pb)
	return signingInput + "." + c.sign(signingInput), nil
}

// Verify checks a token and returns the asserted username.
//
// Verification is stateless and pure: no store access, no clock. It fails
// with ErrUnauthorized when the token does not have exactly three parts, the
// payload does not decode, the username is absent, or the recomputed
// signature does not match (constant-time comparison).
func (c *Codec) Verify(tok string) (domain.Username, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", ErrUnauthorized
	}
	signingInput := parts[0] + "." + parts[1]

	want := c.sign(signingInput)
	// hex digests of equal-length inputs; compare the decoded bytes in
	// constant time so signature checking leaks no timing signal.
	got, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrUnauthorized
	}
	wantRaw, _ := hex.DecodeString(want)
	if !hmac.Equal(wantRaw, got) {
		return "", ErrUnauthorized
	}

	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrUnauthorized
	}
	var p payload
	if err := json.Unmarshal(pb, &p); err != nil {
		return "", ErrUnauthorized
	}
	if p.Username == "" {
		return "", ErrUnauthorized
	}
	return domain.Username(p.Username), nil
}

func (c *Codec) sign(signingInput string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return hex.EncodeToString(mac.Sum(nil))
}
