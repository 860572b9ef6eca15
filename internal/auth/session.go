package auth

import (
	"context"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/starford/folio/internal/apperr"
)

// DefaultLifetime is the absolute session lifetime.
const DefaultLifetime = 30 * 24 * time.Hour

const (
	issuer   = "folio"
	implicit = "folio-session"
)

// GenerateKey returns a new hex encoded v4.public secret key.
func GenerateKey() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}

// Sessions issues and verifies v4.public session tokens.
type Sessions struct {
	key      paseto.V4AsymmetricSecretKey
	lifetime time.Duration
	now      func() time.Time
}

// NewSessions creates Sessions from a hex encoded secret key.
func NewSessions(hexKey string, lifetime time.Duration) (*Sessions, error) {
	key, err := paseto.NewV4AsymmetricSecretKeyFromHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("auth: parse secret key: %w", err)
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Sessions{key: key, lifetime: lifetime, now: time.Now}, nil
}

// Lifetime returns how long issued tokens stay valid.
func (s *Sessions) Lifetime() time.Duration { return s.lifetime }

// Issue signs a token for p and returns it with its expiry.
func (s *Sessions) Issue(p Principal) (string, time.Time) {
	now := s.now()
	exp := now.Add(s.lifetime)

	token := paseto.NewToken()
	token.SetIssuer(issuer)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(exp)
	token.SetSubject(p.ID)
	token.SetString("name", p.Name)
	token.SetString("email", p.Email)
	token.SetString("image", p.Image)
	token.SetString("role", string(p.Role))

	return token.V4Sign(s.key, []byte(implicit)), exp
}

// Verify parses a token and returns its principal. Any failure is reported
// as apperr.ErrUnauthorized.
func (s *Sessions) Verify(value string) (Principal, error) {
	parser := paseto.MakeParser([]paseto.Rule{
		paseto.NotExpired(),
		paseto.IssuedBy(issuer),
	})
	token, err := parser.ParseV4Public(s.key.Public(), value, []byte(implicit))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %s", apperr.ErrUnauthorized, err.Error())
	}

	var p Principal
	if p.ID, err = token.GetSubject(); err != nil {
		return Principal{}, fmt.Errorf("%w: missing subject", apperr.ErrUnauthorized)
	}
	p.Name, _ = token.GetString("name")
	p.Email, _ = token.GetString("email")
	p.Image, _ = token.GetString("image")
	role, _ := token.GetString("role")
	p.Role = Role(role)
	if !p.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: unknown role %q", apperr.ErrUnauthorized, role)
	}
	return p, nil
}

type principalKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
