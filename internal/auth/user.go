// Package auth checks credentials and issues signed session tokens.
package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/folio/internal/apperr"
)

// Role is a principal's role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// Principal is the signed-in identity carried by a session.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
	Role  Role   `json:"role"`
}

// User is a configured account.
type User struct {
	Principal
	PasswordHash string
}

// Credentials is a login attempt.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the shape of the credentials.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required, validation.Length(8, 0)),
	)
}

// Authenticator checks credentials against a fixed set of users.
type Authenticator struct {
	users map[string]User
	dummy string
}

// NewAuthenticator indexes users by lowercased email.
func NewAuthenticator(users []User) *Authenticator {
	a := &Authenticator{users: make(map[string]User, len(users))}
	for _, u := range users {
		a.users[strings.ToLower(u.Email)] = u
	}
	// Unknown emails are checked against this so they cost the same as known ones.
	a.dummy, _ = HashPassword("folio-unknown-user")
	return a
}

// Authenticate returns the principal for valid credentials. Malformed input
// yields the validation error; a wrong email or password yields
// apperr.ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, c Credentials) (Principal, error) {
	if err := c.Validate(); err != nil {
		return Principal{}, err
	}
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}

	u, ok := a.users[strings.ToLower(c.Email)]
	hash := u.PasswordHash
	if !ok {
		hash = a.dummy
	}
	match, err := CheckPassword(c.Password, hash)
	if err != nil || !match || !ok {
		return Principal{}, apperr.ErrInvalidCredentials
	}
	return u.Principal, nil
}
