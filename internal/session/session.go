// Package session is the auth/billing collaborator boundary: it supplies
// the current user identity (or none) and the plan tier used to gate
// storage quota checks. The engine only ever consumes this interface.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"studiohub/internal/domain"
)

// ErrAuthRequired marks attachment operations attempted without an
// authenticated identity. Surfaced to the user as a login prompt; the call
// fails fast instead of attempting the network.
var ErrAuthRequired = errors.New("authentication required")

// Identity is the authenticated user plus their billing plan.
type Identity struct {
	ActorID string
	Plan    domain.PlanTier
}

// Provider yields the current identity. ErrAuthRequired when there is none.
type Provider interface {
	Current(ctx context.Context) (Identity, error)
}

// Static always returns a fixed identity; used by the CLI (single-user,
// local session) and by tests.
type Static struct {
	Identity Identity
}

func (s Static) Current(context.Context) (Identity, error) {
	if s.Identity.ActorID == "" {
		return Identity{}, ErrAuthRequired
	}
	id := s.Identity
	if id.Plan == "" {
		id.Plan = domain.PlanFree
	}
	return id, nil
}

// None is the unauthenticated provider.
type None struct{}

func (None) Current(context.Context) (Identity, error) {
	return Identity{}, ErrAuthRequired
}

type identityKey struct{}

// WithIdentity stores an identity on the context for ContextProvider.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached to the context, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ContextProvider resolves the identity per request from the context, as
// populated by the HTTP auth middleware.
type ContextProvider struct{}

func (ContextProvider) Current(ctx context.Context) (Identity, error) {
	if id, ok := IdentityFromContext(ctx); ok && id.ActorID != "" {
		return id, nil
	}
	return Identity{}, ErrAuthRequired
}

type claims struct {
	jwt.RegisteredClaims
	Plan string `json:"plan,omitempty"`
}

// FromToken parses a signed bearer token into an Identity. The subject is
// the actor id; an unknown or missing plan claim downgrades to free.
func FromToken(token, secret string) (Identity, error) {
	if strings.TrimSpace(secret) == "" {
		return Identity{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if c.Subject == "" {
		return Identity{}, errors.New("subject claim required")
	}
	plan := domain.PlanTier(c.Plan)
	if !domain.ValidPlanTier(plan) {
		plan = domain.PlanFree
	}
	return Identity{ActorID: c.Subject, Plan: plan}, nil
}

// SignToken mints a token for an identity, used by `hub serve --dev-token`
// and tests.
func SignToken(id Identity, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.ActorID},
		Plan:             string(id.Plan),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
