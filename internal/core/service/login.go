package service

import (
	"context"
	"fmt"

	"github.com/yndnr/onelogin/internal/core/domain"
)

// IdentityProvider resolves the user authenticated by the current request.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// TokenProvider resolves the raw session token of the current request.
type TokenProvider interface {
	CurrentSessionToken(ctx context.Context) (string, error)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func(ctx context.Context) (string, error)

// CurrentUserID calls f(ctx).
func (f IdentityFunc) CurrentUserID(ctx context.Context) (string, error) { return f(ctx) }

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// CurrentSessionToken calls f(ctx).
func (f TokenFunc) CurrentSessionToken(ctx context.Context) (string, error) { return f(ctx) }

// SessionEnforcer applies the single-session policy. *Registry implements it.
type SessionEnforcer interface {
	DestroyOthers(ctx context.Context, userID, rawToken string) (Outcome, error)
}

// LoginHook enforces the single-session policy when a login completes.
type LoginHook struct {
	enforcer SessionEnforcer
	identity IdentityProvider
	tokens   TokenProvider
}

// NewLoginHook creates a LoginHook.
func NewLoginHook(enforcer SessionEnforcer, identity IdentityProvider, tokens TokenProvider) *LoginHook {
	return &LoginHook{
		enforcer: enforcer,
		identity: identity,
		tokens:   tokens,
	}
}

// Fire resolves the current user and session token and calls DestroyOthers
// exactly once.
func (h *LoginHook) Fire(ctx context.Context) (Outcome, error) {
	userID, err := h.identity.CurrentUserID(ctx)
	if err != nil {
		return OutcomeWiped, fmt.Errorf("resolve current user: %w", err)
	}
	if userID == "" {
		return OutcomeWiped, domain.ErrMissingArgument.WithDetails("current user is unknown")
	}

	rawToken, err := h.tokens.CurrentSessionToken(ctx)
	if err != nil {
		return OutcomeWiped, fmt.Errorf("resolve session token: %w", err)
	}
	if rawToken == "" {
		return OutcomeWiped, domain.ErrMissingArgument.WithDetails("current session token is unknown")
	}

	return h.enforcer.DestroyOthers(ctx, userID, rawToken)
}
