package service

import (
	"context"

	"github.com/big14way/afri-asset/internal/core/domain"
)

// Authorizer decides whether a principal has approved the current call.
// Implementations return domain.ErrUnauthorized (or an error wrapping it)
// when approval is missing.
type Authorizer interface {
	RequireAuth(ctx context.Context, principal domain.Principal) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, principal domain.Principal) error

// RequireAuth calls f.
func (f AuthorizerFunc) RequireAuth(ctx context.Context, principal domain.Principal) error {
	return f(ctx, principal)
}

type approvalsKey struct{}

// WithApprovals returns a context carrying the given approvals in addition
// to any already present.
func WithApprovals(ctx context.Context, principals ...domain.Principal) context.Context {
	existing := ApprovalsFromContext(ctx)
	merged := make([]domain.Principal, 0, len(existing)+len(principals))
	merged = append(merged, existing...)
	merged = append(merged, principals...)
	return context.WithValue(ctx, approvalsKey{}, merged)
}

// ApprovalsFromContext returns the approvals attached to ctx.
func ApprovalsFromContext(ctx context.Context) []domain.Principal {
	if ps, ok := ctx.Value(approvalsKey{}).([]domain.Principal); ok {
		return ps
	}
	return nil
}

// ContextAuthorizer approves a principal if it appears in the context's
// approvals (see WithApprovals). The HTTP layer fills these from verified
// request signatures.
type ContextAuthorizer struct{}

// RequireAuth implements Authorizer.
func (ContextAuthorizer) RequireAuth(ctx context.Context, principal domain.Principal) error {
	for _, p := range ApprovalsFromContext(ctx) {
		if p == principal {
			return nil
		}
	}
	return domain.ErrUnauthorized.WithDetails("approval required from " + principal.String())
}

// AllowAllAuthorizer approves every principal. Only for local tooling and
// tests.
type AllowAllAuthorizer struct{}

// RequireAuth implements Authorizer.
func (AllowAllAuthorizer) RequireAuth(context.Context, domain.Principal) error {
	return nil
}
