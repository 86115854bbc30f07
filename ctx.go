package auth

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}
var authResultCtxKey = &contextKey{"auth_result"}

type contextKey struct {
	name string
}

// WithPrincipal binds principal to a request scoped context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext returns the principal bound to ctx, if any
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	principal, ok := ctx.Value(principalCtxKey).(*Principal)
	return principal, ok && principal != nil
}

// WithAuthResult stores the full authentication outcome, used for logging
func WithAuthResult(ctx context.Context, result AuthResult) context.Context {
	ctx = context.WithValue(ctx, authResultCtxKey, result)
	if result.Principal != nil {
		ctx = WithPrincipal(ctx, result.Principal)
	}
	return ctx
}

// AuthResultFromContext returns the authentication outcome stored in ctx
func AuthResultFromContext(ctx context.Context) (AuthResult, bool) {
	if ctx == nil {
		return AuthResult{}, false
	}
	result, ok := ctx.Value(authResultCtxKey).(AuthResult)
	return result, ok
}

// Authorize evaluates gate against the principal bound to ctx
func Authorize(ctx context.Context, gate *Gate, requestPath string) Decision {
	principal, _ := PrincipalFromContext(ctx)
	return gate.Decide(requestPath, principal)
}
