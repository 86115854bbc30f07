package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// AuthOutcome describes what the request authenticator made of a credential
type AuthOutcome string

const (
	OutcomeNoCredential     AuthOutcome = "no_credential"
	OutcomeMalformedHeader  AuthOutcome = "malformed_header"
	OutcomeSignatureInvalid AuthOutcome = "signature_invalid"
	OutcomeMalformedToken   AuthOutcome = "malformed_token"
	OutcomeExpired          AuthOutcome = "expired"
	OutcomeAuthenticated    AuthOutcome = "authenticated"
)

// InvalidTokenPolicy decides what happens to a request that presents a
// bearer token we cannot authenticate or decode.
type InvalidTokenPolicy string

const (
	// InvalidTokenAnonymous downgrades the request to anonymous and lets the
	// authorization gate decide.
	InvalidTokenAnonymous InvalidTokenPolicy = "anonymous"
	// InvalidTokenReject fails the request with ErrUnauthenticated.
	InvalidTokenReject InvalidTokenPolicy = "reject"
)

// ParseInvalidTokenPolicy defaults to InvalidTokenAnonymous for empty input
func ParseInvalidTokenPolicy(raw string) (InvalidTokenPolicy, error) {
	switch InvalidTokenPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", InvalidTokenAnonymous:
		return InvalidTokenAnonymous, nil
	case InvalidTokenReject:
		return InvalidTokenReject, nil
	default:
		return "", goerrors.New("unknown invalid token policy: "+raw, goerrors.CategoryValidation)
	}
}

// AuthResult is the outcome of authenticating one request. Principal is nil
// for anonymous requests. Reason carries the verification error for logging.
type AuthResult struct {
	Principal *Principal
	Outcome   AuthOutcome
	Reason    error
}

// Authenticated reports whether a principal was established
func (r AuthResult) Authenticated() bool {
	return r.Principal != nil
}

// RequestAuthenticator establishes the principal of a request from its
// bearer credential. It only enriches requests, enforcement belongs to the
// authorization gate.
type RequestAuthenticator struct {
	codec        *TokenCodec
	scheme       string
	policy       InvalidTokenPolicy
	logger       Logger
	activitySink ActivitySink
}

// NewRequestAuthenticator creates an authenticator for "<scheme> <token>"
// credentials, scheme defaults to Bearer
func NewRequestAuthenticator(codec *TokenCodec, scheme string, policy InvalidTokenPolicy) *RequestAuthenticator {
	if scheme == "" {
		scheme = "Bearer"
	}
	if policy == "" {
		policy = InvalidTokenAnonymous
	}
	return &RequestAuthenticator{
		codec:        codec,
		scheme:       scheme,
		policy:       policy,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (a *RequestAuthenticator) WithLogger(logger Logger) *RequestAuthenticator {
	a.logger = normalizeLogger(logger)
	return a
}

// WithActivitySink configures an ActivitySink for token rejection events.
func (a *RequestAuthenticator) WithActivitySink(sink ActivitySink) *RequestAuthenticator {
	a.activitySink = normalizeActivitySink(sink)
	return a
}

// Scheme returns the expected authorization scheme
func (a *RequestAuthenticator) Scheme() string {
	return a.scheme
}

// Policy returns the configured invalid token policy
func (a *RequestAuthenticator) Policy() InvalidTokenPolicy {
	return a.policy
}

// Authenticate inspects the raw Authorization header value. The error is
// only set when the invalid token policy is InvalidTokenReject and the
// presented token failed verification.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, authorization string) (AuthResult, error) {
	if strings.TrimSpace(authorization) == "" {
		return AuthResult{Outcome: OutcomeNoCredential}, nil
	}

	token, ok := ExtractBearer(authorization, a.scheme)
	if !ok {
		return AuthResult{Outcome: OutcomeMalformedHeader}, nil
	}

	return a.AuthenticateToken(ctx, token)
}

// AuthenticateToken verifies a token that was already extracted from the
// request, e.g. from a cookie or query parameter
func (a *RequestAuthenticator) AuthenticateToken(ctx context.Context, token string) (AuthResult, error) {
	if token == "" {
		return AuthResult{Outcome: OutcomeNoCredential}, nil
	}

	claims, err := a.codec.Verify(token)
	if err != nil {
		outcome := OutcomeMalformedToken
		if goerrors.Is(err, ErrSignatureInvalid) {
			outcome = OutcomeSignatureInvalid
		}
		result := AuthResult{Outcome: outcome, Reason: err}
		a.rejected(ctx, result)

		if a.policy == InvalidTokenReject {
			return result, ErrUnauthenticated
		}
		return result, nil
	}

	if a.codec.IsExpired(claims) {
		result := AuthResult{Outcome: OutcomeExpired, Reason: ErrTokenExpired}
		a.rejected(ctx, result)
		return result, nil
	}

	return AuthResult{
		Principal: NewPrincipal(claims),
		Outcome:   OutcomeAuthenticated,
	}, nil
}

func (a *RequestAuthenticator) rejected(ctx context.Context, result AuthResult) {
	a.logger.Debug("bearer token not accepted: %s", result.Outcome)
	emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventTokenRejected,
		Outcome:   string(result.Outcome),
	})
}

// ExtractBearer returns the token of a "<scheme> <token>" header value. The
// scheme match is case insensitive and needs a single separating space.
func ExtractBearer(header, scheme string) (string, bool) {
	l := len(scheme)
	if l == 0 || len(header) <= l+1 {
		return "", false
	}

	if !strings.EqualFold(header[:l], scheme) || header[l] != ' ' {
		return "", false
	}

	token := strings.TrimSpace(header[l+1:])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}
