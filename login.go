package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// LoginState is a step of a single login attempt
type LoginState string

const (
	LoginStateReceived         LoginState = "received"
	LoginStateIdentityLookedUp LoginState = "identity_looked_up"
	LoginStatePasswordChecked  LoginState = "password_checked"
	LoginStateTokenIssued      LoginState = "token_issued"
	LoginStateRejected         LoginState = "rejected"
)

// LoginAttempt records how far a login submission went. Reason holds the
// internal rejection cause and must never be shown to the client.
type LoginAttempt struct {
	Username string
	State    LoginState
	Reason   error
	Claims   Claims
	Token    string
}

func (a *LoginAttempt) transition(state LoginState) {
	a.State = state
}

func (a *LoginAttempt) reject(reason error) {
	a.State = LoginStateRejected
	a.Reason = reason
}

// LoginExchange trades a username and password for a token
type LoginExchange struct {
	verifier     *CredentialVerifier
	codec        *TokenCodec
	ttl          time.Duration
	logger       Logger
	activitySink ActivitySink
}

// NewLoginExchange creates a login exchange issuing tokens valid for ttl
func NewLoginExchange(verifier *CredentialVerifier, codec *TokenCodec, ttl time.Duration) *LoginExchange {
	return &LoginExchange{
		verifier:     verifier,
		codec:        codec,
		ttl:          ttl,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (l *LoginExchange) WithLogger(logger Logger) *LoginExchange {
	l.logger = normalizeLogger(logger)
	return l
}

// WithActivitySink configures an ActivitySink for emitting login events.
func (l *LoginExchange) WithActivitySink(sink ActivitySink) *LoginExchange {
	l.activitySink = normalizeActivitySink(sink)
	return l
}

// TTL returns the configured token lifetime
func (l *LoginExchange) TTL() time.Duration {
	return l.ttl
}

// Login runs one login attempt. On failure the returned error is
// ErrAuthenticationFailed regardless of the cause, or ErrInternal when the
// identity store or codec failed. The attempt carries the internal reason.
func (l *LoginExchange) Login(ctx context.Context, username, password string) (*LoginAttempt, error) {
	attempt := &LoginAttempt{
		Username: username,
		State:    LoginStateReceived,
	}

	record, err := l.verifier.LookupIdentity(ctx, username)
	if err != nil {
		if goerrors.Is(err, ErrUnknownUser) {
			l.verifier.burn(password)
			attempt.reject(ErrUnknownUser)
			l.failed(ctx, attempt)
			return attempt, ErrAuthenticationFailed
		}
		l.logger.Error("login identity lookup failed: %v", err)
		attempt.reject(err)
		l.failed(ctx, attempt)
		return attempt, ErrInternal
	}
	attempt.transition(LoginStateIdentityLookedUp)

	if !l.verifier.VerifyPassword(password, record.PasswordHash) {
		attempt.reject(ErrBadCredentials)
		l.failed(ctx, attempt)
		return attempt, ErrAuthenticationFailed
	}
	attempt.transition(LoginStatePasswordChecked)

	claims := l.newClaims(record)
	token, err := l.codec.Issue(claims)
	if err != nil {
		attempt.reject(err)
		l.failed(ctx, attempt)
		return attempt, ErrInternal
	}

	attempt.Claims = claims
	attempt.Token = token
	attempt.transition(LoginStateTokenIssued)

	emitActivity(ctx, l.activitySink, l.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Username:  username,
		SubjectID: record.SubjectID,
	})

	return attempt, nil
}

func (l *LoginExchange) newClaims(record *IdentityRecord) Claims {
	now := l.codec.Now().Truncate(time.Second).UTC()
	return Claims{
		SubjectID: record.SubjectID,
		Username:  record.Username,
		Roles:     NormalizeRoles(record.Roles...),
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(l.ttl).Truncate(time.Second),
	}
}

func (l *LoginExchange) failed(ctx context.Context, attempt *LoginAttempt) {
	reason := ""
	if attempt.Reason != nil {
		reason = attempt.Reason.Error()
	}
	l.logger.Info("login rejected for %q: %s", attempt.Username, reason)

	emitActivity(ctx, l.activitySink, l.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Username:  attempt.Username,
		Metadata: map[string]any{
			"reason": reason,
		},
	})
}
