package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Auther wires the token codec, credential verifier, login exchange, request
// authenticator and authorization gate from a single Config
type Auther struct {
	codec     *TokenCodec
	verifier  *CredentialVerifier
	logins    *LoginExchange
	requests  *RequestAuthenticator
	gate      *Gate
	registrar *Registrar
	header    string
	logger    Logger
}

// AutherOption customizes NewAuthenticator
type AutherOption func(*autherOptions)

type autherOptions struct {
	clock     func() time.Time
	passwords PasswordAuthenticator
}

// WithAutherClock overrides the codec clock, mostly useful in tests
func WithAutherClock(now func() time.Time) AutherOption {
	return func(o *autherOptions) {
		o.clock = now
	}
}

// WithPasswordAuthenticator replaces the bcrypt hasher built from Config
func WithPasswordAuthenticator(passwords PasswordAuthenticator) AutherOption {
	return func(o *autherOptions) {
		o.passwords = passwords
	}
}

// NewAuthenticator returns a new Auther. Registration is only available when
// store also implements IdentityWriter.
func NewAuthenticator(store IdentityStore, cfg Config, opts ...AutherOption) (*Auther, error) {
	o := &autherOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.passwords == nil {
		o.passwords = NewBcryptHasher(cfg.GetPasswordCost())
	}

	var codecOpts []TokenCodecOption
	if o.clock != nil {
		codecOpts = append(codecOpts, WithClock(o.clock))
	}

	codec, err := NewTokenCodec([]byte(cfg.GetSigningKey()), codecOpts...)
	if err != nil {
		return nil, err
	}

	verifier, err := NewCredentialVerifier(store, o.passwords)
	if err != nil {
		return nil, err
	}

	policy, err := ParseInvalidTokenPolicy(cfg.GetInvalidTokenPolicy())
	if err != nil {
		return nil, err
	}

	table, err := cfg.GetRuleTable()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to load rule table")
	}

	gate, err := NewGate(table)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.GetTokenExpiration()) * time.Millisecond

	a := &Auther{
		codec:    codec,
		verifier: verifier,
		logins:   NewLoginExchange(verifier, codec, ttl),
		requests: NewRequestAuthenticator(codec, cfg.GetAuthScheme(), policy),
		gate:     gate,
		header:   cfg.GetTokenHeader(),
		logger:   defLogger{},
	}

	if a.header == "" {
		a.header = "Authorization"
	}

	if writer, ok := store.(IdentityWriter); ok {
		a.registrar = NewRegistrar(writer, o.passwords, cfg.GetDefaultRoles()...)
	}

	return a, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.codec.logger = s.logger
	s.verifier.WithLogger(s.logger)
	s.logins.WithLogger(s.logger)
	s.requests.WithLogger(s.logger)
	if s.registrar != nil {
		s.registrar.WithLogger(s.logger)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.logins.WithActivitySink(sink)
	s.requests.WithActivitySink(sink)
	if s.registrar != nil {
		s.registrar.WithActivitySink(sink)
	}
	return s
}

// Login exchanges credentials for a signed token
func (s *Auther) Login(ctx context.Context, username, password string) (string, error) {
	attempt, err := s.logins.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	return attempt.Token, nil
}

// Authenticate resolves the principal of a raw Authorization header value
func (s *Auther) Authenticate(ctx context.Context, authorization string) (AuthResult, error) {
	return s.requests.Authenticate(ctx, authorization)
}

// Authorize decides if principal may access requestPath
func (s *Auther) Authorize(requestPath string, principal *Principal) Decision {
	return s.gate.Decide(requestPath, principal)
}

// Register creates a new account with the default roles
func (s *Auther) Register(ctx context.Context, username, password string) (*IdentityRecord, error) {
	if s.registrar == nil {
		return nil, goerrors.New("identity store does not support registration", goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal)
	}
	return s.registrar.Register(ctx, username, password)
}

// CanRegister reports whether the identity store accepts new accounts
func (s *Auther) CanRegister() bool {
	return s.registrar != nil
}

// TokenHeader is the response header carrying issued tokens
func (s *Auther) TokenHeader() string {
	return s.header
}

func (s *Auther) Codec() *TokenCodec {
	return s.codec
}

func (s *Auther) Logins() *LoginExchange {
	return s.logins
}

func (s *Auther) Requests() *RequestAuthenticator {
	return s.requests
}

func (s *Auther) Gate() *Gate {
	return s.gate
}
