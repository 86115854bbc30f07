package auth

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSigningKeyLength is the smallest accepted HMAC key, 256 bits
const MinSigningKeyLength = 32

// numericClaims must be JSON numbers on the wire. jwt.NumericDate also
// accepts quoted values, so they are checked before decoding.
var numericClaims = []string{"id", "iat", "exp", "nbf"}

// tokenClaims is the wire representation of Claims
type tokenClaims struct {
	jwt.RegisteredClaims
	UID      int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
}

// TokenCodec issues and verifies HS256 signed tokens. It holds the process
// wide signing key and is safe for concurrent use.
type TokenCodec struct {
	key    []byte
	method *jwt.SigningMethodHMAC
	parser *jwt.Parser
	now    func() time.Time
	logger Logger
}

// TokenCodecOption configures a TokenCodec
type TokenCodecOption func(*TokenCodec)

// WithClock overrides the time source used for expiration checks
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodecLogger sets the logger used to report internal codec failures
func WithCodecLogger(logger Logger) TokenCodecOption {
	return func(c *TokenCodec) {
		c.logger = normalizeLogger(logger)
	}
}

// NewTokenCodec creates a codec bound to signingKey
func NewTokenCodec(signingKey []byte, opts ...TokenCodecOption) (*TokenCodec, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, ErrWeakSigningKey
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	c := &TokenCodec{
		key:    key,
		method: jwt.SigningMethodHS256,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Now returns the current time according to the codec clock
func (c *TokenCodec) Now() time.Time {
	return c.now()
}

// Issue encodes claims and signs them. It only fails on an encoding fault,
// which is reported as ErrInternalCodec.
func (c *TokenCodec) Issue(claims Claims) (string, error) {
	wire := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.TokenID,
			Subject:   strconv.FormatInt(claims.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		UID:      claims.SubjectID,
		Username: claims.Username,
		Roles:    claims.Roles,
	}

	signed, err := jwt.NewWithClaims(c.method, wire).SignedString(c.key)
	if err != nil {
		c.logger.Error("token codec failed to sign claims: %v", err)
		return "", ErrInternalCodec
	}

	return signed, nil
}

// Verify authenticates token and returns its claims. The signature is
// checked over the raw encoded segments before anything is decoded, so any
// alteration of header or payload yields ErrSignatureInvalid. Authentic
// tokens whose claims do not match the schema yield ErrTokenMalformed.
// Expiration is not checked here, see IsExpired.
func (c *TokenCodec) Verify(token string) (Claims, error) {
	// the signature covers everything before the last dot, a stray dot
	// inside the payload is an alteration like any other
	last := strings.LastIndexByte(token, '.')
	if last <= 0 || strings.IndexByte(token, '.') == last {
		return Claims{}, ErrTokenMalformed
	}

	sig, err := c.parser.DecodeSegment(token[last+1:])
	if err != nil {
		return Claims{}, ErrSignatureInvalid
	}

	if err := c.method.Verify(token[:last], sig, c.key); err != nil {
		return Claims{}, ErrSignatureInvalid
	}

	payload, err := c.parser.DecodeSegment(token[strings.IndexByte(token, '.')+1 : last])
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}

	if err := checkClaimTypes(payload); err != nil {
		return Claims{}, err
	}

	wire := &tokenClaims{}
	if _, err := c.parser.ParseWithClaims(token, wire, c.keyFunc); err != nil {
		return Claims{}, ErrTokenMalformed
	}

	return wire.claims()
}

// IsExpired reports whether claims are past their expiration
func (c *TokenCodec) IsExpired(claims Claims) bool {
	return !c.now().Before(claims.ExpiresAt)
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return c.key, nil
}

func (w *tokenClaims) claims() (Claims, error) {
	if w.IssuedAt == nil || w.ExpiresAt == nil {
		return Claims{}, ErrTokenMalformed
	}

	if w.UID <= 0 || w.Username == "" {
		return Claims{}, ErrTokenMalformed
	}

	if w.Subject != strconv.FormatInt(w.UID, 10) {
		return Claims{}, ErrTokenMalformed
	}

	return Claims{
		SubjectID: w.UID,
		Username:  w.Username,
		Roles:     w.Roles,
		TokenID:   w.ID,
		IssuedAt:  w.IssuedAt.Time.UTC(),
		ExpiresAt: w.ExpiresAt.Time.UTC(),
	}, nil
}

func checkClaimTypes(payload []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ErrTokenMalformed
	}

	for _, name := range numericClaims {
		value, ok := raw[name]
		if !ok {
			continue
		}
		value = bytes.TrimSpace(value)
		if len(value) == 0 || (value[0] != '-' && (value[0] < '0' || value[0] > '9')) {
			return ErrTokenMalformed
		}
	}

	return nil
}
