package auth

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

const (
	EnvSigningKey  = "AUTH_SIGNING_KEY"
	EnvTokenTTL    = "AUTH_TOKEN_TTL_MS"
	EnvListenAddr  = "AUTH_LISTEN_ADDR"
	EnvDatabaseDSN = "AUTH_DATABASE_DSN"
	EnvLogLevel    = "AUTH_LOG_LEVEL"
)

// DefaultTokenExpiration is one hour, in milliseconds
const DefaultTokenExpiration int64 = 3_600_000

// MinTokenExpiration is one second. Token timestamps have second precision,
// a shorter lifetime would issue tokens that are already expired.
const MinTokenExpiration int64 = 1000

// Settings is the process configuration. It is loaded once at startup and
// must not be mutated afterwards.
type Settings struct {
	SigningKey         string    `yaml:"signing_key" json:"signing_key"`
	TokenExpiration    int64     `yaml:"token_expiration_ms" json:"token_expiration_ms"`
	TokenHeader        string    `yaml:"token_header" json:"token_header"`
	AuthScheme         string    `yaml:"auth_scheme" json:"auth_scheme"`
	InvalidTokenPolicy string    `yaml:"invalid_token_policy" json:"invalid_token_policy"`
	PasswordCost       int       `yaml:"password_cost" json:"password_cost"`
	DefaultRoles       []string  `yaml:"default_roles" json:"default_roles"`
	Authorization      RuleTable `yaml:"authorization" json:"authorization"`
	AllowOrigins       []string  `yaml:"allow_origins" json:"allow_origins"`
	ListenAddr         string    `yaml:"listen_addr" json:"listen_addr"`
	DatabaseDSN        string    `yaml:"database_dsn" json:"database_dsn"`
	LogLevel           string    `yaml:"log_level" json:"log_level"`
}

// DefaultSettings returns settings with every optional field populated. The
// signing key has no default.
func DefaultSettings() *Settings {
	return &Settings{
		TokenExpiration:    DefaultTokenExpiration,
		TokenHeader:        "Authorization",
		AuthScheme:         "Bearer",
		InvalidTokenPolicy: string(InvalidTokenAnonymous),
		DefaultRoles:       []string{"MEMBER"},
		Authorization:      DefaultRuleTable(),
		AllowOrigins:       []string{"*"},
		ListenAddr:         ":8080",
		DatabaseDSN:        "file::memory:?cache=shared",
		LogLevel:           "info",
	}
}

// LoadSettings reads filename, if given, then applies environment overrides
// and validates the result
func LoadSettings(filename string) (*Settings, error) {
	s := DefaultSettings()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read settings file")
		}
		if err := s.decode(bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// ParseSettings decodes YAML from r on top of the defaults. Environment
// overrides are not applied.
func ParseSettings(r io.Reader) (*Settings, error) {
	s := DefaultSettings()
	if err := s.decode(r); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && err != io.EOF {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode settings")
	}
	return nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSigningKey); ok {
		s.SigningKey = v
	}

	if v, ok := lookup(EnvTokenTTL); ok {
		ttl, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("invalid %s value", EnvTokenTTL))
		}
		s.TokenExpiration = ttl
	}

	if v, ok := lookup(EnvListenAddr); ok {
		s.ListenAddr = v
	}

	if v, ok := lookup(EnvDatabaseDSN); ok {
		s.DatabaseDSN = v
	}

	if v, ok := lookup(EnvLogLevel); ok {
		s.LogLevel = v
	}

	return nil
}

// Validate checks field constraints and that the rule table compiles
func (s *Settings) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&s.TokenExpiration, validation.Required, validation.Min(MinTokenExpiration)),
		validation.Field(&s.TokenHeader, validation.Required),
		validation.Field(&s.AuthScheme, validation.Required),
		validation.Field(&s.InvalidTokenPolicy, validation.In(string(InvalidTokenAnonymous), string(InvalidTokenReject))),
		validation.Field(&s.ListenAddr, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid settings")
	}

	if _, err := NewGate(s.Authorization); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid authorization rules")
	}

	return nil
}

// Redacted returns a copy safe to print
func (s Settings) Redacted() Settings {
	if s.SigningKey != "" {
		s.SigningKey = "[REDACTED]"
	}
	return s
}

func (s *Settings) GetSigningKey() string {
	return s.SigningKey
}

func (s *Settings) GetTokenExpiration() int64 {
	return s.TokenExpiration
}

func (s *Settings) GetTokenHeader() string {
	return s.TokenHeader
}

func (s *Settings) GetAuthScheme() string {
	return s.AuthScheme
}

func (s *Settings) GetInvalidTokenPolicy() string {
	return s.InvalidTokenPolicy
}

func (s *Settings) GetPasswordCost() int {
	return s.PasswordCost
}

func (s *Settings) GetDefaultRoles() []string {
	return append([]string(nil), s.DefaultRoles...)
}

func (s *Settings) GetRuleTable() (RuleTable, error) {
	table := s.Authorization
	table.Rules = append([]Rule(nil), s.Authorization.Rules...)
	return table, nil
}
