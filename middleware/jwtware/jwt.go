package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-bearer"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// Config for the request authentication middleware. The middleware never
// blocks a request on its own unless the authenticator uses the reject
// policy, enforcement is left to the authorization middleware.
type Config struct {
	// Filter skips the middleware when it returns true
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Authenticator is required
	Authenticator *auth.RequestAuthenticator
	// ContextKey is the Locals key holding the *auth.Principal
	ContextKey string
	// TokenLookup is a comma separated list of "<source>:<name>" pairs, the
	// first source holding a value wins, e.g. "header:Authorization,cookie:jwt"
	TokenLookup string
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		ctx := c.UserContext()
		result := auth.AuthResult{Outcome: auth.OutcomeNoCredential}

		for _, extractor := range extractors {
			raw := extractor.Extract(c)
			if raw == "" {
				continue
			}

			var err error
			if extractor.Scheme {
				result, err = cfg.Authenticator.Authenticate(ctx, raw)
			} else {
				result, err = cfg.Authenticator.AuthenticateToken(ctx, raw)
			}
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}
			break
		}

		if result.Principal != nil {
			c.Locals(cfg.ContextKey, result.Principal)
		}
		c.SetUserContext(auth.WithAuthResult(ctx, result))

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			c.Set(fiber.HeaderWWWAuthenticate, cfg.Authenticator.Scheme())
			return auth.WriteError(c, err)
		}
	}

	if cfg.Authenticator == nil {
		panic("AUTH: JWT middleware configuration: Authenticator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "principal"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	return cfg
}

// PrincipalFromLocals returns the principal stored by the middleware
func PrincipalFromLocals(c *fiber.Ctx, key ...string) (*auth.Principal, bool) {
	k := "principal"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	principal, ok := c.Locals(k).(*auth.Principal)
	return principal, ok && principal != nil
}

// JWTExtractor reads a raw credential from the request. Scheme is set for
// header sources, whose value still carries the "<scheme> " prefix.
type JWTExtractor struct {
	Extract func(c *fiber.Ctx) string
	Scheme  bool
}

func GetExtractors(tokenLookup string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	// header:Authorization,cookie:jwt,query:auth_token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(rootPart), ":")
		if !ok {
			continue
		}
		source = strings.TrimSpace(source)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		switch source {
		case "header":
			extractors = append(extractors, JWTExtractor{Extract: jwtFromHeader(name), Scheme: true})
		case "query":
			extractors = append(extractors, JWTExtractor{Extract: jwtFromQuery(name)})
		case "cookie":
			extractors = append(extractors, JWTExtractor{Extract: jwtFromCookie(name)})
		}
	}

	return extractors
}

// jwtFromHeader returns a function that extracts the credential from the request header.
func jwtFromHeader(header string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Get(header)
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Query(param)
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Cookies(name)
	}
}
