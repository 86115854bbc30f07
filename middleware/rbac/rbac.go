package rbac

import (
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-bearer"
)

// Config for the authorization middleware. It must run after jwtware so
// the request context carries the authenticated principal.
type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(*fiber.Ctx) bool
	// Gate is required
	Gate *auth.Gate
	// ErrorHandler receives auth.ErrUnauthenticated or auth.ErrInsufficientRole
	ErrorHandler fiber.ErrorHandler
	ActivitySink auth.ActivitySink
	Logger       auth.Logger
	// AuthScheme is advertised in WWW-Authenticate on 401 responses
	AuthScheme string
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		ctx := c.UserContext()
		principal, _ := auth.PrincipalFromContext(ctx)

		verdict := cfg.Gate.Evaluate(c.Path(), principal)
		if verdict.Decision.Allowed() {
			return c.Next()
		}

		event := auth.ActivityEvent{
			EventType:  auth.ActivityEventAccessDenied,
			Path:       c.Path(),
			Outcome:    verdict.Decision.String(),
			OccurredAt: time.Now(),
			Metadata: map[string]any{
				"method":  c.Method(),
				"pattern": verdict.Pattern,
			},
		}
		if principal != nil {
			event.SubjectID = principal.SubjectID
			event.Username = principal.Username
		}
		if result, ok := auth.AuthResultFromContext(ctx); ok {
			event.Metadata["auth_outcome"] = string(result.Outcome)
		}

		if err := cfg.ActivitySink.Record(ctx, event); err != nil {
			cfg.Logger.Warn("activity sink record error: %v", err)
		}

		return cfg.ErrorHandler(c, verdict.Decision.Err())
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Gate == nil {
		panic("AUTH: RBAC middleware configuration: Gate is required.")
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if auth.StatusCode(err) == fiber.StatusUnauthorized {
				c.Set(fiber.HeaderWWWAuthenticate, cfg.AuthScheme)
			}
			return auth.WriteError(c, err)
		}
	}

	if cfg.ActivitySink == nil {
		cfg.ActivitySink = auth.ActivitySinkFunc(nil)
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}

	return cfg
}
