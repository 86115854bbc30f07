package main

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/activitymap"
	"github.com/goliatone/go-auth-bearer/metrics"
	"github.com/goliatone/go-auth-bearer/middleware/jwtware"
	"github.com/goliatone/go-auth-bearer/middleware/rbac"
)

// ServerOptions are the collaborators of the HTTP server
type ServerOptions struct {
	Logger  *logrus.Logger
	Metrics *metrics.Collector
	// Clock overrides the token codec time source
	Clock func() time.Time
	Debug bool
}

// NewServer builds the Fiber app: CORS, authentication, authorization and
// the login, registration and sample routes
func NewServer(settings *auth.Settings, store auth.IdentityStore, opts ServerOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	var autherOpts []auth.AutherOption
	if opts.Clock != nil {
		autherOpts = append(autherOpts, auth.WithAutherClock(opts.Clock))
	}

	auther, err := auth.NewAuthenticator(store, settings, autherOpts...)
	if err != nil {
		return nil, err
	}

	sinks := auth.MultiActivitySink{activitymap.LogSink(opts.Logger)}
	if opts.Metrics != nil {
		sinks = append(sinks, opts.Metrics)
	}

	auther.
		WithLogger(auth.NewLogrusLogger(opts.Logger, "auth")).
		WithActivitySink(sinks)

	app := fiber.New(fiber.Config{
		AppName:               "authd",
		CaseSensitive:         !settings.Authorization.CaseInsensitive,
		DisableStartupMessage: true,
		ErrorHandler:          auth.WriteError,
	})

	if opts.Metrics != nil {
		app.Use(opts.Metrics.Middleware())
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(settings.AllowOrigins, ","),
		AllowHeaders:  strings.Join([]string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization}, ","),
		ExposeHeaders: auther.TokenHeader(),
	}))

	controller := auth.NewAuthController(auther,
		auth.WithControllerLogger(auth.NewLogrusLogger(opts.Logger, "http")),
		auth.WithControllerDebug(opts.Debug),
	)
	isPublic := publicRoutes(auther.Gate(), controller.Routes.Login, controller.Routes.Register)

	app.Use(jwtware.New(jwtware.Config{
		Authenticator: auther.Requests(),
		Filter:        isPublic,
	}))

	app.Use(rbac.New(rbac.Config{
		Filter:       isPublic,
		Gate:         auther.Gate(),
		ActivitySink: sinks,
		Logger:       auth.NewLogrusLogger(opts.Logger, "rbac"),
		AuthScheme:   auther.Requests().Scheme(),
	}))

	controller.Mount(app)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	app.Get("/", showPrincipal("welcome"))
	app.Get("/member", showPrincipal("member area"))
	app.Get("/admin", showPrincipal("admin area"))

	return app, nil
}

// publicRoutes exempts the credential exchange routes from authentication
// and authorization, otherwise a deny default policy would lock every client
// out of the login
func publicRoutes(gate *auth.Gate, routes ...string) func(*fiber.Ctx) bool {
	public := make(map[string]bool, len(routes))
	for _, route := range routes {
		public[gate.CanonicalPath(route)] = true
	}
	return func(c *fiber.Ctx) bool {
		return public[gate.CanonicalPath(c.Path())]
	}
}

func showPrincipal(message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := fiber.Map{"message": message}
		if principal, ok := auth.PrincipalFromContext(c.UserContext()); ok {
			body["principal"] = principal
		}
		return c.JSON(body)
	}
}
