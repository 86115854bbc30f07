package auth

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts the login and registration endpoints on app
func RegisterAuthRoutes(app fiber.Router, auther *Auther, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(auther, opts...)
	controller.Mount(app)
	return controller
}

// Mount registers the controller routes. Registration is skipped when the
// identity store cannot create accounts.
func (a *AuthController) Mount(app fiber.Router) {
	app.Post(a.Routes.Login, a.LoginPost).
		Name("sign-in.post")

	if a.Auther.CanRegister() {
		app.Post(a.Routes.Register, a.RegistrationCreate).
			Name("register.post")
	}
}

type AuthControllerRoutes struct {
	Login    string
	Register string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       *Auther
	ErrorHandler fiber.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithControllerDebug dumps redacted request payloads to the logger
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithControllerRoutes overrides the default route paths
func WithControllerRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes.Login != "" {
			c.Routes.Login = routes.Login
		}
		if routes.Register != "" {
			c.Routes.Register = routes.Register
		}
		return c
	}
}

func NewAuthController(auther *Auther, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		Auther:       auther,
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Register: "/user/join",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (r LoginRequest) redacted() LoginRequest {
	r.Password = "[REDACTED]"
	return r
}

// LoginPost answers 200 with the token in the configured response header.
// Every credential failure gets the same 401 body.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if a.Debug {
		a.Logger.Debug("login request: %s", print.MaybePrettyJSON(payload.redacted()))
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	c.Set(a.Auther.TokenHeader(), a.Auther.Requests().Scheme()+" "+token)
	return c.SendStatus(fiber.StatusOK)
}

// RegistrationCreatePayload is the join payload
type RegistrationCreatePayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required),
	)
}

// RegistrationCreate creates an account with the default roles and answers
// 201 with the public identity
func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return a.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	record, err := a.Auther.Register(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(&Principal{
		SubjectID: record.SubjectID,
		Username:  record.Username,
		Roles:     record.Roles,
	})
}

// WriteError renders err as {"error": message}. Internal failures never
// expose their message.
func WriteError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	message := ErrInternal.Message

	var richErr *goerrors.Error
	if status < fiber.StatusInternalServerError && goerrors.As(err, &richErr) {
		message = richErr.Message
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": "validation failed"}
	var fields validation.Errors
	if errors.As(err, &fields) {
		body["fields"] = fields
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
