package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
)

func newControllerApp(t *testing.T) (*fiber.App, *auth.Auther) {
	t.Helper()

	store := auth.NewMemoryIdentityStore()
	seedIdentity(t, store, "alice", "pa55word", "MEMBER")

	auther, err := auth.NewAuthenticator(store, testSettings())
	require.NoError(t, err)
	auther.WithLogger(nopLogger{})

	app := fiber.New(fiber.Config{ErrorHandler: auth.WriteError})
	auth.RegisterAuthRoutes(app, auther, auth.WithControllerLogger(nopLogger{}))
	return app, auther
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestLoginPost(t *testing.T) {
	app, auther := newControllerApp(t)

	resp, _ := postJSON(t, app, "/login", `{"username":"alice","password":"pa55word"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	header := resp.Header.Get("Authorization")
	token, ok := auth.ExtractBearer(header, "Bearer")
	require.True(t, ok, "header %q", header)

	claims, err := auther.Codec().Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestLoginPostFailuresShareOneResponse(t *testing.T) {
	app, _ := newControllerApp(t)

	unknown, unknownBody := postJSON(t, app, "/login", `{"username":"mallory","password":"pa55word"}`)
	wrong, wrongBody := postJSON(t, app, "/login", `{"username":"alice","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, unknown.StatusCode, wrong.StatusCode)
	assert.Equal(t, unknownBody, wrongBody)
	assert.JSONEq(t, `{"error":"authentication failed"}`, unknownBody)
	assert.Empty(t, unknown.Header.Get("Authorization"))
	assert.Empty(t, wrong.Header.Get("Authorization"))
}

func TestLoginPostValidation(t *testing.T) {
	app, _ := newControllerApp(t)

	resp, body := postJSON(t, app, "/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "validation failed", payload["error"])
	assert.Contains(t, payload["fields"], "password")

	resp, _ = postJSON(t, app, "/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegistrationCreate(t *testing.T) {
	app, _ := newControllerApp(t)

	resp, body := postJSON(t, app, "/user/join", `{"username":"bob","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":2,"username":"bob","roles":["MEMBER"]}`, body)
	assert.NotContains(t, body, "s3cret")

	resp, body = postJSON(t, app, "/user/join", `{"username":"bob","password":"again"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"error":"username already registered"}`, body)

	resp, _ = postJSON(t, app, "/user/join", `{"username":"","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, app, "/login", `{"username":"bob","password":"s3cret"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return auth.WriteError(c, io.ErrUnexpectedEOF)
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"internal server error"}`, string(raw))
}
