package rbac_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/middleware/rbac"
)

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// newApp binds the principal named by the X-Roles test header, then runs the gate
func newApp(t *testing.T, sink auth.ActivitySink) *fiber.App {
	t.Helper()

	gate, err := auth.NewGate(auth.DefaultRuleTable())
	require.NoError(t, err)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if roles := c.Get("X-Roles"); roles != "" {
			principal := &auth.Principal{SubjectID: 9, Username: "tester", Roles: auth.ParseRoles(roles)}
			c.SetUserContext(auth.WithAuthResult(c.UserContext(), auth.AuthResult{
				Principal: principal,
				Outcome:   auth.OutcomeAuthenticated,
			}))
		}
		return c.Next()
	})
	app.Use(rbac.New(rbac.Config{Gate: gate, ActivitySink: sink}))
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRBACDecisions(t *testing.T) {
	app := newApp(t, nil)

	tests := []struct {
		name   string
		path   string
		roles  string
		status int
		body   string
	}{
		{"public anonymous", "/", "", http.StatusOK, "ok"},
		{"member anonymous", "/member", "", http.StatusUnauthorized, `{"error":"authentication required"}`},
		{"member as member", "/member", "MEMBER", http.StatusOK, "ok"},
		{"admin as member", "/admin", "MEMBER", http.StatusForbidden, `{"error":"insufficient role"}`},
		{"admin as admin", "/admin/users", "ADMIN", http.StatusOK, "ok"},
		{"admin trailing slash as member", "/admin/", "MEMBER", http.StatusForbidden, `{"error":"insufficient role"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.roles != "" {
				req.Header.Set("X-Roles", tt.roles)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, string(body))
			} else {
				assert.JSONEq(t, tt.body, string(body))
			}

			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
			} else {
				assert.Empty(t, resp.Header.Get(fiber.HeaderWWWAuthenticate))
			}
		})
	}
}

func TestRBACEmitsAccessDenied(t *testing.T) {
	sink := &recordingSink{}
	app := newApp(t, sink)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Roles", "MEMBER")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, auth.ActivityEventAccessDenied, event.EventType)
	assert.Equal(t, "/admin", event.Path)
	assert.Equal(t, auth.DecisionDenyForbidden.String(), event.Outcome)
	assert.Equal(t, int64(9), event.SubjectID)
	assert.Equal(t, "GET", event.Metadata["method"])
	assert.Equal(t, string(auth.OutcomeAuthenticated), event.Metadata["auth_outcome"])
}

func TestRBACRequiresGate(t *testing.T) {
	assert.Panics(t, func() {
		rbac.New(rbac.Config{})
	})
}
