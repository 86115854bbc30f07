package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCodec(t *testing.T, clock *testClock) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec([]byte(testSigningKey), auth.WithClock(clock.Now))
	require.NoError(t, err)
	return codec
}

func testClaims(issuedAt time.Time, ttl time.Duration) auth.Claims {
	iat := time.Unix(issuedAt.Unix(), 0).UTC()
	return auth.Claims{
		SubjectID: 7,
		Username:  "alice",
		Roles:     []string{"MEMBER"},
		TokenID:   "6f1c1c1e-1b0e-4bb7-9d38-2f4f1a0b6a11",
		IssuedAt:  iat,
		ExpiresAt: iat.Add(ttl),
	}
}

// seedIdentity stores username with a bcrypt hash of password
func seedIdentity(t *testing.T, store *auth.MemoryIdentityStore, username, password string, roles ...string) *auth.IdentityRecord {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	record, err := store.CreateIdentity(context.Background(), &auth.IdentityRecord{
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
	})
	require.NoError(t, err)
	return record
}

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

func (s *recordingSink) Events() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.ActivityEvent(nil), s.events...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
