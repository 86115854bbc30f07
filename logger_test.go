package auth_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-bearer"
)

type countingStringer struct {
	calls int
}

func (c *countingStringer) String() string {
	c.calls++
	return "value"
}

func TestLogrusLoggerWritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	logger := auth.NewLogrusLogger(base, "codec")
	logger.Warn("rejected %d tokens for %q", 3, "alice")

	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "codec", entry["component"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, `rejected 3 tokens for "alice"`, entry["msg"])
}

func TestLogrusLoggerSkipsFormattingBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.InfoLevel)

	logger := auth.NewLogrusLogger(base, "")
	arg := &countingStringer{}

	logger.Debug("skipped %s", arg)
	assert.Zero(t, arg.calls)
	assert.Zero(t, buf.Len())

	logger.Info("written %s", arg)
	assert.Equal(t, 1, arg.calls)
	assert.Contains(t, buf.String(), "written value")
}
