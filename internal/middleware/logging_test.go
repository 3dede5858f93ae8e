package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapLogger points the package logger at a buffer for the test's duration.
func swapLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := Logger
	Logger = slog.New(&requestAttrHandler{slog.NewJSONHandler(&buf, nil)})
	t.Cleanup(func() { Logger = orig })
	return &buf
}

func TestStructuredLogger_EmitsAccessLine(t *testing.T) {
	buf := swapLogger(t)

	app := fiber.New()
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/posts/42", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	line := buf.String()
	assert.Contains(t, line, `"msg":"request processed"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/posts/42"`)
	assert.Contains(t, line, `"route":"/posts/:id"`)
}

func TestStructuredLogger_LogsHandlerError(t *testing.T) {
	buf := swapLogger(t)

	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	_ = resp.Body.Close()

	line := buf.String()
	assert.Contains(t, line, `"msg":"request failed"`)
	assert.Contains(t, line, `"error":"boom"`)
}

func TestContextMiddleware_PropagatesLocalsToContext(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-123")
		c.Locals("userID", uint(7))
		c.Locals("traceID", "trace-abc")
		return c.Next()
	})
	app.Use(ContextMiddleware())

	var gotRID, gotTID string
	var gotUID uint
	app.Get("/", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		gotRID, _ = ctx.Value(RequestIDKey).(string)
		gotUID, _ = ctx.Value(UserIDKey).(uint)
		gotTID, _ = ctx.Value(TraceIDKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "req-123", gotRID)
	assert.Equal(t, uint(7), gotUID)
	assert.Equal(t, "trace-abc", gotTID)
}

func TestRequestAttrHandler_StampsCorrelationIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&requestAttrHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, UserIDKey, uint(3))
	logger.InfoContext(ctx, "deep in a service")

	line := buf.String()
	assert.Contains(t, line, `"request_id":"req-9"`)
	assert.Contains(t, line, `"user_id":3`)
}
