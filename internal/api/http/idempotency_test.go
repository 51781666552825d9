package http

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIdempotencyApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int64
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop()))
	app.Use(IdempotencyMiddleware(client, time.Minute, zap.NewNop()))
	app.Post("/things", func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"n": calls.Load()})
	})
	return app, &calls
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	first := httptest.NewRequest(fiber.MethodPost, "/things", strings.NewReader(`{"a":1}`))
	first.Header.Set(idempotencyHeader, "req-1")
	resp, err := app.Test(first)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	firstBody, _ := io.ReadAll(resp.Body)

	retry := httptest.NewRequest(fiber.MethodPost, "/things", strings.NewReader(`{"a":1}`))
	retry.Header.Set(idempotencyHeader, "req-1")
	resp, err = app.Test(retry)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	retryBody, _ := io.ReadAll(resp.Body)

	assert.Equal(t, string(firstBody), string(retryBody))
	assert.Equal(t, int64(1), calls.Load())
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	app, _ := newIdempotencyApp(t)

	first := httptest.NewRequest(fiber.MethodPost, "/things", strings.NewReader(`{"a":1}`))
	first.Header.Set(idempotencyHeader, "req-1")
	resp, err := app.Test(first)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	other := httptest.NewRequest(fiber.MethodPost, "/things", strings.NewReader(`{"a":2}`))
	other.Header.Set(idempotencyHeader, "req-1")
	resp, err = app.Test(other)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/things", strings.NewReader(`{}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
	assert.Equal(t, int64(2), calls.Load())
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := fiber.New()
	app.Use(IdempotencyMiddleware(client, time.Minute, zap.NewNop()))
	app.Get("/things", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest(fiber.MethodGet, "/things", nil)
	req.Header.Set(idempotencyHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, mr.Keys())
}
