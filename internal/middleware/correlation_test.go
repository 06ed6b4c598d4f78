package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = GetCorrelationID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDHonorsIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())

	var fromUserContext string
	app.Get("/", func(c *fiber.Ctx) error {
		fromUserContext = CorrelationIDFromContext(c.UserContext())
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
	require.Equal(t, "abc-123", fromUserContext)
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-9")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-9", resp.Header.Get("X-Correlation-ID"))
}

func TestContextWithCorrelationRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), " trace-1 ")
	require.Equal(t, "trace-1", CorrelationIDFromContext(ctx))

	require.Equal(t, "", CorrelationIDFromContext(context.Background()))
	require.Same(t, context.Background(), ContextWithCorrelation(context.Background(), "  "))
}
