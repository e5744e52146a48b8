package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// UnmatchedRoute is the metrics label for requests no route matched.
const UnmatchedRoute = "unmatched"

const unmatchedKey = "observability.unmatched"

// MarkUnmatched tags the request as served by a catch-all handler.
func MarkUnmatched(c *fiber.Ctx) {
	c.Locals(unmatchedKey, true)
}

// RouteLabel names the request for metrics by its registered route
// pattern, so ids and unknown paths never become keys.
func RouteLabel(c *fiber.Ctx) string {
	if unmatched, _ := c.Locals(unmatchedKey).(bool); unmatched {
		return UnmatchedRoute
	}
	route := c.Route()
	// fiber synthesizes a handler-less route carrying the raw path when
	// nothing matched.
	if route == nil || len(route.Handlers) == 0 || route.Path == "" {
		return UnmatchedRoute
	}
	return route.Path
}

// RequestLogger logs each request and records it in metrics. Errors
// returned by later handlers are passed through untouched; their status
// comes from the error taxonomy.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
		}
		metrics.RecordRequest(RouteLabel(c), c.Method(), status, latency)

		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
			zap.String("request_id", c.GetRespHeader("X-Request-ID")),
		)
		return err
	}
}
