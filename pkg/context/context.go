package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// FromFiberCtx detaches a request context from fasthttp, which recycles *fiber.Ctx once the
// handler returns. Only the request id carries over.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID := GetRequestID(c.UserContext())
	if requestID == "unknown" {
		if id, ok := c.Locals("X-Request-ID").(string); ok && id != "" {
			requestID = id
		} else if id := c.Get("X-Request-ID"); id != "" {
			requestID = id
		}
	}

	return WithRequestID(context.Background(), requestID)
}
