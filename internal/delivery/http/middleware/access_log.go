package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type AccessLogMiddleware struct {
	logger *log.Logger
	// quiet paths are logged only on failure
	quiet map[string]struct{}
}

func NewAccessLogMiddleware(logger *log.Logger, quietPaths ...string) *AccessLogMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return &AccessLogMiddleware{logger: logger, quiet: quiet}
}

func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDHeader, rid)

		err := c.Next()

		status := c.Response().StatusCode()
		if _, ok := m.quiet[c.Path()]; ok && status < 400 && err == nil {
			return err
		}

		principal, _ := c.Locals(CtxPrincipalKey).(string)
		if principal == "" {
			principal = "-"
		}

		m.logger.Printf(
			"HTTP access | rid=%s ip=%s method=%s path=%s status=%d latency=%s principal=%s resp_bytes=%d ua=%q",
			rid, c.IP(), c.Method(), c.OriginalURL(), status, time.Since(start), principal,
			len(c.Response().Body()), c.Get("User-Agent"),
		)

		return err
	}
}
