package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/diskcache/internal/cache"
	"github.com/any-hub/diskcache/internal/logging"
	"github.com/any-hub/diskcache/internal/version"
)

// EntryStore is the subset of *cache.DiskCache the HTTP layer depends on. It
// allows injecting fakes during tests.
type EntryStore interface {
	Get(key string) <-chan cache.Lookup[json.RawMessage]
	Set(key string, value json.RawMessage) <-chan struct{}
	Remove(key string) <-chan struct{}
	RemoveAll() <-chan struct{}
}

// AppOptions wires the dependencies of the Fiber application.
type AppOptions struct {
	Logger    *logrus.Logger
	Store     EntryStore
	Directory string
}

const contextKeyRequestID = "_diskcache_request_id"

// NewApp builds a Fiber application serving the entry routes and the health
// endpoint.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("entry store is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	h := &entryHandler{store: opts.Store, logger: opts.Logger}
	app.Get("/entries/:key", h.get)
	app.Put("/entries/:key", h.put)
	app.Delete("/entries/:key", h.remove)
	app.Delete("/entries", h.removeAll)

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"version":   version.Full(),
			"directory": opts.Directory,
		})
	})

	return app, nil
}

// requestContextMiddleware assigns a request ID and logs each request at debug
// level once the downstream handlers have finished.
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		start := time.Now()
		err := c.Next()

		fields := logging.RequestFields(c.Method(), c.Path(), reqID, c.Response().StatusCode())
		fields["elapsed_ms"] = time.Since(start).Milliseconds()
		logger.WithFields(fields).Debug("request handled")
		return err
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
