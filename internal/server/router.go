package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/filecache/filecache/internal/cache"
	"github.com/filecache/filecache/internal/config"
)

// Store is the subset of *cache.Cache the HTTP layer depends on.
type Store interface {
	Has(key string) (bool, error)
	GetInto(key string, dst any) (bool, error)
	Set(key string, value any, ttl cache.TTL) error
	Delete(key string) (bool, error)
	GetMultiple(keys []string, def any) (map[string]any, error)
	SetMultiple(values map[string]any, ttl cache.TTL) (bool, error)
	DeleteMultiple(keys []string) (bool, error)
	Clear() (bool, error)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Store      Store
	Cache      config.CacheConfig
	ListenPort int
}

const contextKeyRequestID = "_filecache_request_id"

// NewApp builds a Fiber application exposing the cache API with request IDs
// and structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		JSONEncoder:   json.Marshal,
		JSONDecoder:   json.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	h := &handlers{store: opts.Store, logger: opts.Logger, cache: opts.Cache}
	app.Get("/-/status", h.status)

	app.Get("/v1/entries/:key", h.get)
	app.Get("/v1/entries/:key/exists", h.exists)
	app.Put("/v1/entries/:key", h.put)
	app.Delete("/v1/entries/:key", h.delete)
	app.Delete("/v1/entries", h.clear)

	app.Post("/v1/batch/get", h.batchGet)
	app.Post("/v1/batch/set", h.batchSet)
	app.Post("/v1/batch/delete", h.batchDelete)

	return app, nil
}

// requestIDMiddleware 为每个请求生成请求 ID，并通过 X-Request-ID 回传。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := strings.TrimSpace(c.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
