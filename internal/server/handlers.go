package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/filecache/filecache/internal/cache"
	"github.com/filecache/filecache/internal/config"
	"github.com/filecache/filecache/internal/logging"
	"github.com/filecache/filecache/internal/version"
)

type handlers struct {
	store  Store
	logger *logrus.Logger
	cache  config.CacheConfig
}

type batchGetRequest struct {
	Keys    []string `json:"keys"`
	Default any      `json:"default"`
}

type batchSetRequest struct {
	Entries map[string]any `json:"entries"`
	TTL     string         `json:"ttl"`
}

type batchDeleteRequest struct {
	Keys []string `json:"keys"`
}

type batchResult struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

func (h *handlers) status(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"root":                h.cache.Root,
		"default_ttl_seconds": int64(h.cache.DefaultTTL.DurationValue().Seconds()),
		"expiry":              h.cache.Expiry,
		"hash":                h.cache.Hash,
		"version":             version.Full(),
	})
}

func (h *handlers) get(c fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return h.renderError(c, "", err)
	}
	var value any
	found, err := h.store.GetInto(key, &value)
	if err != nil {
		return h.renderError(c, key, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	return c.JSON(fiber.Map{"key": key, "value": value})
}

func (h *handlers) exists(c fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return h.renderError(c, "", err)
	}
	live, err := h.store.Has(key)
	if err != nil {
		return h.renderError(c, key, err)
	}
	return c.JSON(fiber.Map{"exists": live})
}

func (h *handlers) put(c fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return h.renderError(c, "", err)
	}
	ttl, err := parseTTL(c.Query("ttl"))
	if err != nil {
		return h.renderBadRequest(c, key, err)
	}
	value, err := decodeValue(c.Body())
	if err != nil {
		return h.renderBadRequest(c, key, err)
	}
	if err := h.store.Set(key, value, ttl); err != nil {
		return h.renderError(c, key, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) delete(c fiber.Ctx) error {
	key, err := keyParam(c)
	if err != nil {
		return h.renderError(c, "", err)
	}
	removed, err := h.store.Delete(key)
	if err != nil {
		return h.renderError(c, key, err)
	}
	return c.JSON(fiber.Map{"deleted": removed})
}

func (h *handlers) clear(c fiber.Ctx) error {
	cleared, err := h.store.Clear()
	if err != nil {
		return h.renderError(c, "", err)
	}
	h.logger.WithFields(logging.RequestFields(RequestID(c), c.Method(), "")).
		WithField("action", "clear").
		Info("cache cleared")
	return c.JSON(fiber.Map{"cleared": cleared})
}

func (h *handlers) batchGet(c fiber.Ctx) error {
	var req batchGetRequest
	if err := decodeJSON(c.Body(), &req); err != nil {
		return h.renderBadRequest(c, "", err)
	}
	values, err := h.store.GetMultiple(req.Keys, req.Default)
	return c.JSON(fiber.Map{"values": values, "errors": errorStrings(err)})
}

func (h *handlers) batchSet(c fiber.Ctx) error {
	var req batchSetRequest
	if err := decodeJSON(c.Body(), &req); err != nil {
		return h.renderBadRequest(c, "", err)
	}
	ttl, err := parseTTL(req.TTL)
	if err != nil {
		return h.renderBadRequest(c, "", err)
	}
	ok, err := h.store.SetMultiple(req.Entries, ttl)
	return c.JSON(batchResult{OK: ok, Errors: errorStrings(err)})
}

func (h *handlers) batchDelete(c fiber.Ctx) error {
	var req batchDeleteRequest
	if err := decodeJSON(c.Body(), &req); err != nil {
		return h.renderBadRequest(c, "", err)
	}
	ok, err := h.store.DeleteMultiple(req.Keys)
	return c.JSON(batchResult{OK: ok, Errors: errorStrings(err)})
}

// renderError 将缓存错误映射为稳定的 JSON 错误码，并输出结构化日志。
func (h *handlers) renderError(c fiber.Ctx, key string, err error) error {
	status, code := fiber.StatusInternalServerError, "io_error"
	switch {
	case errors.Is(err, cache.ErrInvalidKey):
		status, code = fiber.StatusBadRequest, "invalid_key"
	case errors.Is(err, cache.ErrUnsupportedValue):
		status, code = fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, cache.ErrCorruptEntry):
		code = "corrupt_entry"
	}

	entry := h.logger.WithFields(logging.RequestFields(RequestID(c), c.Method(), key)).
		WithField("action", "cache_request").
		WithField("status", status).
		WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error("cache request failed")
	} else {
		entry.Warn("cache request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": code, "message": err.Error()})
}

func (h *handlers) renderBadRequest(c fiber.Ctx, key string, err error) error {
	h.logger.WithFields(logging.RequestFields(RequestID(c), c.Method(), key)).
		WithField("action", "cache_request").
		WithError(err).
		Warn("bad request")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
}

func keyParam(c fiber.Ctx) (string, error) {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return "", &cache.InvalidKeyError{Key: c.Params("key")}
	}
	return key, nil
}

// parseTTL 接受空值（默认 TTL）、整数秒（可为负数）或 Go Duration 字符串。
func parseTTL(raw string) (cache.TTL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cache.NoTTL, nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return cache.Seconds(seconds), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return cache.For(d), nil
	}
	return cache.NoTTL, fmt.Errorf("invalid ttl: %s", raw)
}

func decodeValue(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("request body must be a JSON value")
	}
	var value any
	if err := decodeJSON(body, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// decodeJSON 保留数字原样（json.Number），避免大整数经 float64 失真。
func decodeJSON(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func errorStrings(err error) []string {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
