package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/filecache/filecache/internal/cache"
	"github.com/filecache/filecache/internal/config"
)

type testApp struct {
	*fiber.App
	store *cache.Cache
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	root := filepath.Join(t.TempDir(), "cache")
	store, err := cache.New(cache.Options{Root: root, DefaultTTL: time.Minute, Logger: logger})
	require.NoError(t, err)

	app, err := NewApp(AppOptions{
		Logger: logger,
		Store:  store,
		Cache: config.CacheConfig{
			Root:       root,
			DefaultTTL: config.Duration(time.Minute),
			Expiry:     "mtime",
			Hash:       "sha1",
		},
		ListenPort: 5000,
	})
	require.NoError(t, err)
	return &testApp{App: app, store: store}
}

func (a *testApp) do(t *testing.T, method, target string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp, payload
}

func TestNewAppRequiresDependencies(t *testing.T) {
	_, err := NewApp(AppOptions{})
	require.Error(t, err)

	_, err = NewApp(AppOptions{Logger: logrus.New()})
	require.Error(t, err)
}

func TestPutThenGet(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.do(t, fiber.MethodPut, "/v1/entries/greeting?ttl=60", map[string]any{"text": "hello", "n": 3})
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, payload := app.do(t, fiber.MethodGet, "/v1/entries/greeting", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "greeting", payload["key"])
	require.Equal(t, map[string]any{"text": "hello", "n": float64(3)}, payload["value"])

	resp, payload = app.do(t, fiber.MethodGet, "/v1/entries/greeting/exists", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["exists"])
}

func TestGetMissingReturns404(t *testing.T) {
	app := newTestApp(t)
	resp, payload := app.do(t, fiber.MethodGet, "/v1/entries/nothing", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", payload["error"])
}

func TestInvalidKeyReturns400(t *testing.T) {
	app := newTestApp(t)
	resp, payload := app.do(t, fiber.MethodPut, "/v1/entries/user@host", "v")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_key", payload["error"])

	resp, payload = app.do(t, fiber.MethodGet, "/v1/entries/a%3Ab", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_key", payload["error"])
}

func TestPutRejectsBadTTLAndBody(t *testing.T) {
	app := newTestApp(t)
	resp, payload := app.do(t, fiber.MethodPut, "/v1/entries/k?ttl=soon", "v")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", payload["error"])

	resp, payload = app.do(t, fiber.MethodPut, "/v1/entries/k", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", payload["error"])
}

func TestPutWithNegativeTTLIsImmediatelyExpired(t *testing.T) {
	app := newTestApp(t)
	resp, _ := app.do(t, fiber.MethodPut, "/v1/entries/gone?ttl=-1", "v")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, payload := app.do(t, fiber.MethodGet, "/v1/entries/gone/exists", nil)
	require.Equal(t, false, payload["exists"])
}

func TestPutWithHugeTTLStaysLive(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.do(t, fiber.MethodPut, "/v1/entries/forever?ttl=10000000000", "v")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, payload := app.do(t, fiber.MethodGet, "/v1/entries/forever/exists", nil)
	require.Equal(t, true, payload["exists"])
}

func TestDeleteEntry(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.Set("k", "v", cache.NoTTL))

	_, payload := app.do(t, fiber.MethodDelete, "/v1/entries/k", nil)
	require.Equal(t, true, payload["deleted"])

	_, payload = app.do(t, fiber.MethodDelete, "/v1/entries/k", nil)
	require.Equal(t, false, payload["deleted"])
}

func TestBatchEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, payload := app.do(t, fiber.MethodPost, "/v1/batch/set", map[string]any{
		"entries": map[string]any{"a": "A", "b": "B"},
		"ttl":     "10m",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["ok"])

	_, payload = app.do(t, fiber.MethodPost, "/v1/batch/get", map[string]any{
		"keys":    []string{"a", "b", "missing"},
		"default": "D",
	})
	require.Equal(t, map[string]any{"a": "A", "b": "B", "missing": "D"}, payload["values"])

	_, payload = app.do(t, fiber.MethodPost, "/v1/batch/set", map[string]any{
		"entries": map[string]any{"@@@": 1, "c": "C"},
	})
	require.Equal(t, false, payload["ok"])
	require.Len(t, payload["errors"], 1)

	_, payload = app.do(t, fiber.MethodPost, "/v1/batch/delete", map[string]any{"keys": []string{"a", "b", "c"}})
	require.Equal(t, true, payload["ok"])

	_, payload = app.do(t, fiber.MethodPost, "/v1/batch/delete", map[string]any{"keys": []string{"a"}})
	require.Equal(t, false, payload["ok"])
}

func TestClearEndpoint(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.Set("k", "v", cache.NoTTL))

	_, payload := app.do(t, fiber.MethodDelete, "/v1/entries", nil)
	require.Equal(t, true, payload["cleared"])

	resp, _ := app.do(t, fiber.MethodGet, "/v1/entries/k", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = app.do(t, fiber.MethodPut, "/v1/entries/k", "again")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	app := newTestApp(t)
	resp, payload := app.do(t, fiber.MethodGet, "/-/status", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, float64(60), payload["default_ttl_seconds"])
	require.Equal(t, "mtime", payload["expiry"])
	require.Contains(t, payload["version"], "filecache")
}

func TestRequestIDIsPropagated(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(fiber.MethodGet, "/-/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestParseTTL(t *testing.T) {
	ttl, err := parseTTL("")
	require.NoError(t, err)
	require.False(t, ttl.IsSet())

	ttl, err = parseTTL("120")
	require.NoError(t, err)
	require.Equal(t, 120*time.Second, ttl.Duration(0))

	ttl, err = parseTTL("1h30m")
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, ttl.Duration(0))

	_, err = parseTTL("tomorrow")
	require.Error(t, err)
}
