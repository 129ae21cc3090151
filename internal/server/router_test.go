package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/diskcache/internal/cache"
)

func TestEntryRoundTrip(t *testing.T) {
	app := newTestApp(t)

	resp := doRequest(t, app, "PUT", "/entries/alpha", `{"n": 1}`)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 status, got %d", resp.StatusCode)
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	resp = doRequest(t, app, "GET", "/entries/alpha", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"n":1}` {
		t.Fatalf("unexpected body %s", string(body))
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		t.Fatalf("unexpected content type %s", ct)
	}
}

func TestEntryMissingReturns404(t *testing.T) {
	app := newTestApp(t)

	resp := doRequest(t, app, "GET", "/entries/missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"entry_not_found"`) {
		t.Fatalf("expected entry_not_found error, got %s", string(body))
	}
}

func TestEntryPutRejectsInvalidJSON(t *testing.T) {
	app := newTestApp(t)

	resp := doRequest(t, app, "PUT", "/entries/alpha", `{broken`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 status, got %d", resp.StatusCode)
	}
	resp = doRequest(t, app, "GET", "/entries/alpha", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("rejected body must not be stored, got %d", resp.StatusCode)
	}
}

func TestEntryDelete(t *testing.T) {
	app := newTestApp(t)

	doRequest(t, app, "PUT", "/entries/alpha", `"a"`)
	resp := doRequest(t, app, "DELETE", "/entries/alpha", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 status, got %d", resp.StatusCode)
	}
	// 二次删除同样成功。
	resp = doRequest(t, app, "DELETE", "/entries/alpha", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected repeated delete to succeed, got %d", resp.StatusCode)
	}
	resp = doRequest(t, app, "GET", "/entries/alpha", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestEntryDeleteAll(t *testing.T) {
	app := newTestApp(t)

	doRequest(t, app, "PUT", "/entries/a", `1`)
	doRequest(t, app, "PUT", "/entries/b", `2`)
	resp := doRequest(t, app, "DELETE", "/entries", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 status, got %d", resp.StatusCode)
	}
	for _, key := range []string{"a", "b"} {
		resp = doRequest(t, app, "GET", "/entries/"+key, "")
		if resp.StatusCode != fiber.StatusNotFound {
			t.Fatalf("expected %s to be cleared, got %d", key, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	resp := doRequest(t, app, "GET", "/-/healthz", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health payload: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", payload)
	}
}

func TestNewAppRequiresDependencies(t *testing.T) {
	if _, err := NewApp(AppOptions{Store: &cache.DiskCache[json.RawMessage]{}}); err == nil {
		t.Fatalf("expected missing logger to fail")
	}
	if _, err := NewApp(AppOptions{Logger: logrus.New()}); err == nil {
		t.Fatalf("expected missing store to fail")
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := cache.New[json.RawMessage](t.TempDir(), cache.JSONCodec[json.RawMessage]{}, cache.WithLogger(logger))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })

	app, err := NewApp(AppOptions{
		Logger:    logger,
		Store:     store,
		Directory: store.Directory(),
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://diskcache.local"+target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
