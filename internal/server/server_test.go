// File: internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/compiler"
	"github.com/xkilldash9x/panelforge/internal/config"
	"github.com/xkilldash9x/panelforge/internal/events"
	"github.com/xkilldash9x/panelforge/internal/hotswap"
	"github.com/xkilldash9x/panelforge/internal/loader"
	"github.com/xkilldash9x/panelforge/internal/orchestrator"
	"github.com/xkilldash9x/panelforge/internal/registry"
	"github.com/xkilldash9x/panelforge/internal/service"
	"github.com/xkilldash9x/panelforge/internal/validator"
)

const statusCardSource = `import React from "react";

function StatusCard({ title, value }) {
  return (
    <div className="status-card">
      <h3>{title}</h3>
      <p>{value}</p>
    </div>
  );
}

export default StatusCard;
`

// scriptedLLM wraps the canned component in a fenced block, like the real
// model is instructed to.
type scriptedLLM struct {
	genErr error
}

func (s *scriptedLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if s.genErr != nil {
		return "", s.genErr
	}
	return "```jsx\n" + statusCardSource + "```", nil
}

func (s *scriptedLLM) HealthCheck(ctx context.Context) error { return nil }

// newTestServer assembles the real pipeline end to end, with only the
// external model call faked out.
func newTestServer(t *testing.T, llm schemas.LLMClient) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.NewDefaultConfig()
	cfg.Generation.RateLimit = 1000
	cfg.Generation.RateBurst = 100

	components := &service.Components{}
	components.Bus = events.NewBus(logger, cfg.Hotswap.EventBuffer)
	components.Loader = loader.New(logger)
	components.Compiler = compiler.New(compiler.NewTranspiler(cfg.Compiler), components.Loader, logger)
	components.Validator = validator.New(cfg.Validator)
	components.Registry = registry.New(components.Compiler, components.Loader, components.Bus, logger)
	components.Hotswap = hotswap.New(components.Compiler, components.Loader, components.Bus, logger)
	components.Registry.AttachHotNotifier(components.Hotswap)
	components.LLM = llm
	components.Orchestrator = orchestrator.New(cfg.Generation, llm, components.Validator, components.Registry, logger)
	t.Cleanup(components.Shutdown)

	return New(cfg.Server, components, logger)
}

func (s *Server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerFixture(t *testing.T, srv *Server, identity string) {
	t.Helper()
	body, _ := json.Marshal(RegisterWidgetRequest{Identity: identity, Source: statusCardSource})
	w := srv.do(t, http.MethodPost, "/api/v1/widgets", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["llm"])
}

func TestRegisterAndGetWidget(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	registerFixture(t, srv, "widget-a")

	w := srv.do(t, http.MethodGet, "/api/v1/widgets/widget-a", "")
	require.Equal(t, http.StatusOK, w.Code)
	entry := decodeJSON(t, w)
	assert.Equal(t, "widget-a", entry["identity"])
	assert.Equal(t, "StatusCard", entry["display_name"])

	w = srv.do(t, http.MethodGet, "/api/v1/widgets", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "widget-a")
}

func TestRegisterWidget_RejectedSource(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})

	bad := strings.Replace(statusCardSource, "return (", "fetch(\"https://x\");\n  return (", 1)
	body, _ := json.Marshal(RegisterWidgetRequest{Identity: "widget-bad", Source: bad})
	w := srv.do(t, http.MethodPost, "/api/v1/widgets", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/widgets/widget-bad", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterWidget_MissingFields(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodPost, "/api/v1/widgets", `{"identity": "x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWidget_Unknown(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodGet, "/api/v1/widgets/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderWidget(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	registerFixture(t, srv, "widget-a")

	w := srv.do(t, http.MethodPost, "/api/v1/widgets/widget-a/render", `{"props": {"title": "Uptime", "value": "99.99%"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeJSON(t, w)
	html, _ := resp["html"].(string)
	assert.Contains(t, html, "Uptime")
	assert.Contains(t, html, "99.99%")
}

func TestRenderWidget_LowercaseComponentName(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})

	// A lowercase component name passes validation with a warning; the
	// rendered output must still come from the component body rather than an
	// empty intrinsic tag.
	source := "function card(props) {\n  return (<div className=\"content\">{props.title}</div>);\n}\n\nexport default card;\n"
	body, _ := json.Marshal(RegisterWidgetRequest{Identity: "widget-card", Source: source})
	w := srv.do(t, http.MethodPost, "/api/v1/widgets", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/v1/widgets/widget-card/render", `{"props": {"title": "Revenue"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeJSON(t, w)
	html, _ := resp["html"].(string)
	assert.Contains(t, html, "Revenue")
	assert.Contains(t, html, `class="content"`)
	assert.NotContains(t, html, "<card")
}

func TestRenderWidget_Unknown(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodPost, "/api/v1/widgets/nope/render", `{"props": {}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateWidget_RefreshesHotCache(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	registerFixture(t, srv, "widget-a")

	updated := strings.ReplaceAll(statusCardSource, "status-card", "status-card-v2")
	body, _ := json.Marshal(UpdateWidgetRequest{Source: updated})
	w := srv.do(t, http.MethodPut, "/api/v1/widgets/widget-a", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The attached hot-replacement manager rebuilt its cache synchronously,
	// so a render now serves the new version.
	assert.True(t, srv.components.Hotswap.HasCached("widget-a"))
	w = srv.do(t, http.MethodPost, "/api/v1/widgets/widget-a/render", `{"props": {"title": "T"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status-card-v2")
}

func TestUpdateWidget_Unknown(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	body, _ := json.Marshal(UpdateWidgetRequest{Source: statusCardSource})
	w := srv.do(t, http.MethodPut, "/api/v1/widgets/nope", string(body))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveWidget(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	registerFixture(t, srv, "widget-a")

	w := srv.do(t, http.MethodDelete, "/api/v1/widgets/widget-a", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/widgets/widget-a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, srv.components.Hotswap.HasCached("widget-a"))
}

func TestGenerate_Success(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})

	w := srv.do(t, http.MethodPost, "/api/v1/generate", `{"prompt": "a status card"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decodeJSON(t, w)
	identity, _ := result["identity"].(string)
	require.NotEmpty(t, identity)
	assert.Equal(t, false, result["fallback"])

	// The generated widget is immediately renderable.
	w = srv.do(t, http.MethodPost, "/api/v1/widgets/"+identity+"/render", `{"props": {"title": "Live"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Live")

	// And it has a recorded attempt, visible per widget and globally.
	w = srv.do(t, http.MethodGet, "/api/v1/widgets/"+identity+"/attempts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"succeeded":true`)

	w = srv.do(t, http.MethodGet, "/api/v1/attempts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), identity)
}

func TestGenerate_FallbackReturnsAccepted(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{genErr: errors.New("model unavailable")})

	w := srv.do(t, http.MethodPost, "/api/v1/generate", `{"prompt": "a widget"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	result := decodeJSON(t, w)
	assert.Equal(t, true, result["fallback"])

	// The placeholder still renders.
	identity, _ := result["identity"].(string)
	w = srv.do(t, http.MethodPost, "/api/v1/widgets/"+identity+"/render", `{"props": {}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "generation failed")
}

func TestGenerate_MissingPrompt(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodPost, "/api/v1/generate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegenerate_Unknown(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodPost, "/api/v1/widgets/nope/regenerate", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWidgetAttempts_Unknown(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	w := srv.do(t, http.MethodGet, "/api/v1/widgets/nope/attempts", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	registerFixture(t, srv, "widget-a")

	w := srv.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Registry.Entries)
	assert.Equal(t, 1, stats.Registry.Instances)
	assert.Positive(t, stats.Loader.Handles)
}

// Run must come down cleanly when its context is canceled.
func TestRun_GracefulShutdown(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{})
	srv.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
