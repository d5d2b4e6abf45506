// File: internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/config"
	"github.com/xkilldash9x/panelforge/internal/events"
	"github.com/xkilldash9x/panelforge/internal/registry"
	"github.com/xkilldash9x/panelforge/internal/validator"
)

// validReply embeds a component the real validator accepts, wrapped the way
// models usually wrap it.
const validReply = "Here is your widget:\n\n```jsx\nimport React from \"react\";\n\nfunction StatusCard({ title, value }) {\n  return (\n    <div className=\"status-card\">\n      <h3>{title}</h3>\n      <p>{value}</p>\n    </div>\n  );\n}\n\nexport default StatusCard;\n```\n\nLet me know if you need changes."

// rejectedReply trips the network policy.
const rejectedReply = "```jsx\nfunction Leaky() {\n  fetch(\"https://example.com\");\n  return <div>leak</div>;\n}\n\nexport default Leaky;\n```"

type fakeInstance struct{ name string }

func (f *fakeInstance) Name() string { return f.name }
func (f *fakeInstance) Render(props map[string]any) (string, error) {
	return "<div>" + f.name + "</div>", nil
}

type fakeCompiler struct {
	minted int
}

func (f *fakeCompiler) Compile(source, identity string) (*schemas.CompiledArtifact, error) {
	f.minted++
	return &schemas.CompiledArtifact{
		Identity:       identity,
		ExecutableCode: source,
		Ref:            schemas.LoadableRef(fmt.Sprintf("loadable://%s/%d", identity, f.minted)),
	}, nil
}

func (f *fakeCompiler) ValidateSyntax(string) error         { return nil }
func (f *fakeCompiler) ExtractComponentName(string) string  { return "Widget" }
func (f *fakeCompiler) ExtractDependencies(string) []string { return nil }
func (f *fakeCompiler) Release(schemas.LoadableRef)         {}

type fakeLoader struct{}

func (f *fakeLoader) CompileToLoadable(identity, code string) (schemas.LoadableRef, error) {
	return "", errors.New("not used")
}

func (f *fakeLoader) Resolve(ref schemas.LoadableRef) (schemas.Instance, error) {
	return &fakeInstance{name: string(ref)}, nil
}

func (f *fakeLoader) Release(schemas.LoadableRef) {}
func (f *fakeLoader) Stats() schemas.LoaderStats  { return schemas.LoaderStats{} }

// fakeLLM scripts the external service. When block is true, Generate waits
// out the caller's deadline.
type fakeLLM struct {
	reply     string
	genErr    error
	healthErr error
	block     bool
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.reply, nil
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return f.healthErr }

func setupOrchestrator(t *testing.T, llm *fakeLLM) (*Orchestrator, *registry.Registry) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 32)
	t.Cleanup(bus.Shutdown)

	reg := registry.New(&fakeCompiler{}, &fakeLoader{}, bus, logger)
	t.Cleanup(reg.Close)

	defaults := config.NewDefaultConfig()
	val := validator.New(defaults.Validator)

	cfg := config.GenerationConfig{
		RequestTimeout: 5 * time.Second,
		RateLimit:      1000,
		RateBurst:      100,
		HistoryLimit:   3,
	}
	return New(cfg, llm, val, reg, logger), reg
}

func TestGenerateWidget_Success(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	orch, reg := setupOrchestrator(t, llm)

	result, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{
		Prompt:   "a status card showing deployment health",
		Category: "monitoring",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Fallback)
	assert.NotNil(t, result.Instance)
	assert.True(t, result.Attempt.Succeeded)
	assert.Regexp(t, `^widget-[0-9a-f]{8}-\d+$`, result.Identity)

	entry, ok := reg.Get(result.Identity)
	require.True(t, ok)
	assert.Contains(t, entry.Source, validator.SanitizeMarker, "registered source is the sanitized form")
	assert.Contains(t, entry.Source, "StatusCard")
	assert.NotContains(t, entry.Source, "```", "fences never reach the registry")
	assert.Equal(t, schemas.OriginGenerated, entry.Metadata.Origin)
	assert.Equal(t, "a status card showing deployment health", entry.Metadata.Description)
	assert.Equal(t, []string{"monitoring"}, entry.Metadata.Tags)

	history := orch.History(result.Identity)
	require.Len(t, history, 1)
	assert.True(t, history[0].Succeeded)

	// The attempt record keeps the full model reply for later inspection;
	// the extracted and sanitized forms hold only the component span.
	assert.Equal(t, validReply, history[0].RawSource)
	assert.Contains(t, history[0].ExtractedSource, "StatusCard")
	assert.NotContains(t, history[0].ExtractedSource, "```")
	assert.NotContains(t, history[0].ExtractedSource, "Here is your widget")
	assert.Contains(t, history[0].SanitizedSource, validator.SanitizeMarker)
}

func TestGenerateWidget_EmptyPrompt(t *testing.T) {
	orch, _ := setupOrchestrator(t, &fakeLLM{reply: validReply})

	_, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{Prompt: "   "})
	require.Error(t, err)
}

func TestGenerateWidget_RejectedSourceFallsBack(t *testing.T) {
	llm := &fakeLLM{reply: rejectedReply}
	orch, reg := setupOrchestrator(t, llm)

	result, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{Prompt: "a widget"})
	require.NoError(t, err, "the placeholder path is not an error for the caller")
	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.NotNil(t, result.Instance)
	assert.False(t, result.Attempt.Succeeded)
	assert.NotEmpty(t, result.Attempt.ErrorMessage)

	entry, ok := reg.Get(result.Identity)
	require.True(t, ok)
	assert.Contains(t, entry.Source, "GenerationFallback")
	assert.NotEmpty(t, entry.Metadata.LastError)
	assert.NotContains(t, entry.Source, "fetch(", "rejected source never reaches the registry")

	history := orch.History(result.Identity)
	require.Len(t, history, 1)
	assert.False(t, history[0].Succeeded)
}

func TestGenerateWidget_GenerationErrorFallsBack(t *testing.T) {
	llm := &fakeLLM{genErr: errors.New("model unavailable")}
	orch, reg := setupOrchestrator(t, llm)

	result, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{Prompt: "a widget"})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Attempt.ErrorMessage, "model unavailable")

	entry, _ := reg.Get(result.Identity)
	assert.Contains(t, entry.Source, "model unavailable", "the placeholder renders the failure reason")
}

func TestGenerateWidget_HealthCheckFailureFallsBack(t *testing.T) {
	llm := &fakeLLM{healthErr: &schemas.ServiceUnavailableError{Service: "gemini"}}
	orch, _ := setupOrchestrator(t, llm)

	result, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{Prompt: "a widget"})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Zero(t, llm.calls, "generation is never attempted when the probe fails")
}

func TestGenerateWidget_TimeoutProducesTimeoutFallback(t *testing.T) {
	llm := &fakeLLM{block: true}
	orch, _ := setupOrchestrator(t, llm)
	orch.cfg.RequestTimeout = 30 * time.Millisecond

	result, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{Prompt: "a widget"})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Attempt.ErrorMessage, "widget generation")
}

func TestRegenerate_UnknownIdentity(t *testing.T) {
	orch, _ := setupOrchestrator(t, &fakeLLM{reply: validReply})

	_, err := orch.Regenerate(context.Background(), "missing")
	var notFound *schemas.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRegenerate_RequiresRecordedRequest(t *testing.T) {
	orch, reg := setupOrchestrator(t, &fakeLLM{reply: validReply})

	_, err := reg.RegisterFromSource(context.Background(), "widget-a", "", "source", schemas.WidgetMetadata{})
	require.NoError(t, err)

	_, err = orch.Regenerate(context.Background(), "widget-a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no recorded request")
}

func TestRegenerate_ReplacesSource(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	orch, reg := setupOrchestrator(t, llm)
	ctx := context.Background()

	_, err := reg.RegisterFromSource(ctx, "widget-a", "", "old source", schemas.WidgetMetadata{
		Description: "a status card",
	})
	require.NoError(t, err)

	result, err := orch.Regenerate(ctx, "widget-a")
	require.NoError(t, err)
	assert.Equal(t, "widget-a", result.Identity)
	assert.True(t, result.Attempt.Succeeded)

	entry, _ := reg.Get("widget-a")
	assert.Contains(t, entry.Source, "StatusCard")
	assert.NotEqual(t, "old source", entry.Source)
}

func TestRegenerate_FailureLeavesWidgetUntouched(t *testing.T) {
	llm := &fakeLLM{genErr: errors.New("model unavailable")}
	orch, reg := setupOrchestrator(t, llm)
	ctx := context.Background()

	_, err := reg.RegisterFromSource(ctx, "widget-a", "", "old source", schemas.WidgetMetadata{
		Description: "a status card",
	})
	require.NoError(t, err)

	_, err = orch.Regenerate(ctx, "widget-a")
	require.Error(t, err)

	entry, _ := reg.Get("widget-a")
	assert.Equal(t, "old source", entry.Source, "failed regeneration must not replace the widget")

	history := orch.History("widget-a")
	require.Len(t, history, 1)
	assert.False(t, history[0].Succeeded)
}

func TestHistory_CappedAtLimit(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	orch, reg := setupOrchestrator(t, llm)
	ctx := context.Background()

	_, err := reg.RegisterFromSource(ctx, "widget-a", "", "old", schemas.WidgetMetadata{
		Description: "a status card",
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := orch.Regenerate(ctx, "widget-a")
		require.NoError(t, err)
	}

	history := orch.History("widget-a")
	assert.Len(t, history, 3, "history holds only the most recent attempts")
}

func TestAllHistory(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	orch, _ := setupOrchestrator(t, llm)
	ctx := context.Background()

	first, err := orch.GenerateWidget(ctx, schemas.GenerationRequest{Prompt: "a card"})
	require.NoError(t, err)
	second, err := orch.GenerateWidget(ctx, schemas.GenerationRequest{Prompt: "a chart"})
	require.NoError(t, err)

	all := orch.AllHistory()
	require.Len(t, all, 2)
	assert.Len(t, all[first.Identity], 1)
	assert.Len(t, all[second.Identity], 1)

	// Mutating the snapshot must not leak back.
	all[first.Identity][0].Prompt = "mutated"
	assert.Equal(t, "a card", orch.History(first.Identity)[0].Prompt)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	orch, _ := setupOrchestrator(t, llm)

	result, err := orch.GenerateWidget(context.Background(), schemas.GenerationRequest{Prompt: "a card"})
	require.NoError(t, err)

	history := orch.History(result.Identity)
	require.Len(t, history, 1)
	history[0].Prompt = "mutated"
	assert.Equal(t, "a card", orch.History(result.Identity)[0].Prompt)
}
