// File: internal/orchestrator/orchestrator.go
//
// Package orchestrator runs the prompt-to-widget pipeline: rate-limit the
// request, probe and call the model, extract and validate the returned
// source, then register it. A request never leaves the caller empty-handed;
// when any stage fails the orchestrator registers a placeholder widget that
// renders the failure, so the dashboard slot is always fillable.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/config"
	"github.com/xkilldash9x/panelforge/internal/registry"
	"github.com/xkilldash9x/panelforge/internal/validator"
)

// Orchestrator coordinates one generation pipeline. Safe for concurrent use;
// the rate limiter serializes the external call budget across callers.
type Orchestrator struct {
	logger    *zap.Logger
	cfg       config.GenerationConfig
	llm       schemas.LLMClient
	validator *validator.Validator
	registry  *registry.Registry
	limiter   *rate.Limiter

	mu      sync.Mutex
	history map[string][]schemas.GenerationAttempt
}

// New creates an orchestrator wired to the given client and registry.
func New(cfg config.GenerationConfig, llm schemas.LLMClient, val *validator.Validator, reg *registry.Registry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		logger:    logger.Named("orchestrator"),
		cfg:       cfg,
		llm:       llm,
		validator: val,
		registry:  reg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		history:   make(map[string][]schemas.GenerationAttempt),
	}
}

// GenerateWidget turns a natural-language request into a registered widget.
// The returned result always carries a renderable instance: the generated
// component on success, or the failure placeholder with Fallback set. A
// non-nil error means even the placeholder could not be registered.
func (o *Orchestrator) GenerateWidget(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("generation request has an empty prompt")
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	identity := deriveIdentity(req.Prompt)
	attempt := schemas.GenerationAttempt{
		Timestamp: time.Now().UTC(),
		Prompt:    req.Prompt,
	}

	source, genErr := o.produceSource(ctx, req, &attempt)
	if genErr == nil {
		instance, err := o.registry.RegisterFromSource(ctx, identity, "", source, schemas.WidgetMetadata{
			Origin:      schemas.OriginGenerated,
			Description: req.Prompt,
			Tags:        categoryTags(req.Category),
		})
		if err == nil {
			attempt.Succeeded = true
			o.recordAttempt(identity, attempt)
			o.logger.Info("Widget generated.", zap.String("identity", identity))
			return &schemas.GenerationResult{Identity: identity, Instance: instance, Attempt: attempt}, nil
		}
		genErr = err
	}

	// Exactly one fallback: the placeholder renders the request and the
	// failure, and is registered under the same identity the generated
	// widget would have used.
	attempt.Succeeded = false
	attempt.ErrorMessage = genErr.Error()
	o.logger.Warn("Generation failed, registering placeholder.",
		zap.String("identity", identity), zap.Error(genErr))

	instance, err := o.registry.RegisterFromSource(ctx, identity, "GenerationFallback", fallbackSource(req.Prompt, genErr), schemas.WidgetMetadata{
		Origin:      schemas.OriginGenerated,
		Description: req.Prompt,
		Tags:        categoryTags(req.Category),
		LastError:   genErr.Error(),
	})
	o.recordAttempt(identity, attempt)
	if err != nil {
		return nil, fmt.Errorf("placeholder registration failed after %w: %v", genErr, err)
	}
	return &schemas.GenerationResult{Identity: identity, Instance: instance, Fallback: true, Attempt: attempt}, nil
}

// Regenerate reruns generation for an existing widget using its original
// request, routing the new source through Update so the hot-replacement
// layer refreshes connected clients. On failure the current version stays
// registered untouched; the failed attempt is still recorded.
func (o *Orchestrator) Regenerate(ctx context.Context, identity string) (*schemas.GenerationResult, error) {
	entry, ok := o.registry.Get(identity)
	if !ok {
		return nil, &schemas.NotFoundError{Identity: identity}
	}
	if strings.TrimSpace(entry.Metadata.Description) == "" {
		return nil, fmt.Errorf("widget %q has no recorded request to regenerate from", identity)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	req := schemas.GenerationRequest{Prompt: entry.Metadata.Description}
	attempt := schemas.GenerationAttempt{
		Timestamp: time.Now().UTC(),
		Prompt:    req.Prompt,
	}

	source, genErr := o.produceSource(ctx, req, &attempt)
	if genErr == nil {
		var instance schemas.Instance
		instance, genErr = o.registry.Update(ctx, identity, source)
		if genErr == nil {
			attempt.Succeeded = true
			o.recordAttempt(identity, attempt)
			o.logger.Info("Widget regenerated.", zap.String("identity", identity))
			return &schemas.GenerationResult{Identity: identity, Instance: instance, Attempt: attempt}, nil
		}
	}

	attempt.Succeeded = false
	attempt.ErrorMessage = genErr.Error()
	o.recordAttempt(identity, attempt)
	return nil, genErr
}

// History returns the recorded attempts for identity, oldest first.
func (o *Orchestrator) History(identity string) []schemas.GenerationAttempt {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempts := o.history[identity]
	out := make([]schemas.GenerationAttempt, len(attempts))
	copy(out, attempts)
	return out
}

// AllHistory returns the full attempt record keyed by identity.
func (o *Orchestrator) AllHistory() map[string][]schemas.GenerationAttempt {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string][]schemas.GenerationAttempt, len(o.history))
	for identity, attempts := range o.history {
		cp := make([]schemas.GenerationAttempt, len(attempts))
		copy(cp, attempts)
		out[identity] = cp
	}
	return out
}

// produceSource runs probe, generate, extract, and validate, updating the
// attempt record as evidence accumulates. The returned source is sanitized
// and ready to register.
func (o *Orchestrator) produceSource(ctx context.Context, req schemas.GenerationRequest, attempt *schemas.GenerationAttempt) (string, error) {
	if err := o.llm.HealthCheck(ctx); err != nil {
		return "", err
	}

	raw, err := o.llm.Generate(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &schemas.TimeoutError{Operation: "widget generation", Limit: o.cfg.RequestTimeout}
		}
		return "", err
	}

	attempt.RawSource = raw
	source := extractComponentSource(raw)
	attempt.ExtractedSource = source

	result := o.validator.Validate(source)
	attempt.Warnings = result.Warnings
	if !result.Accepted {
		return "", &schemas.ValidationError{Violations: result.Errors}
	}

	attempt.SanitizedSource = result.SanitizedSource
	return result.SanitizedSource, nil
}

// recordAttempt appends to the per-identity history, dropping the oldest
// entries past the configured cap.
func (o *Orchestrator) recordAttempt(identity string, attempt schemas.GenerationAttempt) {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempts := append(o.history[identity], attempt)
	if limit := o.cfg.HistoryLimit; limit > 0 && len(attempts) > limit {
		attempts = attempts[len(attempts)-limit:]
	}
	o.history[identity] = attempts
}

// deriveIdentity builds a registry identity from the request text. The hash
// prefix keeps identities stable-looking for similar prompts while the
// timestamp keeps repeat requests distinct.
func deriveIdentity(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("widget-%s-%d", hex.EncodeToString(sum[:4]), time.Now().UTC().UnixMilli())
}

func categoryTags(category string) []string {
	if category == "" {
		return nil
	}
	return []string{category}
}

// fallbackSource renders the failed request and the reason. Prompt and error
// text are embedded as quoted string literals, never as markup, so hostile
// model output cannot smuggle anything through the placeholder.
func fallbackSource(prompt string, cause error) string {
	return fmt.Sprintf(`function GenerationFallback() {
  const request = %s;
  const reason = %s;
  return (
    <div style={{border: "1px solid #b91c1c", borderRadius: "4px", padding: "12px", background: "#fef2f2", color: "#7f1d1d"}}>
      <strong>Widget generation failed</strong>
      <p>{reason}</p>
      <p style={{fontSize: "12px", opacity: 0.8}}>Request: {request}</p>
    </div>
  );
}

export default GenerationFallback;
`, strconv.Quote(prompt), strconv.Quote(cause.Error()))
}
