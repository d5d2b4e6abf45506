// File: internal/server/handlers.go
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/api/schemas"
)

// GenerateRequest is the body for POST /api/v1/generate.
type GenerateRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	Category string `json:"category"`
	Context  string `json:"context"`
}

// RegisterWidgetRequest is the body for POST /api/v1/widgets.
type RegisterWidgetRequest struct {
	Identity    string `json:"identity" binding:"required"`
	DisplayName string `json:"display_name"`
	Source      string `json:"source" binding:"required"`
}

// UpdateWidgetRequest is the body for PUT /api/v1/widgets/:id.
type UpdateWidgetRequest struct {
	Source string `json:"source" binding:"required"`
}

// RenderRequest is the body for POST /api/v1/widgets/:id/render.
type RenderRequest struct {
	Props map[string]any `json:"props"`
}

// RenderResponse carries the rendered markup.
type RenderResponse struct {
	Identity string `json:"identity"`
	HTML     string `json:"html"`
}

// StatsResponse aggregates the pipeline's counters.
type StatsResponse struct {
	Registry schemas.RegistryStats `json:"registry"`
	HotCache schemas.HotCacheStats `json:"hot_cache"`
	Loader   schemas.LoaderStats   `json:"loader"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	// The pipeline works without the model (serving, rendering, hot updates),
	// so a failing probe degrades the report instead of failing it.
	llmStatus := "ok"
	if err := s.components.LLM.HealthCheck(c.Request.Context()); err != nil {
		llmStatus = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "llm": llmStatus})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := s.components.Orchestrator.GenerateWidget(c.Request.Context(), schemas.GenerationRequest{
		Prompt:   req.Prompt,
		Category: req.Category,
		Context:  req.Context,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Fallback {
		// The placeholder was registered, not the requested widget.
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

func (s *Server) handleListWidgets(c *gin.Context) {
	identities := s.components.Registry.List()
	entries := make([]schemas.RegistryEntry, 0, len(identities))
	for _, identity := range identities {
		if entry, ok := s.components.Registry.Get(identity); ok {
			entries = append(entries, entry)
		}
	}
	c.JSON(http.StatusOK, gin.H{"widgets": entries})
}

func (s *Server) handleRegisterWidget(c *gin.Context) {
	var req RegisterWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result := s.components.Validator.Validate(req.Source)
	if !result.Accepted {
		s.writeError(c, &schemas.ValidationError{Violations: result.Errors})
		return
	}

	_, err := s.components.Registry.RegisterFromSource(c.Request.Context(), req.Identity, req.DisplayName, result.SanitizedSource, schemas.WidgetMetadata{
		Origin: schemas.OriginManual,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	entry, _ := s.components.Registry.Get(req.Identity)
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleGetWidget(c *gin.Context) {
	entry, ok := s.components.Registry.Get(c.Param("id"))
	if !ok {
		s.writeError(c, &schemas.NotFoundError{Identity: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleUpdateWidget(c *gin.Context) {
	var req UpdateWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result := s.components.Validator.Validate(req.Source)
	if !result.Accepted {
		s.writeError(c, &schemas.ValidationError{Violations: result.Errors})
		return
	}

	if _, err := s.components.Registry.Update(c.Request.Context(), c.Param("id"), result.SanitizedSource); err != nil {
		s.writeError(c, err)
		return
	}

	entry, _ := s.components.Registry.Get(c.Param("id"))
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleRemoveWidget(c *gin.Context) {
	s.components.Registry.Remove(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRenderWidget(c *gin.Context) {
	identity := c.Param("id")

	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Prefer the hot-replacement cache: the cached instance is the version
	// connected clients were last told about.
	instance := s.resolveInstance(identity)
	if instance == nil {
		s.writeError(c, &schemas.NotFoundError{Identity: identity})
		return
	}

	html, err := instance.Render(req.Props)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RenderResponse{Identity: identity, HTML: html})
}

func (s *Server) handleRegenerateWidget(c *gin.Context) {
	result, err := s.components.Orchestrator.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleWidgetAttempts(c *gin.Context) {
	identity := c.Param("id")
	attempts := s.components.Orchestrator.History(identity)
	if len(attempts) == 0 {
		if _, ok := s.components.Registry.Get(identity); !ok {
			s.writeError(c, &schemas.NotFoundError{Identity: identity})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity, "attempts": attempts})
}

func (s *Server) handleAllAttempts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"attempts": s.components.Orchestrator.AllHistory()})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Registry: s.components.Registry.Stats(),
		HotCache: s.components.Hotswap.Stats(),
		Loader:   s.components.Loader.Stats(),
	})
}

func (s *Server) resolveInstance(identity string) schemas.Instance {
	if entry, ok := s.components.Hotswap.GetCached(identity); ok {
		return entry.Instance
	}
	if instance, ok := s.components.Registry.GetInstance(identity); ok {
		return instance
	}
	return nil
}

// writeError maps the pipeline's typed errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		notFound    *schemas.NotFoundError
		validation  *schemas.ValidationError
		compileErr  *schemas.CompileError
		loadErr     *schemas.LoadError
		timeout     *schemas.TimeoutError
		unavailable *schemas.ServiceUnavailableError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &compileErr), errors.As(err, &loadErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed.", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
