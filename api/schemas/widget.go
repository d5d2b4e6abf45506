// File: api/schemas/widget.go
package schemas

import (
	"time"
)

// Origin records how a widget's source entered the system.
type Origin string

const (
	// OriginGenerated marks source produced by the generation orchestrator.
	OriginGenerated Origin = "generated"
	// OriginManual marks source supplied directly by a caller.
	OriginManual Origin = "manual"
)

// LoadableRef is an opaque, revocable handle minted by a ModuleLoader.
// It is a scarce resource: whoever owns the artifact that carries it must
// release it exactly once when the artifact is superseded or removed.
type LoadableRef string

// ValidationResult is the outcome of one validator pass over widget source.
// Errors are hard failures (the source was rejected); warnings are advisory
// and never block compilation on their own.
type ValidationResult struct {
	Accepted        bool     `json:"accepted"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	SanitizedSource string   `json:"sanitized_source,omitempty"`
}

// CompiledArtifact is the output of a successful compile: the executable
// module text plus the loadable reference registered for it. The component
// that requested compilation owns Ref and must release it.
type CompiledArtifact struct {
	Identity       string      `json:"identity"`
	SourceHash     string      `json:"source_hash"`
	ExecutableCode string      `json:"executable_code"`
	Ref            LoadableRef `json:"ref"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// WidgetMetadata carries the bookkeeping attached to a registry entry.
type WidgetMetadata struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Origin       Origin    `json:"origin"`
	Dependencies []string  `json:"dependencies,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Description  string    `json:"description,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// RegistryEntry is the canonical record for one widget identity. The entry's
// Instance and Artifact.Ref always describe the same compiled version; the
// registry swaps both atomically on update.
type RegistryEntry struct {
	Identity    string            `json:"identity"`
	DisplayName string            `json:"display_name"`
	Source      string            `json:"source"`
	Artifact    *CompiledArtifact `json:"artifact"`
	Instance    Instance          `json:"-"`
	Metadata    WidgetMetadata    `json:"metadata"`
}

// HotUpdateEntry is the hot-replacement manager's cached view of the most
// recently applied live update for an identity. The registry stays the source
// of truth for whether the identity exists at all.
type HotUpdateEntry struct {
	Identity       string      `json:"identity"`
	Instance       Instance    `json:"-"`
	Ref            LoadableRef `json:"ref"`
	ExecutableCode string      `json:"executable_code"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// GenerationAttempt is one append-only history record for a generation run,
// kept per identity and capped for memory hygiene, not correctness.
type GenerationAttempt struct {
	Timestamp time.Time `json:"timestamp"`
	Prompt    string    `json:"prompt"`
	// RawSource is the complete model reply, prose and fences included;
	// ExtractedSource is the component span pulled out of it.
	RawSource       string `json:"raw_source,omitempty"`
	ExtractedSource string `json:"extracted_source,omitempty"`
	SanitizedSource string `json:"sanitized_source,omitempty"`
	Succeeded       bool      `json:"succeeded"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// GenerationRequest describes one natural-language widget request.
type GenerationRequest struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category,omitempty"`
	Context  string `json:"context,omitempty"`
}

// GenerationResult is what the orchestrator hands back for a request. Fallback
// is true when the placeholder error component was registered instead of the
// generated one; the caller always receives a renderable instance.
type GenerationResult struct {
	Identity string            `json:"identity"`
	Instance Instance          `json:"-"`
	Fallback bool              `json:"fallback"`
	Attempt  GenerationAttempt `json:"attempt"`
}

// RegistryStats summarizes the registry's footprint. ApproxBytes is an
// estimate (executable text lengths), not an exact accounting.
type RegistryStats struct {
	Entries     int   `json:"entries"`
	Instances   int   `json:"instances"`
	ApproxBytes int64 `json:"approx_bytes"`
}

// HotCacheStats summarizes the hot-replacement manager's state.
type HotCacheStats struct {
	Cached    int `json:"cached"`
	InFlight  int `json:"in_flight"`
	Connected int `json:"connected"`
}

// LoaderStats summarizes the module store backing loadable references.
type LoaderStats struct {
	Handles     int   `json:"handles"`
	ApproxBytes int64 `json:"approx_bytes"`
}
