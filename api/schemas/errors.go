// File: api/schemas/errors.go
package schemas

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports the full set of hard-check failures from one
// validator pass. It is never partially applied: either the source was
// accepted, or every violated rule is listed here.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("source validation failed: %s", strings.Join(e.Violations, "; "))
}

// CompileError means the transpile step rejected the source. It carries the
// underlying syntax error text; the compiler returns it rather than panicking.
type CompileError struct {
	Identity string
	Message  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %s", e.Identity, e.Message)
}

// LoadError means a syntactically valid artifact resolved to no usable
// component (missing or non-callable default export). Distinct from
// CompileError so callers can tell the two stages apart.
type LoadError struct {
	Identity string
	Message  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %s", e.Identity, e.Message)
}

// NotFoundError reports an operation against an unknown identity.
type NotFoundError struct {
	Identity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("widget %q not found", e.Identity)
}

// TimeoutError reports an external call that exceeded its bound.
type TimeoutError struct {
	Operation string
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Limit)
}

// ServiceUnavailableError reports a failed availability probe.
type ServiceUnavailableError struct {
	Service string
	Reason  string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service %s unavailable: %s", e.Service, e.Reason)
}
