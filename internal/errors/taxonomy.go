package errors

import "errors"

// The five sentinel errors the core distinguishes by handling policy. Every
// operation-level error returned by the core packages wraps exactly one of
// these so callers can branch with errors.Is instead of inspecting messages.
var (
	// ErrNotFound means the requested resource has no matching data (e.g. a
	// context bundle requested for a path with no indexed chunks). Surfaced
	// to the caller as-is.
	ErrNotFound = errors.New("not found")

	// ErrSchema means a filter or request shape was malformed or referenced
	// an unknown field. Surfaced to the caller; indicates a caller bug.
	ErrSchema = errors.New("invalid schema")

	// ErrTransient means a store or LLM call failed for a reason expected to
	// clear on retry (network blip, timeout). Surfaced to the caller, who
	// may retry.
	ErrTransient = errors.New("transient failure")

	// ErrPartial means a multi-step operation completed with some per-item
	// failures (e.g. the compactor failed to delete some source records
	// after a successful insert). Logged and counted, never propagated as a
	// fatal error.
	ErrPartial = errors.New("partial failure")

	// ErrSoftQuality means a best-effort search finished without reaching
	// its quality threshold. Not a failure: callers still get the best
	// results found, with qualityMet=false.
	ErrSoftQuality = errors.New("quality threshold not met")
)
