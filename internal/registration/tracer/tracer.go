// Package tracer provides a lightweight tracing abstraction for the
// registration saga.
//
// The saga emits one span per step and per compensation, which makes a
// failed registration readable as a trace: the failing step carries the
// error, and the compensations that followed hang off the same parent.
// The interface keeps OpenTelemetry out of the saga's own signatures.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context carries the span for child operations; the
	// span must be ended with Span.End.
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// HashAddress returns a truncated SHA-256 hash of an email address for
// safe correlation in traces. Addresses are PII and never appear in
// span attributes verbatim.
func HashAddress(address string) string {
	if address == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(address))
	return hex.EncodeToString(hash[:8])
}

// Span name prefixes used by the saga.
const (
	SpanSaga               = "registration.saga"
	SpanStepPrefix         = "registration.step."
	SpanCompensationPrefix = "registration.compensate."
)

// Attribute keys used by the saga.
const (
	AttrStepIndex   = "step_index"
	AttrSchoolName  = "school_name"
	AttrAddressHash = "address_hash"
)
