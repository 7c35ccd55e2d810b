// Package completion defines the text-generation gateway port. All model
// calls in the pipeline go through this single synchronous interface, which
// centralizes timeout, retry, and breaker policy in its adapter.
package completion

import (
	"context"
	"time"
)

// Options control a single completion call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// JSON asks the backend for a JSON-only response when supported.
	JSON bool
}

// Request is one prompt submitted for completion.
type Request struct {
	System  string
	Prompt  string
	Options Options
}

// Gateway is the port interface for the completion backend. Implementations
// must be safe for concurrent use; failures are reported as errors wrapping
// domain.ErrGatewayTimeout or domain.ErrGatewayUnavailable.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
}
