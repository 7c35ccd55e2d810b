// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrGatewayTimeout indicates an external gateway call exceeded its deadline.
// Callers decide locally whether to degrade or propagate.
var ErrGatewayTimeout = errors.New("gateway timeout")

// ErrGatewayUnavailable indicates an external gateway is unreachable or
// returned a non-retryable failure.
var ErrGatewayUnavailable = errors.New("gateway unavailable")
