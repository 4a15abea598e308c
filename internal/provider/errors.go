package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupported is returned by tiers that do not implement a capability
// (the authoritative store cannot be cleared, the synthesis fallback cannot
// be written to).
var ErrUnsupported = errors.New("operation not supported by this tier")

// TransportError wraps a network or store failure. The Composite provider
// treats it as a miss and falls through to the next tier.
type TransportError struct {
	Tier string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Tier, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError signals that a synthesis request exceeded its bound. It is
// treated as a miss, never propagated to callers of the Composite provider.
type TimeoutError struct {
	Tier    string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Tier, e.Elapsed.Round(time.Millisecond))
}
