// Package trigger provides the time-based job trigger: register a handler
// invocation to fire once at or after a timestamp, identified by an opaque
// token. The only guarantee is "fires once at or after the timestamp"; no
// ordering across triggers, and a trigger that has already fired cannot be
// cancelled.
package trigger

import (
	"context"
	"errors"
	"time"
)

// Handler names dispatched by the worker. Payloads are JSON.
const (
	HandlerSendEmail = "send_email"
)

// ErrAlreadyFired is returned by Cancel when the trigger fired (or never
// existed). Callers are expected to tolerate it.
var ErrAlreadyFired = errors.New("trigger already fired or unknown")

// Scheduler registers and cancels future handler invocations.
// Implementations must be safe for concurrent use.
type Scheduler interface {
	// Schedule registers a trigger firing at or after the given time and
	// returns its token.
	Schedule(ctx context.Context, at time.Time, handler string, payload []byte) (string, error)

	// Cancel revokes a pending trigger. Returns ErrAlreadyFired when the
	// trigger is past cancelling.
	Cancel(ctx context.Context, token string) error
}
