package export

import (
	"context"
	"errors"
)

// View is the narrow capability surface the controller needs from the live
// message list. The list is an external, observation-only oracle: the
// controller can nudge it and read what is rendered, nothing more.
// Implementations: browser.Driver against a real Teams tab, and the
// scripted fake in controller_test.go.
type View interface {
	// Ready reports whether the message-list container is present.
	Ready(ctx context.Context) (bool, error)

	// Prime scrolls to the known edge of the loaded history, establishing
	// a stable starting point before the collect cycles begin.
	Prime(ctx context.Context) error

	// TriggerOlder jumps to the oldest-loaded edge, nudging the view to
	// materialize earlier content.
	TriggerOlder(ctx context.Context) error

	// StepNewer advances the view one increment toward the present.
	StepNewer(ctx context.Context) error

	// JumpNewer performs one oversized jump toward the present. Used as an
	// escalation when incremental steps stall.
	JumpNewer(ctx context.Context) error

	// AtBottom reports whether the view is at the end of the list.
	AtBottom(ctx context.Context) (bool, error)

	// Collect returns every message node currently rendered.
	Collect(ctx context.Context) ([]RawNode, error)
}

// Typed extraction outcomes. Callers distinguish these with errors.Is:
// a timeout may be worth retrying with a longer deadline, an unavailable
// view is not, and a chat with no extractable messages is usually skipped.
var (
	ErrViewUnavailable = errors.New("message list not found in view")
	ErrTimeout         = errors.New("extraction deadline exceeded")
	ErrNoMessages      = errors.New("no extractable messages")
)
