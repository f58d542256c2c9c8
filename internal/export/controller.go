package export

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Direction selects which way the controller walks the history.
type Direction int

const (
	// Older walks toward earlier history by edge-jumping (the default).
	Older Direction = iota
	// Newer walks toward the present in incremental steps. Used when the
	// caller has already positioned the view at an older point.
	Newer
)

const (
	defaultSettle     = 1200 * time.Millisecond
	defaultDeadline   = 3 * time.Minute
	defaultIterations = 400

	// Consecutive no-progress cycles before the older walk gives up.
	olderStallLimit = 3
	// The newer walk escalates with one oversized jump at this stall count
	// and gives up at newerStallLimit.
	newerJumpAt     = 4
	newerStallLimit = 8
	// Consecutive at-bottom observations required to end the newer walk.
	// The client briefly reports at-bottom while a batch is still loading.
	bottomObservations = 3
)

// Options configures a single extraction run.
type Options struct {
	Direction Direction

	// Cutoff is an absolute age boundary; messages older than this are
	// trimmed from the final batch. Zero means no boundary.
	Cutoff time.Time

	// Resume is the archive's last-synced cursor. Scrolling stops once the
	// oldest visible message is at or before it; the batch itself is not
	// trimmed at Resume (the store filters at the cursor). Zero means a
	// full-history walk.
	Resume time.Time

	Settle        time.Duration // wait after each trigger before re-collecting
	Deadline      time.Duration // overall budget for the run
	MaxIterations int           // hard cycle ceiling, guarantees termination
}

// Controller drives incremental scrolling and collection against a live
// view until a cutoff is reached, the history is exhausted, or a ceiling or
// deadline fires.
type Controller struct {
	view     View
	opts     Options
	logger   Logger
	progress func(string)
	sleep    func(time.Duration)
}

// NewController creates a Controller. progress receives line-oriented status
// messages and may be nil; it is a side channel, not part of the result.
func NewController(view View, opts Options, logger Logger, progress func(string)) *Controller {
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if opts.Deadline <= 0 {
		opts.Deadline = defaultDeadline
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultIterations
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if progress == nil {
		progress = func(string) {}
	}
	return &Controller{
		view:     view,
		opts:     opts,
		logger:   logger,
		progress: progress,
		sleep:    time.Sleep,
	}
}

// Run executes the extraction, racing the scroll loop against the deadline.
// On expiry the loop is abandoned, not cancelled: collection state lives
// inside the host view and cannot be safely drained mid-cycle, so the
// caller receives ErrTimeout rather than a partial batch.
func (c *Controller) Run(ctx context.Context) ([]Message, error) {
	type outcome struct {
		msgs []Message
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		msgs, err := c.run(ctx)
		done <- outcome{msgs, err}
	}()

	timer := time.NewTimer(c.opts.Deadline)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.msgs, out.err
	case <-timer.C:
		c.logger.Warn("extraction abandoned", "deadline", c.opts.Deadline)
		return nil, ErrTimeout
	}
}

func (c *Controller) run(ctx context.Context) ([]Message, error) {
	ready, err := c.view.Ready(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing view: %w", err)
	}
	if !ready {
		return nil, ErrViewUnavailable
	}

	c.progress("priming view")
	if err := c.view.Prime(ctx); err != nil {
		return nil, fmt.Errorf("priming view: %w", err)
	}
	c.sleep(c.opts.Settle)

	strat := c.strategy()
	cut := c.cutoff()

	var collected []RawNode
	var lastMark time.Time
	stalls := 0

	for i := 0; i < c.opts.MaxIterations; i++ {
		if err := strat.trigger(ctx, c.view); err != nil {
			return nil, fmt.Errorf("triggering scroll: %w", err)
		}
		c.sleep(c.opts.Settle)

		nodes, err := c.view.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("collecting nodes: %w", err)
		}
		collected = append(collected, nodes...)

		oldest, newest := timestampSpan(collected)
		c.progress(fmt.Sprintf("cycle %d: %d nodes collected, oldest %s", i+1, len(collected), markLabel(oldest)))

		if !cut.IsZero() && !oldest.IsZero() && !oldest.After(cut) {
			c.logger.Debug("cutoff reached", "oldest", oldest, "cutoff", cut)
			break
		}

		mark := strat.mark(oldest, newest)
		if i > 0 && mark.Equal(lastMark) {
			stalls++
			exhausted, err := strat.stalled(ctx, c.view, stalls)
			if err != nil {
				return nil, err
			}
			if exhausted {
				c.logger.Debug("history exhausted", "stalls", stalls, "cycles", i+1)
				break
			}
		} else {
			stalls = 0
			lastMark = mark
		}

		ended, err := strat.finished(ctx, c.view)
		if err != nil {
			return nil, err
		}
		if ended {
			c.logger.Debug("end of list reached", "cycles", i+1)
			break
		}
	}

	return c.finalize(collected)
}

// cutoff returns the instant at which scrolling may stop: the later of the
// configured absolute cutoff and the resume cursor, whichever boundary is
// reached first while walking backward.
func (c *Controller) cutoff() time.Time {
	cut := c.opts.Cutoff
	if !c.opts.Resume.IsZero() && c.opts.Resume.After(cut) {
		cut = c.opts.Resume
	}
	return cut
}

func (c *Controller) strategy() strategy {
	if c.opts.Direction == Newer {
		return &incrementalStep{}
	}
	return edgeJump{}
}

// finalize dedups and orders the collected nodes, applies the final
// date-range trim, and normalizes each node to a Message. Nodes missing
// author, timestamp, or body are skipped individually; they never fail the
// batch as a whole.
func (c *Controller) finalize(collected []RawNode) ([]Message, error) {
	nodes := Sequence(collected)

	msgs := make([]Message, 0, len(nodes))
	for _, n := range nodes {
		ts, ok := parseNodeTime(n.Timestamp)
		if !ok || n.Author == "" || strings.TrimSpace(n.Body) == "" {
			c.logger.Debug("skipping malformed node", "id", n.ID)
			continue
		}
		if !c.opts.Cutoff.IsZero() && ts.Before(c.opts.Cutoff) {
			continue
		}
		content := Normalize(n.Body)
		if content == "" {
			continue
		}
		msgs = append(msgs, Message{ID: n.ID, Author: n.Author, Timestamp: ts, Content: content})
	}

	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}
	c.progress(fmt.Sprintf("extracted %d messages", len(msgs)))
	return msgs, nil
}

// strategy is the direction-specific part of the scroll state machine: the
// trigger action and the termination sensors. Everything else is shared.
type strategy interface {
	trigger(ctx context.Context, v View) error
	// mark returns the progress marker compared across cycles; an
	// unchanged marker counts as a stall.
	mark(oldest, newest time.Time) time.Time
	// stalled is consulted after each no-progress cycle and may escalate.
	stalled(ctx context.Context, v View, stalls int) (bool, error)
	// finished reports direction-specific end conditions.
	finished(ctx context.Context, v View) (bool, error)
}

// edgeJump walks toward older history by repeatedly jumping to the
// oldest-loaded edge. Progress sensor: the oldest timestamp seen.
type edgeJump struct{}

func (edgeJump) trigger(ctx context.Context, v View) error { return v.TriggerOlder(ctx) }

func (edgeJump) mark(oldest, _ time.Time) time.Time { return oldest }

func (edgeJump) stalled(_ context.Context, _ View, stalls int) (bool, error) {
	return stalls >= olderStallLimit, nil
}

func (edgeJump) finished(context.Context, View) (bool, error) { return false, nil }

// incrementalStep walks toward newer history in viewport-sized steps, with
// one oversized jump as an escalation before giving up. Progress sensor:
// the newest timestamp seen.
type incrementalStep struct {
	bottomStreak int
}

func (s *incrementalStep) trigger(ctx context.Context, v View) error { return v.StepNewer(ctx) }

func (s *incrementalStep) mark(_, newest time.Time) time.Time { return newest }

func (s *incrementalStep) stalled(ctx context.Context, v View, stalls int) (bool, error) {
	if stalls == newerJumpAt {
		if err := v.JumpNewer(ctx); err != nil {
			return false, fmt.Errorf("escalation jump: %w", err)
		}
		return false, nil
	}
	return stalls >= newerStallLimit, nil
}

func (s *incrementalStep) finished(ctx context.Context, v View) (bool, error) {
	at, err := v.AtBottom(ctx)
	if err != nil {
		return false, fmt.Errorf("checking end of list: %w", err)
	}
	if at {
		s.bottomStreak++
	} else {
		s.bottomStreak = 0
	}
	return s.bottomStreak >= bottomObservations, nil
}

// timestampSpan returns the oldest and newest parseable timestamps among
// the collected nodes. Unparseable timestamps are skipped, not errors.
func timestampSpan(nodes []RawNode) (oldest, newest time.Time) {
	for _, n := range nodes {
		t, ok := parseNodeTime(n.Timestamp)
		if !ok {
			continue
		}
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
		if newest.IsZero() || t.After(newest) {
			newest = t
		}
	}
	return oldest, newest
}

func markLabel(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.RFC3339)
}
