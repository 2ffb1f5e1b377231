package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// State is a job poller state.
type State int

const (
	Processing State = iota
	Completed
	Failed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Processing:
		return "processing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s != Processing
}

const (
	missingResultReason = "missing result"
	unknownErrorReason  = "Unknown error"
)

// Transition applies one observed job status to the Processing state. It
// returns the next state and, for Completed, the result text or, for Failed,
// the reason.
func Transition(job models.Job) (State, string) {
	switch job.Status {
	case models.JobStatusCompleted:
		if job.Result == "" {
			return Failed, missingResultReason
		}
		return Completed, job.Result
	case models.JobStatusFailed:
		if job.Error == "" {
			return Failed, unknownErrorReason
		}
		return Failed, job.Error
	default:
		return Processing, ""
	}
}

// StatusChecker fetches one job status.
type StatusChecker interface {
	Status(ctx context.Context, jobID string) (models.Job, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Outcome is the final observation of a poll.
type Outcome struct {
	State    State
	Result   string
	Reason   string
	Attempts int
}

// Poller checks a job until it completes, fails, or the attempt budget is
// spent.
type Poller struct {
	checker     StatusChecker
	interval    time.Duration
	maxAttempts int
	sleep       SleepFunc
	logger      *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithSleep replaces the wait between attempts.
func WithSleep(fn SleepFunc) PollerOption {
	return func(p *Poller) { p.sleep = fn }
}

// WithLogger sets the logger used for per-attempt progress.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a poller that waits interval between at most
// maxAttempts status checks.
func NewPoller(checker StatusChecker, interval time.Duration, maxAttempts int, opts ...PollerOption) *Poller {
	p := &Poller{
		checker:     checker,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the attempt budget.
func (p *Poller) MaxAttempts() int {
	return p.maxAttempts
}

// Poll drives the state machine for jobID. The returned error is nil only
// for Completed. Failed wraps models.ErrUpstreamFailure, TimedOut wraps
// models.ErrTimedOut, and a transport failure on any attempt ends polling at
// once with an error wrapping models.ErrTransport.
func (p *Poller) Poll(ctx context.Context, jobID string) (Outcome, error) {
	out := Outcome{State: Processing}

	for out.Attempts < p.maxAttempts {
		out.Attempts++

		job, err := p.checker.Status(ctx, jobID)
		if err != nil {
			p.logger.Error("job status check failed", "job_id", jobID, "attempt", out.Attempts, "error", err)
			return out, fmt.Errorf("polling job %s: %w", jobID, err)
		}

		state, detail := Transition(job)
		p.logger.Info("job status", "job_id", jobID, "attempt", out.Attempts, "max_attempts", p.maxAttempts, "status", job.Status)

		switch state {
		case Completed:
			out.State = Completed
			out.Result = detail
			return out, nil
		case Failed:
			out.State = Failed
			out.Reason = detail
			return out, fmt.Errorf("%w: job %s failed: %s", models.ErrUpstreamFailure, jobID, detail)
		}

		if out.Attempts == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return out, fmt.Errorf("%w: polling job %s interrupted: %v", models.ErrTransport, jobID, err)
		}
	}

	out.State = TimedOut
	out.Reason = fmt.Sprintf("no terminal status after %d attempts", out.Attempts)
	return out, fmt.Errorf("%w: job %s: %s", models.ErrTimedOut, jobID, out.Reason)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
