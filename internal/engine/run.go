package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/scdkit/scdkit/internal/record"
)

// Config is the per-pipeline configuration the engine consumes.
type Config struct {
	// Pipeline names the pipeline for summaries and logs.
	Pipeline string

	// BusinessKey is the attribute that identifies an entity across its
	// lifetime. Never itself monitored.
	BusinessKey string

	// MonitoredAttributes are the attributes whose changes open a new
	// version. Order is significant and must be stable across runs.
	MonitoredAttributes []string

	// DetectRemoved closes out keys that vanish from the source snapshot.
	DetectRemoved bool
}

// Validate fails fast on malformed configuration, before any storage
// access.
func (c Config) Validate() error {
	if c.BusinessKey == "" {
		return NewInvalidConfigurationError("business key must not be empty")
	}
	if len(c.MonitoredAttributes) == 0 {
		return NewInvalidConfigurationError("monitored attributes must not be empty")
	}
	seen := make(map[string]bool, len(c.MonitoredAttributes))
	for _, attr := range c.MonitoredAttributes {
		if attr == "" {
			return NewInvalidConfigurationError("monitored attribute name must not be empty")
		}
		if attr == c.BusinessKey {
			return NewInvalidConfigurationError("business key must not be a monitored attribute")
		}
		if seen[attr] {
			return NewInvalidConfigurationError("monitored attribute " + attr + " listed twice")
		}
		seen[attr] = true
	}
	return nil
}

// State is the orchestrator's pass state. Committed and Aborted are
// terminal; no partial-commit state is externally observable.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateClassifying
	StateMerging
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateClassifying:
		return "classifying"
	case StateMerging:
		return "merging"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RunSummary is the terminal outcome of a successful pass.
type RunSummary struct {
	RunID     string              `json:"run_id"`
	Pipeline  string              `json:"pipeline"`
	AsOf      time.Time           `json:"as_of"`
	New       int                 `json:"new"`
	Changed   int                 `json:"changed"`
	Unchanged int                 `json:"unchanged"`
	Removed   int                 `json:"removed"`
	Elapsed   time.Duration       `json:"elapsed"`
	Keys      map[string][]string `json:"keys"`
}

// Total returns the number of source records processed.
func (s *RunSummary) Total() int {
	return s.New + s.Changed + s.Unchanged
}

// DefaultRetryAttempts bounds re-reads of the source and history snapshots
// when the storage layer reports a transient failure.
const DefaultRetryAttempts = 3

// DefaultRetryDelay is the pause between snapshot retries.
const DefaultRetryDelay = 250 * time.Millisecond

// Runner sequences one full pass: snapshot -> classify -> merge ->
// summarize. It assumes single-writer access to the history table; running
// two Runners against the same table concurrently is out of scope and must
// be serialized externally.
type Runner struct {
	source  Source
	history History
	clock   Clock
	runIDs  RunIDGenerator
	log     *slog.Logger

	retryAttempts int
	retryDelay    time.Duration

	state State
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock injects the as-of clock. Tests use a deterministic clock.
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithRunIDGenerator injects the run id generator.
func WithRunIDGenerator(g RunIDGenerator) RunnerOption {
	return func(r *Runner) { r.runIDs = g }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// WithRetry overrides the snapshot retry policy.
func WithRetry(attempts int, delay time.Duration) RunnerOption {
	return func(r *Runner) {
		r.retryAttempts = attempts
		r.retryDelay = delay
	}
}

// NewRunner creates a Runner over a source table and a history table.
func NewRunner(source Source, history History, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:        source,
		history:       history,
		clock:         NewSystemClock(),
		runIDs:        UUIDv7Generator{},
		log:           slog.Default(),
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the state of the last (or current) pass.
func (r *Runner) State() State { return r.state }

// RunOnce executes one full pass and returns its summary.
//
// The pass has exactly one terminal outcome: a summary with zero or more
// applied mutations, or an error with zero applied mutations. Any failure
// before the merge transaction commits leaves the history unchanged.
func (r *Runner) RunOnce(ctx context.Context, cfg Config) (*RunSummary, error) {
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		r.setState(StateAborted)
		return nil, err
	}

	rc := RunContext{RunID: r.runIDs.Generate(), AsOf: r.clock.Next()}
	log := r.log.With("run_id", rc.RunID, "pipeline", cfg.Pipeline)
	log.Info("pass starting", "as_of", rc.AsOf)

	r.setState(StateExtracting)
	source, current, err := r.extract(ctx, log)
	if err != nil {
		r.setState(StateAborted)
		return nil, err
	}
	log.Debug("snapshots extracted", "source_records", len(source), "current_rows", len(current))

	r.setState(StateClassifying)
	deltas, err := Classify(source, current, cfg.BusinessKey, cfg.MonitoredAttributes, cfg.DetectRemoved)
	if err != nil {
		r.setState(StateAborted)
		return nil, err
	}

	r.setState(StateMerging)
	tally, err := ApplyAll(ctx, r.history, deltas, rc)
	if err != nil {
		r.setState(StateAborted)
		return nil, err
	}
	r.setState(StateCommitted)

	summary := &RunSummary{
		RunID:     rc.RunID,
		Pipeline:  cfg.Pipeline,
		AsOf:      rc.AsOf,
		New:       tally.New,
		Changed:   tally.Changed,
		Unchanged: tally.Unchanged,
		Removed:   tally.Removed,
		Elapsed:   time.Since(started),
		Keys:      keysByOutcome(deltas),
	}
	log.Info("pass committed",
		"new", summary.New,
		"changed", summary.Changed,
		"unchanged", summary.Unchanged,
		"removed", summary.Removed,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// extract reads both snapshots, retrying transient storage failures a
// bounded number of times. The current slice is read after the source
// snapshot; single-writer-per-table means nothing mutates history between
// the two reads.
func (r *Runner) extract(ctx context.Context, log *slog.Logger) ([]*record.Record, map[string]VersionRow, error) {
	source, err := retry(ctx, log, r.retryAttempts, r.retryDelay, "fetch source snapshot", func() ([]*record.Record, error) {
		return r.source.FetchAll(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	current, err := retry(ctx, log, r.retryAttempts, r.retryDelay, "fetch current history slice", func() (map[string]VersionRow, error) {
		return r.history.FetchCurrent(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return source, current, nil
}

func (r *Runner) setState(s State) {
	r.state = s
}

// retry re-runs fn on STORAGE_UNAVAILABLE errors only; all other failures
// surface immediately.
func retry[T any](ctx context.Context, log *slog.Logger, attempts int, delay time.Duration, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			log.Warn("retrying after transient storage failure", "op", op, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !IsStorageUnavailable(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

func keysByOutcome(deltas []Delta) map[string][]string {
	keys := make(map[string][]string, 4)
	for _, d := range deltas {
		name := d.Outcome.String()
		keys[name] = append(keys[name], d.KeyValue.String())
	}
	return keys
}
