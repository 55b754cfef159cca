package flow

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
)

// State is the batch-level lifecycle of a Flow.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer receives batch-level signals.
//
// OnItemSettled fires once per processed item whatever its outcome; it marks
// progress through the batch, not success.
type Observer interface {
	OnStart()
	OnItemFailure(item attachments.Item, stage Stage, err error)
	OnItemSettled(item attachments.Item)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	Start       func()
	ItemFailure func(item attachments.Item, stage Stage, err error)
	ItemSettled func(item attachments.Item)
}

func (o ObserverFuncs) OnStart() {
	if o.Start != nil {
		o.Start()
	}
}

func (o ObserverFuncs) OnItemFailure(item attachments.Item, stage Stage, err error) {
	if o.ItemFailure != nil {
		o.ItemFailure(item, stage, err)
	}
}

func (o ObserverFuncs) OnItemSettled(item attachments.Item) {
	if o.ItemSettled != nil {
		o.ItemSettled(item)
	}
}

// Summary is the aggregated outcome of one CompleteFlow call.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	// Skipped counts items never started because the run was cancelled.
	Skipped  int
	Failures map[string]error
}

// Option configures a Flow.
type Option func(*Flow)

func WithEncrypt(h Handler) Option { return withStage(StageEncrypt, h) }
func WithPrepare(h Handler) Option { return withStage(StagePrepare, h) }
func WithUpload(h Handler) Option  { return withStage(StageUpload, h) }

// WithStage sets the handler for s. A nil handler disables the stage.
func WithStage(s Stage, h Handler) Option { return withStage(s, h) }

func withStage(s Stage, h Handler) Option {
	return func(f *Flow) {
		if h == nil {
			delete(f.handlers, s)
			return
		}
		f.handlers[s] = h
	}
}

func WithObserver(o Observer) Option {
	return func(f *Flow) { f.observer = o }
}

func WithLogger(l logging.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// Flow runs the configured stages over every attachment in a registry.
type Flow struct {
	registry *attachments.Registry
	handlers map[Stage]Handler
	observer Observer
	logger   logging.Logger

	mu    sync.Mutex
	state State
}

// New builds a Flow. At least one stage must be configured.
func New(reg *attachments.Registry, opts ...Option) (*Flow, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}

	f := &Flow{
		registry: reg,
		handlers: make(map[Stage]Handler),
		observer: ObserverFuncs{},
		logger:   logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}

	if len(f.handlers) == 0 {
		return nil, ErrNoStages
	}
	return f, nil
}

// Stages lists the enabled stages in execution order.
func (f *Flow) Stages() []Stage {
	var out []Stage
	for _, s := range StageOrder {
		if _, ok := f.handlers[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// State reports where the flow is in its lifecycle.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// CompleteFlow processes every attachment present when it starts.
//
// Items run sequentially in registry order; stages run encrypt, prepare,
// upload, skipping unconfigured ones. A failing stage stops that item only.
// Cancellation is honored between items and returns ctx.Err() together
// with the partial summary.
func (f *Flow) CompleteFlow(ctx context.Context) (Summary, error) {
	f.mu.Lock()
	if f.state == StateRunning {
		f.mu.Unlock()
		return Summary{}, ErrFlowRunning
	}
	f.state = StateRunning
	f.mu.Unlock()
	defer f.setState(StateCompleted)

	meta, err := f.registry.Meta()
	if err != nil {
		return Summary{}, fmt.Errorf("snapshot meta: %w", err)
	}
	items, err := f.registry.Snapshot()
	if err != nil {
		return Summary{}, fmt.Errorf("snapshot attachments: %w", err)
	}

	summary := Summary{Total: len(items), Failures: make(map[string]error)}
	f.logger.Info(ctx, "flow started", "items", len(items), "stages", f.Stages())
	f.observer.OnStart()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			summary.Skipped = len(items) - i
			f.logger.Warn(ctx, "flow cancelled", "skipped", summary.Skipped)
			return summary, err
		}

		stage, err := f.runItem(ctx, item, meta)
		current := f.current(item)

		if err != nil {
			summary.Failed++
			summary.Failures[item.Path] = err
			f.logger.Warn(ctx, "attachment failed", "path", item.Path, "stage", stage, "error", err)
			f.observer.OnItemFailure(current, stage, err)
		} else {
			summary.Succeeded++
		}
		f.observer.OnItemSettled(current)
	}

	f.logger.Info(ctx, "flow completed", "total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

// runItem returns the stage that failed, if any.
func (f *Flow) runItem(ctx context.Context, item attachments.Item, meta map[string]string) (Stage, error) {
	results := make(Results, len(f.handlers))

	for _, stage := range StageOrder {
		h, ok := f.handlers[stage]
		if !ok {
			continue
		}

		f.logger.Debug(ctx, "stage started", "path", item.Path, "stage", stage)
		in := Input{Item: item, Meta: maps.Clone(meta), Results: results}
		if _, err := runStage(ctx, f.registry, f.logger.With("path", item.Path, "stage", stage), stage, h, in); err != nil {
			return stage, err
		}
	}
	return "", nil
}

// current returns the registry's view of item, falling back to the snapshot
// copy when the item was replaced or the registry is gone.
func (f *Flow) current(item attachments.Item) attachments.Item {
	it, ok, err := f.registry.Get(item.Path)
	if err != nil || !ok {
		return item
	}
	return it
}
