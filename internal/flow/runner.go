package flow

import (
	"context"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
)

// reporter binds Reporter calls to registry updates for one path and stage.
type reporter struct {
	ctx      context.Context
	registry *attachments.Registry
	path     string
	action   attachments.Action
	logger   logging.Logger
	failed   bool
}

func (r *reporter) Progress(value float64) {
	r.update(attachments.StagePatch(r.action, attachments.StatusLoading).WithProgress(value))
}

func (r *reporter) Success() {
	r.update(attachments.StagePatch(r.action, attachments.StatusSuccess))
}

func (r *reporter) Failure(err error) {
	r.failed = true
	r.logger.Debug(r.ctx, "stage reported failure", "error", err)
	r.update(attachments.StagePatch(r.action, attachments.StatusFailure))
}

func (r *reporter) update(p attachments.Patch) {
	if _, err := r.registry.UpdateByPath(r.path, p); err != nil {
		r.logger.Warn(r.ctx, "registry update dropped", "error", err)
	}
}

// runStage invokes h for one item. The registry is left alone until the
// handler reports. A handler that fails without reporting is marked FAILURE
// so the registry never shows a rejected stage as still loading.
func runStage(ctx context.Context, reg *attachments.Registry, logger logging.Logger, stage Stage, h Handler, in Input) (*StageResult, error) {
	rep := &reporter{
		ctx:      ctx,
		registry: reg,
		path:     in.Item.Path,
		action:   stage.Action(),
		logger:   logger,
	}

	res, err := h.Handle(ctx, in, rep)
	if err != nil {
		if !rep.failed {
			rep.Failure(err)
		}
		return nil, err
	}

	if res != nil {
		in.Results[stage] = res
	}
	return res, nil
}
