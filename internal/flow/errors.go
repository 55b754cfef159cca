package flow

import "errors"

var (
	ErrNoStages     = errors.New("no stages configured")
	ErrNilRegistry  = errors.New("nil registry")
	ErrFlowRunning  = errors.New("flow already running")
	ErrUnknownStage = errors.New("unknown stage")
)
