// Package flow drives attachments through the encrypt, prepare and upload
// stages, one item and one stage at a time.
package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/attachkeeper/internal/attachments"
)

// Stage names one processing step.
type Stage string

const (
	StageEncrypt Stage = "encrypt"
	StagePrepare Stage = "prepare"
	StageUpload  Stage = "upload"
)

// StageOrder is the fixed execution order.
var StageOrder = []Stage{StageEncrypt, StagePrepare, StageUpload}

// ParseStage resolves a case-insensitive stage name.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range StageOrder {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// Action is the registry action recorded while this stage runs.
func (s Stage) Action() attachments.Action {
	switch s {
	case StageEncrypt:
		return attachments.ActionEncrypt
	case StagePrepare:
		return attachments.ActionPrepare
	case StageUpload:
		return attachments.ActionUpload
	}
	return attachments.ActionIdle
}

// StageResult is what one stage hands to the later stages of the same item.
type StageResult struct {
	InputPath  string
	OutputPath string
	Values     map[string]string
}

// Value returns Values[key], tolerating a nil map.
func (r *StageResult) Value(key string) string {
	if r == nil || r.Values == nil {
		return ""
	}
	return r.Values[key]
}

// Results accumulates StageResults for one item, keyed by stage.
type Results map[Stage]*StageResult

// Get returns the result stored for s, if any.
func (r Results) Get(s Stage) (*StageResult, bool) {
	res, ok := r[s]
	return res, ok && res != nil
}

// Last returns the result of the latest stage that produced one.
func (r Results) Last() (*StageResult, bool) {
	for i := len(StageOrder) - 1; i >= 0; i-- {
		if res, ok := r.Get(StageOrder[i]); ok {
			return res, true
		}
	}
	return nil, false
}

// LastOutput returns the newest non-empty OutputPath, or fallback.
func (r Results) LastOutput(fallback string) string {
	for i := len(StageOrder) - 1; i >= 0; i-- {
		if res, ok := r.Get(StageOrder[i]); ok && res.OutputPath != "" {
			return res.OutputPath
		}
	}
	return fallback
}

// Value searches the results newest-first for key.
func (r Results) Value(key string) string {
	for i := len(StageOrder) - 1; i >= 0; i-- {
		if res, ok := r.Get(StageOrder[i]); ok {
			if v := res.Value(key); v != "" {
				return v
			}
		}
	}
	return ""
}

// Input is everything a handler sees for one stage of one item.
// Meta is a private copy of the run's MetaState snapshot.
type Input struct {
	Item    attachments.Item
	Meta    map[string]string
	Results Results
}

// Reporter is the handler's only way to signal progress. Each call updates
// the item's action and status in the registry; the latest call wins.
type Reporter interface {
	Progress(value float64)
	Success()
	Failure(err error)
}

// Handler runs one stage for one item.
type Handler interface {
	Handle(ctx context.Context, in Input, r Reporter) (*StageResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in Input, r Reporter) (*StageResult, error)

func (f HandlerFunc) Handle(ctx context.Context, in Input, r Reporter) (*StageResult, error) {
	return f(ctx, in, r)
}
