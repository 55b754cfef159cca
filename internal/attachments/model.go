// Package attachments tracks the files under management and the free-form
// metadata shared by a flow run.
package attachments

// Kind is fixed when the item is created.
type Kind string

const (
	KindFile  Kind = "FILE"
	KindImage Kind = "IMAGE"
)

// Status reflects the state of the most recently run stage.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusLoading Status = "LOADING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Action records which stage last touched the item.
type Action string

const (
	ActionIdle    Action = "IDLE"
	ActionEncrypt Action = "ENCRYPT"
	ActionDecrypt Action = "DECRYPT"
	ActionPrepare Action = "PREPARE"
	ActionUpload  Action = "UPLOAD"
)

// Item is one file tracked through the pipeline. Path is the unique key.
type Item struct {
	Path     string
	Kind     Kind
	Progress float64
	Status   Status
	Action   Action
}

// withDefaults fills unset fields the way a freshly added item starts out.
func (it Item) withDefaults() Item {
	if it.Kind == "" {
		it.Kind = KindFile
	}
	if it.Status == "" {
		it.Status = StatusIdle
	}
	if it.Action == "" {
		it.Action = ActionIdle
	}
	return it
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Progress *float64
	Status   *Status
	Action   *Action
}

// StagePatch sets action and status together, which is what every stage
// callback does.
func StagePatch(action Action, status Status) Patch {
	return Patch{Action: &action, Status: &status}
}

// WithProgress returns a copy of p that also sets Progress.
func (p Patch) WithProgress(v float64) Patch {
	p.Progress = &v
	return p
}

func (p Patch) apply(it Item) Item {
	if p.Progress != nil {
		it.Progress = *p.Progress
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.Action != nil {
		it.Action = *p.Action
	}
	return it
}
