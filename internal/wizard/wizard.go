// Package wizard sequences a fixed list of data-collection steps into a
// forward-only flow ending in a terminal success state.
//
//	Step[0] -> Step[1] -> ... -> Step[N-1] -> Preview -> Success
//
// Each step owns one slice of Data and declares its own completion predicate.
// Continue is refused while the active step is incomplete. The last step
// opens Preview instead of advancing the index; Preview can go back to the
// last step or publish into Success. Success accepts no further actions.
package wizard

import (
	"errors"
	"fmt"

	"trockle-api/internal/catalog"
	"trockle-api/internal/models"
)

var (
	ErrNoSteps      = errors.New("wizard: at least one step is required")
	ErrIncomplete   = errors.New("wizard: active step is incomplete")
	ErrWrongStep    = errors.New("wizard: data does not belong to the active step")
	ErrInPreview    = errors.New("wizard: preview is open")
	ErrNotInPreview = errors.New("wizard: preview is not open")
	ErrFinished     = errors.New("wizard: flow already finished")
)

// Phase is the coarse state of the wizard.
type Phase string

const (
	PhaseStep    Phase = "step"
	PhasePreview Phase = "preview"
	PhaseSuccess Phase = "success"
)

// State is the serializable state of a wizard.
type State struct {
	Step  int   `json:"step"`
	Phase Phase `json:"phase"`
	Data  Data  `json:"data"`
}

// Progress is the read-only progress view. Current is 0-based and never
// exceeds Total-1.
type Progress struct {
	Current int   `json:"current"`
	Total   int   `json:"total"`
	Phase   Phase `json:"phase"`
}

// Fraction returns the share of the progress bar that is filled.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current+1) / float64(p.Total)
}

// Callbacks connect the wizard to its caller. All are optional.
type Callbacks struct {
	// OnUpdate is called with the merged data after every accepted change.
	OnUpdate func(Data)
	// OnContinue is called after a continue passed the step's predicate.
	OnContinue func(from int)
	// OnFinish is called exactly once, when Success is reached.
	OnFinish func(Data)
}

// Wizard runs a step table. A Wizard is not safe for concurrent use.
type Wizard struct {
	steps   []Step
	state   State
	cb      Callbacks
	preview bool
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithoutPreview makes continue on the last step publish directly.
func WithoutPreview() Option {
	return func(w *Wizard) { w.preview = false }
}

// WithState resumes a wizard from a saved state.
func WithState(s State) Option {
	return func(w *Wizard) { w.state = s }
}

// New creates a wizard positioned on the first step with the given data.
func New(steps []Step, data Data, cb Callbacks, opts ...Option) (*Wizard, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	w := &Wizard{
		steps:   steps,
		state:   State{Step: 0, Phase: PhaseStep, Data: data},
		cb:      cb,
		preview: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.state.Step < 0 || w.state.Step >= len(steps) {
		return nil, fmt.Errorf("wizard: step %d out of range [0,%d)", w.state.Step, len(steps))
	}
	switch w.state.Phase {
	case PhaseStep, PhaseSuccess:
	case PhasePreview:
		if !w.preview || w.state.Step != len(steps)-1 {
			return nil, fmt.Errorf("wizard: preview outside the last step")
		}
	default:
		return nil, fmt.Errorf("wizard: unknown phase %q", w.state.Phase)
	}
	return w, nil
}

// NewOnboarding creates the standard onboarding wizard.
func NewOnboarding(cb Callbacks, opts ...Option) *Wizard {
	w, _ := New(OnboardingSteps(), NewData(), cb, opts...)
	return w
}

// State returns the current state.
func (w *Wizard) State() State { return w.state }

// Data returns the accumulated data.
func (w *Wizard) Data() Data { return w.state.Data }

// Steps returns the number of numbered steps.
func (w *Wizard) Steps() int { return len(w.steps) }

// Active returns the active step.
func (w *Wizard) Active() Step { return w.steps[w.state.Step] }

// Progress returns the derived progress view.
func (w *Wizard) Progress() Progress {
	cur := w.state.Step
	if cur > len(w.steps)-1 {
		cur = len(w.steps) - 1
	}
	return Progress{Current: cur, Total: len(w.steps), Phase: w.state.Phase}
}

// CanContinue reports whether Continue would be honored.
func (w *Wizard) CanContinue() bool {
	return w.state.Phase == PhaseStep && w.Active().Complete(w.state.Data)
}

// Update merges partial data into the active step's slice.
func (w *Wizard) Update(p Patch) error {
	if err := w.editable(); err != nil {
		return err
	}
	active := w.Active().Slice
	for _, s := range p.slices() {
		if s != active {
			return fmt.Errorf("%w: %s is not %s", ErrWrongStep, s, active)
		}
	}
	p.apply(&w.state.Data)
	w.updated()
	return nil
}

// TogglePreference toggles a preference tag under the selection cap. It
// returns false when the toggle was refused, which is not an error.
func (w *Wizard) TogglePreference(id string) (bool, error) {
	if err := w.editable(); err != nil {
		return false, err
	}
	if w.Active().Slice != SlicePreferences {
		return false, fmt.Errorf("%w: preferences is not %s", ErrWrongStep, w.Active().Slice)
	}
	prefs, ok := Toggle(w.state.Data.Preferences, id, catalog.MaxPreferences)
	if !ok {
		return false, nil
	}
	w.state.Data.Preferences = prefs
	w.updated()
	return true, nil
}

// Continue advances past the active step when its predicate holds. On the
// last step it opens Preview, or finishes when preview is disabled.
func (w *Wizard) Continue() error {
	switch w.state.Phase {
	case PhaseSuccess:
		return ErrFinished
	case PhasePreview:
		return ErrInPreview
	}
	if !w.Active().Complete(w.state.Data) {
		return ErrIncomplete
	}

	from := w.state.Step
	if from < len(w.steps)-1 {
		w.state.Step++
	} else if w.preview {
		w.state.Phase = PhasePreview
	} else {
		w.state.Phase = PhaseSuccess
	}
	if w.cb.OnContinue != nil {
		w.cb.OnContinue(from)
	}
	if w.state.Phase == PhaseSuccess {
		w.finish()
	}
	return nil
}

// CancelPreview returns from Preview to the last step.
func (w *Wizard) CancelPreview() error {
	switch w.state.Phase {
	case PhaseSuccess:
		return ErrFinished
	case PhaseStep:
		return ErrNotInPreview
	}
	w.state.Phase = PhaseStep
	return nil
}

// Publish moves from Preview to Success.
func (w *Wizard) Publish() error {
	switch w.state.Phase {
	case PhaseSuccess:
		return ErrFinished
	case PhaseStep:
		return ErrNotInPreview
	}
	w.state.Phase = PhaseSuccess
	w.finish()
	return nil
}

func (w *Wizard) editable() error {
	switch w.state.Phase {
	case PhaseSuccess:
		return ErrFinished
	case PhasePreview:
		return ErrInPreview
	}
	return nil
}

func (w *Wizard) updated() {
	if w.cb.OnUpdate != nil {
		w.cb.OnUpdate(w.state.Data)
	}
}

func (w *Wizard) finish() {
	if w.cb.OnFinish != nil {
		w.cb.OnFinish(w.state.Data)
	}
}

// TradeFor returns the drafted trade, stamped with its owner.
func (d Data) TradeFor(ownerID string) models.Trade {
	t := d.Trade
	t.OwnerID = ownerID
	t.Photos = append([]string(nil), t.Photos...)
	return t
}
