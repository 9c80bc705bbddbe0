package swipe

import (
	"errors"
	"time"

	"trockle-api/internal/models"
)

var (
	// ErrExhausted is returned for any interaction after the last candidate.
	ErrExhausted = errors.New("swipe: no more candidates")
	// ErrBusy is returned while the top card is animating off-screen.
	ErrBusy = errors.New("swipe: card is animating")
)

// Decision is emitted once per completed swipe or button press.
type Decision struct {
	CandidateID string
	Direction   models.Direction
	At          time.Time
}

// Handlers receive decisions. They must not panic; the deck does not recover.
type Handlers struct {
	OnLike func(Decision)
	OnSkip func(Decision)
}

// AnimationKind selects the animation curve.
type AnimationKind string

const (
	AnimationSpring AnimationKind = "spring"
	AnimationTiming AnimationKind = "timing"
)

// AnimationRequest describes an animation of the top card.
type AnimationRequest struct {
	Kind     AnimationKind
	ToX      float64
	ToY      float64
	Duration time.Duration
}

// Animator runs animations and reports completion through done. done may be
// called synchronously or later, but always on the goroutine that owns the deck.
type Animator interface {
	Animate(req AnimationRequest, done func())
}

// ImmediateAnimator completes every animation synchronously.
type ImmediateAnimator struct{}

func (ImmediateAnimator) Animate(_ AnimationRequest, done func()) {
	if done != nil {
		done()
	}
}

// Deck is a swipe deck over an ordered, finite candidate list.
// A Deck is not safe for concurrent use.
type Deck struct {
	cfg        Config
	candidates []models.Trade
	state      State
	handlers   Handlers
	animator   Animator
	now        func() time.Time

	emitted []Effect
}

// Option configures a Deck.
type Option func(*Deck)

// WithConfig overrides the gesture parameters.
func WithConfig(cfg Config) Option {
	return func(d *Deck) { d.cfg = cfg }
}

// WithAnimator sets the animator. The default completes immediately.
func WithAnimator(a Animator) Option {
	return func(d *Deck) { d.animator = a }
}

// WithClock sets the decision timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Deck) { d.now = now }
}

// WithState resumes a deck from a saved state. Transient drag and animation
// state is discarded; the cursor is clamped to the candidate count.
func WithState(s State) Option {
	return func(d *Deck) {
		cursor := s.Cursor
		if cursor < 0 {
			cursor = 0
		}
		if cursor > len(d.candidates) {
			cursor = len(d.candidates)
		}
		d.state = NewState(len(d.candidates))
		d.state.Cursor = cursor
		if d.state.Exhausted() {
			d.state.Phase = PhaseExhausted
		}
	}
}

// NewDeck creates a deck positioned at the first candidate.
func NewDeck(candidates []models.Trade, handlers Handlers, opts ...Option) *Deck {
	d := &Deck{
		cfg:        DefaultConfig(),
		candidates: append([]models.Trade(nil), candidates...),
		handlers:   handlers,
		animator:   ImmediateAnimator{},
		now:        time.Now,
	}
	d.state = NewState(len(d.candidates))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the deck's gesture parameters.
func (d *Deck) Config() Config { return d.cfg }

// State returns the current logical state.
func (d *Deck) State() State { return d.state }

// Frame returns the visual feedback for the current state.
func (d *Deck) Frame() Frame { return FrameOf(d.cfg, d.state) }

// Candidates returns the candidate list.
func (d *Deck) Candidates() []models.Trade { return d.candidates }

// Current returns the interactive candidate. ok is false once exhausted.
func (d *Deck) Current() (trade models.Trade, ok bool) {
	if d.state.Exhausted() {
		return models.Trade{}, false
	}
	return d.candidates[d.state.Cursor], true
}

// Upcoming returns the candidates stacked behind the top card. They are
// rendered statically and receive no input.
func (d *Deck) Upcoming() []models.Trade {
	if d.state.Cursor+1 >= len(d.candidates) {
		return nil
	}
	return d.candidates[d.state.Cursor+1:]
}

// Drag updates the displacement of the active drag.
func (d *Deck) Drag(dx, dy float64) (Frame, error) {
	if err := d.guard(); err != nil {
		return d.Frame(), err
	}
	d.apply(DragMove{DX: dx, DY: dy})
	return d.Frame(), nil
}

// Release ends the active drag and returns the effects it produced. A
// release inside the threshold yields a single snap-back effect.
func (d *Deck) Release(dx, dy float64) ([]Effect, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	return d.apply(DragRelease{DX: dx, DY: dy}), nil
}

// Like commits a like for the top card without a gesture.
func (d *Deck) Like() ([]Effect, error) {
	return d.press(models.DirectionLike)
}

// Skip commits a skip for the top card without a gesture.
func (d *Deck) Skip() ([]Effect, error) {
	return d.press(models.DirectionSkip)
}

func (d *Deck) press(dir models.Direction) ([]Effect, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	return d.apply(Press{Direction: dir}), nil
}

func (d *Deck) guard() error {
	if d.state.Exhausted() {
		return ErrExhausted
	}
	if d.state.Phase == PhaseExiting {
		return ErrBusy
	}
	return nil
}

// apply dispatches ev and collects every effect it produced, including the
// ones produced by synchronous animation callbacks.
func (d *Deck) apply(ev Event) []Effect {
	d.emitted = nil
	d.dispatch(ev)
	out := d.emitted
	d.emitted = nil
	return out
}

func (d *Deck) dispatch(ev Event) {
	next, effects := Reduce(d.cfg, d.state, ev)
	d.state = next
	for _, e := range effects {
		d.emitted = append(d.emitted, e)
		d.run(e)
	}
}

func (d *Deck) run(e Effect) {
	switch e.Kind {
	case EffectSnapBack:
		d.animator.Animate(AnimationRequest{Kind: AnimationSpring}, nil)
	case EffectAnimateOut:
		d.animator.Animate(AnimationRequest{
			Kind:     AnimationTiming,
			ToX:      e.ToX,
			ToY:      e.ToY,
			Duration: e.Duration,
		}, func() { d.dispatch(AnimationDone{}) })
	case EffectCommit:
		decision := Decision{
			CandidateID: d.candidates[e.Index].ID,
			Direction:   e.Direction,
			At:          d.now(),
		}
		switch e.Direction {
		case models.DirectionLike:
			if d.handlers.OnLike != nil {
				d.handlers.OnLike(decision)
			}
		case models.DirectionSkip:
			if d.handlers.OnSkip != nil {
				d.handlers.OnSkip(decision)
			}
		}
	}
}
