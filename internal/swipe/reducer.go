// Package swipe turns drag gestures over a stack of trades into like/skip
// decisions.
//
// The core is Reduce, a pure function from (state, event) to (state, effects).
// Deck wraps it with a candidate list, an Animator and a decision sink so that
// callers only feed gestures and button presses.
package swipe

import (
	"time"

	"trockle-api/internal/models"
)

// Config holds the gesture and animation parameters of a deck.
type Config struct {
	Threshold     float64       `json:"threshold"`      // minimum |dx| that commits a decision
	ScreenWidth   float64       `json:"screen_width"`   // logical width of the viewport
	MaxRotation   float64       `json:"max_rotation"`   // degrees reached at ±ScreenWidth/2
	ExitOvershoot float64       `json:"exit_overshoot"` // distance past the screen edge a card travels
	ExitDuration  time.Duration `json:"exit_duration"`
}

// DefaultConfig returns the design values of the discovery feed.
func DefaultConfig() Config {
	return Config{
		Threshold:     120,
		ScreenWidth:   390,
		MaxRotation:   10,
		ExitOvershoot: 100,
		ExitDuration:  250 * time.Millisecond,
	}
}

// Phase is the interaction phase of the top card.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseDragging  Phase = "dragging"
	PhaseExiting   Phase = "exiting"   // exit animation in flight
	PhaseExhausted Phase = "exhausted" // cursor == total
)

// State is the complete logical state of a deck.
//
// Invariant: 0 <= Cursor <= Total. Cursor never decreases.
type State struct {
	Cursor  int              `json:"cursor"`
	Total   int              `json:"total"`
	Phase   Phase            `json:"phase"`
	DX      float64          `json:"dx"`
	DY      float64          `json:"dy"`
	Pending models.Direction `json:"pending,omitempty"`
}

// NewState returns the initial state for a deck of total candidates.
func NewState(total int) State {
	s := State{Total: total, Phase: PhaseIdle}
	if total <= 0 {
		s.Total = 0
		s.Phase = PhaseExhausted
	}
	return s
}

// Exhausted reports whether every candidate has been decided.
func (s State) Exhausted() bool {
	return s.Cursor >= s.Total
}

// Event is an input to Reduce.
type Event interface {
	event()
}

// DragMove reports the current displacement of an active drag.
type DragMove struct {
	DX, DY float64
}

// DragRelease reports the displacement at the moment the finger lifts.
type DragRelease struct {
	DX, DY float64
}

// Press is an explicit like/skip button tap.
type Press struct {
	Direction models.Direction
}

// AnimationDone is delivered by the animator when an exit animation ends.
type AnimationDone struct{}

func (DragMove) event()      {}
func (DragRelease) event()   {}
func (Press) event()         {}
func (AnimationDone) event() {}

// EffectKind names an output of Reduce.
type EffectKind string

const (
	// EffectSnapBack springs the card back to the origin. Nothing is recorded.
	EffectSnapBack EffectKind = "snap_back"
	// EffectAnimateOut moves the card off-screen. A Commit follows on AnimationDone.
	EffectAnimateOut EffectKind = "animate_out"
	// EffectCommit emits the decision for the candidate at Index.
	EffectCommit EffectKind = "commit"
	// EffectExhausted switches the view to "no more candidates".
	EffectExhausted EffectKind = "exhausted"
)

// Effect is an instruction produced by Reduce for the caller to carry out.
type Effect struct {
	Kind      EffectKind       `json:"kind"`
	Direction models.Direction `json:"direction,omitempty"`
	Index     int              `json:"index"`
	ToX       float64          `json:"to_x"`
	ToY       float64          `json:"to_y"`
	Duration  time.Duration    `json:"duration,omitempty"`
}

// Classify maps a release displacement to a decision. ok is false when the
// drag stayed inside the threshold.
func Classify(cfg Config, dx float64) (dir models.Direction, ok bool) {
	switch {
	case dx >= cfg.Threshold:
		return models.DirectionLike, true
	case dx <= -cfg.Threshold:
		return models.DirectionSkip, true
	default:
		return "", false
	}
}

// Reduce computes the next state of a deck and the effects to perform.
// Events that do not apply to the current phase leave the state unchanged
// and produce no effects.
func Reduce(cfg Config, s State, ev Event) (State, []Effect) {
	if s.Exhausted() {
		s.Phase = PhaseExhausted
		return s, nil
	}

	switch e := ev.(type) {
	case DragMove:
		if s.Phase == PhaseExiting {
			return s, nil
		}
		s.Phase = PhaseDragging
		s.DX, s.DY = e.DX, e.DY
		return s, nil

	case DragRelease:
		if s.Phase == PhaseExiting {
			return s, nil
		}
		dir, ok := Classify(cfg, e.DX)
		if !ok {
			s.Phase = PhaseIdle
			s.DX, s.DY = 0, 0
			return s, []Effect{{Kind: EffectSnapBack, Index: s.Cursor}}
		}
		s.DX, s.DY = e.DX, e.DY
		return exit(cfg, s, dir)

	case Press:
		if s.Phase == PhaseExiting {
			return s, nil
		}
		if e.Direction != models.DirectionLike && e.Direction != models.DirectionSkip {
			return s, nil
		}
		return exit(cfg, s, e.Direction)

	case AnimationDone:
		if s.Phase != PhaseExiting {
			return s, nil
		}
		effects := []Effect{{Kind: EffectCommit, Direction: s.Pending, Index: s.Cursor}}
		s.Cursor++
		s.DX, s.DY = 0, 0
		s.Pending = ""
		s.Phase = PhaseIdle
		if s.Exhausted() {
			s.Phase = PhaseExhausted
			effects = append(effects, Effect{Kind: EffectExhausted, Index: s.Cursor})
		}
		return s, effects
	}

	return s, nil
}

func exit(cfg Config, s State, dir models.Direction) (State, []Effect) {
	toX := cfg.ScreenWidth + cfg.ExitOvershoot
	if dir == models.DirectionSkip {
		toX = -toX
	}
	s.Phase = PhaseExiting
	s.Pending = dir
	return s, []Effect{{
		Kind:      EffectAnimateOut,
		Direction: dir,
		Index:     s.Cursor,
		ToX:       toX,
		ToY:       0,
		Duration:  cfg.ExitDuration,
	}}
}
