package gesture

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// Outcome is the terminal state of a dispatched gesture.
type Outcome int

const (
	Completed Outcome = iota
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Synthesizer is the platform primitive that injects strokes.
type Synthesizer interface {
	// APILevel reports the platform capability level.
	APILevel() int
	// Dispatch submits a stroke. It returns false when the platform refuses it
	// outright. Otherwise done is called with the outcome, from any goroutine.
	Dispatch(stroke Stroke, done func(Outcome)) bool
}

// Result is delivered exactly once for every dispatch.
type Result struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Stroke  Stroke  `json:"stroke"`
}

type Options struct {
	MinAPILevel       int
	TapDuration       time.Duration
	MinStrokeDuration time.Duration
}

type Dispatcher struct {
	synth Synthesizer
	opts  Options
}

func NewDispatcher(synth Synthesizer, opts Options) *Dispatcher {
	if opts.MinAPILevel == 0 {
		opts.MinAPILevel = DefaultMinAPILevel
	}
	if opts.MinStrokeDuration < MinStrokeDuration {
		opts.MinStrokeDuration = MinStrokeDuration
	}
	if opts.TapDuration < opts.MinStrokeDuration {
		opts.TapDuration = opts.MinStrokeDuration
	}
	return &Dispatcher{synth: synth, opts: opts}
}

// Supported reports whether the platform can synthesize gestures at all.
func (d *Dispatcher) Supported() bool {
	return d.synth != nil && d.synth.APILevel() >= d.opts.MinAPILevel
}

// Tap dispatches a tap at p.
func (d *Dispatcher) Tap(p types.Point) <-chan Result {
	return d.Dispatch(d.TapStroke(p))
}

// Swipe dispatches a straight swipe. Durations below the stroke floor are raised to it.
func (d *Dispatcher) Swipe(from, to types.Point, duration time.Duration) <-chan Result {
	return d.Dispatch(d.SwipeStroke(from, to, duration))
}

// TapStroke builds the stroke Tap would dispatch.
func (d *Dispatcher) TapStroke(p types.Point) Stroke {
	return TapStroke(p, d.opts.TapDuration, d.opts.MinStrokeDuration)
}

// SwipeStroke builds the stroke Swipe would dispatch.
func (d *Dispatcher) SwipeStroke(from, to types.Point, duration time.Duration) Stroke {
	return SwipeStroke(from, to, duration, d.opts.MinStrokeDuration)
}

// Dispatch hands a stroke to the platform. The returned channel yields exactly
// one Result: a rejected or unsupported stroke still yields one, so callers
// can always wait on it.
func (d *Dispatcher) Dispatch(stroke Stroke) <-chan Result {
	g := &inFlight{
		result: Result{ID: uuid.NewString(), Stroke: stroke},
		ch:     make(chan Result, 1),
	}

	if !d.Supported() {
		utils.Verbose("gesture %s: synthesis unsupported, skipping %s", g.result.ID, stroke)
		g.finish(Completed)
		return g.ch
	}

	utils.Verbose("gesture %s: dispatching %s", g.result.ID, stroke)
	if !d.submit(g) {
		utils.Warn("gesture %s: rejected by platform", g.result.ID)
		g.finish(Cancelled)
	}
	return g.ch
}

func (d *Dispatcher) submit(g *inFlight) (accepted bool) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("gesture %s: dispatch panicked: %v", g.result.ID, r)
			accepted = false
		}
	}()

	return d.synth.Dispatch(g.result.Stroke, func(o Outcome) {
		if o == Cancelled {
			utils.Warn("gesture %s: cancelled %s", g.result.ID, g.result.Stroke)
		} else {
			utils.Verbose("gesture %s: completed", g.result.ID)
		}
		g.finish(o)
	})
}

type inFlight struct {
	once   sync.Once
	result Result
	ch     chan Result
}

func (g *inFlight) finish(o Outcome) {
	g.once.Do(func() {
		r := g.result
		r.Outcome = o
		g.ch <- r
		close(g.ch)
	})
}
