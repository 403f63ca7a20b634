package gesture

import (
	"sync"
	"time"
)

// Recorder is a Synthesizer that injects nothing. It keeps the strokes it was
// given and completes each one after the stroke's own duration, which is what
// the headless backend runs on.
type Recorder struct {
	Level int

	mu      sync.Mutex
	strokes []Stroke
}

func NewRecorder(level int) *Recorder {
	return &Recorder{Level: level}
}

func (r *Recorder) APILevel() int {
	return r.Level
}

func (r *Recorder) Dispatch(stroke Stroke, done func(Outcome)) bool {
	r.mu.Lock()
	r.strokes = append(r.strokes, stroke)
	r.mu.Unlock()

	time.AfterFunc(stroke.Duration, func() { done(Completed) })
	return true
}

// Strokes returns a copy of every stroke dispatched so far.
func (r *Recorder) Strokes() []Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stroke, len(r.strokes))
	copy(out, r.strokes)
	return out
}
