// Package gesture synthesizes single-stroke taps and swipes at physical pixel
// coordinates and reports exactly one terminal result per dispatch.
package gesture

import (
	"fmt"
	"time"

	"github.com/mobile-next/omniclick/types"
)

const (
	// MinStrokeDuration is the shortest stroke handed to the platform. Shorter
	// strokes tend to be discarded as noise.
	MinStrokeDuration = 100 * time.Millisecond

	// DefaultMinAPILevel is the first platform level with gesture synthesis.
	DefaultMinAPILevel = 24
)

// Stroke is one continuous touch path from From to To held for Duration.
// A tap is a stroke with From == To.
type Stroke struct {
	From     types.Point   `json:"from"`
	To       types.Point   `json:"to"`
	Duration time.Duration `json:"duration"`
}

func (s Stroke) IsTap() bool {
	return s.From == s.To
}

func (s Stroke) String() string {
	if s.IsTap() {
		return fmt.Sprintf("tap(%.1f,%.1f %s)", s.From.X, s.From.Y, s.Duration)
	}
	return fmt.Sprintf("swipe(%.1f,%.1f->%.1f,%.1f %s)", s.From.X, s.From.Y, s.To.X, s.To.Y, s.Duration)
}

// TapStroke builds a zero-length stroke at p held for at least floor.
func TapStroke(p types.Point, hold, floor time.Duration) Stroke {
	return Stroke{From: p, To: p, Duration: atLeast(hold, floor)}
}

// SwipeStroke builds a straight stroke from one point to another.
func SwipeStroke(from, to types.Point, duration, floor time.Duration) Stroke {
	return Stroke{From: from, To: to, Duration: atLeast(duration, floor)}
}

func atLeast(d, floor time.Duration) time.Duration {
	if floor < MinStrokeDuration {
		floor = MinStrokeDuration
	}
	if d < floor {
		return floor
	}
	return d
}
