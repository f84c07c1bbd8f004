package surface

import (
	"log/slog"
	"math"
	"sync/atomic"
)

// DefaultOpacityThreshold is the alpha above which a texel is part of the
// clickable mascot.
const DefaultOpacityThreshold uint8 = 10

// Reason explains how a Decision was reached.
type Reason int

const (
	// ReasonSampled means a texel was read and compared to the threshold.
	ReasonSampled Reason = iota
	// ReasonOutside means the point fell outside the displayed surface.
	ReasonOutside
	// ReasonNotReady means no readable surface existed yet.
	ReasonNotReady
	// ReasonReadFailed means every reader failed.
	ReasonReadFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonSampled:
		return "sampled"
	case ReasonOutside:
		return "outside"
	case ReasonNotReady:
		return "not-ready"
	case ReasonReadFailed:
		return "read-failed"
	default:
		return "unknown"
	}
}

// Decision is the opacity verdict for one point at one instant.
type Decision struct {
	Opaque bool
	Reason Reason
	// Alpha is the sampled alpha; only meaningful for ReasonSampled.
	Alpha uint8
}

// Sampler classifies single texels against an opacity threshold.
type Sampler struct {
	threshold atomic.Uint32
	logger    *slog.Logger
}

// NewSampler creates a sampler with the given threshold. A nil logger
// disables read-failure logging.
func NewSampler(threshold uint8, logger *slog.Logger) *Sampler {
	s := &Sampler{logger: logger}
	s.threshold.Store(uint32(threshold))
	return s
}

// Threshold returns the current opacity threshold.
func (s *Sampler) Threshold() uint8 {
	return uint8(s.threshold.Load())
}

// SetThreshold replaces the opacity threshold. Safe to call while sampling.
func (s *Sampler) SetThreshold(threshold uint8) {
	s.threshold.Store(uint32(threshold))
}

// Sample reports whether p is over a visible pixel of sf.
//
// A missing surface or a total read failure is reported opaque so the mascot
// stays clickable; a point outside the displayed rectangle is transparent
// without touching any reader.
func (s *Sampler) Sample(sf *Surface, p Point) Decision {
	if sf == nil {
		return Decision{Opaque: true, Reason: ReasonNotReady}
	}
	if !sf.Display.Contains(p) {
		return Decision{Opaque: false, Reason: ReasonOutside}
	}
	if sf.Display.Empty() {
		return Decision{Opaque: true, Reason: ReasonNotReady}
	}

	readers := sf.Readers()
	if len(readers) == 0 {
		return Decision{Opaque: true, Reason: ReasonNotReady}
	}

	threshold := s.Threshold()
	for i, r := range readers {
		w, h := r.Size()
		if w <= 0 || h <= 0 {
			s.logReadFailure(i, ErrReadUnsupported)
			continue
		}

		tx, ty, ok := MapPoint(sf.Display, w, h, p)
		if !ok {
			return Decision{Opaque: false, Reason: ReasonOutside}
		}

		alpha, err := r.AlphaAt(tx, Row(r.Origin(), h, ty))
		if err != nil {
			s.logReadFailure(i, err)
			continue
		}
		return Decision{Opaque: alpha > threshold, Reason: ReasonSampled, Alpha: alpha}
	}

	return Decision{Opaque: true, Reason: ReasonReadFailed}
}

func (s *Sampler) logReadFailure(reader int, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Debug("pixel read failed", "reader", reader, "error", err)
}

// MapPoint converts p into top-left texel coordinates of a width x height
// backing store shown at display. ok is false when the texel falls outside
// the backing store.
func MapPoint(display Rect, width, height int, p Point) (tx, ty int, ok bool) {
	if display.Empty() || width <= 0 || height <= 0 {
		return 0, 0, false
	}

	scaleX := float64(width) / display.Width
	scaleY := float64(height) / display.Height

	tx = int(math.Floor((p.X - display.X) * scaleX))
	ty = int(math.Floor((p.Y - display.Y) * scaleY))
	if tx < 0 || tx >= width || ty < 0 || ty >= height {
		return tx, ty, false
	}
	return tx, ty, true
}

// Row converts a top-left row index into the native row of a store with the
// given origin.
func Row(origin Origin, height, ty int) int {
	if origin == OriginBottomLeft {
		return height - ty - 1
	}
	return ty
}
