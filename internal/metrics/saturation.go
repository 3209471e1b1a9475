package metrics

import (
	"math"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

const saturationMargin = 1e-9

// Saturation reports the fraction of samples with the command pinned at a
// limit, tilt or thrust. A well-tuned loop should spend almost no time
// there.
type Saturation struct {
	name      string
	maxTilt   float64
	thrustSat float64
	saturated int
	samples   int
}

func NewSaturation(maxTilt, thrustSat float64) *Saturation {
	return &Saturation{
		name:      "saturation",
		maxTilt:   maxTilt,
		thrustSat: thrustSat,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(x sim.State, u sim.Control, ref *uav.Reference, t float64) {
	s.samples++
	switch {
	case math.Abs(u[0]) >= s.maxTilt-saturationMargin:
		s.saturated++
	case math.Abs(u[1]) >= s.maxTilt-saturationMargin:
		s.saturated++
	case u[3] >= s.thrustSat-saturationMargin:
		s.saturated++
	case u[3] <= saturationMargin:
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
