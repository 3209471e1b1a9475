package metrics

import (
	"math"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// Settling reports the last time the position error exceeded the tolerance,
// which is the settling time when the run converged.
type Settling struct {
	name          string
	tolerance     float64
	lastViolation float64
}

func NewSettling(tolerance float64) *Settling {
	return &Settling{
		name:      "settling_time",
		tolerance: tolerance,
	}
}

func (s *Settling) Name() string {
	return s.name
}

func (s *Settling) Observe(x sim.State, u sim.Control, ref *uav.Reference, t float64) {
	dx := ref.Position.X - x[0]
	dy := ref.Position.Y - x[1]
	dz := ref.Position.Z - x[2]
	if math.Sqrt(dx*dx+dy*dy+dz*dz) > s.tolerance {
		s.lastViolation = t
	}
}

func (s *Settling) Value() float64 {
	return s.lastViolation
}

func (s *Settling) Reset() {
	s.lastViolation = 0
}
