// Package metrics provides closed-loop quality measures for simulation runs.
//
// All metrics assume the vehicle contract: the first three state components
// are the world position and the control vector is (roll, pitch, yaw,
// thrust).
package metrics

import (
	"math"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// TrackingError accumulates the RMS position error against the reference.
type TrackingError struct {
	name    string
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{
		name: "tracking_error_rms",
	}
}

func (m *TrackingError) Name() string {
	return m.name
}

func (m *TrackingError) Observe(x sim.State, u sim.Control, ref *uav.Reference, t float64) {
	dx := ref.Position.X - x[0]
	dy := ref.Position.Y - x[1]
	dz := ref.Position.Z - x[2]
	m.sumSq += dx*dx + dy*dy + dz*dz
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}
