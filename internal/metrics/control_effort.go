package metrics

import (
	"math"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// ControlEffort accumulates the mean commanded tilt magnitude plus thrust.
// Yaw is excluded: pointing the nose is free compared to tilting the rotor
// disc.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x sim.State, u sim.Control, ref *uav.Reference, t float64) {
	c.sum += math.Abs(u[0]) + math.Abs(u[1]) + math.Abs(u[3])
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
