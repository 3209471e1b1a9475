package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// Trajectory produces the reference the controller is asked to track.
type Trajectory interface {
	Name() string
	Reference(t float64) *uav.Reference
}

// Hover holds a fixed setpoint.
type Hover struct {
	Position uav.Vec3
	Yaw      float64
}

func (h *Hover) Name() string { return "hover" }

func (h *Hover) Reference(t float64) *uav.Reference {
	return &uav.Reference{Position: h.Position, Yaw: h.Yaw}
}

// Step jumps the setpoint from From to To at time At.
type Step struct {
	From uav.Vec3
	To   uav.Vec3
	At   float64
	Yaw  float64
}

func (s *Step) Name() string { return "step" }

func (s *Step) Reference(t float64) *uav.Reference {
	pos := s.From
	if t >= s.At {
		pos = s.To
	}
	return &uav.Reference{Position: pos, Yaw: s.Yaw}
}

// Circle orbits the center at constant angular rate, with velocity and
// acceleration feed-forward consistent with the position.
type Circle struct {
	Center uav.Vec3
	Radius float64
	Omega  float64
	Yaw    float64

	// TangentYaw points the nose along the velocity instead of Yaw.
	TangentYaw bool
}

func (c *Circle) Name() string { return "circle" }

func (c *Circle) Reference(t float64) *uav.Reference {
	sin, cos := math.Sincos(c.Omega * t)
	r, w := c.Radius, c.Omega

	ref := &uav.Reference{
		Position: uav.Vec3{
			X: c.Center.X + r*cos,
			Y: c.Center.Y + r*sin,
			Z: c.Center.Z,
		},
		Velocity: uav.Vec3{
			X: -r * w * sin,
			Y: r * w * cos,
		},
		Acceleration: uav.Vec3{
			X: -r * w * w * cos,
			Y: -r * w * w * sin,
		},
	}
	ref.Yaw = c.Yaw
	if c.TangentYaw {
		ref.Yaw = math.Atan2(ref.Velocity.Y, ref.Velocity.X)
	}
	return ref
}

// GetTrajectory returns a stock trajectory by name.
func GetTrajectory(name string) (Trajectory, error) {
	switch name {
	case "hover":
		return &Hover{Position: uav.Vec3{Z: 1.0}}, nil
	case "step":
		return &Step{
			From: uav.Vec3{Z: 1.0},
			To:   uav.Vec3{X: 1.0, Y: 1.0, Z: 1.5},
			At:   1.0,
		}, nil
	case "circle":
		return &Circle{
			Center:     uav.Vec3{Z: 1.0},
			Radius:     1.0,
			Omega:      0.5,
			TangentYaw: true,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrajectory, name)
	}
}

// ListTrajectories returns the stock trajectory names, sorted.
func ListTrajectories() []string {
	names := []string{"hover", "step", "circle"}
	sort.Strings(names)
	return names
}
