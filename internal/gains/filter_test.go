package gains

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
)

func testFilter() Filter {
	// 0.2/s percent rate, 0.005/s minimum rate, 40 Hz tick.
	return NewFilter(0.2, 0.005, 40, telemetry.Nop())
}

func TestStepBypassReturnsDesired(t *testing.T) {
	g := NewWithT(t)
	f := testFilter()

	g.Expect(f.Step(10, 2.5, true, "kpxy")).To(Equal(2.5))
	g.Expect(f.Step(0, -3, true, "kpxy")).To(Equal(-3.0))
}

func TestStepStaysBetweenCurrentAndDesired(t *testing.T) {
	g := NewWithT(t)
	f := testFilter()

	pairs := []struct{ current, desired float64 }{
		{10, 20},
		{20, 10},
		{10, 10.001},
		{0.5, 8},
		{-2, 3},
		{-2, -8},
		{0, 5},
		{1e-9, 4},
		{5, 0},
		{3, 3},
	}

	for _, p := range pairs {
		got := f.Step(p.current, p.desired, false, "k")
		lo := math.Min(p.current, p.desired)
		hi := math.Max(p.current, p.desired)
		g.Expect(got).To(And(
			BeNumerically(">=", lo),
			BeNumerically("<=", hi),
		), "step from %v toward %v landed at %v", p.current, p.desired, got)

		if p.current != p.desired {
			g.Expect(math.Abs(p.desired-got)).To(
				BeNumerically("<", math.Abs(p.desired-p.current)),
				"step from %v toward %v made no progress", p.current, p.desired)
		} else {
			g.Expect(got).To(Equal(p.current))
		}
	}
}

func TestStepConvergesInFiniteTicks(t *testing.T) {
	g := NewWithT(t)
	f := testFilter()

	pairs := []struct{ current, desired float64 }{
		{10, 20},
		{20, 10},
		{0, 5},
		{-1, 1},
		{0.001, 12},
	}

	for _, p := range pairs {
		v := p.current
		ticks := 0
		for v != p.desired && ticks < 20000 {
			v = f.Step(v, p.desired, false, "k")
			ticks++
		}
		g.Expect(v).To(Equal(p.desired),
			"did not reach desired from %v within %d ticks (stuck at %v)", p.current, ticks, v)
	}
}

func TestStepNearZeroCurrentUsesAbsoluteFraction(t *testing.T) {
	g := NewWithT(t)
	f := testFilter()

	// With current essentially zero, the proportional cap would pin the gain
	// at zero; instead the change scales by the max fraction directly.
	got := f.Step(0, 10, false, "k")
	g.Expect(got).To(BeNumerically("~", 10*0.2/40, 1e-12))
}

func TestStepMinChangeKeepsCrawling(t *testing.T) {
	g := NewWithT(t)
	f := testFilter()

	// A tiny current value makes the proportional cap minuscule relative to
	// the distance; the minimum fraction takes over.
	current, desired := 0.01, 100.0
	saturated := current * (0.2 / 40)
	minimum := (desired - current) * (0.005 / 40)
	g.Expect(saturated).To(BeNumerically("<", minimum))

	got := f.Step(current, desired, false, "k")
	g.Expect(got).To(BeNumerically("~", current+minimum, 1e-12))
}
