package gains

import (
	"math"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
)

const (
	// Below this magnitude a gain is treated as zero: proportional rate
	// limiting would freeze it there forever.
	nearZero = 1e-6

	// Changes smaller than this are applied silently.
	noticeThreshold = 1e-3
)

// Filter rate-limits gain changes. The per-tick caps are fractions of the
// current value: a gain may move by at most maxChange of itself per tick, and
// when that cap would slow the approach below minChange of the remaining
// distance, the minChange fraction is applied instead so the gain keeps
// moving.
type Filter struct {
	maxChange float64
	minChange float64
	log       *telemetry.Logger
}

// NewFilter derives the per-tick caps from the configured per-second rates.
func NewFilter(percChangeRate, minChangeRate, filterRate float64, log *telemetry.Logger) Filter {
	return Filter{
		maxChange: percChangeRate / filterRate,
		minChange: minChangeRate / filterRate,
		log:       log,
	}
}

// Step returns the next value for a gain moving from current toward desired.
// With bypass set the desired value is returned unchanged; that is
// intentional for mute transitions, where a step change is wanted. The
// result always lies between current and desired and, while they differ,
// strictly progresses.
func (f Filter) Step(current, desired float64, bypass bool, name string) float64 {
	change := desired - current

	if !bypass {
		if math.Abs(current) < nearZero {
			change *= f.maxChange
		} else {
			saturated := change
			perc := change / current
			if perc > f.maxChange {
				saturated = current * f.maxChange
			} else if perc < -f.maxChange {
				saturated = -current * f.maxChange
			}

			if math.Abs(saturated) < math.Abs(change)*f.minChange {
				change *= f.minChange
			} else {
				change = saturated
			}
		}
	}

	if math.Abs(change) > noticeThreshold {
		f.log.InfoEvery(time.Second, "gain_"+name,
			"changing gain %q from %f to %f", name, current, current+change)
	}

	return current + change
}
