package analysis

import "math"

// StepMetrics characterizes how a signal approaches a step target.
type StepMetrics struct {
	RiseTime     float64 // 10% to 90% of the commanded change
	Overshoot    float64 // peak beyond the target, as a fraction of the change
	SettlingTime float64 // time of the last departure from the 2% band
	FinalError   float64 // target minus the final sample
}

const settlingBand = 0.02

// StepResponse measures the classic step metrics of signal against target.
// The commanded change is measured from the first sample; a signal that
// never reaches the thresholds reports a zero rise time.
func StepResponse(times, signal []float64, target float64) StepMetrics {
	var m StepMetrics
	if len(times) == 0 || len(times) != len(signal) {
		return m
	}

	start := signal[0]
	change := target - start
	if change == 0 {
		return m
	}

	t10, t90 := -1.0, -1.0
	peak := 0.0
	lastViolation := times[0]

	for i, v := range signal {
		progress := (v - start) / change
		if t10 < 0 && progress >= 0.1 {
			t10 = times[i]
		}
		if t90 < 0 && progress >= 0.9 {
			t90 = times[i]
		}
		if over := progress - 1.0; over > peak {
			peak = over
		}
		if math.Abs(v-target) > settlingBand*math.Abs(change) {
			lastViolation = times[i]
		}
	}

	if t10 >= 0 && t90 >= t10 {
		m.RiseTime = t90 - t10
	}
	m.Overshoot = peak
	m.SettlingTime = lastViolation - times[0]
	m.FinalError = target - signal[len(signal)-1]
	return m
}
