// Package analysis post-processes recorded flight runs.
//
// The package characterizes closed-loop behavior from stored time series:
//
//   - [PowerSpectrum]: one-sided spectrum of a signal, for spotting
//     residual oscillation and its frequency
//   - [StepResponse]: rise time, overshoot and settling time against a
//     step reference
//
// # Oscillation hunting
//
// A lightly damped position loop shows up as a sharp peak:
//
//	sp := analysis.PowerSpectrum(data.Column("x0"), 1/meta.Dt)
//	freq, power := sp.Dominant()
package analysis
