// Package gains holds the control gain sets and the machinery that moves the
// active set toward the desired one.
//
// Two full gain sets exist at any time: the desired set, written
// asynchronously by whoever retunes the controller, and the active set, which
// the control law reads. A fixed-rate filter tick advances active toward
// desired with rate limiting on the lateral gains; vertical and
// mass-estimator gains apply immediately. While the lateral gains are muted
// the lateral targets are scaled down by the mute coefficient and the rate
// limit is bypassed, in both directions of the transition.
//
// Lock order across the controllers is desired gains, then active gains,
// then estimator state. Methods here never hold both locks at once.
package gains

import "sync"

// Values is one complete gain set for the state feedback law.
type Values struct {
	Kpxy float64
	Kvxy float64
	Kaxy float64

	Kiwxy    float64
	Kibxy    float64
	KiwxyLim float64
	KibxyLim float64

	Kpz float64
	Kvz float64
	Kaz float64

	Km    float64
	KmLim float64
}

// Set pairs the desired and active gain sets with the lateral mute state.
type Set struct {
	filter    Filter
	muteCoeff float64

	desMu             sync.Mutex
	desired           Values
	muteLateral       bool
	bypassAfterToggle bool

	activeMu sync.Mutex
	active   Values
}

// NewSet starts with active equal to desired equal to the initial values.
func NewSet(initial Values, filter Filter, muteCoeff float64) *Set {
	return &Set{
		filter:    filter,
		muteCoeff: muteCoeff,
		desired:   initial,
		active:    initial,
	}
}

// SetDesired replaces the desired gain set. The active set catches up over
// the following filter ticks.
func (s *Set) SetDesired(v Values) {
	s.desMu.Lock()
	defer s.desMu.Unlock()
	s.desired = v
}

func (s *Set) Desired() Values {
	s.desMu.Lock()
	defer s.desMu.Unlock()
	return s.desired
}

func (s *Set) Active() Values {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.active
}

// SetLateralMute records the mute request for the current control cycle. A
// falling edge arms a one-shot filter bypass so the gains step straight back
// to their unmuted values.
func (s *Set) SetLateralMute(mute bool) {
	s.desMu.Lock()
	defer s.desMu.Unlock()
	if s.muteLateral && !mute {
		s.bypassAfterToggle = true
	}
	s.muteLateral = mute
}

// FilterTick advances the active set one step toward the desired set.
func (s *Set) FilterTick() {
	s.desMu.Lock()
	des := s.desired
	bypass := s.muteLateral || s.bypassAfterToggle
	s.bypassAfterToggle = false
	coeff := 1.0
	if s.muteLateral {
		coeff = s.muteCoeff
	}
	s.desMu.Unlock()

	s.activeMu.Lock()
	defer s.activeMu.Unlock()

	f := s.filter
	s.active.Kpxy = f.Step(s.active.Kpxy, des.Kpxy*coeff, bypass, "kpxy")
	s.active.Kvxy = f.Step(s.active.Kvxy, des.Kvxy*coeff, bypass, "kvxy")
	s.active.Kaxy = f.Step(s.active.Kaxy, des.Kaxy*coeff, bypass, "kaxy")
	s.active.Kiwxy = f.Step(s.active.Kiwxy, des.Kiwxy*coeff, bypass, "kiwxy")
	s.active.Kibxy = f.Step(s.active.Kibxy, des.Kibxy*coeff, bypass, "kibxy")

	// Vertical and mass gains take effect immediately; only the lateral
	// gains are dangerous to step while tracking.
	s.active.Kpz = f.Step(s.active.Kpz, des.Kpz, true, "kpz")
	s.active.Kvz = f.Step(s.active.Kvz, des.Kvz, true, "kvz")
	s.active.Kaz = f.Step(s.active.Kaz, des.Kaz, true, "kaz")
	s.active.Km = f.Step(s.active.Km, des.Km, true, "km")
	s.active.KmLim = f.Step(s.active.KmLim, des.KmLim, true, "km_lim")

	s.active.KiwxyLim = f.Step(s.active.KiwxyLim, des.KiwxyLim, false, "kiwxy_lim")
	s.active.KibxyLim = f.Step(s.active.KibxyLim, des.KibxyLim, false, "kibxy_lim")
}
