// Package viz renders a live closed-loop flight in the terminal.
//
// The view steps the vehicle and controller in real time, draws a side or
// top projection of the flight with the tracked reference, and charts the
// altitude and tracking error. Plant parameters (wind, drag, mass) can be
// tuned from the keyboard mid-flight, and controllers that expose a gain
// set can have their lateral gains bumped or muted to watch the gain
// filter pull the active set over.
package viz
