package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/zejdajan/mrs-uav-controllers/internal/gains"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

const (
	frameRate       = 60
	historyCapacity = 600
	trailCapacity   = 400
	maxStepsPerTick = 10

	canvasW = 72
	canvasH = 22
)

type TickMsg time.Time

// gainTunable is the optional controller surface for live gain bumping.
type gainTunable interface {
	Gains() gains.Values
	DesiredGains() gains.Values
	SetDesiredGains(gains.Values)
}

// wallClock is shared by pointer so controller clock closures survive the
// copies bubbletea makes of the model.
type wallClock struct {
	now time.Time
}

// Model steps a closed control loop in real time and renders it.
type Model struct {
	vehicle    sim.Vehicle
	integrator sim.Integrator
	controller uav.Controller
	trajectory sim.Trajectory

	x     sim.State
	x0    sim.State
	u     sim.Control
	st    *uav.State
	t     float64
	dt    float64
	accum float64
	epoch time.Time
	clock *wallClock

	filterPeriod float64
	nextFilter   float64

	lastCmd *uav.AttitudeCommand

	running  bool
	muted    bool
	topView  bool
	showHelp bool

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int

	altitude []float64
	trackErr []float64
	trail    []uav.Vec3
}

// NewModel wires the loop. The filter rate may be zero for controllers
// without a gain filter.
func NewModel(vehicle sim.Vehicle, integrator sim.Integrator, controller uav.Controller, trajectory sim.Trajectory, x0 sim.State, dt, filterRate float64) Model {
	params := make(map[string]float64)
	initialParams := make(map[string]float64)
	if c, ok := vehicle.(sim.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
			initialParams[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	epoch := time.Now()
	clock := &wallClock{now: epoch}
	if ca, ok := controller.(sim.ClockAware); ok {
		ca.SetClock(func() time.Time { return clock.now })
	}

	filterPeriod := 0.0
	if filterRate > 0 {
		filterPeriod = 1.0 / filterRate
	}

	return Model{
		vehicle:       vehicle,
		integrator:    integrator,
		controller:    controller,
		trajectory:    trajectory,
		x:             x0.Clone(),
		x0:            x0.Clone(),
		u:             make(sim.Control, vehicle.ControlDim()),
		st:            vehicle.UAVState(x0, epoch),
		dt:            dt,
		epoch:         epoch,
		clock:         clock,
		filterPeriod:  filterPeriod,
		nextFilter:    filterPeriod,
		running:       true,
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
		altitude:      make([]float64, 0, historyCapacity),
		trackErr:      make([]float64, 0, historyCapacity),
		trail:         make([]uav.Vec3, 0, trailCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "v":
			m.topView = !m.topView
		case "m":
			m.muted = !m.muted
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "[":
			m.bumpLateralGain(0.8)
		case "]":
			m.bumpLateralGain(1.25)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.accum += 1.0 / frameRate
			for steps := 0; m.accum >= m.dt && steps < maxStepsPerTick; steps++ {
				m.step()
				m.accum -= m.dt
			}
		}
		return m, tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	ref := m.trajectory.Reference(m.t)
	ref.DisablePositionGains = m.muted

	m.clock.now = m.epoch.Add(time.Duration(m.t * float64(time.Second)))
	st := m.vehicle.UAVState(m.x, m.clock.now)
	if cmd := m.controller.Update(st, ref); cmd != nil {
		m.lastCmd = cmd
		m.u = m.vehicle.ControlVector(cmd)
	}

	m.x = m.integrator.Step(m.vehicle, m.x, m.u, m.t, m.dt)
	m.t += m.dt
	m.st = m.vehicle.UAVState(m.x, m.clock.now)

	if m.filterPeriod > 0 {
		if ticker, ok := m.controller.(sim.GainFilterTicker); ok {
			for m.nextFilter <= m.t {
				ticker.GainFilterTick()
				m.nextFilter += m.filterPeriod
			}
		}
	}

	pos := m.st.Position
	dx := ref.Position.X - pos.X
	dy := ref.Position.Y - pos.Y
	dz := ref.Position.Z - pos.Z

	m.altitude = append(m.altitude, pos.Z)
	m.trackErr = append(m.trackErr, math.Sqrt(dx*dx+dy*dy+dz*dz))
	if len(m.altitude) > historyCapacity {
		m.altitude = m.altitude[1:]
		m.trackErr = m.trackErr[1:]
	}

	m.trail = append(m.trail, pos)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

func (m *Model) reset() {
	m.x = m.x0.Clone()
	m.u = make(sim.Control, m.vehicle.ControlDim())
	m.t = 0
	m.accum = 0
	m.nextFilter = m.filterPeriod
	m.lastCmd = nil
	m.st = m.vehicle.UAVState(m.x, m.epoch)
	m.altitude = m.altitude[:0]
	m.trackErr = m.trackErr[:0]
	m.trail = m.trail[:0]
	m.controller.ResetDisturbanceEstimators()

	if c, ok := m.vehicle.(sim.Configurable); ok {
		for k, v := range m.initialParams {
			m.params[k] = v
			c.SetParam(k, v)
		}
	}
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	// Parameters that start at zero (wind) step additively instead.
	if m.initialParams[key] == 0 && m.params[key] == 0 {
		if factor > 1 {
			val = 0.5
		} else {
			val = -0.5
		}
	}
	c, ok := m.vehicle.(sim.Configurable)
	if !ok {
		return
	}
	if err := c.SetParam(key, val); err == nil {
		m.params[key] = val
	}
}

func (m *Model) bumpLateralGain(factor float64) {
	gt, ok := m.controller.(gainTunable)
	if !ok {
		return
	}
	des := gt.DesiredGains()
	des.Kpxy *= factor
	des.Kvxy *= factor
	gt.SetDesiredGains(des)
}

// View renders the whole screen.
func (m Model) View() string {
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.muted {
		status += "  " + alertStyle.Render("LATERAL GAINS MUTED")
	}

	ref := m.trajectory.Reference(m.t)
	canvasView := canvasStyle.Render(m.drawCanvas(ref))
	statsView := statsStyle.Render(m.renderStats(ref, status))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.controllerName()+" / "+m.trajectory.Name())) + "\n")
	b.WriteString(mainView)
	b.WriteString("\n")
	b.WriteString(m.renderCharts())
	b.WriteString(helpStyle.Render("SP:pause  R:reset  V:view  M:mute  [ ]:gain bump  TAB ↑↓:plant  ?:help  Q:quit"))

	if m.showHelp {
		return helpOverlay + "\n" + b.String()
	}
	return b.String()
}

const helpOverlay = `
  ┌────────────────────────────────────────────┐
  │  Space   pause / resume                    │
  │  R       reset flight and plant            │
  │  V       toggle side / top view            │
  │  M       mute lateral gains                │
  │  [  ]    bump desired lateral gains        │
  │  Tab     select plant parameter            │
  │  ↑/K ↓/J adjust selected parameter         │
  │  ?       toggle this help                  │
  │  Q       quit                              │
  └────────────────────────────────────────────┘`

func (m Model) controllerName() string {
	if m.lastCmd != nil && m.lastCmd.Controller != "" {
		return m.lastCmd.Controller
	}
	return "controller"
}

func (m Model) renderStats(ref *uav.Reference, status string) string {
	var s strings.Builder
	s.WriteString(status + "\n\n")

	pos := m.st.Position
	vel := m.st.Velocity
	roll, pitch, yaw := m.st.Orientation.RPY()

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2f s", m.t)) + "\n")
	s.WriteString(labelStyle.Render("Position") + valueStyle.Render(fmt.Sprintf("%+.2f %+.2f %+.2f", pos.X, pos.Y, pos.Z)) + "\n")
	s.WriteString(labelStyle.Render("Reference") + valueStyle.Render(fmt.Sprintf("%+.2f %+.2f %+.2f", ref.Position.X, ref.Position.Y, ref.Position.Z)) + "\n")
	s.WriteString(labelStyle.Render("Velocity") + valueStyle.Render(fmt.Sprintf("%+.2f %+.2f %+.2f", vel.X, vel.Y, vel.Z)) + "\n")
	s.WriteString(labelStyle.Render("Attitude") + valueStyle.Render(fmt.Sprintf("r%+.1f° p%+.1f° y%+.1f°",
		roll*180/math.Pi, pitch*180/math.Pi, yaw*180/math.Pi)) + "\n")

	if cmd := m.lastCmd; cmd != nil {
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Thrust") + valueStyle.Render(thrustBar(cmd.Thrust)) + "\n")
		s.WriteString(labelStyle.Render("Cmd tilt") + valueStyle.Render(fmt.Sprintf("r%+.1f° p%+.1f°",
			cmd.Roll*180/math.Pi, cmd.Pitch*180/math.Pi)) + "\n")
		s.WriteString(labelStyle.Render("Est. mass") + valueStyle.Render(fmt.Sprintf("%.3f kg (%+.3f)",
			cmd.TotalMass, cmd.MassDifference)) + "\n")
		s.WriteString(labelStyle.Render("Dist. force") + valueStyle.Render(fmt.Sprintf("b[%+.2f %+.2f] w[%+.2f %+.2f] N",
			cmd.Disturbance.BodyForce.X, cmd.Disturbance.BodyForce.Y,
			cmd.Disturbance.WorldForce.X, cmd.Disturbance.WorldForce.Y)) + "\n")
	}

	if gt, ok := m.controller.(gainTunable); ok {
		active, desired := gt.Gains(), gt.DesiredGains()
		s.WriteString("\n")
		line := fmt.Sprintf("kpxy %.2f → %.2f   kvxy %.2f → %.2f",
			active.Kpxy, desired.Kpxy, active.Kvxy, desired.Kvxy)
		if math.Abs(active.Kpxy-desired.Kpxy) > 1e-6 {
			s.WriteString(activeStyle.Render(line) + "\n")
		} else {
			s.WriteString(valueStyle.Render(line) + "\n")
		}
	}

	if len(m.paramKeys) > 0 {
		s.WriteString("\nPLANT\n")
		for i, k := range m.paramKeys {
			line := fmt.Sprintf("%-13s %+.3f", k, m.params[k])
			if i == m.selected {
				s.WriteString(activeStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	}

	return s.String()
}

func thrustBar(thrust float64) string {
	const width = 16
	filled := int(math.Round(thrust * width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %.3f", strings.Repeat("█", filled), strings.Repeat("░", width-filled), thrust)
}

func (m Model) renderCharts() string {
	if len(m.altitude) < 2 {
		return "\n"
	}
	alt := asciigraph.Plot(m.altitude,
		asciigraph.Height(5), asciigraph.Width(48), asciigraph.Caption("altitude [m]"))
	track := asciigraph.Plot(m.trackErr,
		asciigraph.Height(5), asciigraph.Width(48), asciigraph.Caption("tracking error [m]"))
	return graphStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, alt, "   ", track)) + "\n"
}

// drawCanvas renders the flight projection into a rune grid.
func (m Model) drawCanvas(ref *uav.Reference) string {
	grid := make([][]rune, canvasH)
	for i := range grid {
		grid[i] = make([]rune, canvasW)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	if m.topView {
		m.drawTop(grid, ref)
	} else {
		m.drawSide(grid, ref)
	}

	rows := make([]string, len(grid))
	for i, row := range grid {
		rows[i] = string(row)
	}
	return strings.Join(rows, "\n")
}

// Side view: x in [-4,4] m, z in [-0.5,3.5] m.
func sideProject(x, z float64) (int, int) {
	col := int((x + 4.0) / 8.0 * float64(canvasW))
	row := canvasH - 1 - int((z+0.5)/4.0*float64(canvasH))
	return col, row
}

// Top view: x in [-2.5,2.5] m, y in [-2.5,2.5] m.
func topProject(x, y float64) (int, int) {
	col := int((x + 2.5) / 5.0 * float64(canvasW))
	row := canvasH - 1 - int((y+2.5)/5.0*float64(canvasH))
	return col, row
}

func (m Model) drawSide(grid [][]rune, ref *uav.Reference) {
	// Ground.
	_, groundRow := sideProject(0, 0)
	for c := 0; c < canvasW; c++ {
		set(grid, c, groundRow, '─')
	}

	for _, p := range m.trail {
		c, r := sideProject(p.X, p.Z)
		set(grid, c, r, '·')
	}

	rc, rr := sideProject(ref.Position.X, ref.Position.Z)
	set(grid, rc, rr, '×')

	pos := m.st.Position
	_, pitch, _ := rpy(m.st)
	cx, cy := sideProject(pos.X, pos.Z)

	// Rotor arms tilted by pitch; one canvas row spans more meters than a
	// column, so the vertical offset is scaled down.
	arm := 4.0
	dxp := int(math.Round(arm * math.Cos(pitch)))
	dyp := int(math.Round(arm * math.Sin(pitch) * 0.55))
	line(grid, cx-dxp, cy-dyp, cx+dxp, cy+dyp, '━')
	set(grid, cx-dxp, cy-dyp, 'o')
	set(grid, cx+dxp, cy+dyp, 'o')
	set(grid, cx, cy, 'X')
}

func (m Model) drawTop(grid [][]rune, ref *uav.Reference) {
	for _, p := range m.trail {
		c, r := topProject(p.X, p.Y)
		set(grid, c, r, '·')
	}

	rc, rr := topProject(ref.Position.X, ref.Position.Y)
	set(grid, rc, rr, '×')

	pos := m.st.Position
	_, _, yaw := rpy(m.st)
	cx, cy := topProject(pos.X, pos.Y)

	// Heading line.
	hx := cx + int(math.Round(5*math.Cos(yaw)))
	hy := cy - int(math.Round(3*math.Sin(yaw)))
	line(grid, cx, cy, hx, hy, '·')
	set(grid, hx, hy, '>')
	set(grid, cx, cy, 'X')
}

func rpy(st *uav.State) (roll, pitch, yaw float64) {
	return st.Orientation.RPY()
}

func set(grid [][]rune, x, y int, c rune) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
		grid[y][x] = c
	}
}

func line(grid [][]rune, x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		set(grid, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
