package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/plasma1d/internal/experiment"
	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/metrics"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

const (
	historyCapacity = 600
	maxStepsPerTick = 1000
	frameInterval   = time.Second / 30
)

var ErrNotSetup = errors.New("viz: experiment is not set up")

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps an experiment a few integrator steps per frame and draws the
// current profiles.
type Model struct {
	name       string
	initial    *plasma.State
	state      *plasma.State
	closure    transport.Closure
	integrator *integrator.Integrator
	dt         float64
	maxSteps   int

	stepsPerTick int
	running      bool
	showHelp     bool
	history      []float64
	loss         *metrics.ParticleLoss
	err          error
	size         ChartSize
}

// NewModel wraps a set-up experiment. The experiment's state is advanced in
// place; reset restores a copy taken here.
func NewModel(e *experiment.Experiment) (Model, error) {
	if e.Integrator == nil || e.State == nil || e.Closure == nil {
		return Model{}, ErrNotSetup
	}
	cfg := e.Config()
	m := Model{
		name:         e.Closure.Name(),
		initial:      e.State.Clone(),
		state:        e.State,
		closure:      e.Closure,
		integrator:   e.Integrator,
		dt:           cfg.Run.Dt,
		maxSteps:     cfg.Run.Steps,
		stepsPerTick: 1,
		running:      true,
		history:      make([]float64, 0, historyCapacity),
		loss:         metrics.NewParticleLoss(),
		size:         DefaultChartSize,
	}
	m.integrator.Reset()
	m.loss.Begin(m.state)
	return m, nil
}

// SetStepsPerTick sets how many integrator steps one frame takes.
func (m *Model) SetStepsPerTick(n int) {
	m.stepsPerTick = min(max(n, 1), maxStepsPerTick)
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
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
		case "+", "=":
			m.SetStepsPerTick(m.stepsPerTick * 2)
		case "-", "_":
			m.SetStepsPerTick(m.stepsPerTick / 2)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.size = ChartSize{
			Width:  max(msg.Width-60, 20),
			Height: max(msg.Height/3, 5),
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance takes up to stepsPerTick steps. It stops at the configured step
// count and on the first failure.
func (m *Model) advance() {
	if m.err != nil {
		return
	}
	for i := 0; i < m.stepsPerTick; i++ {
		if m.integrator.Steps() >= m.maxSteps {
			m.running = false
			return
		}
		if err := m.integrator.Step(m.state, m.closure, m.dt); err != nil {
			m.err = err
			m.running = false
			return
		}
		m.loss.Observe(m.state, m.integrator.Time())
		m.history = append(m.history, m.state.InteriorMean(m.state.Ne))
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
	}
}

// reset restores the initial profile and clears the history.
func (m *Model) reset() {
	m.state = m.initial.Clone()
	m.integrator.Reset()
	m.history = m.history[:0]
	m.loss.Reset()
	m.loss.Begin(m.state)
	m.err = nil
	m.running = true
}

func (m Model) status() (string, lipgloss.Color) {
	switch {
	case m.err != nil:
		return "FAILED", CurrentTheme.Error
	case m.integrator.Steps() >= m.maxSteps:
		return "DONE", CurrentTheme.Success
	case !m.running:
		return "PAUSED", CurrentTheme.Warning
	default:
		return "RUNNING", CurrentTheme.Success
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	color := lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	charts := ProfileChart(m.size, "ne, ni", m.state.Ne, m.state.Ni)
	if h := HistoryChart(ChartSize{Width: m.size.Width, Height: m.size.Height / 2}, "mean ne", "m^-3", m.history); h != "" {
		charts += "\n\n" + h
	}
	chartView := chartStyle.Render(color.Render(charts))

	var s strings.Builder
	s.WriteString(headerStyle().Render(strings.ToUpper(m.name)) + "\n")
	status, c := m.status()
	s.WriteString(statusStyle(c).Render(status) + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.integrator.Steps()))
	row("Time", fmt.Sprintf("%.3e s", m.integrator.Time()))
	row("dt", fmt.Sprintf("%.1e s", m.dt))
	row("Steps/frame", fmt.Sprintf("%d", m.stepsPerTick))
	row("Mean ne", fmt.Sprintf("%.3e", m.state.InteriorMean(m.state.Ne)))
	row("Mean ni", fmt.Sprintf("%.3e", m.state.InteriorMean(m.state.Ni)))
	row("Loss", fmt.Sprintf("%.2f%%", 100*m.loss.Value()))
	s.WriteString("\n" + ProgressBar(float64(m.integrator.Steps())/float64(m.maxSteps), 24) + "\n")
	s.WriteString("\n" + Sparkline(m.history, 24) + "\n")
	if m.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Width(34).Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit\n+/-:Speed T:Theme ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, chartView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
  Space  Pause/Resume
  R      Reset to the initial profile
  + / -  Double or halve steps per frame
  T      Cycle themes
  ?      Toggle this help
  Q      Quit
` + "\n" + mainView
	}
	return mainView
}

// Run starts the live view full screen and blocks until the user quits.
func Run(e *experiment.Experiment, stepsPerTick int) error {
	m, err := NewModel(e)
	if err != nil {
		return err
	}
	m.SetStepsPerTick(stepsPerTick)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
