package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/comfyprov/internal/provisioning"
	"github.com/imamik/comfyprov/internal/ui/benchmarks"
)

// defaultLogLines is the size of the remote output tail.
const defaultLogLines = 12

// Phase is one provisioning phase as displayed.
type Phase struct {
	Name   string
	Key    string
	Done   bool
	Active bool
	Failed bool

	StartedAt time.Time
	EndedAt   time.Time
}

// Model is the Bubble Tea model of a provisioning run.
type Model struct {
	Title string

	Phases     []Phase
	InstanceID string
	URL        string

	// Logs holds the most recent remote output lines.
	Logs        []string
	MaxLogLines int

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	Spinner spinner.Model

	// UI state
	Width   int
	Height  int
	Err     error
	Done    bool
	Aborted bool

	now func() time.Time
}

// NewProvisionModel creates a model for one provisioning run.
func NewProvisionModel(title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = activeStyle

	return Model{
		Title:            title,
		StartTime:        time.Now(),
		PerformanceScale: 1.0,
		MaxLogLines:      defaultLogLines,
		Spinner:          s,
		now:              time.Now,
		Phases: []Phase{
			{Name: "Initialize provider", Key: provisioning.PhaseProvider},
			{Name: "Create instance", Key: provisioning.PhaseCreate},
			{Name: "Wait for instance", Key: provisioning.PhaseWait},
			{Name: "Install ComfyUI and models", Key: provisioning.PhaseSetup},
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Done {
				m.Aborted = true
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case LineMsg:
		m.applyLine(msg.Text)
		m.updateETA()

	case DoneMsg:
		m.Done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		m.updateETA()
		return m, cmd
	}

	return m, nil
}

// applyLine advances the phase list from one orchestrator line.
func (m *Model) applyLine(line string) {
	switch {
	case strings.HasPrefix(line, provisioning.RemotePrefix):
		m.appendLog(strings.TrimPrefix(line, provisioning.RemotePrefix))
	case strings.HasPrefix(line, provisioning.ErrorPrefix):
		m.Err = errors.New(strings.TrimPrefix(line, provisioning.ErrorPrefix))
		m.failActive()
	case strings.HasPrefix(line, "Initializing "):
		m.startPhase(provisioning.PhaseProvider)
	case strings.HasPrefix(line, "Creating Pod"):
		m.startPhase(provisioning.PhaseCreate)
	case strings.HasPrefix(line, "Pod created: "):
		m.InstanceID = strings.TrimPrefix(line, "Pod created: ")
		m.finishPhase(provisioning.PhaseCreate)
	case strings.HasPrefix(line, "Waiting for pod"):
		m.startPhase(provisioning.PhaseWait)
	case line == "Pod is RUNNING!":
		m.finishPhase(provisioning.PhaseWait)
	case strings.HasPrefix(line, "Connecting via SSH"):
		m.startPhase(provisioning.PhaseSetup)
	case line == "Provisioning Complete!":
		m.finishPhase(provisioning.PhaseSetup)
	case strings.HasPrefix(line, "Access ComfyUI at: "):
		m.URL = strings.TrimPrefix(line, "Access ComfyUI at: ")
	default:
		m.appendLog(line)
	}
}

func (m *Model) appendLog(line string) {
	m.Logs = append(m.Logs, line)
	if n := m.MaxLogLines; n > 0 && len(m.Logs) > n {
		m.Logs = m.Logs[len(m.Logs)-n:]
	}
}

// startPhase activates key and marks every earlier phase done.
func (m *Model) startPhase(key string) {
	idx := m.phaseIndex(key)
	if idx < 0 {
		return
	}
	now := m.now()
	for i := 0; i < idx; i++ {
		m.closePhase(i, now)
	}
	if !m.Phases[idx].Active {
		m.Phases[idx].Active = true
		m.Phases[idx].StartedAt = now
	}
}

func (m *Model) finishPhase(key string) {
	idx := m.phaseIndex(key)
	if idx < 0 {
		return
	}
	now := m.now()
	for i := 0; i <= idx; i++ {
		m.closePhase(i, now)
	}
}

func (m *Model) closePhase(i int, now time.Time) {
	p := &m.Phases[i]
	if p.Done {
		return
	}
	if p.StartedAt.IsZero() {
		p.StartedAt = now
	}
	p.Done = true
	p.Active = false
	p.EndedAt = now
}

func (m *Model) failActive() {
	for i := range m.Phases {
		if m.Phases[i].Active {
			m.Phases[i].Active = false
			m.Phases[i].Failed = true
			m.Phases[i].EndedAt = m.now()
			return
		}
	}
}

func (m *Model) phaseIndex(key string) int {
	for i, p := range m.Phases {
		if p.Key == key {
			return i
		}
	}
	return -1
}

func (m *Model) activePhase() (Phase, bool) {
	for _, p := range m.Phases {
		if p.Active {
			return p, true
		}
	}
	return Phase{}, false
}

func (m *Model) history() []benchmarks.PhaseRecord {
	var out []benchmarks.PhaseRecord
	for _, p := range m.Phases {
		if p.StartedAt.IsZero() {
			continue
		}
		rec := benchmarks.PhaseRecord{Phase: p.Key, StartedAt: p.StartedAt}
		if p.Done {
			ended := p.EndedAt
			rec.EndedAt = &ended
		}
		out = append(out, rec)
	}
	return out
}

func (m *Model) updateETA() {
	active, ok := m.activePhase()
	if !ok || m.Err != nil {
		m.EstimatedRemaining = 0
		return
	}

	elapsed := m.now().Sub(active.StartedAt)
	history := m.history()
	m.PerformanceScale = benchmarks.PerformanceScale(active.Key, elapsed, history)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(active.Key, elapsed, history, m.PerformanceScale)
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
