package player

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"cherrycake/internal/scene"
	"cherrycake/internal/view"
)

const defaultWidth = 80

type loadedMsg struct {
	renderer scene.Renderer
	err      error
}

type tickMsg time.Time

// Model is the bubbletea model of the terminal player. Each tick offers a
// frame to the view's loop driver; only accepted frames change the display.
type Model struct {
	ctx      context.Context
	view     *view.View
	renderer scene.Renderer
	err      error

	interval time.Duration
	limit    time.Duration
	first    time.Time

	frame  scene.Frame
	status scene.Status
	shown  bool

	width    int
	bar      progress.Model
	quitting bool
}

// NewModel builds a player over a mounted view. hz is the display rate;
// limit stops playback after that much wall time when positive.
func NewModel(ctx context.Context, v *view.View, hz int, limit time.Duration, width int) *Model {
	if hz < 1 {
		hz = 60
	}
	if width <= 0 {
		width = defaultWidth
	}
	m := &Model{
		ctx:      ctx,
		view:     v,
		interval: time.Second / time.Duration(hz),
		limit:    limit,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.resize(width)
	return m
}

func (m *Model) resize(width int) {
	m.width = width
	m.bar.Width = max(10, width-12)
}

// Err returns the load error that ended playback, if any.
func (m *Model) Err() error { return m.err }

// Frame returns the last accepted frame.
func (m *Model) Frame() (scene.Frame, bool) { return m.frame, m.shown }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		r, err := m.view.Renderer(m.ctx)
		return loadedMsg{renderer: r, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m.quit()
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m.quit()
		}
		m.renderer = msg.renderer
	case tickMsg:
		if m.quitting {
			return m, nil
		}
		now := time.Time(msg)
		if m.renderer != nil {
			if m.first.IsZero() {
				m.first = now
			}
			if m.limit > 0 && now.Sub(m.first) >= m.limit {
				return m.quit()
			}
			if f, ok := m.view.Step(now); ok {
				m.frame = f
				m.status = m.renderer.Status(f)
				m.shown = true
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.view.Unmount()
	return m, tea.Quit
}

func (m *Model) View() string {
	def := m.view.Definition()
	var b strings.Builder
	b.WriteString(titleStyle.Render(def.Title))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s loop", def.LoopDuration)))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("unavailable: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	case m.renderer == nil:
		b.WriteString(dimStyle.Render("loading datasets..."))
		b.WriteString("\n")
		return b.String()
	case !m.shown:
		b.WriteString("\n")
		return b.String()
	}

	if c, ok := m.renderer.(scene.Curve); ok {
		b.WriteString(drawCurve(c, max(10, m.width-2), m.status.Progress))
		b.WriteString("\n\n")
	}
	if l, ok := m.renderer.(scene.Lanes); ok {
		b.WriteString(drawLanes(l.Lanes(m.frame)))
		b.WriteString("\n\n")
	}
	b.WriteString(m.bar.ViewAs(m.status.Progress))
	b.WriteString(fmt.Sprintf(" %5.1f%%\n", m.status.Progress*100))
	b.WriteString(statusLine(m.status))
	b.WriteString("\n")
	if !m.quitting {
		b.WriteString(dimStyle.Render("q quit"))
		b.WriteString("\n")
	}
	return b.String()
}
