package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/wippyai/objectcore/config"
	"github.com/wippyai/objectcore/gc"
	"github.com/wippyai/objectcore/object"
	"github.com/wippyai/objectcore/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(16)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxPhaseLines = 8

// phaseLog collects collector phase changes for display.
type phaseLog struct {
	lines []string
}

func (l *phaseLog) record(s gc.State) {
	l.lines = append(l.lines, s.String())
	if len(l.lines) > maxPhaseLines {
		l.lines = l.lines[len(l.lines)-maxPhaseLines:]
	}
}

type interactiveModel struct {
	err        error
	rt         *runtime.Runtime
	world      *world
	phases     *phaseLog
	bar        progress.Model
	opts       options
	status     string
	purgeTotal int
	steps      int
	quitting   bool
	closeErr   error
}

func newInteractiveModel(cfg *config.Config, opts options) (*interactiveModel, error) {
	phases := &phaseLog{}
	rt, err := runtime.New(context.Background(), cfg,
		runtime.WithLogger(zap.NewNop()),
		runtime.WithPhaseObserver(phases.record),
	)
	if err != nil {
		return nil, err
	}
	w, err := newWorld(rt, opts.seed)
	if err != nil {
		rt.Close(context.Background())
		return nil, err
	}
	return &interactiveModel{
		rt:     rt,
		world:  w,
		phases: phases,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		opts:   opts,
		status: "press n to create objects",
	}, nil
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-labelStyle.GetWidth()-8, 10), 60)

	case tea.KeyMsg:
		m.err = nil
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.closeErr = m.rt.Close(context.Background())
			return m, tea.Quit

		case "n":
			hs, err := m.world.populate(m.opts.objects, m.opts.fanout, m.opts.roots)
			m.err = err
			m.status = fmt.Sprintf("created %s objects", humanize.Comma(int64(len(hs))))

		case "c":
			m.collect(false)

		case "f":
			m.collect(true)

		case "p", " ":
			if !m.rt.Collector().IsIncrementalPurgePending() {
				m.status = "nothing to purge"
				break
			}
			done, err := m.rt.IncrementalPurge()
			m.err = err
			m.steps++
			if done {
				m.status = fmt.Sprintf("purge finished in %d steps", m.steps)
			} else {
				m.status = fmt.Sprintf("purge step %d", m.steps)
			}
		}
	}
	return m, nil
}

func (m *interactiveModel) collect(full bool) {
	m.err = m.rt.CollectGarbage(object.NoFlags, full)
	m.purgeTotal = m.rt.Collector().PendingPurge()
	m.steps = 0
	st := m.rt.Collector().LastStats()
	m.status = fmt.Sprintf("collected: %s reachable, %s begin-destroyed",
		humanize.Comma(int64(st.Reachable)), humanize.Comma(int64(st.BeginDestroyed)))
}

func (m *interactiveModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render("objectcore collector"))
	b.WriteString(" ")
	b.WriteString(m.rt.Config().Memory.Backend)
	b.WriteString("\n\n")

	st := m.rt.Stats()
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("objects", fmt.Sprintf("%s of %s slots", humanize.Comma(int64(st.Objects)), humanize.Comma(int64(st.Capacity))))
	row("instance data", fmt.Sprintf("%s in %s blocks", humanize.IBytes(st.Alloc.LiveBytes), humanize.Comma(int64(st.Alloc.LiveBlocks))))
	row("memory", humanize.IBytes(uint64(st.MemoryBytes)))
	row("collections", humanize.Comma(int64(st.Collections)))
	row("phase", phaseStyle.Render(m.rt.Collector().State().String()))
	row("mark", st.GC.MarkDuration.String())
	row("purge", fmt.Sprintf("%s over %d calls", st.GC.PurgeDuration, st.GC.PurgeCalls))

	pending := m.rt.Collector().PendingPurge()
	frac := 1.0
	if m.purgeTotal > 0 {
		frac = float64(m.purgeTotal-pending) / float64(m.purgeTotal)
	}
	b.WriteString(labelStyle.Render("purged"))
	b.WriteString(m.bar.ViewAs(frac))
	b.WriteString(fmt.Sprintf(" %s left\n\n", humanize.Comma(int64(pending))))

	b.WriteString("recent phases:\n")
	for _, p := range m.phases.lines {
		b.WriteString("  ")
		b.WriteString(phaseStyle.Render(p))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		b.WriteString(m.status)
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("n new objects • c collect • p purge step • f full collect • q quit"))
	return b.String()
}

func runInteractive(cfg *config.Config, opts options) error {
	m, err := newInteractiveModel(cfg, opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		m.rt.Close(context.Background())
		return err
	}
	return m.closeErr
}
