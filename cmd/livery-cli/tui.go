package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fpang/livery-studio/internal/chat"
	"github.com/fpang/livery-studio/internal/cli"
	"github.com/fpang/livery-studio/internal/compare"
	"github.com/fpang/livery-studio/internal/export"
	"github.com/fpang/livery-studio/internal/intake"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

const (
	levelStep = 5
	splitStep = 5.0
	// barMargin is the column the comparison bar starts at.
	barMargin = 2
	minBar    = 20
)

// Messages delivered to the model.
type (
	stateMsg      studio.State
	loadedMsg     struct{}
	loadFailedMsg struct{ err error }
	runDoneMsg    struct {
		state studio.State
		err   error
	}
	runRejectedMsg struct{ err error }
	exportedMsg    struct {
		location string
		err      error
	}
	comparedMsg struct {
		path string
		err  error
	}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	afterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	beforeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dividerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	severityStyles = map[studio.Severity]lipgloss.Style{
		studio.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		studio.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		studio.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		studio.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)

// model is the interactive view of one studio session.
type model struct {
	ctx         context.Context
	studio      *studio.Studio
	sink        export.Sink
	comparePath string

	state    studio.State
	loaded   bool
	started  time.Time
	elapsed  time.Duration
	spinner  spinner.Model
	progress progress.Model
	viewer   *compare.Viewer

	width, height int
	notice        string
	fatal         error
	lastExported  string
}

func newModel(ctx context.Context, st *studio.Studio, sink export.Sink, comparePath string) model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = titleStyle
	m := model{
		ctx:         ctx,
		studio:      st,
		sink:        sink,
		comparePath: comparePath,
		state:       st.Snapshot(),
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:       80,
	}
	m.viewer = compare.NewViewer(barMargin, float64(m.barWidth()))
	return m
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) running() bool {
	return m.state.Status == studio.StatusRunning
}

func (m model) failed() bool {
	return m.fatal != nil || m.state.Status == studio.StatusFailed
}

func (m model) barWidth() int {
	return max(minBar, m.width-2*barMargin)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewer.Resize(barMargin, float64(m.barWidth()))
		m.progress.Width = min(60, max(minBar, msg.Width-20))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.running() {
			m.elapsed = time.Since(m.started)
		}
		return m, cmd

	case stateMsg:
		m.state = studio.State(msg)
		return m, nil

	case loadedMsg:
		m.loaded = true
		m.state = m.studio.Snapshot()
		return m.generate()

	case loadFailedMsg:
		m.fatal = msg.err
		m.state = m.studio.Snapshot()
		return m, nil

	case runRejectedMsg:
		m.notice = msg.err.Error()
		m.state = m.studio.Snapshot()
		return m, nil

	case runDoneMsg:
		m.state = msg.state
		m.elapsed = time.Since(m.started)
		if msg.err != nil {
			m.notice = "generation failed, press g to retry"
			return m, nil
		}
		m.notice = ""
		return m, m.exportCmd(msg.state)

	case exportedMsg:
		if msg.err != nil {
			m.notice = "save failed: " + msg.err.Error()
		} else {
			m.lastExported = msg.location
			m.notice = "saved " + msg.location
		}
		return m, nil

	case comparedMsg:
		if msg.err != nil {
			m.notice = "comparison failed: " + msg.err.Error()
		} else {
			m.notice = "comparison written to " + msg.path
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "g", "enter":
		return m.generate()
	case "[", "-":
		return m.adjustLevel(-levelStep), nil
	case "]", "+", "=":
		return m.adjustLevel(levelStep), nil
	case "left", "h":
		m.viewer.SetSplit(m.viewer.Split() - splitStep)
	case "right", "l":
		m.viewer.SetSplit(m.viewer.Split() + splitStep)
	case "s":
		if m.state.Result != "" {
			return m, m.exportCmd(m.state)
		}
	case "c":
		if m.state.Result != "" {
			return m, m.compareCmd()
		}
	}
	return m, nil
}

func (m model) adjustLevel(delta int) model {
	if m.running() {
		return m
	}
	m.studio.SetAdaptationLevel(m.state.AdaptationLevel + delta)
	m.state = m.studio.Snapshot()
	return m
}

// handleMouse drags the comparison split. Coordinates are terminal cells and a
// drag only begins on the bar's own row.
func (m model) handleMouse(msg tea.MouseMsg) model {
	if m.state.Result == "" {
		return m
	}
	x := float64(msg.X)
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if msg.Y == m.barRow() {
			m.viewer.PointerDown(x)
		}
	case msg.Action == tea.MouseActionMotion:
		m.viewer.PointerMove(x)
	case msg.Action == tea.MouseActionRelease:
		m.viewer.PointerUp()
	}
	return m
}

func (m model) generate() (tea.Model, tea.Cmd) {
	if m.running() || !m.loaded {
		return m, nil
	}
	m.started = time.Now()
	m.elapsed = 0
	m.notice = ""
	st, ctx := m.studio, m.ctx
	return m, func() tea.Msg {
		run, err := st.Start(ctx)
		if err != nil {
			return runRejectedMsg{err: err}
		}
		err = run.Wait()
		return runDoneMsg{state: run.State(), err: err}
	}
}

func (m model) exportCmd(state studio.State) tea.Cmd {
	sink, ctx := m.sink, m.ctx
	return func() tea.Msg {
		location, err := export.ExportDataURI(ctx, sink, state.Result)
		if err != nil {
			log.Error().Err(err).Msg("Failed to save result")
		}
		return exportedMsg{location: location, err: err}
	}
}

func (m model) compareCmd() tea.Cmd {
	path := m.comparePath
	if path == "" {
		path = "livery_compare.png"
	}
	st, state, split := m.studio, m.state, m.viewer.Split()
	return func() tea.Msg {
		return comparedMsg{path: path, err: writeComparison(st, state, split, path)}
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())

	if m.state.Result != "" {
		b.WriteString("\n" + m.comparisonView() + "\n")
	}

	b.WriteString("\n" + m.logView() + "\n")

	if m.notice != "" {
		b.WriteString("\n  " + m.notice + "\n")
	}
	if m.fatal != nil {
		b.WriteString("\n  " + severityStyles[studio.SeverityError].Render(m.fatal.Error()) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  g generate · [ ] level · ←/→ or drag split · s save · c compare · q quit"))
	return b.String()
}

// headerView renders everything above the comparison bar.
func (m model) headerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Livery Studio") + dimStyle.Render("  "+m.state.Status.String()) + "\n\n")
	b.WriteString(m.inputsView())
	b.WriteString("\n")

	status := studio.StatusText(m.state.Status, m.state.Progress)
	if m.running() {
		status = m.spinner.View() + " " + status
	}
	fmt.Fprintf(&b, "  %s  %s  %s\n", m.progress.ViewAs(m.state.Progress/100), status, dimStyle.Render(cli.FormatDurationShort(m.elapsed)))
	return b.String()
}

// barRow is the screen row View draws the comparison bar on.
func (m model) barRow() int {
	return strings.Count(m.headerView(), "\n") + 1
}

func slotLine(label string, img *intake.ImageSlot) string {
	if !img.HasPayload() {
		return fmt.Sprintf("  %-10s %s\n", label, dimStyle.Render("loading..."))
	}
	return fmt.Sprintf("  %-10s %s %s\n", label, img.Name, dimStyle.Render(cli.FormatBytes(img.Size)))
}

func (m model) inputsView() string {
	var b strings.Builder
	b.WriteString(slotLine("reference", m.state.Reference))
	b.WriteString(slotLine("target", m.state.Target))

	tier := chat.AdherenceTier(m.state.AdaptationLevel)
	fmt.Fprintf(&b, "  %-10s %d%% %s\n", "level", m.state.AdaptationLevel, dimStyle.Render(tier.String()))
	feedback := m.state.ActiveInstruction
	if feedback == "" {
		feedback = m.state.PendingInstruction
	}
	if feedback != "" {
		fmt.Fprintf(&b, "  %-10s %q\n", "feedback", feedback)
	}
	return b.String()
}

// comparisonView draws the split as a bar: result on the left of the
// divider, target on the right.
func (m model) comparisonView() string {
	width := m.barWidth()
	revealed := int(float64(width) * m.viewer.Split() / 100)
	revealed = min(max(revealed, 0), width)

	left := afterStyle.Render(strings.Repeat("█", revealed))
	right := beforeStyle.Render(strings.Repeat("░", width-revealed))
	bar := strings.Repeat(" ", barMargin) + left + dividerStyle.Render("│") + right

	split := m.viewer.Split()
	label := fmt.Sprintf("  result %.0f%% │ target %.0f%%", split, 100-split)
	return bar + "\n" + dimStyle.Render(label)
}

// logView shows the newest lines that fit, so it always follows the tail.
func (m model) logView() string {
	lines := m.state.Logs
	limit := 8
	if m.height > 0 {
		limit = max(3, m.height-20)
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	var b strings.Builder
	for _, line := range lines {
		style := severityStyles[line.Severity]
		fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(line.CreatedAt.Format("15:04:05")), style.Render(line.Message))
	}
	return strings.TrimRight(b.String(), "\n")
}

// printSummary is written after the view closes.
func (m model) printSummary(w io.Writer) {
	if m.fatal != nil {
		fmt.Fprintf(w, "Failed to load images: %v\n", m.fatal)
		return
	}
	for _, line := range m.state.Logs {
		printLine(w, line)
	}
	if m.lastExported != "" {
		fmt.Fprintf(w, "Saved: %s\n", m.lastExported)
	}
}
