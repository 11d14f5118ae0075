package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/suite"
)

const (
	// DefaultWidth and DefaultHeight are used until the first WindowSizeMsg.
	DefaultWidth  = 100
	DefaultHeight = 30

	historySize = 200
)

type groupStartedMsg struct{ group suite.Group }

type passStartedMsg struct {
	group     suite.Group
	verbosity session.Verbosity
}

type caseDoneMsg struct{ result suite.CaseResult }

type runDoneMsg struct {
	report suite.Report
	err    error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// groupRow is one line of the group table.
type groupRow struct {
	name  string
	cases int // per pass, including the verbosity switch
	tally suite.Tally
	done  int
}

// Model is the live run dashboard.
type Model struct {
	styles Styles
	width  int
	height int

	groups  []groupRow
	index   map[string]int
	current int
	pass    session.Verbosity

	total    int
	tally    suite.Tally
	recent   []suite.CaseResult
	failures []suite.CaseResult
	rtts     []float64

	started time.Time
	now     time.Time

	finished bool
	report   suite.Report
	err      error

	cancel func()
}

// NewModel creates a dashboard for the given groups. cancel is called when
// the user quits before the run ends.
func NewModel(groups []suite.Group, cancel func()) *Model {
	m := &Model{
		styles:  DefaultStyles,
		width:   DefaultWidth,
		height:  DefaultHeight,
		index:   make(map[string]int, len(groups)),
		current: -1,
		started: time.Now(),
		cancel:  cancel,
	}
	m.now = m.started
	for i, g := range groups {
		m.groups = append(m.groups, groupRow{name: g.Name, cases: len(g.Cases) + 1})
		m.index[g.Name] = i
		m.total += 2 * (len(g.Cases) + 1)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.now = time.Time(msg)
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.finished && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}
		return m, nil

	case groupStartedMsg:
		if i, ok := m.index[msg.group.Name]; ok {
			m.current = i
		}
		return m, nil

	case passStartedMsg:
		m.pass = msg.verbosity
		return m, nil

	case caseDoneMsg:
		m.record(msg.result)
		return m, nil

	case runDoneMsg:
		m.finished = true
		m.report = msg.report
		m.err = msg.err
		m.now = time.Now()
		return m, nil
	}
	return m, nil
}

func (m *Model) record(cr suite.CaseResult) {
	m.tally.Add(cr.Passed)
	if i, ok := m.index[cr.Group]; ok {
		m.groups[i].tally.Add(cr.Passed)
		m.groups[i].done++
	}
	m.recent = append(m.recent, cr)
	if len(m.recent) > historySize {
		m.recent = m.recent[len(m.recent)-historySize:]
	}
	if !cr.Passed {
		m.failures = append(m.failures, cr)
	}
	if !cr.TimedOut && cr.RTT > 0 {
		m.rtts = append(m.rtts, float64(cr.RTT)/float64(time.Millisecond))
		if len(m.rtts) > historySize {
			m.rtts = m.rtts[len(m.rtts)-historySize:]
		}
	}
}

// Tally returns the cases seen so far.
func (m *Model) Tally() suite.Tally { return m.tally }

// View implements tea.Model.
func (m *Model) View() string {
	s := m.styles
	inner := m.width - 4
	if inner < 40 {
		inner = 40
	}

	var b strings.Builder
	status := s.Running.Render("RUNNING")
	if m.finished {
		status = s.Success.Render("DONE")
		if m.err != nil || m.tally.Failed > 0 {
			status = s.Error.Render("DONE")
		}
	}
	b.WriteString(s.Title.Render("dccverify") + " " + status + " " +
		s.Dim.Render(m.now.Sub(m.started).Round(100*time.Millisecond).String()) + "\n")
	b.WriteString(ProgressBar("cases", m.tally.Total(), m.total, inner-30, s) + "  " +
		s.Success.Render(fmt.Sprintf("%d passed", m.tally.Passed)) + " " +
		s.Error.Render(fmt.Sprintf("%d failed", m.tally.Failed)) + "\n\n")

	b.WriteString(SectionBox("GROUPS", m.groupTable(), inner, s) + "\n")

	if len(m.rtts) > 0 {
		b.WriteString(SectionBox("RTT ms", Sparkline(m.rtts, inner-4, s), inner, s) + "\n")
	}

	rows := m.height - len(m.groups) - 14
	if rows < 3 {
		rows = 3
	}
	b.WriteString(SectionBox("EXCHANGES", m.recentLines(rows, inner-4), inner, s) + "\n")

	if m.finished {
		b.WriteString(m.summary() + "\n")
		b.WriteString(s.KeyHint.Render("enter/q quit"))
	} else {
		b.WriteString(s.KeyHint.Render("q abort"))
	}
	return b.String()
}

func (m *Model) groupTable() string {
	s := m.styles
	lines := make([]string, 0, len(m.groups))
	for i, g := range m.groups {
		marker := "  "
		name := fmt.Sprintf("%-12s", g.name)
		if i == m.current && !m.finished {
			marker = s.KeyBinding.Render("> ")
			name = s.Bold.Render(name) + " " + s.Dim.Render(fmt.Sprintf("(%s)", m.pass))
		}
		counts := fmt.Sprintf("%3d/%-3d", g.done, 2*g.cases)
		line := marker + name + " " + counts + " " + s.Success.Render(fmt.Sprintf("%d ok", g.tally.Passed))
		if g.tally.Failed > 0 {
			line += " " + s.Error.Render(fmt.Sprintf("%d failed", g.tally.Failed))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) recentLines(rows, width int) string {
	s := m.styles
	start := len(m.recent) - rows
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, rows)
	for _, cr := range m.recent[start:] {
		line := truncateString(suite.FormatResult(cr), width)
		if cr.Passed {
			lines = append(lines, s.Base.Render(line))
		} else {
			lines = append(lines, s.Error.Render(line))
		}
	}
	if len(lines) == 0 {
		return s.Dim.Render("waiting for the first exchange...")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) summary() string {
	s := m.styles
	var b strings.Builder
	if m.err != nil {
		b.WriteString(s.Error.Render("Run aborted: "+m.err.Error()) + "\n")
	}
	if m.report.Cleanup != nil && !m.report.Cleanup.Passed {
		b.WriteString(s.Warning.Render("Cleanup failed: station left in quiet mode") + "\n")
	}
	for _, cr := range m.failures {
		b.WriteString(s.Error.Render(fmt.Sprintf("FAIL %s/%s: %s", cr.Group, cr.Pass, cr.Case.Command)) + "\n")
	}
	b.WriteString(s.Bold.Render(m.tally.String()))
	return b.String()
}
