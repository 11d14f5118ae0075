package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/suite"
)

// sender is the part of tea.Program the observer needs.
type sender interface {
	Send(msg tea.Msg)
}

// Observer forwards runner events to the dashboard.
type Observer struct {
	program sender
}

// NewObserver returns a suite.Observer that feeds p.
func NewObserver(p *tea.Program) *Observer {
	return &Observer{program: p}
}

func (o *Observer) GroupStarted(g suite.Group) {
	o.program.Send(groupStartedMsg{group: g})
}

func (o *Observer) PassStarted(g suite.Group, v session.Verbosity) {
	o.program.Send(passStartedMsg{group: g, verbosity: v})
}

func (o *Observer) CaseDone(cr suite.CaseResult) {
	o.program.Send(caseDoneMsg{result: cr})
}

// RunFunc executes a run, reporting progress to obs.
type RunFunc func(ctx context.Context, obs suite.Observer) (suite.Report, error)

// Run shows the dashboard while run executes. Quitting early cancels the
// run's context; the result of the run is returned either way.
func Run(ctx context.Context, groups []suite.Group, run RunFunc) (suite.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(groups, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen())

	type result struct {
		report suite.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		rep, err := run(ctx, NewObserver(program))
		done <- result{rep, err}
		program.Send(runDoneMsg{report: rep, err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return suite.Report{}, err
	}
	cancel()
	res := <-done
	return res.report, res.err
}
