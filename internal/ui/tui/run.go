package tui

import (
	"context"
	"errors"
	"fmt"
	"iter"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the operator quits before the run ends.
var ErrInterrupted = errors.New("provisioning interrupted")

// Result summarizes a finished provisioning run.
type Result struct {
	InstanceID string
	URL        string
}

// RunProvisionTUI renders a provisioning run. start is called once with a
// context that is cancelled when the operator quits; its lines are consumed
// on a background goroutine and forwarded to the program.
func RunProvisionTUI(ctx context.Context, title string, start func(ctx context.Context) iter.Seq[string], opts ...tea.ProgramOption) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewProvisionModel(title)
	p := tea.NewProgram(m, opts...)

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for line := range start(ctx) {
			p.Send(LineMsg{Text: line})
		}
		p.Send(DoneMsg{})
	}()

	finalModel, err := p.Run()
	cancel()
	<-consumed
	if err != nil {
		return Result{}, fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	res := Result{InstanceID: fm.InstanceID, URL: fm.URL}
	switch {
	case fm.Err != nil:
		return res, fm.Err
	case fm.Aborted:
		if fm.InstanceID != "" {
			return res, fmt.Errorf("%w: instance %s is still running", ErrInterrupted, fm.InstanceID)
		}
		return res, ErrInterrupted
	}
	return res, nil
}
