package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"tasklist/app"
)

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Context == nil {
		opts.Context = ctx
	}
	m := NewModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Changes can be committed from inside Update, so Send must not block.
	unsubscribe := m.svc.Subscribe(func(c app.Change) {
		go p.Send(changeMsg{op: c.Op, status: c.Status})
	})
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
