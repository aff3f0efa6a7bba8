// Package ui implements a command-line user interface using [tea].
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/fts/internal/scan"
)

// progressSource provides point-in-time scan progress for rendering.
type progressSource interface {
	Progress() scan.Progress
}

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	scanner progressSource
	program *tea.Program

	LogWriter *TeaLogWriter

	Initialized atomic.Bool
	Failed      atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler].
func NewHandler(ctx context.Context, cancel context.CancelFunc, scanner progressSource) *Handler {
	handler := &Handler{
		scanner: scanner,
	}

	model := NewTeaModel(handler, scanner, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}

// Quit signals the interface to terminate once pending renders are done.
func (uiHandler *Handler) Quit() {
	uiHandler.program.Quit()
}
