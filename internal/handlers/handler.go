// Package handlers holds the long-running event consumers and the job
// handlers the daemon registers on each queue.
package handlers

import (
	"context"
	"log/slog"
)

// Handler is a long-running component started by the runner. Start blocks
// until ctx is canceled or the component's input closes.
type Handler interface {
	Start(ctx context.Context) error
	Name() string
}

// base carries the name and component logger shared by the handlers here.
type base struct {
	name   string
	logger *slog.Logger
}

func newBase(name string, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{name: name, logger: logger.With("component", name)}
}

// Name returns the handler name used in runner logs.
func (b base) Name() string { return b.name }
