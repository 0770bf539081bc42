package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xi784/ha-blnet/internal/cli"
)

// Handler implements cli.CommandHandler for blnet-bridge
type Handler struct{}

// NewHandler creates a new Handler
func NewHandler() *Handler {
	return &Handler{}
}

// Start builds the bridge and runs it until SIGINT or SIGTERM.
func (h *Handler) Start(c cli.Configurable) error {
	cfg, ok := c.(*Config)
	if !ok {
		return fmt.Errorf("%w: %T", ErrInvalidArgument, c)
	}

	b, err := New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return b.Run(ctx)
}
