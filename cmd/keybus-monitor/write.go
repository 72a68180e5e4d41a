package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/spf13/cobra"
)

var waitTimeout time.Duration

var writeCmd = &cobra.Command{
	Use:   "write <keys>",
	Short: "Write keys as a virtual keypad",
	Long: `Write keys to the panel as a virtual keypad.

Keys are 0-9, * and #, S (stay), W (away), N (no entry delay), R (reset),
C (chime), X (quick exit), [ ] { } (command outputs 1-4) and the alarm keys
F, A and P. A / followed by a partition number selects the partition the
next keys go to, e.g. "/2S".`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "How long to wait for the bus")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, waitTimeout)
	defer cancelTimeout()

	bus, closeBus, err := openBus(ctx, nil)
	if err != nil {
		return err
	}
	defer closeBus()

	// keys only go out on a connected bus.
	for !bus.Status().KeybusConnected {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("keybus did not connect: %w", err)
		}
		if !bus.Loop() {
			sleep(ctx)
		}
	}

	if err := bus.WriteKeys(ctx, args[0], true); err != nil {
		if errors.Is(err, dsc.ErrReadOnly) {
			return fmt.Errorf("could not write keys: --write pin or a bridge is required: %w", err)
		}
		return fmt.Errorf("could not write keys: %w", err)
	}
	log.Info("keys written", "keys", args[0])
	return nil
}
