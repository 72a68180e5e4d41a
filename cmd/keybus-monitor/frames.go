package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/spf13/cobra"
)

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Print every frame on the bus",
	Long: `Continuously print the frames captured on the bus, one per line, in the
same format bridges use: bit count, panel bytes and module bytes, in hex.

Repeated status frames are filtered by the capture itself.`,
	Args: cobra.NoArgs,
	RunE: runFrames,
}

func init() {
	rootCmd.AddCommand(framesCmd)
}

func runFrames(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	out := cmd.OutOrStdout()
	bus, closeBus, err := openBus(ctx, func(f dsc.Frame) {
		fmt.Fprintf(out, "%s %-22s %s\n", time.Now().Format("15:04:05.000"), f.Name(), f)
	})
	if err != nil {
		return err
	}
	defer closeBus()

	loop(ctx, bus, nil)
	return nil
}

func sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Millisecond):
	}
}
