package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print decoded status changes",
	Long: `Decode the bus and print every status change: connection, partitions,
zones, outputs, troubles and, on classic panels, the keypad state.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	bus, closeBus, err := openBus(ctx, nil)
	if err != nil {
		return err
	}
	defer closeBus()

	handlers := printHandlers(cmd.OutOrStdout())
	bus.ResetStatus()
	loop(ctx, bus, func() {
		bus.Status().HandleChanges(handlers)
	})
	return nil
}

func printHandlers(w io.Writer) dsc.Handlers {
	return dsc.Handlers{
		Online: func(connected bool) {
			fmt.Fprintf(w, "keybus connected=%t\n", connected)
		},
		ZoneOpen: func(zone int, open bool) {
			fmt.Fprintf(w, "zone %d open=%t\n", zone, open)
		},
		ZoneAlarm: func(zone int, alarm bool) {
			fmt.Fprintf(w, "zone %d alarm=%t\n", zone, alarm)
		},
		Fire: func(partition int, fire bool) {
			fmt.Fprintf(w, "partition %d fire=%t\n", partition, fire)
		},
		Trouble: func(trouble, power, battery bool) {
			fmt.Fprintf(w, "trouble=%t power=%t battery=%t\n", trouble, power, battery)
		},
		PartitionStatus: func(partition int, p dsc.Partition) {
			fmt.Fprintf(w, "partition %d status=0x%02x ready=%t lights=%08b\n", partition, p.Status, p.Ready, p.Lights)
		},
		Armed: func(partition int, p dsc.Partition) {
			fmt.Fprintf(
				w,
				"partition %d armed=%t stay=%t away=%t exit-delay=%t exit=%s entry-delay=%t\n",
				partition, p.Armed, p.ArmedStay, p.ArmedAway, p.ExitDelay, p.ExitState, p.EntryDelay,
			)
		},
		Alarm: func(partition int, alarm bool) {
			fmt.Fprintf(w, "partition %d alarm=%t\n", partition, alarm)
		},
		Output: func(output int, on bool) {
			fmt.Fprintf(w, "output %d on=%t\n", output, on)
		},
		Keypad: func(state dsc.KeypadState) {
			fmt.Fprintf(w, "keypad %s\n", state)
		},
		KeypadAlarm: func(fire, aux, panic bool) {
			fmt.Fprintf(w, "keypad alarm fire=%v aux=%v panic=%v\n", fire, aux, panic)
		},
		AccessCodePrompt: func(prompt bool) {
			fmt.Fprintf(w, "access code prompt %v\n", prompt)
		},
	}
}
