package main

import (
	"os"
	"time"

	logp "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "monitor",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// bridge connection flags
	portName string
	baudRate int
	addr     string

	// gpio flags
	clockPin string
	dataPin  string
	writePin string
	pc16Pin  string

	dialect    string
	partitions int
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "keybus-monitor",
	Short: "DSC Keybus monitor",
	Long: `keybus-monitor watches a DSC Keybus, printing raw frames or decoded status
changes, and can write keys as a virtual keypad.

Connection modes:
  Serial bridge: --port /dev/ttyUSB0 [--baud 115200]
  TCP bridge:    --addr 192.168.1.20:4000
  GPIO:          --clock GPIO17 --data GPIO27 [--write GPIO22] [--pc16 GPIO23]`,
	Version:       version + " (" + commit + ", " + date + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if debug {
			log.SetLevel(logp.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port of the bridge")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVarP(&addr, "addr", "a", "", "host:port of a TCP bridge")

	rootCmd.PersistentFlags().StringVar(&clockPin, "clock", "", "Clock GPIO pin")
	rootCmd.PersistentFlags().StringVar(&dataPin, "data", "", "Data GPIO pin")
	rootCmd.PersistentFlags().StringVar(&writePin, "write", "", "Write GPIO pin, enables the virtual keypad")
	rootCmd.PersistentFlags().StringVar(&pc16Pin, "pc16", "", "PC16 GPIO pin (classic only)")

	rootCmd.PersistentFlags().StringVarP(&dialect, "dialect", "d", "powerseries", "Panel dialect: powerseries or classic")
	rootCmd.PersistentFlags().IntVar(&partitions, "partitions", 8, "Number of partitions to decode")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("failed", "err", err)
	}
}
