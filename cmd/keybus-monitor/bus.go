package main

import (
	"context"
	"errors"
	"fmt"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/caarlos0/homekit-dsc/bridge"
	"github.com/caarlos0/homekit-dsc/gpio"
	logp "github.com/charmbracelet/log"
)

var errNoConnection = errors.New("one of --port, --addr or --clock and --data is required")

// openBus connects to the bus as set by the flags. The returned function
// releases it.
func openBus(ctx context.Context, onFrame func(dsc.Frame)) (*dsc.Interface, func(), error) {
	d, err := dsc.ParseDialect(dialect)
	if err != nil {
		return nil, nil, err
	}
	cfg := dsc.Config{
		Dialect:       d,
		Partitions:    partitions,
		VirtualKeypad: writePin != "",
		OnFrame:       onFrame,
	}
	if debug {
		dsc.SetLogLevel(logp.DebugLevel)
	}

	switch {
	case portName != "" || addr != "":
		cli, err := bridge.New(bridge.Options{Addr: addr, Port: portName, Baud: baudRate})
		if err != nil {
			return nil, nil, err
		}
		cfg.Remote = cli
		bus, err := dsc.New(nil, cfg)
		if err != nil {
			return nil, nil, err
		}
		go func() {
			if err := cli.Run(ctx, bus.Inject); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bridge stopped", "err", err)
			}
		}()
		return bus, func() { _ = cli.Close() }, nil

	case clockPin != "" && dataPin != "":
		hw, err := gpio.Open(ctx, gpio.Pins{
			Clock: clockPin,
			Data:  dataPin,
			Write: writePin,
			PC16:  pc16Pin,
		})
		if err != nil {
			return nil, nil, err
		}
		bus, err := dsc.New(hw, cfg)
		if err != nil {
			_ = hw.Close()
			return nil, nil, err
		}
		if err := bus.Start(); err != nil {
			_ = hw.Close()
			return nil, nil, fmt.Errorf("could not start keybus: %w", err)
		}
		return bus, func() {
			bus.Stop()
			_ = hw.Close()
		}, nil
	}
	return nil, nil, errNoConnection
}

// loop runs the bus until ctx is done, calling fn after every pass.
func loop(ctx context.Context, bus *dsc.Interface, fn func()) {
	for ctx.Err() == nil {
		if !bus.Loop() {
			sleep(ctx)
		}
		if fn != nil {
			fn()
		}
	}
}
