// Package gpio drives the bus from Linux GPIO pins.
//
// Go cannot run real interrupt handlers, so edges are picked up by a
// goroutine blocked on the clock pin and every callback, edges and sample
// timers alike, runs on a single dispatch goroutine. The sample timing is as
// good as the scheduler allows, a board with a realtime kernel helps.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "gpio",
})

// Pins are the GPIO names (e.g. "GPIO17") of the bus lines. Write and PC16
// are optional.
type Pins struct {
	Clock string
	Data  string
	Write string
	PC16  string
}

// Hardware implements dsc.Hardware.
type Hardware struct {
	pins  [4]gpio.PinIO
	start time.Time

	events chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ dsc.Hardware = &Hardware{}

// Open initializes the host drivers and configures the pins.
func Open(ctx context.Context, names Pins) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize periph host: %w", err)
	}
	if names.Clock == "" || names.Data == "" {
		return nil, errors.New("clock and data pins must be set")
	}

	var pins [4]gpio.PinIO
	// sysfs pins can take a moment to show up right after boot.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(func() error {
		for line, name := range map[dsc.Line]string{
			dsc.LineClock: names.Clock,
			dsc.LineData:  names.Data,
			dsc.LineWrite: names.Write,
			dsc.LinePC16:  names.PC16,
		} {
			if name == "" {
				continue
			}
			pin := gpioreg.ByName(name)
			if pin == nil {
				return fmt.Errorf("invalid %s pin: %s", line, name)
			}
			pins[line] = pin
		}
		return nil
	}, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	return newHardware(ctx, pins)
}

func newHardware(ctx context.Context, pins [4]gpio.PinIO) (*Hardware, error) {
	if err := pins[dsc.LineClock].In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("could not configure clock pin: %w", err)
	}
	if err := pins[dsc.LineData].In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("could not configure data pin: %w", err)
	}
	if pin := pins[dsc.LinePC16]; pin != nil {
		if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("could not configure pc16 pin: %w", err)
		}
	}
	if pin := pins[dsc.LineWrite]; pin != nil {
		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("could not configure write pin: %w", err)
		}
	}

	h := &Hardware{
		pins:   pins,
		start:  time.Now(),
		events: make(chan func(), 64),
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.dispatch()
	return h, nil
}

func (h *Hardware) dispatch() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case fn := <-h.events:
			fn()
		}
	}
}

func (h *Hardware) post(fn func()) {
	select {
	case h.events <- fn:
	case <-h.ctx.Done():
	}
}

// Read returns the level of a line, unconfigured lines read low.
func (h *Hardware) Read(l dsc.Line) bool {
	pin := h.pins[l]
	if pin == nil {
		return false
	}
	return pin.Read() == gpio.High
}

// Write sets the level of the write line.
func (h *Hardware) Write(l dsc.Line, high bool) {
	pin := h.pins[l]
	if l != dsc.LineWrite || pin == nil {
		return
	}
	if err := pin.Out(gpio.Level(high)); err != nil {
		log.Error("could not write", "line", l, "err", err)
	}
}

// AfterFunc calls fn on the dispatch goroutine after d.
func (h *Hardware) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { h.post(fn) })
}

// OnEdge watches the clock line, other lines do not support edges.
func (h *Hardware) OnEdge(l dsc.Line, fn func()) error {
	if l != dsc.LineClock {
		return fmt.Errorf("edges are not supported on the %s line", l)
	}
	pin := h.pins[l]
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for h.ctx.Err() == nil {
			if pin.WaitForEdge(time.Second) {
				h.post(fn)
			}
		}
	}()
	return nil
}

// Micros returns the microseconds since Open.
func (h *Hardware) Micros() uint32 {
	return uint32(time.Since(h.start) / time.Microsecond)
}

// Close stops the edge watcher and the dispatcher and releases the write
// line.
func (h *Hardware) Close() error {
	h.cancel()
	if pin := h.pins[dsc.LineClock]; pin != nil {
		if err := pin.Halt(); err != nil {
			log.Warn("could not halt clock pin", "err", err)
		}
	}
	h.wg.Wait()
	if pin := h.pins[dsc.LineWrite]; pin != nil {
		if err := pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("could not release write pin: %w", err)
		}
	}
	return nil
}
