package dsc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	logp "github.com/charmbracelet/log"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "keybus",
})

// SetLogLevel changes the level of the package logger.
func SetLogLevel(level logp.Level) {
	log.SetLevel(level)
}

// Dialect is the panel family on the bus.
type Dialect uint8

const (
	PowerSeries Dialect = iota
	Classic
)

func (d Dialect) String() string {
	if d == Classic {
		return "classic"
	}
	return "powerseries"
}

// ParseDialect parses "powerseries" or "classic".
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "powerseries", "power", "ps", "":
		return PowerSeries, nil
	case "classic":
		return Classic, nil
	}
	return 0, fmt.Errorf("invalid dialect: %q", s)
}

var (
	ErrDisconnected = errors.New("keybus is disconnected")
	ErrNoHardware   = errors.New("no hardware to start")
	ErrReadOnly     = errors.New("virtual keypad is disabled")
)

// KeySender forwards keys to a remote bus, when frames come from a bridge
// instead of local hardware.
type KeySender interface {
	SendKeys(ctx context.Context, keys string) error
}

// Config configures the interface.
type Config struct {
	Dialect Dialect
	// Partitions is how many partitions are decoded, 1-8.
	Partitions int
	// ZoneGroups is how many groups of 8 zones are decoded, 1-8.
	ZoneGroups int
	// QueueSize is the capacity of the frame queue.
	QueueSize int
	// WriteQueueSize caps the keys waiting in WriteKeys.
	WriteQueueSize int
	// VirtualKeypad enables writing keys on the bus.
	VirtualKeypad bool
	// WritePartition is the default partition keys are written to.
	WritePartition int
	// Expander enables the zone expander emulation.
	Expander bool
	// Remote receives the keys when frames are injected by a bridge.
	Remote KeySender
	// OnFrame is called by Loop with every frame, before it is decoded.
	OnFrame func(f Frame)
}

func (c Config) withDefaults() (Config, error) {
	if c.Partitions == 0 {
		c.Partitions = MaxPartitions
	}
	if c.ZoneGroups == 0 {
		c.ZoneGroups = MaxZoneGroups
	}
	if c.QueueSize == 0 {
		c.QueueSize = 50
	}
	if c.WritePartition == 0 {
		c.WritePartition = 1
	}
	if c.WriteQueueSize == 0 {
		c.WriteQueueSize = 32
	}
	if c.Dialect == Classic {
		c.Partitions = 1
		c.ZoneGroups = 1
		c.WritePartition = 1
	}
	switch {
	case c.Partitions < 1 || c.Partitions > MaxPartitions:
		return c, fmt.Errorf("invalid partitions: %d", c.Partitions)
	case c.ZoneGroups < 1 || c.ZoneGroups > MaxZoneGroups:
		return c, fmt.Errorf("invalid zone groups: %d", c.ZoneGroups)
	case c.QueueSize < 1:
		return c, fmt.Errorf("invalid queue size: %d", c.QueueSize)
	case c.WritePartition < 1 || c.WritePartition > c.Partitions:
		return c, fmt.Errorf("invalid write partition: %d", c.WritePartition)
	}
	return c, nil
}

// Stats are the bus counters.
type Stats struct {
	Frames    uint64
	CRCErrors uint64
	Redundant uint64
	Spurious  uint64
	Queued    int
	Overflow  bool
}

// Interface decodes and writes one Keybus.
type Interface struct {
	cfg      Config
	hw       Hardware
	start    time.Time
	ex       exclusion
	queue    *frameQueue
	sampler  *sampler
	writer   *writer
	expander *Expander
	status   Status
	keypad   keypadMachine

	started     bool
	keybusV1    bool
	prevFrames  map[byte]Frame
	frames      uint64
	crcErrors   uint64
	overflowLog bool
	beepStart   uint32
	beeping     bool
	lastKey     byte
	prevModule  byte
}

// New creates an interface. hw may be nil when frames are injected by a
// bridge instead.
func New(hw Hardware, cfg Config) (*Interface, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("could not create keybus interface: %w", err)
	}
	i := &Interface{
		cfg:        cfg,
		hw:         hw,
		start:      time.Now(),
		prevFrames: map[byte]Frame{},
	}
	i.queue = newFrameQueue(&i.ex, cfg.QueueSize)
	i.writer = newWriter(i)
	if cfg.Expander && cfg.Dialect == PowerSeries {
		i.expander = newExpander(i)
	}
	i.sampler = newSampler(i)
	return i, nil
}

// Start hooks the interface to the clock line.
func (i *Interface) Start() error {
	if i.hw == nil {
		return ErrNoHardware
	}
	i.hw.Write(LineWrite, false)
	i.ex.do(func() { i.sampler.stopped = false })
	if err := i.hw.OnEdge(LineClock, i.sampler.onClockEdge); err != nil {
		return fmt.Errorf("could not watch the clock line: %w", err)
	}
	log.Info("started", "dialect", i.cfg.Dialect, "partitions", i.cfg.Partitions, "zones", i.maxZones())
	return nil
}

// Stop makes the interrupt side ignore the bus and releases the write line.
func (i *Interface) Stop() {
	i.ex.do(func() { i.sampler.stopped = true })
	i.writer.abandon()
	if i.hw != nil {
		i.hw.Write(LineWrite, false)
	}
}

// Status returns the decoded model. It must only be used from the goroutine
// calling Loop.
func (i *Interface) Status() *Status {
	return &i.status
}

// ResetStatus flags every field as changed.
func (i *Interface) ResetStatus() {
	i.status.Reset()
}

// Expander returns the zone expander emulation, or nil when disabled.
func (i *Interface) Expander() *Expander {
	return i.expander
}

// Config returns the effective configuration.
func (i *Interface) Config() Config {
	return i.cfg
}

// Stats returns a snapshot of the counters.
func (i *Interface) Stats() Stats {
	st := Stats{
		Frames:    i.frames,
		CRCErrors: i.crcErrors,
		Queued:    i.queue.Len(),
		Overflow:  i.queue.Overflow(),
	}
	i.ex.do(func() {
		st.Redundant = i.sampler.redundantFrames
		st.Spurious = i.sampler.spuriousFrames
	})
	return st
}

// BufferOverflow reports whether frames were dropped since the last call,
// and clears the flag.
func (i *Interface) BufferOverflow() bool {
	ov := i.queue.Overflow()
	if ov {
		i.queue.clearOverflow()
		i.overflowLog = false
	}
	return ov
}

func (i *Interface) maxZones() int {
	return i.cfg.ZoneGroups * 8
}

func (i *Interface) micros() uint32 {
	if i.hw != nil {
		return i.hw.Micros()
	}
	return uint32(time.Since(i.start) / time.Microsecond)
}

// Inject queues a frame received from elsewhere, as if it was sampled from
// the bus. It takes the place of the interrupt side, so it must not be used
// together with Start.
func (i *Interface) Inject(f Frame) {
	now := i.micros()
	i.ex.do(func() {
		i.sampler.lastEdge = now
		i.sampler.sawEdge = true
	})
	if f.Time == 0 {
		f.Time = now
	}
	if i.sampler.redundant(&f) {
		i.ex.do(func() { i.sampler.redundantFrames++ })
		return
	}
	i.queue.push(&f)
}

// Loop processes at most one frame and reports whether the status may have
// changed.
func (i *Interface) Loop() bool {
	now := i.micros()
	s := &i.status
	var changed bool

	var last uint32
	var seen bool
	i.ex.do(func() { last, seen = i.sampler.lastEdge, i.sampler.sawEdge })
	connected := seen && now-last < uint32(DisconnectTimeout/time.Microsecond)
	if update(s, &s.KeybusConnected, &s.prev.keybusConnected, &s.KeybusChanged, connected) {
		changed = true
		if connected {
			log.Info("keybus connected")
		} else {
			log.Warn("keybus disconnected")
			i.writer.abandon()
		}
	}

	if i.queue.Overflow() && !i.overflowLog {
		i.overflowLog = true
		log.Warn("frame queue overflow", "capacity", i.queue.Cap())
	}

	i.writer.poll(now)

	var f Frame
	if !i.queue.pop(&f) {
		return changed
	}
	i.frames++
	log.Debug("frame", "data", f)
	if i.cfg.OnFrame != nil {
		i.cfg.OnFrame(f)
	}
	if i.cfg.Dialect == Classic {
		i.decodeClassic(&f)
	} else {
		i.decode(&f)
	}
	return true
}

// WriteReady reports whether the virtual keypad can take a key right away.
func (i *Interface) WriteReady() bool {
	if i.cfg.Remote != nil {
		return true
	}
	return i.writer.ready(i.micros())
}

// WriteKey queues a single key for the virtual keypad. It returns once the
// key is queued, not once it went out on the bus.
func (i *Interface) WriteKey(ctx context.Context, key byte) error {
	return i.WriteKeys(ctx, string(key), false)
}

// WriteKeys writes a sequence of keys. A "/" followed by a partition number
// changes the partition the following keys go to. Without blocking, keys
// are queued behind any pending ones and it returns right away. With
// blocking set, it waits for the queue to drain before and after queueing.
func (i *Interface) WriteKeys(ctx context.Context, keys string, blocking bool) error {
	if keys == "" {
		return nil
	}
	if i.cfg.Remote != nil {
		if err := i.cfg.Remote.SendKeys(ctx, keys); err != nil {
			return fmt.Errorf("could not send keys: %w", err)
		}
		return nil
	}
	if !i.cfg.VirtualKeypad {
		return ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !blocking {
		if !i.status.KeybusConnected {
			return ErrDisconnected
		}
		i.writer.enqueue(keys)
		i.writer.poll(i.micros())
		return nil
	}
	if err := i.waitWriter(ctx, i.writer.ready); err != nil {
		return err
	}
	i.writer.enqueue(keys)
	i.writer.poll(i.micros())
	return i.waitWriter(ctx, i.writer.ready)
}

func (i *Interface) waitWriter(ctx context.Context, ready func(uint32) bool) error {
	for {
		if !i.status.KeybusConnected {
			return ErrDisconnected
		}
		if ready(i.micros()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !i.Loop() {
			time.Sleep(time.Millisecond)
		}
	}
}
