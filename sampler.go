package dsc

import "time"

// Bus timing.
const (
	SampleDelay       = 250 * time.Microsecond
	DisconnectTimeout = 3 * time.Second

	powerSeriesFrameGap = 2000 // µs of clock high that ends a frame
	classicFrameGap     = 1000
	minFrameBits        = 8
)

// stream accumulates the bits of one direction of the bus.
type stream struct {
	buf      [ReadSize]byte
	bits     int
	bytes    int
	bitCount int
}

// push appends a bit. On PowerSeries panels the 9th bit is a stop bit and
// is stored alone in byte 1.
func (s *stream) push(bit, stopBit bool) {
	if s.bytes >= ReadSize {
		return
	}
	s.buf[s.bytes] <<= 1
	if bit {
		s.buf[s.bytes] |= 1
	}
	switch {
	case stopBit && s.bits == 8:
		s.bytes++
		s.bitCount = 0
	case s.bitCount < 7:
		s.bitCount++
	default:
		s.bitCount = 0
		s.bytes++
	}
	s.bits++
}

func (s *stream) reset() {
	*s = stream{}
}

// sampler is the interrupt side of the interface: it runs on every clock
// edge and 250µs after it.
type sampler struct {
	iface *Interface
	gap   uint32

	panel  stream
	module stream
	pc16   stream

	highStart  uint32
	frameStart uint32
	pulling    bool

	prevStatus     Frame
	prevStatusHigh Frame
	prevClassic    Frame

	// shared with Loop, guarded by the exclusion.
	lastEdge        uint32
	sawEdge         bool
	redundantFrames uint64
	spuriousFrames  uint64
	stopped         bool
}

func newSampler(i *Interface) *sampler {
	s := &sampler{iface: i, gap: powerSeriesFrameGap}
	if i.cfg.Dialect == Classic {
		s.gap = classicFrameGap
	}
	return s
}

// onClockEdge runs on every transition of the clock line.
func (s *sampler) onClockEdge() {
	i := s.iface
	hw := i.hw
	now := hw.Micros()

	var stopped bool
	i.ex.do(func() {
		s.lastEdge = now
		s.sawEdge = true
		stopped = s.stopped
	})
	if stopped {
		return
	}

	if hw.Read(LineClock) {
		// the panel owns the high half: release anything we pulled.
		if s.pulling {
			hw.Write(LineWrite, false)
			s.pulling = false
		}
		s.highStart = now
		hw.AfterFunc(SampleDelay, s.onSample)
		return
	}

	if now-s.highStart > s.gap {
		s.finish()
		s.frameStart = now
	}

	if i.cfg.VirtualKeypad || i.expander != nil {
		if s.pull(s.module.bits) {
			hw.Write(LineWrite, true)
			s.pulling = true
		}
	}
	hw.AfterFunc(SampleDelay, s.onSample)
}

// onSample reads the data lines for the current half of the clock cycle.
func (s *sampler) onSample() {
	hw := s.iface.hw
	stopBit := s.iface.cfg.Dialect == PowerSeries
	if hw.Read(LineClock) {
		s.panel.push(hw.Read(LineData), stopBit)
		if s.iface.cfg.Dialect == Classic {
			s.pc16.push(hw.Read(LinePC16), false)
		}
		return
	}
	s.module.push(hw.Read(LineData), stopBit)
}

// pull decides whether the write line has to be held low for the module bit
// about to be sampled.
func (s *sampler) pull(bit int) bool {
	cmd, known := s.command()
	var pull bool
	if s.iface.cfg.VirtualKeypad && s.iface.writer.edge(bit, cmd, known) {
		pull = true
	}
	if x := s.iface.expander; x != nil && x.edge(bit, cmd, known) {
		pull = true
	}
	return pull
}

func (s *sampler) command() (byte, bool) {
	if s.iface.cfg.Dialect == Classic {
		return 0, true
	}
	if s.panel.bits < 8 {
		return 0, false
	}
	return s.panel.buf[0], true
}

// finish closes the frame being captured and hands it to the queue.
func (s *sampler) finish() {
	i := s.iface
	defer s.reset()

	if s.panel.bits < minFrameBits {
		if s.panel.bits > 0 {
			i.ex.do(func() { s.spuriousFrames++ })
		}
		return
	}

	var f Frame
	f.Data = s.panel.buf
	f.Module = s.module.buf
	f.PC16 = s.pc16.buf
	f.Bits = s.panel.bits
	f.Bytes = s.panel.bytes
	f.ModuleBits = s.module.bits
	f.Time = s.frameStart

	if s.redundant(&f) {
		i.ex.do(func() { s.redundantFrames++ })
		return
	}
	i.queue.push(&f)
}

// redundant filters periodic frames identical to the previous one of the
// same command.
func (s *sampler) redundant(f *Frame) bool {
	var prev *Frame
	switch {
	case s.iface.cfg.Dialect == Classic:
		prev = &s.prevClassic
	case f.Cmd() == CmdStatus:
		prev = &s.prevStatus
	case f.Cmd() == CmdStatusHigh:
		prev = &s.prevStatusHigh
	default:
		return false
	}
	if prev.Bits != 0 && prev.same(f) {
		return true
	}
	*prev = *f
	return false
}

func (s *sampler) reset() {
	s.panel.reset()
	s.module.reset()
	s.pc16.reset()
	s.iface.writer.frameDone()
	if x := s.iface.expander; x != nil {
		x.frameDone()
	}
}
