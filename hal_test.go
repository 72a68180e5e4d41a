package dsc

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type fakeTimer struct {
	at uint32
	fn func()
}

// fakeHardware replays clock and data waveforms on a simulated
// microsecond clock. Callbacks run on the goroutine driving the bus.
type fakeHardware struct {
	now atomic.Uint32

	mu     sync.Mutex
	lines  [4]bool
	timers []fakeTimer
	edge   func()

	// what the panel and the keypads put on the data line.
	panelBit  bool
	moduleBit bool
	pc16Bit   bool

	frame int
	bit   int
	pulls []pull
}

// pull records the write line going low during a module bit.
type pull struct {
	frame int
	bit   int
}

func newFakeHardware() *fakeHardware {
	hw := &fakeHardware{}
	hw.now.Store(1)
	hw.lines[LineClock] = true
	return hw
}

func (hw *fakeHardware) Read(l Line) bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	switch l {
	case LineData:
		if hw.lines[LineClock] {
			return hw.panelBit
		}
		return hw.moduleBit && !hw.lines[LineWrite]
	case LinePC16:
		return hw.pc16Bit
	}
	return hw.lines[l]
}

func (hw *fakeHardware) Write(l Line, high bool) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.lines[l] = high
	if l == LineWrite && high {
		hw.pulls = append(hw.pulls, pull{hw.frame, hw.bit})
	}
}

func (hw *fakeHardware) AfterFunc(d time.Duration, fn func()) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.timers = append(hw.timers, fakeTimer{
		at: hw.now.Load() + uint32(d/time.Microsecond),
		fn: fn,
	})
}

func (hw *fakeHardware) OnEdge(_ Line, fn func()) error {
	hw.edge = fn
	return nil
}

func (hw *fakeHardware) Micros() uint32 {
	return hw.now.Load()
}

// advance moves the clock forward, firing the timers that are due.
func (hw *fakeHardware) advance(us uint32) {
	end := hw.now.Load() + us
	for {
		hw.mu.Lock()
		sort.SliceStable(hw.timers, func(a, b int) bool { return hw.timers[a].at < hw.timers[b].at })
		if len(hw.timers) == 0 || hw.timers[0].at > end {
			hw.mu.Unlock()
			break
		}
		t := hw.timers[0]
		hw.timers = hw.timers[1:]
		hw.mu.Unlock()
		hw.now.Store(t.at)
		t.fn()
	}
	hw.now.Store(end)
}

func (hw *fakeHardware) setClock(high bool) {
	hw.mu.Lock()
	hw.lines[LineClock] = high
	hw.mu.Unlock()
	if hw.edge != nil {
		hw.edge()
	}
}

// send drives one frame: every bit is a 500µs low half carrying the module
// bit followed by a 500µs high half carrying the panel bit. The clock then
// stays high long enough to end the frame. module and pc16 may be shorter
// than panel, missing bits read idle.
func (hw *fakeHardware) send(panel, module, pc16 []bool, gap uint32) {
	for n := range panel {
		hw.mu.Lock()
		hw.bit = n
		hw.moduleBit = n >= len(module) || module[n]
		hw.mu.Unlock()
		hw.setClock(false)
		hw.advance(500)

		hw.mu.Lock()
		hw.panelBit = panel[n]
		hw.pc16Bit = n < len(pc16) && pc16[n]
		hw.mu.Unlock()
		hw.setClock(true)
		if n == len(panel)-1 {
			hw.advance(gap)
		} else {
			hw.advance(500)
		}
	}
	hw.mu.Lock()
	hw.frame++
	hw.panelBit = true
	hw.mu.Unlock()
}

// end closes the last frame sent with a falling edge. It leaves a one bit
// fragment behind, which the sampler drops as spurious.
func (hw *fakeHardware) end() {
	hw.setClock(false)
	hw.advance(500)
	hw.setClock(true)
	hw.advance(3000)
}

func (hw *fakeHardware) pullsIn(frame int) []int {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	var bits []int
	for _, p := range hw.pulls {
		if p.frame == frame {
			bits = append(bits, p.bit)
		}
	}
	return bits
}

// bitsOf expands bytes MSB first. With stopBit, a 0 stop bit follows the
// first byte, as PowerSeries panels send it. A trailing 1 is the idle line
// read at the start of the inter-frame gap.
func bitsOf(stopBit bool, data ...byte) []bool {
	var out []bool
	for n, b := range data {
		for bit := 7; bit >= 0; bit-- {
			out = append(out, b&(1<<bit) != 0)
		}
		if n == 0 && stopBit {
			out = append(out, false)
		}
	}
	return append(out, true)
}

// psFrame builds a PowerSeries frame the way the sampler stores it.
func psFrame(cmd byte, payload ...byte) Frame {
	var f Frame
	f.Data[0] = cmd
	copy(f.Data[2:], payload)
	f.Bytes = 2 + len(payload)
	f.Bits = 9 + 8*len(payload) + 1
	// the idle bit at the end of the frame.
	if f.Bytes < ReadSize {
		f.Data[f.Bytes] = 1
	}
	return f
}

// psFrameCRC is psFrame with the checksum appended.
func psFrameCRC(cmd byte, payload ...byte) Frame {
	buf := append([]byte{cmd, 0}, payload...)
	return psFrame(cmd, append(payload, checksum(buf))...)
}
