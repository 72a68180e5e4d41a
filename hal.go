package dsc

import "time"

// Line identifies one of the bus signals wired to the host.
type Line uint8

const (
	// LineClock is the panel generated clock, input only.
	LineClock Line = iota
	// LineData is the bus data line, sampled 250µs after each clock edge.
	LineData
	// LinePC16 is the secondary status line, Classic panels only.
	LinePC16
	// LineWrite drives the transistor that pulls the data line low.
	// Writing true pulls data low, writing false releases it.
	LineWrite
)

func (l Line) String() string {
	switch l {
	case LineClock:
		return "clock"
	case LineData:
		return "data"
	case LinePC16:
		return "pc16"
	case LineWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Hardware is the platform shim the bus interface needs.
//
// Callbacks registered with OnEdge and AfterFunc must never run
// concurrently with each other: on a microcontroller they are both
// interrupt handlers, on Linux the implementation serializes them.
type Hardware interface {
	// Read returns the current level of the given line.
	Read(l Line) bool

	// Write sets the level of an output line.
	Write(l Line, high bool)

	// AfterFunc arms a one-shot timer that calls fn once after d.
	AfterFunc(d time.Duration, fn func())

	// OnEdge registers fn to be called on every rising and falling edge.
	OnEdge(l Line, fn func()) error

	// Micros returns a free running microsecond counter; it may wrap.
	Micros() uint32
}
