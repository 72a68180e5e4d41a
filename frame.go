package dsc

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ReadSize is the maximum number of bytes captured per frame.
const ReadSize = 16

// Panel commands the decoder knows about.
const (
	CmdStatus          = 0x05
	CmdProgramming     = 0x0A
	CmdProgrammingAlt  = 0x0F
	CmdModuleSupervise = 0x11
	CmdStatusHigh      = 0x1B // partitions 5-8
	CmdAlarmVerify     = 0x1C
	CmdZones1          = 0x27
	CmdExpanderQuery9  = 0x28
	CmdZones2          = 0x2D
	CmdExpanderQuery10 = 0x33
	CmdZones3          = 0x34
	CmdExpanderQuery11 = 0x39
	CmdZones4          = 0x3E
	CmdOutputs         = 0x87
	CmdEvent           = 0xA5
	CmdEnabledZones    = 0xB1
	CmdBell            = 0xBB
	CmdExtended        = 0xE6
	CmdEventExtended   = 0xEB
)

// Frame is one captured bus cycle: the panel bits sent while the clock was
// high, the keypad/module bits sent while it was low, and, on Classic
// panels, the PC16 status line.
type Frame struct {
	Data       [ReadSize]byte
	Module     [ReadSize]byte
	PC16       [ReadSize]byte
	Bits       int
	Bytes      int
	ModuleBits int
	// Time is the microsecond counter when the frame started.
	Time uint32
}

// Cmd is the command byte, which identifies the message type.
func (f Frame) Cmd() byte {
	return f.Data[0]
}

// Payload returns the captured panel bytes.
func (f Frame) Payload() []byte {
	n := f.Bytes
	if n > ReadSize {
		n = ReadSize
	}
	return f.Data[:n]
}

// ValidCRC reports whether the trailing byte matches the sum of the
// preceding bytes, skipping the stop bit at index 1.
func (f Frame) ValidCRC() bool {
	if f.Bits < 9 {
		return false
	}
	count := (f.Bits - 1) / 8
	if count >= ReadSize {
		return false
	}
	var sum int
	for i := 0; i < count; i++ {
		if i == 1 {
			continue
		}
		sum += int(f.Data[i])
	}
	return byte(sum%256) == f.Data[count]
}

// String formats the frame as hex, the way it is logged and sent over the
// bridge.
func (f Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s", f.Bits, hex.EncodeToString(f.Payload()))
	if f.ModuleBits > 0 {
		fmt.Fprintf(&sb, " %s", hex.EncodeToString(f.Module[:len(f.Payload())]))
	}
	return sb.String()
}

var commandNames = map[byte]string{
	CmdStatus:          "status",
	CmdProgramming:     "programming",
	CmdProgrammingAlt:  "programming",
	CmdModuleSupervise: "module supervision",
	CmdStatusHigh:      "status 5-8",
	CmdAlarmVerify:     "alarm key verification",
	CmdZones1:          "zones",
	CmdExpanderQuery9:  "expander query",
	CmdZones2:          "zones",
	CmdExpanderQuery10: "expander query",
	CmdZones3:          "zones",
	CmdExpanderQuery11: "expander query",
	CmdZones4:          "zones",
	CmdOutputs:         "outputs",
	CmdEvent:           "event",
	CmdEnabledZones:    "enabled zones",
	CmdBell:            "bell",
	CmdExtended:        "extended",
	CmdEventExtended:   "event 1-8",
}

// Name describes the command of a PowerSeries frame, or "unknown".
func (f Frame) Name() string {
	if name, ok := commandNames[f.Cmd()]; ok {
		return name
	}
	return "unknown"
}

// same reports whether two frames carry identical panel and module bytes.
func (f *Frame) same(o *Frame) bool {
	return f.Bits == o.Bits &&
		f.ModuleBits == o.ModuleBits &&
		f.Data == o.Data &&
		f.Module == o.Module &&
		f.PC16 == o.PC16
}

// checksum is the Keybus sum-mod-256 trailer for the given bytes, skipping
// the stop bit at index 1.
func checksum(buf []byte) byte {
	var sum byte
	for i, b := range buf {
		if i == 1 {
			continue
		}
		sum += b
	}
	return sum
}
