package dsc

// Key slot for partitions, as (byte index, first bit) within the panel
// command. Partitions 1-4 are written during 0x05, 5-8 during 0x1B.
type keySlot struct {
	byteIndex int
	bit       int
}

var partitionSlots = [8]keySlot{
	{2, 9}, {3, 17}, {8, 57}, {9, 65},
	{2, 9}, {3, 17}, {8, 57}, {9, 65},
}

// alarmSlotBit is where fire, aux and panic keys start on the module stream.
const alarmSlotBit = 1

// idleKey is what the module stream reads when nobody writes.
const idleKey = 0xFF

type keyInfo struct {
	code  byte
	alarm bool
}

var powerSeriesKeys = map[byte]keyInfo{
	'0': {code: 0x00},
	'1': {code: 0x05},
	'2': {code: 0x0A},
	'3': {code: 0x0F},
	'4': {code: 0x11},
	'5': {code: 0x16},
	'6': {code: 0x1B},
	'7': {code: 0x1C},
	'8': {code: 0x22},
	'9': {code: 0x27},
	'*': {code: 0x28},
	'#': {code: 0x2D},
	'R': {code: 0xAA}, // reset
	'S': {code: 0xAF}, // arm stay
	'W': {code: 0xB1}, // arm away
	'N': {code: 0xB6}, // arm with no entry delay
	'C': {code: 0xBB}, // door chime
	'[': {code: 0xD5}, // command output 1
	']': {code: 0xDA}, // command output 2
	'X': {code: 0xE1}, // quick exit
	'{': {code: 0x70}, // command output 3
	'}': {code: 0xEC}, // command output 4
	'F': {code: 0xBB, alarm: true},
	'A': {code: 0xDD, alarm: true},
	'P': {code: 0xEE, alarm: true},
}

// Classic keypads scan a row/column matrix, the code is active low.
var classicKeys = map[byte]keyInfo{
	'0': {code: 0xD7},
	'1': {code: 0xBE},
	'2': {code: 0xDE},
	'3': {code: 0xEE},
	'4': {code: 0xBD},
	'5': {code: 0xDD},
	'6': {code: 0xED},
	'7': {code: 0xBB},
	'8': {code: 0xDB},
	'9': {code: 0xEB},
	'*': {code: 0xB7},
	'#': {code: 0xE7},
	'S': {code: 0xAF},
	'W': {code: 0xB1},
	'F': {code: 0x3F, alarm: true},
	'A': {code: 0x5F, alarm: true},
	'P': {code: 0x6F, alarm: true},
}

func keyTable(d Dialect) map[byte]keyInfo {
	if d == Classic {
		return classicKeys
	}
	return powerSeriesKeys
}

func upper(key byte) byte {
	if key >= 'a' && key <= 'z' {
		return key - 'a' + 'A'
	}
	return key
}

// EncodeKey returns the bus code for a key character, and whether it is one
// of the alarm keys (fire, aux, panic).
func EncodeKey(d Dialect, key byte) (code byte, alarm bool, ok bool) {
	info, ok := keyTable(d)[upper(key)]
	return info.code, info.alarm, ok
}

// DecodeKey returns the key character for a code read from the keypad slot.
// Alarm keys are only looked up when alarm is true, since they live in their
// own slot and reuse codes of regular keys.
func DecodeKey(d Dialect, code byte, alarm bool) (byte, bool) {
	for key, info := range keyTable(d) {
		if info.code == code && info.alarm == alarm {
			return key, true
		}
	}
	return 0, false
}

// keyChecksum is the 2-bit check PowerSeries keypads append to the 6-bit key
// index: the sum of its three 2-bit pairs.
func keyChecksum(index byte) byte {
	return (index>>4&0x03 + index>>2&0x03 + index&0x03) & 0x03
}

// validKeyCode reports whether a regular PowerSeries key code carries a
// consistent checksum.
func validKeyCode(code byte) bool {
	return keyChecksum(code>>2) == code&0x03
}

// readBits extracts n bits MSB-first starting at bit, using the PowerSeries
// layout where byte 1 only holds the stop bit.
func readBits(buf []byte, bit, n int) byte {
	var v byte
	for i := 0; i < n; i++ {
		v <<= 1
		idx, pos := bitPosition(bit + i)
		if idx < len(buf) && buf[idx]&(1<<pos) != 0 {
			v |= 1
		}
	}
	return v
}

// bitPosition maps an absolute bit number within a PowerSeries stream to a
// byte index and the bit position inside that byte.
func bitPosition(bit int) (int, uint) {
	switch {
	case bit < 8:
		return 0, uint(7 - bit)
	case bit == 8:
		return 1, 0
	default:
		b := bit - 9
		return 2 + b/8, uint(7 - b%8)
	}
}
