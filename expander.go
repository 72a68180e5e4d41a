package dsc

// Zone expander emulation. An emulated expander answers the panel's
// supervision query to announce itself, and the zone query of its address
// with the state of its eight zones.

// supervisorySlot is where a module address answers the 0x11 query: the
// module byte and the mask that keeps the bits of every other module.
type supervisorySlot struct {
	byteIndex int
	mask      byte
}

var supervisorySlots = map[int]supervisorySlot{
	9:  {2, 0x3f},
	10: {2, 0xcf},
	11: {2, 0xf3},
	12: {2, 0xfc},
	13: {3, 0x3f},
	14: {3, 0xcf},
	16: {3, 0xfc}, // relay module
}

// expanderQueries maps the zone query commands to the address they poll.
var expanderQueries = map[byte]int{
	CmdExpanderQuery9:  9,
	CmdExpanderQuery10: 10,
	CmdExpanderQuery11: 11,
}

const expanderResponseBit = 9

// Expander emulates zone expander modules on the bus.
type Expander struct {
	iface *Interface

	// guarded by the exclusion.
	slots  [ReadSize]byte
	faults [MaxZoneGroups]byte

	// interrupt side.
	response []byte
}

func newExpander(i *Interface) *Expander {
	x := &Expander{iface: i}
	for n := range x.slots {
		x.slots[n] = 0xff
	}
	return x
}

// expanderAddress returns the module address serving a zone.
func expanderAddress(zone int) int {
	return (zone-1)/8 + 8
}

// SetZoneFault sets whether a zone of an emulated expander is open. Zones
// 1-8 belong to the panel itself and zones outside the configured range are
// ignored.
func (x *Expander) SetZoneFault(zone int, open bool) {
	// TODO: zones 57-64 answer on address 15, which has no supervisory
	// mask yet.
	if zone <= 8 || zone > x.iface.maxZones() || zone > 56 {
		log.Debug("ignoring expander zone", "zone", zone)
		return
	}
	group := (zone - 1) / 8
	bit := byte(1) << ((zone - 1) % 8)
	x.iface.ex.do(func() {
		if open {
			x.faults[group] |= bit
		} else {
			x.faults[group] &^= bit
		}
	})
}

// SetSupervisorySlot makes the given module address present or absent on
// the supervision query.
func (x *Expander) SetSupervisorySlot(addr int, present bool) {
	slot, ok := supervisorySlots[addr]
	if !ok {
		return
	}
	if addr != 16 && (addr-8)*8 >= x.iface.maxZones() {
		return
	}
	x.iface.ex.do(func() {
		if present {
			x.slots[slot.byteIndex] &= slot.mask
		} else {
			x.slots[slot.byteIndex] |= ^slot.mask
		}
	})
}

// zoneResponse encodes the eight zones of a group: two bits per zone, 01
// closed and 10 open, followed by the sum of both bytes.
func zoneResponse(faults byte) []byte {
	var out [3]byte
	for n := 0; n < 8; n++ {
		pair := byte(0x01)
		if faults&(1<<n) != 0 {
			pair = 0x02
		}
		out[n/4] |= pair << (6 - 2*(n%4))
	}
	out[2] = out[0] + out[1]
	return out[:]
}

// edge returns whether the module bit about to be sampled has to be pulled
// low to answer a query.
func (x *Expander) edge(bit int, cmd byte, known bool) bool {
	if bit == expanderResponseBit && known {
		x.prepare(cmd)
	}
	if x.response == nil || bit < expanderResponseBit {
		return false
	}
	off := bit - expanderResponseBit
	if off >= len(x.response)*8 {
		return false
	}
	return x.response[off/8]&(0x80>>(off%8)) == 0
}

func (x *Expander) prepare(cmd byte) {
	if cmd == CmdModuleSupervise {
		x.iface.ex.do(func() {
			x.response = append(x.response[:0], x.slots[2:4]...)
		})
		return
	}
	addr, ok := expanderQueries[cmd]
	if !ok {
		return
	}
	slot := supervisorySlots[addr]
	x.iface.ex.do(func() {
		// only answer for modules announced on the supervision query.
		if x.slots[slot.byteIndex]|slot.mask == 0xff {
			return
		}
		x.response = zoneResponse(x.faults[addr-8])
	})
}

func (x *Expander) frameDone() {
	x.response = nil
}
