package dsc

import "time"

const (
	alarmKeyHold     = uint32(time.Second / time.Microsecond)
	alarmKeyCooldown = uint32(500 * time.Millisecond / time.Microsecond)
	asteriskTimeout  = uint32(2 * time.Second / time.Microsecond)
)

// writeRequest is the key handed over to the interrupt side.
type writeRequest struct {
	pending       bool
	key           byte
	code          byte
	alarm         bool
	partition     int
	asterisk      bool
	wroteAsterisk bool
}

// writer is the virtual keypad. Loop fills req, the interrupt side writes
// it on the bus and clears pending once the key went out.
type writer struct {
	iface *Interface

	// shared, guarded by the exclusion.
	req writeRequest

	// interrupt side.
	active      writeRequest
	armed       bool
	writing     bool
	sent        bool
	alarmWrites int

	// Loop side.
	keys          []byte
	partition     int
	hold          byte
	holdSince     uint32
	alarmInFlight bool
	cooling       bool
	coolSince     uint32
	asteriskSince uint32
	waitAsterisk  bool
}

func newWriter(i *Interface) *writer {
	return &writer{iface: i, partition: i.cfg.WritePartition}
}

// edge returns whether the module bit about to be sampled has to be pulled
// low.
func (w *writer) edge(bit int, cmd byte, known bool) bool {
	if bit == 0 {
		w.begin()
	}
	if !w.armed {
		return false
	}
	a := &w.active
	if a.alarm {
		start := alarmSlotBit
		if w.iface.cfg.Dialect == Classic {
			start = 0
		}
		return w.keyBit(bit, start, a.code)
	}

	slot := keySlot{}
	if w.iface.cfg.Dialect == PowerSeries {
		slot = partitionSlots[a.partition-1]
	}
	if bit == slot.bit {
		w.writing = known && w.slotCommand(cmd, a.partition)
	}
	if !w.writing {
		return false
	}
	return w.keyBit(bit, slot.bit, a.code)
}

func (w *writer) keyBit(bit, start int, code byte) bool {
	if bit < start || bit >= start+8 {
		return false
	}
	off := bit - start
	if off == 7 {
		w.sent = true
	}
	return code&(0x80>>off) == 0
}

func (w *writer) slotCommand(cmd byte, partition int) bool {
	if w.iface.cfg.Dialect == Classic {
		return true
	}
	if partition <= 4 {
		return cmd == CmdStatus
	}
	return cmd == CmdStatusHigh
}

// begin picks up the pending request at the start of a frame.
func (w *writer) begin() {
	w.iface.ex.do(func() {
		w.armed = w.req.pending && !w.req.wroteAsterisk
		w.active = w.req
	})
	if !w.armed {
		w.alarmWrites = 0
	}
	w.writing = false
	w.sent = false
}

// frameDone runs on the interrupt side once a frame ends.
func (w *writer) frameDone() {
	if !w.armed || !w.sent {
		w.armed = false
		return
	}
	w.armed = false
	w.sent = false
	switch {
	case w.active.alarm:
		// alarm keys are repeated on the following frame.
		w.alarmWrites++
		if w.alarmWrites < 2 {
			return
		}
		w.alarmWrites = 0
		w.iface.ex.do(func() { w.req.pending = false })
	case w.active.asterisk:
		w.iface.ex.do(func() { w.req.wroteAsterisk = true })
	default:
		w.iface.ex.do(func() { w.req.pending = false })
	}
}

// idle reports whether nothing is pending or being held.
func (w *writer) idle(now uint32) bool {
	var pending bool
	w.iface.ex.do(func() { pending = w.req.pending })
	if pending || w.hold != 0 || w.alarmInFlight {
		return false
	}
	return !w.cooling || now-w.coolSince >= alarmKeyCooldown
}

// ready reports whether a new key can be accepted right away.
func (w *writer) ready(now uint32) bool {
	return w.idle(now) && len(w.keys) == 0
}

// set hands a single key to the interrupt side. It reports false when the
// key is not valid for the dialect.
func (w *writer) set(key byte, now uint32) bool {
	code, alarm, ok := EncodeKey(w.iface.cfg.Dialect, key)
	if !ok {
		log.Debug("ignoring invalid key", "key", string(key))
		return false
	}
	if alarm {
		w.hold = key
		w.holdSince = now
		return true
	}
	req := writeRequest{
		pending:   true,
		key:       upper(key),
		code:      code,
		partition: w.partition,
		asterisk:  key == '*',
	}
	w.iface.ex.do(func() { w.req = req })
	return true
}

// enqueue adds a key string to the multi-key queue.
func (w *writer) enqueue(keys string) {
	room := w.iface.cfg.WriteQueueSize - len(w.keys)
	if len(keys) > room {
		log.Debug("write queue full, dropping keys", "dropped", keys[max(room, 0):])
		keys = keys[:max(room, 0)]
	}
	w.keys = append(w.keys, keys...)
}

// poll advances the Loop side of the writer.
func (w *writer) poll(now uint32) {
	var req writeRequest
	w.iface.ex.do(func() { req = w.req })

	if req.pending && req.wroteAsterisk {
		if !w.waitAsterisk {
			w.waitAsterisk = true
			w.asteriskSince = now
		} else if now-w.asteriskSince >= asteriskTimeout {
			log.Debug("no menu after '*', releasing writes")
			w.releaseAsterisk()
		}
	}

	if w.hold != 0 && now-w.holdSince >= alarmKeyHold {
		code, _, _ := EncodeKey(w.iface.cfg.Dialect, w.hold)
		alarmReq := writeRequest{pending: true, key: w.hold, code: code, alarm: true}
		w.iface.ex.do(func() { w.req = alarmReq })
		w.hold = 0
		w.alarmInFlight = true
		return
	}

	if w.alarmInFlight && !req.pending {
		w.alarmInFlight = false
		w.cooling = true
		w.coolSince = now
	}
	if w.cooling && now-w.coolSince >= alarmKeyCooldown {
		w.cooling = false
	}

	for len(w.keys) > 0 && w.idle(now) {
		key := w.keys[0]
		w.keys = w.keys[1:]
		if key == '/' {
			if len(w.keys) > 0 && w.keys[0] >= '1' && w.keys[0] <= '9' {
				w.partition = int(w.keys[0] - '0')
				w.keys = w.keys[1:]
			}
			continue
		}
		if w.partition > w.iface.cfg.Partitions {
			log.Debug("ignoring key for invalid partition", "key", string(key), "partition", w.partition)
			continue
		}
		if w.set(key, now) {
			return
		}
	}
}

// releaseAsterisk lets writes continue once the panel answered a '*'.
func (w *writer) releaseAsterisk() {
	w.iface.ex.do(func() {
		if w.req.wroteAsterisk {
			w.req = writeRequest{}
		}
	})
	w.waitAsterisk = false
}

// abandon drops every pending and queued key.
func (w *writer) abandon() {
	w.iface.ex.do(func() { w.req = writeRequest{} })
	w.keys = nil
	w.hold = 0
	w.alarmInFlight = false
	w.waitAsterisk = false
}
