package dsc

import (
	"math/bits"
	"time"
)

// Bits of the PC16 status line, in the order they are sampled.
const (
	pc16Stay       = 1 << 0
	pc16ExitDelay  = 1 << 1
	pc16EntryDelay = 1 << 2
	pc16Alarm      = 1 << 3
	pc16Beep       = 1 << 7
)

// classicErrorBeep is the shortest beep that means the key was rejected.
const classicErrorBeep = uint32(500 * time.Millisecond / time.Microsecond)

// decodeClassic applies a Classic frame: byte 0 has the status lights and
// byte 1 the zone lights, both sent in reverse bit order.
func (i *Interface) decodeClassic(f *Frame) {
	if f.Bits < 16 {
		return
	}
	s := &i.status
	p := &s.Partitions[0]
	lights := bits.Reverse8(f.Data[0])
	zones := bits.Reverse8(f.Data[1])
	pc16 := bits.Reverse8(f.PC16[0])

	i.setLights(p, lights)
	update(s, &s.Trouble, &s.prev.trouble, &s.TroubleChanged, lights&LightTrouble != 0)
	update(s, &p.Fire, &p.prev.fire, &p.FireChanged, lights&LightFire != 0)

	armed := lights&LightArmed != 0
	stay := pc16&pc16Stay != 0
	i.setArmed(p, armed, armed && stay, armed && !stay, false)

	exit := pc16&pc16ExitDelay != 0
	state := ExitNone
	if exit {
		state = ExitAway
		if stay {
			state = ExitStay
		}
	}
	i.setDelays(p, exit, state, pc16&pc16EntryDelay != 0)
	update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, lights&LightReady != 0 && !armed)

	alarm := pc16&pc16Alarm != 0
	update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, alarm)
	// zone lights show the zones in alarm while the alarm is on.
	if alarm {
		s.setAlarmZoneGroup(0, zones)
	} else {
		s.setOpenZoneGroup(0, zones)
		s.setAlarmZoneGroup(0, 0)
	}

	i.classicKeys(f, pc16&pc16Beep != 0)
}

// classicKeys tracks keys pressed on the keypads. A key is accepted unless
// the keypad answers it with the long error beep.
func (i *Interface) classicKeys(f *Frame, beep bool) {
	if f.ModuleBits >= 8 {
		code := f.Module[0]
		if code != idleKey && code != i.prevModule {
			key, ok := DecodeKey(Classic, code, false)
			if !ok {
				key, ok = DecodeKey(Classic, code, true)
			}
			if ok {
				if i.lastKey != 0 {
					i.stepKeypad(i.lastKey, true)
				}
				i.lastKey = key
			}
		}
		i.prevModule = code
	}

	switch {
	case beep && !i.beeping:
		i.beeping = true
		i.beepStart = f.Time
	case !beep && i.beeping:
		i.beeping = false
		if i.lastKey != 0 {
			i.stepKeypad(i.lastKey, f.Time-i.beepStart < classicErrorBeep)
			i.lastKey = 0
		}
	}
}

func (i *Interface) stepKeypad(key byte, accepted bool) {
	s := &i.status
	state := i.keypad.step(key, accepted)
	log.Debug("keypad", "key", string(key), "accepted", accepted, "state", state)
	update(s, &s.Keypad, &s.prev.keypad, &s.KeypadChanged, state)
}
