package dsc

// decoder handles one command. crc tells whether the command carries a
// checksum that has to match before anything is decoded.
type decoder struct {
	fn  func(i *Interface, f *Frame)
	crc bool
}

var decoders = [256]decoder{
	CmdStatus:         {fn: (*Interface).decodeStatus},
	CmdStatusHigh:     {fn: (*Interface).decodeStatus},
	CmdAlarmVerify:    {fn: (*Interface).decodeAlarmVerify},
	CmdProgramming:    {fn: (*Interface).decodeProgramming, crc: true},
	CmdProgrammingAlt: {fn: (*Interface).decodeProgramming, crc: true},
	CmdZones1:         {fn: (*Interface).decodeZones, crc: true},
	CmdZones2:         {fn: (*Interface).decodeZones, crc: true},
	CmdZones3:         {fn: (*Interface).decodeZones, crc: true},
	CmdZones4:         {fn: (*Interface).decodeZones, crc: true},
	CmdOutputs:        {fn: (*Interface).decodeOutputs, crc: true},
	CmdEvent:          {fn: (*Interface).decodeEvent, crc: true},
	CmdEnabledZones:   {fn: (*Interface).decodeEnabledZones, crc: true},
	CmdBell:           {fn: (*Interface).decodeBell, crc: true},
	CmdExtended:       {fn: (*Interface).decodeExtended, crc: true},
	CmdEventExtended:  {fn: (*Interface).decodeEventExtended, crc: true},
}

// decode applies a PowerSeries frame to the status.
func (i *Interface) decode(f *Frame) {
	cmd := f.Cmd()

	// nothing is trusted until a status frame or a frame with a valid
	// checksum shows the capture is aligned.
	if !i.started {
		switch {
		case cmd == CmdStatus || cmd == CmdStatusHigh:
			i.started = true
			i.keybusV1 = f.Bytes == 6
		case cmd == 0 || !f.ValidCRC():
			return
		}
	}

	i.decodeModule(f)

	d := decoders[cmd]
	if d.fn == nil {
		return
	}
	if d.crc && !f.ValidCRC() {
		i.crcErrors++
		log.Debug("checksum mismatch", "cmd", cmd, "data", f)
		return
	}
	if i.repeated(f) {
		return
	}
	d.fn(i, f)
}

// repeated filters frames that panels resend without any change.
func (i *Interface) repeated(f *Frame) bool {
	cmd := f.Cmd()
	key := cmd
	switch {
	case cmd == CmdProgramming || cmd == CmdProgrammingAlt:
	case cmd == CmdExtended && f.Data[2] == 0x20:
		key = 0x20
	case cmd == CmdExtended && f.Data[2] == 0x03 && i.cfg.Partitions > 4:
		key = 0x03
	default:
		return false
	}
	prev, ok := i.prevFrames[key]
	if ok && prev.Data == f.Data && prev.Bits == f.Bits {
		return true
	}
	i.prevFrames[key] = *f
	return false
}

// decodeModule looks at what keypads and modules wrote back, so keys
// pressed on physical keypads are logged.
func (i *Interface) decodeModule(f *Frame) {
	if f.ModuleBits == 0 {
		return
	}
	if f.ModuleBits > alarmSlotBit+8 {
		if code := readBits(f.Module[:], alarmSlotBit, 8); code != idleKey {
			if key, ok := DecodeKey(PowerSeries, code, true); ok {
				log.Info("keypad alarm key", "key", string(key))
			}
		}
	}
	for n, slot := range partitionSlots[:4] {
		if f.ModuleBits <= slot.bit+8 {
			break
		}
		code := readBits(f.Module[:], slot.bit, 8)
		if code == idleKey {
			continue
		}
		if !validKeyCode(code) {
			log.Debug("invalid key code", "code", code)
			continue
		}
		partition := n + 1
		if f.Cmd() == CmdStatusHigh {
			partition += 4
		}
		if key, ok := DecodeKey(PowerSeries, code, false); ok {
			log.Debug("keypad key", "partition", partition, "key", string(key))
		}
	}
}

func (i *Interface) decodeProgramming(f *Frame) {
	p := &i.status.Partitions[0]
	if f.Bytes > 3 {
		i.setLights(p, f.Data[3])
	}
}

// decodeAlarmVerify logs the panel asking keypads to repeat an alarm key.
// The writer already repeats alarm keys on the next frame on its own.
func (i *Interface) decodeAlarmVerify(f *Frame) {
	log.Debug("alarm key verification", "data", f)
}

func (i *Interface) decodeBell(f *Frame) {
	s := &i.status
	update(s, &s.Bell, &s.prev.bell, &s.BellChanged, f.Data[3]&0x01 != 0)
}

func (i *Interface) decodeOutputs(f *Frame) {
	state := uint16(f.Data[3]) | uint16(f.Data[2]&0x3f)<<8
	i.status.setOutputs(state)
}
