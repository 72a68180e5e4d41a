package dsc

// decodeTime reads the panel clock packed in the four bytes at off.
func decodeTime(d []byte) (Time, bool) {
	tens := int(d[0] >> 4)
	t := Time{
		Year:   tens*10 + int(d[0]&0x0f),
		Month:  int(d[1]>>2) & 0x0f,
		Day:    int(d[1]&0x03)<<3 | int(d[2]>>5),
		Hour:   int(d[2] & 0x1f),
		Minute: int(d[3] >> 2),
	}
	if tens >= 7 {
		t.Year += 1900
	} else {
		t.Year += 2000
	}
	ok := t.Month >= 1 && t.Month <= 12 &&
		t.Day >= 1 && t.Day <= 31 &&
		t.Hour < 24 && t.Minute < 60
	return t, ok
}

func (i *Interface) setTime(d []byte) {
	t, ok := decodeTime(d)
	if !ok {
		log.Debug("invalid panel time", "data", d)
		return
	}
	s := &i.status
	update(s, &s.Time, &s.prev.time, &s.TimeChanged, t)
}

// decodeEvent handles 0xA5: panel time and an event for partitions 1-2, or
// for the whole system when the partition is 0.
func (i *Interface) decodeEvent(f *Frame) {
	i.setTime(f.Data[2:6])
	partition := int(f.Data[3] >> 6)
	i.decodeEventTable(partition, f.Data[5]&0x03, f.Data[6])
}

// decodeEventExtended handles 0xEB: same as 0xA5 with a partition bitmask,
// for panels with more than two partitions.
func (i *Interface) decodeEventExtended(f *Frame) {
	i.setTime(f.Data[3:7])
	mask := f.Data[2]
	if mask == 0 {
		i.decodeEventTable(0, f.Data[7]&0x03, f.Data[8])
		return
	}
	for bit := 0; bit < MaxPartitions; bit++ {
		if mask&(1<<bit) != 0 {
			i.decodeEventTable(bit+1, f.Data[7]&0x03, f.Data[8])
		}
	}
}

func (i *Interface) decodeEventTable(partition int, table, event byte) {
	log.Debug("event", "partition", partition, "table", table, "event", event)
	switch table {
	case 0:
		i.decodeEvent0(partition, event)
	case 1:
		i.decodeEvent1(partition, event)
	case 2, 3:
		i.decodeAccessCodeEvent(partition, table == 2, event)
	}
}

// accessCode maps the event offset to the access code number: 1-34 are
// user codes, then 40 (master), 41 and 42 (supervisor).
func accessCode(offset byte) int {
	code := int(offset)
	if code >= 35 {
		code += 5
	}
	return code
}

func (i *Interface) partition(n int) *Partition {
	if n < 1 || n > i.cfg.Partitions {
		return nil
	}
	return &i.status.Partitions[n-1]
}

func (i *Interface) decodeEvent0(partition int, event byte) {
	s := &i.status

	// system events, no partition needed.
	switch event {
	case 0x4E:
		update(s, &s.KeypadFireAlarm, &s.prev.keypadFire, &s.KeypadAlarmChanged, true)
		return
	case 0x4F:
		update(s, &s.KeypadAuxAlarm, &s.prev.keypadAux, &s.KeypadAlarmChanged, true)
		return
	case 0x50:
		update(s, &s.KeypadPanicAlarm, &s.prev.keypadPanic, &s.KeypadAlarmChanged, true)
		return
	case 0xE7, 0xEF:
		update(s, &s.BatteryTrouble, &s.prev.batteryTrouble, &s.BatteryTroubleChanged, event == 0xE7)
		return
	case 0xE8, 0xF0:
		update(s, &s.PowerTrouble, &s.prev.powerTrouble, &s.PowerTroubleChanged, event == 0xE8)
		return
	}

	p := i.partition(partition)
	if p == nil {
		return
	}
	switch {
	case event >= 0x09 && event <= 0x28:
		zone := int(event - 0x08)
		if zone <= i.maxZones() {
			s.setAlarmZone(zone, true)
			update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, true)
		}
	case event >= 0x29 && event <= 0x48:
		zone := int(event - 0x28)
		if zone <= i.maxZones() {
			s.setAlarmZone(zone, false)
		}
	case event == 0x49:
		// duress
	case event == 0x4A:
		update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, false)
	case event == 0x4B:
		update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, true)
	case event >= 0x99 && event <= 0xBD:
		i.setAccessCode(p, accessCode(event-0x98))
	case event >= 0xC0 && event <= 0xE4:
		i.setAccessCode(p, accessCode(event-0xBF))
		i.disarm(p, p.Ready)
	case event == 0xE6:
		i.disarm(p, p.Ready)
	}
}

func (i *Interface) decodeEvent1(partition int, event byte) {
	s := &i.status
	p := i.partition(partition)
	if p == nil {
		return
	}
	switch {
	case event >= 0x24 && event <= 0x43:
		zone := int(event) - 0x03
		if zone <= i.maxZones() {
			s.setAlarmZone(zone, true)
			update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, true)
		}
	case event >= 0x44 && event <= 0x63:
		zone := int(event) - 0x23
		if zone <= i.maxZones() {
			s.setAlarmZone(zone, false)
		}
	}
}

// decodeAccessCodeEvent handles the arm and disarm events of access codes
// 35-95, where the event is the code number itself.
func (i *Interface) decodeAccessCodeEvent(partition int, armed bool, event byte) {
	p := i.partition(partition)
	if p == nil || event < 35 || event > 95 {
		return
	}
	i.setAccessCode(p, int(event))
	if !armed {
		i.disarm(p, p.Ready)
	}
}

func (i *Interface) setAccessCode(p *Partition, code int) {
	update(&i.status, &p.AccessCode, &p.prev.accessCode, &p.AccessCodeChanged, code)
}
