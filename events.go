package dsc

// Handlers are the callbacks HandleChanges invokes. Every field is
// optional.
type Handlers struct {
	Online          func(connected bool)
	ZoneOpen        func(zone int, open bool)
	ZoneAlarm       func(zone int, alarm bool)
	Fire            func(partition int, fire bool)
	Trouble         func(trouble, power, battery bool)
	PartitionStatus func(partition int, p Partition)
	Armed           func(partition int, p Partition)
	Alarm           func(partition int, alarm bool)
	Output          func(output int, on bool)
	Keypad          func(state KeypadState)

	// KeypadAlarm reports the latched keypad alarms, which are cleared
	// right after it runs.
	KeypadAlarm      func(fire, aux, panic bool)
	AccessCodePrompt func(prompt bool)
}

// HandleChanges invokes the handlers for everything flagged as changed and
// clears the flags it consumed. Outputs are acknowledged as OutputContact.
func (s *Status) HandleChanges(h Handlers) {
	if !s.StatusChanged {
		return
	}
	s.StatusChanged = false

	if s.KeybusChanged {
		s.KeybusChanged = false
		if h.Online != nil {
			h.Online(s.KeybusConnected)
		}
	}

	if s.TroubleChanged || s.PowerTroubleChanged || s.BatteryTroubleChanged {
		s.TroubleChanged = false
		s.PowerTroubleChanged = false
		s.BatteryTroubleChanged = false
		if h.Trouble != nil {
			h.Trouble(s.Trouble, s.PowerTrouble, s.BatteryTrouble)
		}
	}

	for n := range s.Partitions {
		s.handlePartition(n+1, h)
	}

	if s.OpenZonesStatusChanged {
		s.OpenZonesStatusChanged = false
		forChangedZones(&s.OpenZonesChanged, func(zone int) {
			if h.ZoneOpen != nil {
				h.ZoneOpen(zone, s.OpenZones.Zone(zone))
			}
		})
	}
	if s.AlarmZonesStatusChanged {
		s.AlarmZonesStatusChanged = false
		forChangedZones(&s.AlarmZonesChanged, func(zone int) {
			if h.ZoneAlarm != nil {
				h.ZoneAlarm(zone, s.AlarmZones.Zone(zone))
			}
		})
	}

	for n := 1; n <= MaxOutputs; n++ {
		if s.Outputs.Ack(n, OutputContact) && h.Output != nil {
			h.Output(n, s.Outputs.On(n))
		}
	}

	if s.KeypadChanged {
		s.KeypadChanged = false
		if h.Keypad != nil {
			h.Keypad(s.Keypad)
		}
	}

	if s.KeypadAlarmChanged {
		if h.KeypadAlarm != nil {
			h.KeypadAlarm(s.KeypadFireAlarm, s.KeypadAuxAlarm, s.KeypadPanicAlarm)
		}
		s.ClearKeypadAlarms()
	}

	if s.AccessCodePromptChanged {
		s.AccessCodePromptChanged = false
		if h.AccessCodePrompt != nil {
			h.AccessCodePrompt(s.AccessCodePrompt)
		}
	}
}

func (s *Status) handlePartition(n int, h Handlers) {
	p := &s.Partitions[n-1]
	if p.ArmedChanged || p.ExitDelayChanged || p.ExitStateChanged || p.EntryDelayChanged {
		p.ArmedChanged = false
		p.ExitDelayChanged = false
		p.ExitStateChanged = false
		p.EntryDelayChanged = false
		if h.Armed != nil {
			h.Armed(n, *p)
		}
	}
	if p.AlarmChanged {
		p.AlarmChanged = false
		if h.Alarm != nil {
			h.Alarm(n, p.Alarm)
		}
	}
	if p.FireChanged {
		p.FireChanged = false
		if h.Fire != nil {
			h.Fire(n, p.Fire)
		}
	}
	if p.StatusChanged || p.ReadyChanged || p.LightsChanged || p.DisabledChanged || p.AccessCodeChanged {
		p.StatusChanged = false
		p.ReadyChanged = false
		p.LightsChanged = false
		p.DisabledChanged = false
		p.AccessCodeChanged = false
		if h.PartitionStatus != nil {
			h.PartitionStatus(n, *p)
		}
	}
}

func forChangedZones(changed *ZoneGroups, fn func(zone int)) {
	for g := range changed {
		for bit := 0; bit < 8; bit++ {
			if changed[g]&(1<<bit) != 0 {
				fn(g*8 + bit + 1)
			}
		}
		changed[g] = 0
	}
}
