package dsc

// Partition status messages, as sent in the status byte of 0x05 and 0x1B.
const (
	msgReady            = 0x01
	msgReadyForceArm    = 0x02
	msgZonesOpen        = 0x03
	msgArmedStay        = 0x04
	msgArmedAway        = 0x05
	msgArmedNoEntry     = 0x06
	msgExitDelay        = 0x08
	msgArmingNoEntry    = 0x09
	msgEntryDelay       = 0x0C
	msgAlarm            = 0x11
	msgDisarmed         = 0x3E
	msgInvalidCode      = 0x8F
	msgEnterFunction    = 0x9E
	msgEnterAccessCode  = 0x9F
	msgLastMenu         = 0xC6
	msgPartitionDisable = 0xC7
)

func (i *Interface) decodeStatus(f *Frame) {
	s := &i.status

	// the trouble light blinks while the panel shows other messages.
	if f.Bytes > 3 && f.Data[3] <= msgArmedAway {
		update(s, &s.Trouble, &s.prev.trouble, &s.TroubleChanged, f.Data[2]&LightTrouble != 0)
	}

	first, last := 0, 4
	if f.Cmd() == CmdStatusHigh {
		first, last = 4, 8
	} else if f.Bytes < 9 {
		last = 2
	}
	last = min(last, i.cfg.Partitions)

	for idx := first; idx < last; idx++ {
		lightsByte := (idx%4)*2 + 2
		statusByte := lightsByte + 1
		if statusByte >= f.Bytes {
			break
		}
		i.decodePartition(idx+1, f.Data[lightsByte], f.Data[statusByte])
	}
}

func (i *Interface) decodePartition(n int, lights, msg byte) {
	s := &i.status
	p := &s.Partitions[n-1]

	disabled := msg == msgPartitionDisable
	update(s, &p.Disabled, &p.prev.disabled, &p.DisabledChanged, disabled)
	if disabled {
		return
	}
	i.setLights(p, lights)
	update(s, &p.Status, &p.prev.status, &p.StatusChanged, msg)

	if msg < 0x12 {
		update(s, &p.Fire, &p.prev.fire, &p.FireChanged, lights&LightFire != 0)
	}

	if n == i.writer.partition && msg >= msgEnterFunction && msg <= msgLastMenu {
		i.writer.releaseAsterisk()
	}

	switch msg {
	case msgReady, msgReadyForceArm:
		i.disarm(p, true)
	case msgZonesOpen:
		i.disarm(p, false)
	case msgArmedStay, msgArmedAway:
		i.setArmed(p, true, msg == msgArmedStay, msg == msgArmedAway, p.NoEntryDelay)
		i.setDelays(p, false, ExitNone, false)
		update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, false)
	case msgArmedNoEntry:
		i.setArmed(p, true, p.ExitState != ExitAway, p.ExitState == ExitAway, true)
		i.setDelays(p, false, ExitNone, false)
		update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, false)
	case msgExitDelay:
		state := p.ExitState
		if state != ExitNoEntryDelay {
			// stay arming bypasses the interior zones.
			state = ExitAway
			if lights&LightBypass != 0 {
				state = ExitStay
			}
		}
		i.setDelays(p, true, state, false)
		update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, lights&LightReady != 0)
	case msgArmingNoEntry:
		i.setArmed(p, p.Armed, p.ArmedStay, p.ArmedAway, true)
		i.setDelays(p, true, ExitNoEntryDelay, false)
	case msgEntryDelay:
		i.setDelays(p, false, ExitNone, true)
		update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, false)
	case msgAlarm:
		update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, true)
		i.setDelays(p, false, ExitNone, false)
		update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, false)
	case msgDisarmed:
		i.disarm(p, lights&LightReady != 0)
	case msgInvalidCode:
		log.Debug("invalid access code", "partition", n)
	case msgEnterAccessCode, msgEnterFunction:
		update(s, &s.AccessCodePrompt, &s.prev.accessCodePrompt, &s.AccessCodePromptChanged, msg == msgEnterAccessCode)
	}
}

func (i *Interface) setLights(p *Partition, lights byte) {
	update(&i.status, &p.Lights, &p.prev.lights, &p.LightsChanged, lights)
}

// setArmed updates the armed fields together, ArmedChanged is set when any
// of them changed.
func (i *Interface) setArmed(p *Partition, armed, stay, away, noEntry bool) {
	p.Armed, p.ArmedStay, p.ArmedAway, p.NoEntryDelay = armed, stay, away, noEntry
	prev := &p.prev
	if prev.armed == armed && prev.armedStay == stay && prev.armedAway == away && prev.noEntryDelay == noEntry {
		return
	}
	prev.armed, prev.armedStay, prev.armedAway, prev.noEntryDelay = armed, stay, away, noEntry
	p.ArmedChanged = true
	i.status.touch()
}

func (i *Interface) setDelays(p *Partition, exit bool, state ExitState, entry bool) {
	s := &i.status
	update(s, &p.ExitDelay, &p.prev.exitDelay, &p.ExitDelayChanged, exit)
	update(s, &p.ExitState, &p.prev.exitState, &p.ExitStateChanged, state)
	update(s, &p.EntryDelay, &p.prev.entryDelay, &p.EntryDelayChanged, entry)
}

// disarm clears every armed and delay state of the partition.
func (i *Interface) disarm(p *Partition, ready bool) {
	s := &i.status
	update(s, &p.Ready, &p.prev.ready, &p.ReadyChanged, ready)
	i.setArmed(p, false, false, false, false)
	i.setDelays(p, false, ExitNone, false)
	update(s, &p.Alarm, &p.prev.alarm, &p.AlarmChanged, false)
}
