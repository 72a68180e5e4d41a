package dsc

import "fmt"

// Maximum cardinalities supported by the bus.
const (
	MaxPartitions = 8
	MaxZoneGroups = 8
	MaxZones      = MaxZoneGroups * 8
	MaxOutputs    = 14
)

// ExitState tells which kind of arming an exit delay is leading to.
type ExitState uint8

const (
	ExitNone ExitState = iota
	ExitStay
	ExitAway
	ExitNoEntryDelay
)

func (s ExitState) String() string {
	switch s {
	case ExitStay:
		return "stay"
	case ExitAway:
		return "away"
	case ExitNoEntryDelay:
		return "no-entry-delay"
	default:
		return "none"
	}
}

// Partition is the decoded state of one partition.
//
// Every field with a Changed twin follows the same rule: the flag is set
// by the decoder only when the value differs from what it last decoded,
// and it is up to the consumer to clear it.
type Partition struct {
	Ready             bool
	ReadyChanged      bool
	Armed             bool
	ArmedStay         bool
	ArmedAway         bool
	NoEntryDelay      bool
	ArmedChanged      bool
	ExitDelay         bool
	ExitDelayChanged  bool
	ExitState         ExitState
	ExitStateChanged  bool
	EntryDelay        bool
	EntryDelayChanged bool
	Alarm             bool
	AlarmChanged      bool
	Fire              bool
	FireChanged       bool
	Disabled          bool
	DisabledChanged   bool
	Lights            byte
	LightsChanged     bool
	Status            byte
	StatusChanged     bool
	AccessCode        int
	AccessCodeChanged bool

	prev partitionShadow
}

type partitionShadow struct {
	ready, armed, armedStay, armedAway, noEntryDelay bool
	exitDelay, entryDelay, alarm, fire, disabled     bool
	exitState                                        ExitState
	lights, status                                   byte
	accessCode                                       int
}

// Light bits of the partition lights byte.
const (
	LightReady     = 1 << 0
	LightArmed     = 1 << 1
	LightMemory    = 1 << 2
	LightBypass    = 1 << 3
	LightTrouble   = 1 << 4
	LightProgram   = 1 << 5
	LightFire      = 1 << 6
	LightBacklight = 1 << 7
)

// ZoneGroups is a bitset of zones, 8 per group: zone N lives at bit
// (N-1)%8 of group (N-1)/8.
type ZoneGroups [MaxZoneGroups]byte

// Zone reports the bit for the 1-based zone number.
func (z ZoneGroups) Zone(n int) bool {
	if n < 1 || n > MaxZones {
		return false
	}
	return z[(n-1)/8]&(1<<((n-1)%8)) != 0
}

// SetZone sets or clears the bit for the 1-based zone number.
func (z *ZoneGroups) SetZone(n int, v bool) {
	if n < 1 || n > MaxZones {
		return
	}
	if v {
		z[(n-1)/8] |= 1 << ((n - 1) % 8)
		return
	}
	z[(n-1)/8] &^= 1 << ((n - 1) % 8)
}

// Any reports whether any zone bit is set.
func (z ZoneGroups) Any() bool {
	return z != ZoneGroups{}
}

// Zones lists the 1-based numbers of every set zone.
func (z ZoneGroups) Zones() []int {
	var zones []int
	for n := 1; n <= MaxZones; n++ {
		if z.Zone(n) {
			zones = append(zones, n)
		}
	}
	return zones
}

// OutputConsumer identifies who is acknowledging an output change.
type OutputConsumer uint8

const (
	// OutputContact is a consumer that only observes the output.
	OutputContact OutputConsumer = iota
	// OutputCommand is a consumer that also drives the output with keys.
	OutputCommand
)

// Outputs holds the PGM outputs 1-14.
//
// An output can be shared by a contact observer and a command switch. For
// those, a change stays pending until both consumers acknowledged it, so
// neither of them can swallow the change the other one still has to see.
type Outputs struct {
	State   uint16
	Changed uint16

	shared uint16
	acked  [2]uint16
	prev   uint16
}

// On reports whether the 1-based output is on.
func (o *Outputs) On(n int) bool {
	if n < 1 || n > MaxOutputs {
		return false
	}
	return o.State&(1<<(n-1)) != 0
}

// Share marks the output as consumed by both a contact and a command
// consumer.
func (o *Outputs) Share(n int) {
	if n < 1 || n > MaxOutputs {
		return
	}
	o.shared |= 1 << (n - 1)
}

// Ack acknowledges a change on the output for the given consumer and
// reports whether there was a change to see. The changed bit is cleared
// once every consumer of the output acknowledged it.
func (o *Outputs) Ack(n int, who OutputConsumer) bool {
	if n < 1 || n > MaxOutputs {
		return false
	}
	bit := uint16(1) << (n - 1)
	if o.Changed&bit == 0 || o.acked[who]&bit != 0 {
		return false
	}
	o.acked[who] |= bit
	if o.shared&bit == 0 || o.acked[OutputContact]&o.acked[OutputCommand]&bit != 0 {
		o.Changed &^= bit
		o.acked[OutputContact] &^= bit
		o.acked[OutputCommand] &^= bit
	}
	return true
}

func (o *Outputs) set(state uint16) bool {
	o.State = state
	diff := state ^ o.prev
	if diff == 0 {
		return false
	}
	o.prev = state
	o.Changed |= diff
	// a new change needs to be seen again by everyone.
	o.acked[OutputContact] &^= diff
	o.acked[OutputCommand] &^= diff
	return true
}

// Time is the panel clock, as broadcast in the date/time commands.
type Time struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

func (t Time) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute)
}

// Status is the whole decoded model. It is only written by Loop.
type Status struct {
	Partitions [MaxPartitions]Partition

	OpenZones               ZoneGroups
	OpenZonesChanged        ZoneGroups
	OpenZonesStatusChanged  bool
	AlarmZones              ZoneGroups
	AlarmZonesChanged       ZoneGroups
	AlarmZonesStatusChanged bool
	EnabledZones            [2]ZoneGroups

	Outputs Outputs

	Trouble               bool
	TroubleChanged        bool
	PowerTrouble          bool
	PowerTroubleChanged   bool
	BatteryTrouble        bool
	BatteryTroubleChanged bool
	Bell                  bool
	BellChanged           bool
	Time                  Time
	TimeChanged           bool

	// Keypad alarms are latched: they stay set until HandleChanges
	// reports them, or ClearKeypadAlarms is called.
	KeypadFireAlarm         bool
	KeypadAuxAlarm          bool
	KeypadPanicAlarm        bool
	KeypadAlarmChanged      bool
	AccessCodePrompt        bool
	AccessCodePromptChanged bool

	KeybusConnected bool
	KeybusChanged   bool

	// Keypad is the PIN entry state of Classic keypads.
	Keypad        KeypadState
	KeypadChanged bool

	// StatusChanged is set whenever anything above changed, unless
	// PauseStatus is set.
	StatusChanged bool
	// PauseStatus defers StatusChanged without losing per-field flags.
	PauseStatus bool

	prev systemShadow
}

type systemShadow struct {
	openZones, alarmZones                  ZoneGroups
	trouble, powerTrouble, batteryTrouble  bool
	bell, keybusConnected                  bool
	keypadFire, keypadAux, keypadPanic     bool
	accessCodePrompt                       bool
	time                                   Time
	keypad                                 KeypadState
}

func (s *Status) touch() {
	if !s.PauseStatus {
		s.StatusChanged = true
	}
}

// update sets cur to v and flags changed when v differs from the shadow.
func update[T comparable](s *Status, cur, prev *T, changed *bool, v T) bool {
	*cur = v
	if v == *prev {
		return false
	}
	*prev = v
	*changed = true
	s.touch()
	return true
}

// setOpenZoneGroup replaces a whole group of open zones.
func (s *Status) setOpenZoneGroup(group int, bits byte) {
	if group < 0 || group >= MaxZoneGroups {
		return
	}
	s.OpenZones[group] = bits
	s.syncZones(&s.OpenZones, &s.prev.openZones, &s.OpenZonesChanged, &s.OpenZonesStatusChanged)
}

func (s *Status) setAlarmZone(zone int, alarm bool) {
	s.AlarmZones.SetZone(zone, alarm)
	s.syncZones(&s.AlarmZones, &s.prev.alarmZones, &s.AlarmZonesChanged, &s.AlarmZonesStatusChanged)
}

func (s *Status) setAlarmZoneGroup(group int, bits byte) {
	if group < 0 || group >= MaxZoneGroups {
		return
	}
	s.AlarmZones[group] = bits
	s.syncZones(&s.AlarmZones, &s.prev.alarmZones, &s.AlarmZonesChanged, &s.AlarmZonesStatusChanged)
}

func (s *Status) syncZones(cur, prev, changed *ZoneGroups, any *bool) {
	var diff bool
	for i := range cur {
		d := cur[i] ^ prev[i]
		if d == 0 {
			continue
		}
		changed[i] |= d
		prev[i] = cur[i]
		diff = true
	}
	if diff {
		*any = true
		s.touch()
	}
}

func (s *Status) setOutputs(state uint16) {
	if s.Outputs.set(state) {
		s.touch()
	}
}

// Reset forces every changed flag on, so a new consumer can pick up the
// complete state on its next pass.
func (s *Status) Reset() {
	for i := range s.Partitions {
		p := &s.Partitions[i]
		p.ReadyChanged = true
		p.ArmedChanged = true
		p.ExitDelayChanged = true
		p.ExitStateChanged = true
		p.EntryDelayChanged = true
		p.AlarmChanged = true
		p.FireChanged = true
		p.DisabledChanged = true
		p.LightsChanged = true
		p.StatusChanged = true
		p.AccessCodeChanged = true
	}
	for i := range s.OpenZonesChanged {
		s.OpenZonesChanged[i] = 0xFF
		s.AlarmZonesChanged[i] = 0xFF
	}
	s.OpenZonesStatusChanged = true
	s.AlarmZonesStatusChanged = true
	s.Outputs.Changed = 1<<MaxOutputs - 1
	s.Outputs.acked = [2]uint16{}
	s.TroubleChanged = true
	s.PowerTroubleChanged = true
	s.BatteryTroubleChanged = true
	s.BellChanged = true
	s.TimeChanged = true
	s.KeybusChanged = true
	s.KeypadChanged = true
	s.KeypadAlarmChanged = true
	s.AccessCodePromptChanged = true
	s.StatusChanged = true
}

// ClearKeypadAlarms resets the latched keypad alarms, so the next one is
// reported again.
func (s *Status) ClearKeypadAlarms() {
	s.KeypadFireAlarm = false
	s.KeypadAuxAlarm = false
	s.KeypadPanicAlarm = false
	s.prev.keypadFire = false
	s.prev.keypadAux = false
	s.prev.keypadPanic = false
	s.KeypadAlarmChanged = false
}
