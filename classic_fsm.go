package dsc

// KeypadState tracks what a Classic keypad is being used for, following the
// keys pressed on it and whether the panel accepted each of them.
type KeypadState uint8

const (
	KeypadIdle KeypadState = iota
	KeypadPinAway
	KeypadPinStay
	KeypadPinMaster
	KeypadPinProgramming
	KeypadPinInstall
	KeypadMenu
	KeypadBypassMenu
	KeypadTroubleMenu
	KeypadAlarmMemory
	KeypadAccepted
	KeypadRejected
)

func (s KeypadState) String() string {
	switch s {
	case KeypadIdle:
		return "idle"
	case KeypadPinAway:
		return "pin-away"
	case KeypadPinStay:
		return "pin-stay"
	case KeypadPinMaster:
		return "pin-master"
	case KeypadPinProgramming:
		return "pin-programming"
	case KeypadPinInstall:
		return "pin-install"
	case KeypadMenu:
		return "menu"
	case KeypadBypassMenu:
		return "bypass-menu"
	case KeypadTroubleMenu:
		return "trouble-menu"
	case KeypadAlarmMemory:
		return "alarm-memory"
	case KeypadAccepted:
		return "accepted"
	case KeypadRejected:
		return "rejected"
	}
	return "unknown"
}

func (s KeypadState) pin() bool {
	return s >= KeypadPinAway && s <= KeypadPinInstall
}

const pinDigits = 4

type keyClass uint8

const (
	keyDigit keyClass = iota
	keyStar
	keyStay
	keyAway
	keyOther
)

func classOf(key byte) keyClass {
	switch {
	case key >= '0' && key <= '9':
		return keyDigit
	case key == '*':
		return keyStar
	case key == 'S':
		return keyStay
	case key == 'W':
		return keyAway
	}
	return keyOther
}

type transition struct {
	from  KeypadState
	class keyClass
}

var keypadTransitions = map[transition]KeypadState{
	{KeypadIdle, keyDigit}:        KeypadPinAway,
	{KeypadIdle, keyStay}:         KeypadPinStay,
	{KeypadIdle, keyAway}:         KeypadPinAway,
	{KeypadIdle, keyStar}:         KeypadMenu,
	{KeypadMenu, keyStar}:         KeypadIdle,
	{KeypadBypassMenu, keyDigit}:  KeypadBypassMenu,
	{KeypadBypassMenu, keyStar}:   KeypadIdle,
	{KeypadTroubleMenu, keyDigit}: KeypadTroubleMenu,
	{KeypadTroubleMenu, keyStar}:  KeypadIdle,
	{KeypadAlarmMemory, keyDigit}: KeypadAlarmMemory,
	{KeypadAlarmMemory, keyStar}:  KeypadIdle,
}

// menuKeys are the [*] functions.
var menuKeys = map[byte]KeypadState{
	'1': KeypadBypassMenu,
	'2': KeypadTroubleMenu,
	'3': KeypadAlarmMemory,
	'5': KeypadPinMaster,
	'6': KeypadPinProgramming,
	'8': KeypadPinInstall,
}

type keypadMachine struct {
	state  KeypadState
	digits int
}

// step feeds a key and whether the panel accepted it, and returns the new
// state.
func (m *keypadMachine) step(key byte, accepted bool) KeypadState {
	key = upper(key)
	from := m.state
	switch {
	case key == '#':
		m.set(KeypadIdle)
	case from == KeypadAccepted || from == KeypadRejected:
		m.set(KeypadIdle)
	case !accepted:
		m.set(KeypadRejected)
	case from.pin() && classOf(key) == keyDigit:
		m.digits++
		if m.digits == pinDigits {
			m.set(KeypadAccepted)
		}
	case from == KeypadMenu && classOf(key) == keyDigit:
		next, ok := menuKeys[key]
		if !ok {
			next = KeypadRejected
		}
		m.set(next)
	default:
		next, ok := keypadTransitions[transition{from, classOf(key)}]
		if !ok {
			next = KeypadRejected
		}
		m.set(next)
		if from == KeypadIdle && classOf(key) == keyDigit {
			m.digits = 1
		}
	}
	return m.state
}

func (m *keypadMachine) set(s KeypadState) {
	if s != m.state {
		m.digits = 0
	}
	m.state = s
}
