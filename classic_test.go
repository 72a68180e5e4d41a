package dsc

import (
	"context"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

func classicFrame(lights, zones, pc16, key byte, at uint32) Frame {
	var f Frame
	f.Data[0] = bits.Reverse8(lights)
	f.Data[1] = bits.Reverse8(zones)
	f.PC16[0] = bits.Reverse8(pc16)
	f.Module[0] = key
	f.Bits, f.Bytes, f.ModuleBits = 16, 2, 16
	f.Time = at
	return f
}

func TestKeypadMachine(t *testing.T) {
	for keys, want := range map[string]KeypadState{
		"":      KeypadIdle,
		"1":     KeypadPinAway,
		"123":   KeypadPinAway,
		"1234":  KeypadAccepted,
		"12345": KeypadIdle,
		"S":     KeypadPinStay,
		"S1234": KeypadAccepted,
		"W12":   KeypadPinAway,
		"*":     KeypadMenu,
		"**":    KeypadIdle,
		"*1":    KeypadBypassMenu,
		"*123":  KeypadBypassMenu,
		"*1*":   KeypadIdle,
		"*2":    KeypadTroubleMenu,
		"*3":    KeypadAlarmMemory,
		"*5":    KeypadPinMaster,
		"*6":    KeypadPinProgramming,
		"*8":    KeypadPinInstall,
		"*81":   KeypadPinInstall,
		"*4":    KeypadRejected,
		"*4#":   KeypadIdle,
		"12*":   KeypadRejected,
		"12#":   KeypadIdle,
		"*1#":   KeypadIdle,
		"s":     KeypadPinStay,
		"F":     KeypadRejected,
	} {
		t.Run(keys, func(t *testing.T) {
			var m keypadMachine
			for n := range keys {
				m.step(keys[n], true)
			}
			require.Equal(t, want, m.state)
		})
	}

	t.Run("rejected digit", func(t *testing.T) {
		var m keypadMachine
		m.step('1', true)
		require.Equal(t, KeypadRejected, m.step('2', false))
		require.Equal(t, KeypadIdle, m.step('3', true))
	})

	t.Run("hash always goes idle", func(t *testing.T) {
		var m keypadMachine
		m.step('*', true)
		require.Equal(t, KeypadIdle, m.step('#', false))
	})
}

func TestDecodeClassic(t *testing.T) {
	i := newTestInterface(t, Config{Dialect: Classic})
	p := &i.status.Partitions[0]

	feed(i, classicFrame(LightReady, 0x05, 0, idleKey, 1000))
	require.True(t, p.Ready)
	require.Equal(t, []int{1, 3}, i.status.OpenZones.Zones())

	feed(i, classicFrame(LightArmed, 0, pc16Stay|pc16ExitDelay, idleKey, 2000))
	require.True(t, p.ArmedStay)
	require.False(t, p.Ready)
	require.True(t, p.ExitDelay)
	require.Equal(t, ExitStay, p.ExitState)

	feed(i, classicFrame(LightArmed, 0x02, pc16Alarm, idleKey, 3000))
	require.True(t, p.ArmedAway)
	require.True(t, p.Alarm)
	require.Equal(t, []int{2}, i.status.AlarmZones.Zones())

	feed(i, classicFrame(LightTrouble|LightFire, 0, 0, idleKey, 4000))
	require.True(t, i.status.Trouble)
	require.True(t, p.Fire)
	require.False(t, p.Armed)
	require.False(t, i.status.AlarmZones.Any())
}

func TestClassicKeypad(t *testing.T) {
	i := newTestInterface(t, Config{Dialect: Classic})
	star, _, _ := EncodeKey(Classic, '*')
	one, _, _ := EncodeKey(Classic, '1')

	feed(i,
		classicFrame(LightReady, 0, pc16Beep, star, 1000),
		classicFrame(LightReady, 0, 0, idleKey, 100_000),
	)
	require.Equal(t, KeypadMenu, i.status.Keypad)
	require.True(t, i.status.KeypadChanged)

	feed(i,
		classicFrame(LightReady, 0, pc16Beep, one, 200_000),
		classicFrame(LightReady, 0, pc16Beep, idleKey, 300_000),
		classicFrame(LightReady, 0, 0, idleKey, 1_200_000),
	)
	require.Equal(t, KeypadRejected, i.status.Keypad, "long beep")
}

func TestClassicCapture(t *testing.T) {
	i, hw := startFake(t, Config{Dialect: Classic, VirtualKeypad: true})
	frame := bitsOf(false, bits.Reverse8(LightReady), bits.Reverse8(0x01))
	hw.send(frame, nil, nil, testGap)
	i.Loop()

	require.NoError(t, i.WriteKey(context.Background(), '1'))
	hw.send(frame, nil, []bool{true}, testGap)
	hw.end()
	// '1' is 0xBE on Classic: 1011 1110.
	require.Equal(t, []int{1, 7}, hw.pullsIn(1))

	drain(i)
	require.True(t, i.status.Partitions[0].Ready)
	require.False(t, i.status.Partitions[0].ArmedStay)
	require.Equal(t, []int{1}, i.status.OpenZones.Zones())
	require.True(t, i.WriteReady())
}
