package dsc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleChanges(t *testing.T) {
	i := newTestInterface(t, Config{})
	feed(i,
		statusFrame(LightArmed, msgArmedAway),
		psFrameCRC(CmdZones1, 0, 0, 0, 0, 0x03),
		eventFrame(1, 0, 0x0A),
		psFrameCRC(CmdOutputs, 0x00, 0x04),
	)
	s := i.Status()

	var (
		online  []bool
		zones   = map[int]bool{}
		alarms  = map[int]bool{}
		armed   []int
		alarm   []int
		outputs = map[int]bool{}
	)
	h := Handlers{
		Online:    func(connected bool) { online = append(online, connected) },
		ZoneOpen:  func(zone int, open bool) { zones[zone] = open },
		ZoneAlarm: func(zone int, v bool) { alarms[zone] = v },
		Armed: func(partition int, p Partition) {
			require.True(t, p.ArmedAway)
			armed = append(armed, partition)
		},
		Alarm:  func(partition int, v bool) { alarm = append(alarm, partition) },
		Output: func(output int, on bool) { outputs[output] = on },
	}
	s.HandleChanges(h)

	require.Equal(t, []bool{true}, online)
	require.Equal(t, map[int]bool{1: true, 2: true}, zones)
	require.Equal(t, map[int]bool{2: true}, alarms)
	require.Equal(t, []int{1}, armed)
	require.Equal(t, []int{1}, alarm)
	require.Equal(t, map[int]bool{3: true}, outputs)

	require.False(t, s.StatusChanged)
	require.False(t, s.Partitions[0].ArmedChanged)
	require.False(t, s.OpenZonesChanged.Any())
	require.Zero(t, s.Outputs.Changed)

	t.Run("nothing new", func(t *testing.T) {
		called := false
		s.HandleChanges(Handlers{Online: func(bool) { called = true }})
		require.False(t, called)
	})

	t.Run("reset replays everything", func(t *testing.T) {
		i.ResetStatus()
		zones := map[int]bool{}
		s.HandleChanges(Handlers{ZoneOpen: func(zone int, open bool) { zones[zone] = open }})
		require.Len(t, zones, MaxZones)
		require.True(t, zones[1])
		require.False(t, zones[3])
	})

	t.Run("paused", func(t *testing.T) {
		s.PauseStatus = true
		feed(i, psFrameCRC(CmdZones1, 0, 0, 0, 0, 0x00))
		require.False(t, s.StatusChanged)
		require.True(t, s.OpenZonesStatusChanged)
		s.PauseStatus = false
	})
}

func TestHandleKeypadAlarms(t *testing.T) {
	i := newTestInterface(t, Config{})
	feed(i, statusFrame(LightReady, msgReady), eventFrame(0, 0, 0x4F))
	s := i.Status()

	var got [][3]bool
	h := Handlers{
		KeypadAlarm: func(fire, aux, panic bool) { got = append(got, [3]bool{fire, aux, panic}) },
	}
	s.HandleChanges(h)
	require.Equal(t, [][3]bool{{false, true, false}}, got)
	require.False(t, s.KeypadAuxAlarm)
	require.False(t, s.KeypadAlarmChanged)

	t.Run("reported again after clearing", func(t *testing.T) {
		i.decodeEvent0(0, 0x4F)
		s.HandleChanges(h)
		require.Len(t, got, 2)
	})

	t.Run("access code prompt", func(t *testing.T) {
		var prompts []bool
		feed(i, statusFrame(LightReady, msgEnterAccessCode))
		s.HandleChanges(Handlers{AccessCodePrompt: func(prompt bool) { prompts = append(prompts, prompt) }})
		require.Equal(t, []bool{true}, prompts)
		require.False(t, s.AccessCodePromptChanged)
	})
}
