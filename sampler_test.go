package dsc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testGap = 3000

func startFake(t *testing.T, cfg Config) (*Interface, *fakeHardware) {
	t.Helper()
	hw := newFakeHardware()
	i, err := New(hw, cfg)
	require.NoError(t, err)
	require.NoError(t, i.Start())
	hw.advance(testGap)
	return i, hw
}

func drain(i *Interface) {
	for i.queue.Len() > 0 {
		i.Loop()
	}
}

var readyStatus = []byte{CmdStatus, LightReady, msgReady, 0, 0xC7, 0, 0xC7, 0, 0xC7}

func TestSamplerCapture(t *testing.T) {
	i, hw := startFake(t, Config{})
	hw.send(bitsOf(true, CmdZones1, 0, 0, 0, 0, 0x03, 0x2A), nil, nil, testGap)
	hw.end()

	var f Frame
	require.True(t, i.queue.pop(&f))
	require.Equal(t, psFrameCRC(CmdZones1, 0, 0, 0, 0, 0x03).Data, f.Data)
	require.Equal(t, 58, f.Bits)
	require.Equal(t, 8, f.Bytes)
	require.True(t, f.ValidCRC())
	require.Equal(t, byte(0xff), f.Module[0], "idle keypads")
}

func TestSamplerRedundantStatus(t *testing.T) {
	i, hw := startFake(t, Config{})
	for n := 0; n < 100; n++ {
		hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	}
	hw.end()

	require.Equal(t, 1, i.queue.Len())
	require.Equal(t, uint64(99), i.Stats().Redundant)

	drain(i)
	require.True(t, i.status.Partitions[0].Ready)
	require.Equal(t, uint64(1), i.Stats().Frames)
}

func TestSamplerSpurious(t *testing.T) {
	i, hw := startFake(t, Config{})
	hw.send(bitsOf(false, 0x00)[:4], nil, nil, testGap)
	hw.end()
	require.Equal(t, 0, i.queue.Len())
	require.Equal(t, uint64(1), i.Stats().Spurious)
}

func TestDisconnect(t *testing.T) {
	i, hw := startFake(t, Config{})
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	hw.end()
	drain(i)
	s := i.Status()
	require.True(t, s.KeybusConnected)
	require.True(t, s.KeybusChanged)
	s.KeybusChanged = false

	hw.advance(3_100_000)
	i.Loop()
	require.False(t, s.KeybusConnected)
	require.True(t, s.KeybusChanged)

	s.KeybusChanged = false
	for n := 0; n < 10; n++ {
		hw.advance(100_000)
		i.Loop()
	}
	require.False(t, s.KeybusChanged, "only flagged once")

	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	i.Loop()
	require.True(t, s.KeybusConnected)
	require.True(t, s.KeybusChanged)
}

func TestWriteStayKey(t *testing.T) {
	i, hw := startFake(t, Config{VirtualKeypad: true})
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	i.Loop()
	require.True(t, i.WriteReady())

	require.NoError(t, i.WriteKey(context.Background(), 's'))
	require.False(t, i.WriteReady())

	status := append([]byte{}, readyStatus...)
	status[3] = LightReady
	hw.send(bitsOf(true, status...), nil, nil, testGap)
	hw.end()

	require.Equal(t, []int{10, 12}, hw.pullsIn(1), "0xAF on the partition 1 slot only")

	var f Frame
	require.True(t, i.queue.pop(&f))
	require.True(t, i.queue.pop(&f))
	require.Equal(t, byte(0xAF), readBits(f.Module[:], 9, 8))
	require.Equal(t, byte(idleKey), readBits(f.Module[:], 17, 8))

	i.Loop()
	require.True(t, i.WriteReady())

	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	hw.end()
	require.Empty(t, hw.pullsIn(2))
}

func TestWriteWaitsForPartitionCommand(t *testing.T) {
	i, hw := startFake(t, Config{VirtualKeypad: true})
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	i.Loop()
	require.NoError(t, i.WriteKeys(context.Background(), "/51", false))

	// partition 5 only writes during 0x1B.
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	require.Empty(t, hw.pullsIn(1))

	hw.send(bitsOf(true, CmdStatusHigh, LightReady, msgReady, 0, 0xC7, 0, 0xC7, 0, 0xC7), nil, nil, testGap)
	hw.end()
	// '1' is 0x05: 0000 0101.
	require.Equal(t, []int{9, 10, 11, 12, 13, 15}, hw.pullsIn(2))
}

func TestWriteAlarmKey(t *testing.T) {
	i, hw := startFake(t, Config{VirtualKeypad: true})
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	i.Loop()

	require.NoError(t, i.WriteKey(context.Background(), 'F'))
	i.Loop()
	require.False(t, i.WriteReady(), "held")

	hw.advance(1_000_000)
	i.Loop()

	status := append([]byte{}, readyStatus...)
	for n := 1; n <= 3; n++ {
		status[3] = byte(n)
		hw.send(bitsOf(true, status...), nil, nil, testGap)
	}
	hw.end()

	// 0xBB: 1011 1011 on module bits 1-8, written twice.
	require.Equal(t, []int{2, 6}, hw.pullsIn(1))
	require.Equal(t, []int{2, 6}, hw.pullsIn(2))
	require.Empty(t, hw.pullsIn(3))

	i.Loop()
	require.False(t, i.WriteReady(), "cooling down")
	hw.advance(500_000)
	i.Loop()
	require.True(t, i.WriteReady())
}

func TestWriteAsterisk(t *testing.T) {
	i, hw := startFake(t, Config{VirtualKeypad: true})
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	i.Loop()

	require.NoError(t, i.WriteKeys(context.Background(), "*1", false))
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	hw.end()
	drain(i)
	require.NotEmpty(t, hw.pullsIn(1))
	require.False(t, i.WriteReady(), "waiting for the menu")

	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	require.Empty(t, hw.pullsIn(2))

	menu := append([]byte{}, readyStatus...)
	menu[2] = msgEnterFunction
	hw.send(bitsOf(true, menu...), nil, nil, testGap)
	hw.end()
	drain(i)
	i.Loop()

	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	hw.end()
	// '1' is 0x05: 0000 0101.
	require.Equal(t, []int{9, 10, 11, 12, 13, 15}, hw.pullsIn(4))
}

func TestWriteInvalid(t *testing.T) {
	t.Run("read only", func(t *testing.T) {
		i, _ := startFake(t, Config{})
		require.ErrorIs(t, i.WriteKey(context.Background(), '1'), ErrReadOnly)
	})

	t.Run("disconnected", func(t *testing.T) {
		i, _ := startFake(t, Config{VirtualKeypad: true})
		require.ErrorIs(t, i.WriteKey(context.Background(), '1'), ErrDisconnected)
	})

	t.Run("unknown key", func(t *testing.T) {
		i, hw := startFake(t, Config{VirtualKeypad: true})
		hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
		i.Loop()
		require.NoError(t, i.WriteKey(context.Background(), '?'))
		require.True(t, i.WriteReady())
	})

	t.Run("partition out of range", func(t *testing.T) {
		i, hw := startFake(t, Config{VirtualKeypad: true, Partitions: 2})
		hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
		i.Loop()
		require.NoError(t, i.WriteKeys(context.Background(), "/3S", false))
		require.True(t, i.WriteReady())
		hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
		hw.end()
		require.Empty(t, hw.pullsIn(1))
	})

	t.Run("cancelled", func(t *testing.T) {
		i, hw := startFake(t, Config{VirtualKeypad: true})
		hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
		i.Loop()
		require.NoError(t, i.WriteKey(context.Background(), '1'))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, i.WriteKey(ctx, '2'), context.Canceled)
	})

	t.Run("non-blocking writes queue behind pending keys", func(t *testing.T) {
		i, hw := startFake(t, Config{VirtualKeypad: true})
		hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
		i.Loop()
		require.NoError(t, i.WriteKeys(context.Background(), "12", false))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		require.NoError(t, i.WriteKeys(ctx, "3", false))
		require.Less(t, time.Since(start), 50*time.Millisecond)
		require.Contains(t, string(i.writer.keys), "3")
	})

	t.Run("non-blocking write while disconnected", func(t *testing.T) {
		i, _ := startFake(t, Config{VirtualKeypad: true})
		require.ErrorIs(t, i.WriteKeys(context.Background(), "1", false), ErrDisconnected)
	})
}

func TestStop(t *testing.T) {
	i, hw := startFake(t, Config{})
	i.Stop()
	hw.send(bitsOf(true, readyStatus...), nil, nil, testGap)
	hw.end()
	require.Equal(t, 0, i.queue.Len())
}

func TestStartWithoutHardware(t *testing.T) {
	i, err := New(nil, Config{})
	require.NoError(t, err)
	require.ErrorIs(t, i.Start(), ErrNoHardware)
}

func TestConfig(t *testing.T) {
	for name, cfg := range map[string]Config{
		"partitions":      {Partitions: 9},
		"zone groups":     {ZoneGroups: -1},
		"write partition": {Partitions: 2, WritePartition: 3},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(nil, cfg)
			require.Error(t, err)
		})
	}

	t.Run("classic", func(t *testing.T) {
		i, err := New(nil, Config{Dialect: Classic, Partitions: 4})
		require.NoError(t, err)
		require.Equal(t, 1, i.Config().Partitions)
		require.Equal(t, 8, i.maxZones())
	})
}
