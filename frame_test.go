package dsc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidCRC(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := psFrameCRC(CmdZones1, 0x00, 0x00, 0x00, 0x00, 0x05)
		require.True(t, f.ValidCRC())
	})

	t.Run("trailer off by one", func(t *testing.T) {
		f := psFrameCRC(CmdZones1, 0x00, 0x00, 0x00, 0x00, 0x05)
		f.Data[f.Bytes-1]++
		require.False(t, f.ValidCRC())
	})

	t.Run("stop bit is not summed", func(t *testing.T) {
		f := psFrameCRC(CmdOutputs, 0x01, 0x02)
		f.Data[1] = 1
		require.True(t, f.ValidCRC())
	})

	t.Run("sum wraps", func(t *testing.T) {
		f := psFrameCRC(CmdEvent, 0xff, 0xff, 0xff, 0xff, 0xff)
		require.True(t, f.ValidCRC())
		require.Equal(t, byte((0xA5+5*0xff)%256), f.Data[f.Bytes-1])
	})

	t.Run("too short", func(t *testing.T) {
		require.False(t, Frame{Bits: 8}.ValidCRC())
	})
}

func TestFrameString(t *testing.T) {
	f := psFrame(CmdStatus, 0x81, 0x01)
	require.Equal(t, "26 05008101", f.String())

	f.ModuleBits = f.Bits
	f.Module = [ReadSize]byte{0xff, 0x01, 0xaf, 0xff}
	require.Equal(t, "26 05008101 ff01afff", f.String())
}

func TestFrameName(t *testing.T) {
	require.Equal(t, "status", psFrame(CmdStatus, 0x81, 0x01).Name())
	require.Equal(t, "event 1-8", psFrame(CmdEventExtended).Name())
	require.Equal(t, "unknown", psFrame(0x4C).Name())
}
