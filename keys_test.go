package dsc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	for _, d := range []Dialect{PowerSeries, Classic} {
		t.Run(d.String(), func(t *testing.T) {
			for key := range keyTable(d) {
				code, alarm, ok := EncodeKey(d, key)
				require.True(t, ok)
				got, ok := DecodeKey(d, code, alarm)
				require.True(t, ok, "key %q", key)
				require.Equal(t, key, got)
			}
		})
	}
}

func TestEncodeKey(t *testing.T) {
	t.Run("lower case", func(t *testing.T) {
		code, alarm, ok := EncodeKey(PowerSeries, 's')
		require.True(t, ok)
		require.False(t, alarm)
		require.Equal(t, byte(0xAF), code)
	})

	t.Run("alarm keys", func(t *testing.T) {
		for key, code := range map[byte]byte{'F': 0xBB, 'A': 0xDD, 'P': 0xEE} {
			got, alarm, ok := EncodeKey(PowerSeries, key)
			require.True(t, ok)
			require.True(t, alarm)
			require.Equal(t, code, got)
		}
	})

	t.Run("door chime and fire share a code", func(t *testing.T) {
		key, ok := DecodeKey(PowerSeries, 0xBB, false)
		require.True(t, ok)
		require.Equal(t, byte('C'), key)
		key, ok = DecodeKey(PowerSeries, 0xBB, true)
		require.True(t, ok)
		require.Equal(t, byte('F'), key)
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, ok := EncodeKey(PowerSeries, '?')
		require.False(t, ok)
		_, _, ok = EncodeKey(Classic, 'N')
		require.False(t, ok)
	})
}

func TestKeyChecksum(t *testing.T) {
	for key, info := range powerSeriesKeys {
		if info.alarm {
			continue
		}
		require.True(t, validKeyCode(info.code), "key %q code %#x", key, info.code)
	}
	require.False(t, validKeyCode(0x06))
}

func TestBitPosition(t *testing.T) {
	for bit, want := range map[int]struct {
		idx int
		pos uint
	}{
		0:  {0, 7},
		7:  {0, 0},
		8:  {1, 0},
		9:  {2, 7},
		16: {2, 0},
		17: {3, 7},
		57: {8, 7},
		65: {9, 7},
	} {
		idx, pos := bitPosition(bit)
		require.Equal(t, want.idx, idx, "bit %d", bit)
		require.Equal(t, want.pos, pos, "bit %d", bit)
	}

	buf := []byte{0x05, 0x00, 0xAF, 0x12}
	require.Equal(t, byte(0xAF), readBits(buf, 9, 8))
	require.Equal(t, byte(0x12), readBits(buf, 17, 8))
	require.Equal(t, byte(0x05), readBits(buf, 0, 8))
}
