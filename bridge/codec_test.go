package bridge

import (
	"testing"

	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	t.Run("panel only", func(t *testing.T) {
		f, err := ParseFrame("26 05008101")
		require.NoError(t, err)
		require.Equal(t, byte(dsc.CmdStatus), f.Cmd())
		require.Equal(t, 26, f.Bits)
		require.Equal(t, 4, f.Bytes)
		require.Equal(t, []byte{0x05, 0x00, 0x81, 0x01}, f.Payload())
		require.Zero(t, f.ModuleBits)
	})

	t.Run("with module", func(t *testing.T) {
		f, err := ParseFrame("26 05008101 ff01afff\n")
		require.NoError(t, err)
		require.Equal(t, byte(0xaf), f.Module[2])
		require.Equal(t, 26, f.ModuleBits)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, line := range []string{
			"26 05008101",
			"26 05008101 ff01afff",
		} {
			f, err := ParseFrame(line)
			require.NoError(t, err)
			require.Equal(t, line+"\n", FormatFrame(f))
		}
	})

	for name, line := range map[string]string{
		"empty":       "",
		"one field":   "26",
		"bad bits":    "x 0500",
		"zero bits":   "0 0500",
		"bad hex":     "26 05zz",
		"too long":    "26 " + "00000000000000000000000000000000ff",
		"bad module":  "26 0500 zz",
		"many fields": "26 0500 00 00",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFrame(line)
			require.ErrorIs(t, err, ErrInvalidLine)
		})
	}
}

func TestKeys(t *testing.T) {
	line := FormatKeys("/21234")
	require.Equal(t, "K/21234\n", line)
	keys, ok := ParseKeys(line)
	require.True(t, ok)
	require.Equal(t, "/21234", keys)

	_, ok = ParseKeys("K\n")
	require.False(t, ok)
	_, ok = ParseKeys("26 0500")
	require.False(t, ok)
}
