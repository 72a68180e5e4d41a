package dsc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// zeroBits lists the bits of buf that are 0, starting at bit start.
func zeroBits(start int, buf ...byte) []int {
	var out []int
	for n := 0; n < len(buf)*8; n++ {
		if buf[n/8]&(0x80>>(n%8)) == 0 {
			out = append(out, start+n)
		}
	}
	return out
}

func TestZoneResponse(t *testing.T) {
	require.Equal(t, []byte{0x55, 0x55, 0xAA}, zoneResponse(0x00))
	require.Equal(t, []byte{0x65, 0x55, 0xBA}, zoneResponse(0x02))
	require.Equal(t, []byte{0x55, 0x56, 0xAB}, zoneResponse(0x80))
}

func TestExpanderAddress(t *testing.T) {
	require.Equal(t, 9, expanderAddress(9))
	require.Equal(t, 9, expanderAddress(16))
	require.Equal(t, 10, expanderAddress(17))
	require.Equal(t, 14, expanderAddress(56))
}

func TestExpander(t *testing.T) {
	i, hw := startFake(t, Config{Expander: true})
	x := i.Expander()
	require.NotNil(t, x)

	x.SetSupervisorySlot(9, true)
	x.SetZoneFault(10, true)

	supervise := []byte{CmdModuleSupervise, 0xff, 0xff, 0xff, 0xff}
	hw.send(bitsOf(true, supervise...), nil, nil, testGap)
	require.Equal(t, []int{9, 10}, hw.pullsIn(0))

	hw.send(bitsOf(true, CmdExpanderQuery9, 0xff, 0xff, 0xff, 0xff), nil, nil, testGap)
	require.Equal(t, zeroBits(9, 0x65, 0x55, 0xBA), hw.pullsIn(1))

	// address 10 never announced itself.
	hw.send(bitsOf(true, CmdExpanderQuery10, 0xff, 0xff, 0xff, 0xff), nil, nil, testGap)
	hw.end()
	require.Empty(t, hw.pullsIn(2))
}

func TestExpanderLimits(t *testing.T) {
	i, err := New(nil, Config{Expander: true, ZoneGroups: 2})
	require.NoError(t, err)
	x := i.Expander()

	x.SetZoneFault(8, true)
	x.SetZoneFault(17, true)
	x.SetZoneFault(16, true)
	require.Equal(t, [MaxZoneGroups]byte{0, 0x80}, x.faults)

	x.SetSupervisorySlot(10, true)
	x.SetSupervisorySlot(15, true)
	require.Equal(t, byte(0xff), x.slots[2])

	x.SetSupervisorySlot(9, true)
	x.SetSupervisorySlot(16, true)
	require.Equal(t, byte(0x3f), x.slots[2])
	require.Equal(t, byte(0xfc), x.slots[3])

	x.SetSupervisorySlot(9, false)
	require.Equal(t, byte(0xff), x.slots[2])
}

func TestExpanderDisabled(t *testing.T) {
	i, err := New(nil, Config{Dialect: Classic, Expander: true})
	require.NoError(t, err)
	require.Nil(t, i.Expander())
}
