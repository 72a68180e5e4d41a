package dsc

// zoneCommands maps the zone status commands to their zone group.
var zoneCommands = map[byte]int{
	CmdZones1: 0,
	CmdZones2: 1,
	CmdZones3: 2,
	CmdZones4: 3,
}

// extendedZones maps the 0xE6 sub-commands carrying zones 33-64 to their
// zone group.
var extendedZones = map[byte]int{
	0x09: 4,
	0x0B: 5,
	0x0D: 6,
	0x0F: 7,
}

func (i *Interface) decodeZones(f *Frame) {
	group := zoneCommands[f.Cmd()]
	if group >= i.cfg.ZoneGroups {
		return
	}
	i.status.setOpenZoneGroup(group, f.Data[6])
}

func (i *Interface) decodeExtended(f *Frame) {
	sub := f.Data[2]
	if group, ok := extendedZones[sub]; ok {
		if group < i.cfg.ZoneGroups {
			i.status.setOpenZoneGroup(group, f.Data[3])
		}
		return
	}
	log.Debug("extended command", "sub", sub, "data", f)
}

func (i *Interface) decodeEnabledZones(f *Frame) {
	s := &i.status
	var groups [2]ZoneGroups
	for g := 0; g < 4 && g < i.cfg.ZoneGroups; g++ {
		groups[0][g] = f.Data[2+g]
		groups[1][g] = f.Data[6+g]
	}
	if groups != s.EnabledZones {
		s.EnabledZones = groups
		s.touch()
	}
}
