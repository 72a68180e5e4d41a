package main

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/brutella/hap/characteristic"
	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/caarlos0/homekit-dsc/bridge"
	"github.com/caarlos0/homekit-dsc/gpio"
	"golang.org/x/exp/slices"
)

type Config struct {
	Bridge       string   `env:"DSC_BRIDGE"`
	Port         string   `env:"DSC_PORT"   envDefault:"4000"`
	Baud         int      `env:"DSC_BAUD"   envDefault:"115200"`
	ClockPin     string   `env:"CLOCK_PIN"`
	DataPin      string   `env:"DATA_PIN"`
	WritePin     string   `env:"WRITE_PIN"`
	PC16Pin      string   `env:"PC16_PIN"`
	AccessCode   string   `env:"ACCESS_CODE"`
	Dialect      string   `env:"DIALECT"    envDefault:"powerseries"`
	Partitions   []int    `env:"PARTITIONS" envDefault:"1"`
	MotionZones  []int    `env:"MOTION"`
	ContactZones []int    `env:"CONTACT"`
	ZoneNames    []string `env:"ZONE_NAMES"`
	Outputs      []int    `env:"OUTPUTS"`
	Address      string   `env:"LISTEN"     envDefault:":9009"`
}

func (c Config) validate() error {
	var errs []error
	if c.Bridge == "" && (c.ClockPin == "" || c.DataPin == "") {
		errs = append(errs, errors.New("either DSC_BRIDGE or CLOCK_PIN and DATA_PIN must be set"))
	}
	if strings.Trim(c.AccessCode, "0123456789") != "" {
		errs = append(errs, fmt.Errorf("invalid ACCESS_CODE: must be digits only"))
	}
	if _, err := dsc.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Partitions {
		if p < 1 || p > dsc.MaxPartitions {
			errs = append(errs, fmt.Errorf("invalid partition: %d", p))
		}
	}
	for _, z := range append(slices.Clone(c.MotionZones), c.ContactZones...) {
		if z < 1 || z > dsc.MaxZones {
			errs = append(errs, fmt.Errorf("invalid zone: %d", z))
		}
	}
	for _, o := range c.Outputs {
		if o < 1 || o > dsc.MaxOutputs {
			errs = append(errs, fmt.Errorf("invalid output: %d", o))
		}
	}
	return errors.Join(errs...)
}

func (c Config) dialect() dsc.Dialect {
	d, _ := dsc.ParseDialect(c.Dialect)
	return d
}

// busConfig is the bus configuration: it decodes as many partitions and
// zone groups as the highest ones configured.
func (c Config) busConfig() dsc.Config {
	cfg := dsc.Config{
		Dialect:        c.dialect(),
		Partitions:     slices.Max(append([]int{1}, c.Partitions...)),
		VirtualKeypad:  c.WritePin != "",
		WritePartition: 1,
	}
	if zones := append(slices.Clone(c.MotionZones), c.ContactZones...); len(zones) > 0 {
		cfg.ZoneGroups = (slices.Max(zones)-1)/8 + 1
	}
	return cfg
}

// bridgeOptions tells serial bridges, given as a device path, from TCP
// ones.
func (c Config) bridgeOptions() bridge.Options {
	if strings.HasPrefix(c.Bridge, "/dev/") {
		return bridge.Options{Port: c.Bridge, Baud: c.Baud}
	}
	return bridge.Options{Addr: net.JoinHostPort(c.Bridge, c.Port)}
}

func (c Config) pins() gpio.Pins {
	return gpio.Pins{
		Clock: c.ClockPin,
		Data:  c.DataPin,
		Write: c.WritePin,
		PC16:  c.PC16Pin,
	}
}

type zoneKind uint8

const (
	kindMotion = iota + 1
	kindContact
)

func (z zoneKind) String() string {
	switch z {
	case kindMotion:
		return "motion"
	default:
		return "contact"
	}
}

type zoneConfig struct {
	number int
	name   string
	kind   zoneKind
}

func (c Config) zoneName(n int) string {
	names := c.ZoneNames
	if len(names) > n-1 {
		if n := names[n-1]; n != "" {
			return n
		}
	}
	return fmt.Sprintf("Zone %d", n)
}

type allZoneConfigs []zoneConfig

func (a allZoneConfigs) String() string {
	var zones []string
	for _, zone := range a {
		zones = append(
			zones,
			fmt.Sprintf("zone %d: %q (%s)", zone.number, zone.name, zone.kind.String()),
		)
	}
	return strings.Join(zones, "\n")
}

func (c Config) allZones() []zoneConfig {
	var zones []zoneConfig
	for _, z := range c.MotionZones {
		zones = append(zones, zoneConfig{
			number: z,
			name:   c.zoneName(z),
			kind:   kindMotion,
		})
	}
	for _, z := range c.ContactZones {
		zones = append(zones, zoneConfig{
			number: z,
			name:   c.zoneName(z),
			kind:   kindContact,
		})
	}
	slices.SortFunc(zones, func(a, b zoneConfig) int {
		if a.number > b.number {
			return 1
		}
		return -1
	})
	return zones
}

func getAlarmState(p dsc.Partition) int {
	switch {
	case p.Alarm:
		return characteristic.SecuritySystemCurrentStateAlarmTriggered
	case !p.Armed:
		return characteristic.SecuritySystemCurrentStateDisarmed
	case p.NoEntryDelay:
		return characteristic.SecuritySystemCurrentStateNightArm
	case p.ArmedStay:
		return characteristic.SecuritySystemCurrentStateStayArm
	default:
		return characteristic.SecuritySystemCurrentStateAwayArm
	}
}

// getTargetState is the state homekit should be heading to, which during
// an exit delay is the arming kind already announced by the panel.
func getTargetState(p dsc.Partition) int {
	if !p.ExitDelay || p.Armed {
		if p.Alarm {
			return -1
		}
		return getAlarmState(p)
	}
	switch p.ExitState {
	case dsc.ExitStay:
		return characteristic.SecuritySystemTargetStateStayArm
	case dsc.ExitNoEntryDelay:
		return characteristic.SecuritySystemTargetStateNightArm
	default:
		return characteristic.SecuritySystemTargetStateAwayArm
	}
}

// targetKeys are the keys that take a partition to the given target
// state.
func (c Config) targetKeys(partition, target int) (string, error) {
	var keys string
	switch target {
	case characteristic.SecuritySystemTargetStateStayArm:
		keys = "S"
	case characteristic.SecuritySystemTargetStateAwayArm:
		keys = "W"
	case characteristic.SecuritySystemTargetStateNightArm:
		if c.dialect() == dsc.Classic {
			return "", fmt.Errorf("night arm is not supported by classic panels")
		}
		keys = "N"
	case characteristic.SecuritySystemTargetStateDisarm:
		if c.AccessCode == "" {
			return "", errors.New("disarming needs ACCESS_CODE")
		}
		keys = c.AccessCode
	default:
		return "", fmt.Errorf("invalid target state: %d", target)
	}
	return fmt.Sprintf("/%d%s", partition, keys), nil
}

// disarmAllKeys disarms every configured partition, so a panic is cleared
// wherever it was raised. Partition 1 is selected again at the end, since
// output commands carry no partition.
func (c Config) disarmAllKeys() (string, error) {
	partitions := c.Partitions
	if len(partitions) == 0 {
		partitions = []int{1}
	}
	var keys strings.Builder
	for _, p := range partitions {
		k, err := c.targetKeys(p, characteristic.SecuritySystemTargetStateDisarm)
		if err != nil {
			return "", err
		}
		keys.WriteString(k)
	}
	if partitions[len(partitions)-1] != 1 {
		keys.WriteString("/1")
	}
	return keys.String(), nil
}
