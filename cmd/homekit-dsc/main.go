package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/env/v11"
	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/caarlos0/homekit-dsc/bridge"
	"github.com/caarlos0/homekit-dsc/gpio"
	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed index.html
var index []byte

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Executor writes keys on the bus.
type Executor = func(keys string) error

const (
	manufacturer = "DSC"
	writeTimeout = 10 * time.Second
)

type writeRequest struct {
	keys string
	done chan error
}

func main() {
	log.Info(
		"homekit-dsc",
		"version", version,
		"commit", commit,
		"date", date,
		"info", strings.Join([]string{
			"Homekit bridge for DSC PowerSeries and Classic alarm systems",
			"© Carlos Alexandro Becker",
			"https://becker.software",
		}, "\n"),
	)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(
			"could not parse env",
			"err",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: ")+"\n",
		)
	}
	if err := cfg.validate(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	log.Info(
		"loading accessories",
		"dialect", cfg.dialect(),
		"partitions", fmt.Sprintf("%v", cfg.Partitions),
		"outputs", fmt.Sprintf("%v", cfg.Outputs),
		"zones", allZoneConfigs(cfg.allZones()).String(),
	)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		log.Info("stopping server")
		signal.Stop(c)
		cancel()
	}()

	bus, macAddr, closeBus, err := openBus(ctx, cfg)
	if err != nil {
		log.Fatal("could not open keybus", "err", err)
	}
	defer closeBus()

	writes := make(chan writeRequest)
	var writeLock sync.Mutex
	execute := func(keys string) error {
		t := time.Now()
		writeLock.Lock()
		defer writeLock.Unlock()
		log.Debugf("got write lock after %s", time.Since(t))

		bo := backoff.NewExponentialBackOff()
		bo.MaxInterval = time.Second * 5
		bo.MaxElapsedTime = time.Second * 30

		return backoff.RetryNotify(func() error {
			requestCounter.Inc()
			req := writeRequest{keys: keys, done: make(chan error, 1)}
			select {
			case writes <- req:
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
			if err := <-req.done; err != nil {
				requestErrorCounter.Inc()
				if errors.Is(err, dsc.ErrReadOnly) {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		}, bo, func(err error, _ time.Duration) {
			log.Error("write to keybus failed", "err", err)
		})
	}

	bridgeAcc := accessory.NewBridge(accessory.Info{
		Name:         "Alarm Bridge",
		Manufacturer: manufacturer,
		Firmware:     version,
	})

	alarms := map[int]*SecuritySystem{}
	for _, partition := range cfg.Partitions {
		name := "Alarm"
		if len(cfg.Partitions) > 1 {
			name = fmt.Sprintf("Alarm %d", partition)
		}
		alarm := NewSecuritySystem(accessory.Info{
			Name:         name,
			SerialNumber: macAddr,
			Manufacturer: manufacturer,
			Model:        cfg.dialect().String(),
		}, partition, cfg, execute)
		alarm.Id = uint64(10 + partition)
		alarms[partition] = alarm
	}

	panicBtn := setupPanicButton(cfg, execute)
	panicBtn.Id = 3

	sensors := setupZones(cfg)
	outputs := setupOutputs(cfg, execute, &bus.Status().Outputs)

	var stats atomic.Pointer[dsc.Stats]
	stats.Store(&dsc.Stats{})
	registerBusMetrics(func() dsc.Stats { return *stats.Load() })

	handlers := newHandlers(bus, alarms, sensors, outputs)
	bus.ResetStatus()
	go runBus(ctx, bus, writes, &stats, handlers, outputs)

	fs := hap.NewFsStore("./db")

	server, err := hap.NewServer(
		fs, bridgeAcc.A,
		securityAccessories(alarms, cfg.Partitions, panicBtn, sensors, outputs)...,
	)
	if err != nil {
		log.Fatal("fail to create server", "error", err)
	}
	server.Addr = cfg.Address
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	server.ServeMux().Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		states := [5]string{
			"Armed: Stay",
			"Armed: Away",
			"Armed: Night",
			"Disarmed",
			"Alarm Triggered",
		}

		var hPartitions []PageItem
		for _, partition := range cfg.Partitions {
			alarm := alarms[partition]
			hPartitions = append(hPartitions, PageItem{
				Number: partition,
				Name:   alarm.Name(),
				State:  states[alarm.SecuritySystem.SecuritySystemCurrentState.Value()],
				Fault:  alarm.Fault.Value() == 1,
			})
		}

		var hSensors []PageItem
		for _, zone := range sensors {
			hSensors = append(hSensors, PageItem{
				Number: zone.Number,
				Name:   zone.Name(),
				Open:   zone.Open(),
				Fault:  zone.Fault.Value() == 1,
			})
		}

		var hOutputs []PageItem
		for _, output := range outputs {
			hOutputs = append(hOutputs, PageItem{
				Number: output.Number,
				Name:   output.Name(),
				Open:   output.State.ContactSensorState.Value() == 1,
			})
		}

		tpl := template.Must(template.New("index").Parse(string(index)))
		_ = tpl.Execute(w, struct {
			Partitions []PageItem
			Zones      []PageItem
			Outputs    []PageItem
			Stats      dsc.Stats
		}{
			Partitions: hPartitions,
			Zones:      hSensors,
			Outputs:    hOutputs,
			Stats:      *stats.Load(),
		})
	}))

	log.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to close server", "err", err)
	}
}

// openBus connects to the keybus either through a bridge or local GPIO
// pins, and returns the serial number to use on the accessories.
func openBus(ctx context.Context, cfg Config) (*dsc.Interface, string, func(), error) {
	busCfg := cfg.busConfig()

	if cfg.Bridge != "" {
		opts := cfg.bridgeOptions()
		cli, err := bridge.New(opts)
		if err != nil {
			return nil, "", nil, err
		}
		busCfg.Remote = cli
		bus, err := dsc.New(nil, busCfg)
		if err != nil {
			return nil, "", nil, err
		}

		var macAddr string
		if opts.Addr != "" {
			macAddr, err = bridge.MacAddress(opts.Addr)
			if err != nil {
				log.Warn(
					"could not get the mac address, needs 'cap_net_raw+ep' capabilities",
					"err", err,
				)
			}
		}

		go func() {
			if err := cli.Run(ctx, bus.Inject); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bridge stopped", "err", err)
			}
		}()
		return bus, macAddr, func() {
			if err := cli.Close(); err != nil {
				log.Error("could not close bridge client", "err", err)
			}
		}, nil
	}

	hw, err := gpio.Open(ctx, cfg.pins())
	if err != nil {
		return nil, "", nil, err
	}
	bus, err := dsc.New(hw, busCfg)
	if err != nil {
		_ = hw.Close()
		return nil, "", nil, err
	}
	if err := bus.Start(); err != nil {
		_ = hw.Close()
		return nil, "", nil, err
	}
	return bus, "", func() {
		bus.Stop()
		if err := hw.Close(); err != nil {
			log.Error("could not close gpio", "err", err)
		}
	}, nil
}

// runBus owns the bus: every Loop, status read and write happens here.
func runBus(
	ctx context.Context,
	bus *dsc.Interface,
	writes <-chan writeRequest,
	stats *atomic.Pointer[dsc.Stats],
	handlers dsc.Handlers,
	outputs []*Output,
) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-writes:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			req.done <- bus.WriteKeys(wctx, req.keys, true)
			cancel()
		case <-tick.C:
			st := bus.Stats()
			stats.Store(&st)
			if bus.BufferOverflow() {
				log.Warn("keybus frames were dropped, the loop is not keeping up")
			}
		default:
			if !bus.Loop() {
				time.Sleep(time.Millisecond)
			}
		}

		status := bus.Status()
		for _, output := range outputs {
			output.UpdateCommand(&status.Outputs)
		}
		status.HandleChanges(handlers)
	}
}

func newHandlers(
	bus *dsc.Interface,
	alarms map[int]*SecuritySystem,
	sensors []*AlarmSensor,
	outputs []*Output,
) dsc.Handlers {
	zones := map[int]*AlarmSensor{}
	for _, sensor := range sensors {
		zones[sensor.Number] = sensor
	}
	pgms := map[int]*Output{}
	for _, output := range outputs {
		pgms[output.Number] = output
	}
	updatePartition := func(partition int) {
		if alarm, ok := alarms[partition]; ok {
			alarm.Update(bus.Status().Partitions[partition-1])
		}
	}

	return dsc.Handlers{
		Online: func(connected bool) {
			connectedGauge.Set(boolAs[float64](connected))
			log.Info("keybus", "connected", connected)
		},
		ZoneOpen: func(zone int, open bool) {
			if sensor, ok := zones[zone]; ok {
				sensor.SetOpen(open)
			}
		},
		ZoneAlarm: func(zone int, alarm bool) {
			if sensor, ok := zones[zone]; ok {
				sensor.SetAlarm(alarm)
			}
		},
		Fire: func(partition int, fire bool) {
			log.Warn("fire", "partition", partition, "fire", fire)
		},
		Trouble: func(trouble, power, battery bool) {
			troubleGauge.WithLabelValues("system").Set(boolAs[float64](trouble))
			troubleGauge.WithLabelValues("power").Set(boolAs[float64](power))
			troubleGauge.WithLabelValues("battery").Set(boolAs[float64](battery))
			for _, alarm := range alarms {
				alarm.UpdateTrouble(trouble, power, battery)
			}
		},
		PartitionStatus: func(partition int, p dsc.Partition) {
			log.Debug("partition status", "partition", partition, "status", p.Status, "ready", p.Ready)
		},
		Armed: func(partition int, _ dsc.Partition) {
			updatePartition(partition)
		},
		Alarm: func(partition int, _ bool) {
			updatePartition(partition)
		},
		Output: func(output int, on bool) {
			if pgm, ok := pgms[output]; ok {
				pgm.Update(on)
			}
		},
		Keypad: func(state dsc.KeypadState) {
			log.Info("keypad", "state", state)
		},
		KeypadAlarm: func(fire, aux, panic bool) {
			log.Warn("keypad alarm", "fire", fire, "aux", aux, "panic", panic)
		},
	}
}

func securityAccessories(
	alarms map[int]*SecuritySystem,
	partitions []int,
	panicBtn *accessory.Switch,
	sensors []*AlarmSensor,
	outputs []*Output,
) []*accessory.A {
	result := []*accessory.A{
		panicBtn.A,
	}
	for _, p := range partitions {
		result = append(result, alarms[p].A)
	}
	for _, c := range sensors {
		result = append(result, c.A)
	}
	for _, c := range outputs {
		result = append(result, c.A)
	}
	return result
}

func boolAs[T int | float64](b bool) T {
	if b {
		return 1
	}
	return 0
}

type PageItem struct {
	Number int
	Name   string
	State  string
	Open   bool
	Fault  bool
}
