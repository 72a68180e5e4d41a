package main

import (
	dsc "github.com/caarlos0/homekit-dsc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var armStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "alarm",
	Name:        "state",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"partition"})

var troubleGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "alarm",
	Name:        "trouble",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"kind"})

var openGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "alarm",
	Name:        "open",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var alarmGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "alarm",
	Name:        "zone_alarm",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var outputGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "alarm",
	Name:        "output",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"output"})

var connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "keybus",
	Name:        "connected",
	Help:        "",
	ConstLabels: map[string]string{},
})

var requestCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "keypad",
	Name:        "writes_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

var requestErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_dsc",
	Subsystem:   "keypad",
	Name:        "write_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

// registerBusMetrics exposes the bus counters. Stats is only read from the
// bus loop goroutine, so the collectors read a copy it keeps up to date.
func registerBusMetrics(stats func() dsc.Stats) {
	counter := func(name string, fn func(s dsc.Stats) uint64) {
		promauto.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "homekit_dsc",
			Subsystem: "keybus",
			Name:      name,
			Help:      "",
		}, func() float64 { return float64(fn(stats())) })
	}
	counter("frames_total", func(s dsc.Stats) uint64 { return s.Frames })
	counter("crc_errors_total", func(s dsc.Stats) uint64 { return s.CRCErrors })
	counter("redundant_frames_total", func(s dsc.Stats) uint64 { return s.Redundant })
	counter("spurious_frames_total", func(s dsc.Stats) uint64 { return s.Spurious })
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "homekit_dsc",
		Subsystem: "keybus",
		Name:      "queued_frames",
		Help:      "",
	}, func() float64 { return float64(stats().Queued) })
}
