package main

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

type AlarmSensor struct {
	*accessory.A
	Kind    zoneKind
	Number  int
	Motion  *service.MotionSensor
	Contact *service.ContactSensor
	Fault   *characteristic.StatusFault
}

func newAlarmSensor(info accessory.Info, zone zoneConfig) *AlarmSensor {
	a := AlarmSensor{
		Kind:   zone.kind,
		Number: zone.number,
	}
	a.A = accessory.New(info, accessory.TypeSensor)

	a.Fault = characteristic.NewStatusFault()

	switch zone.kind {
	case kindContact:
		a.Contact = service.NewContactSensor()
		a.Contact.AddC(a.Fault.C)
		a.AddS(a.Contact.S)
	case kindMotion:
		a.Motion = service.NewMotionSensor()
		a.Motion.AddC(a.Fault.C)
		a.AddS(a.Motion.S)
	}

	return &a
}

// Open reports the last state set on the sensor.
func (sensor *AlarmSensor) Open() bool {
	if sensor.Motion != nil {
		return sensor.Motion.MotionDetected.Value()
	}
	return sensor.Contact.ContactSensorState.Value() == 1
}

func (sensor *AlarmSensor) SetOpen(open bool) {
	openGauge.WithLabelValues(sensor.Name()).Set(boolAs[float64](open))
	switch sensor.Kind {
	case kindContact:
		current := boolAs[int](open)
		if v := sensor.Contact.ContactSensorState.Value(); v == current {
			return
		}
		_ = sensor.Contact.ContactSensorState.SetValue(current)
		log.Info("contact", "zone", sensor.Number, "open", open)
	case kindMotion:
		if v := sensor.Motion.MotionDetected.Value(); v == open {
			return
		}
		sensor.Motion.MotionDetected.SetValue(open)
		log.Info("motion", "zone", sensor.Number, "open", open)
	}
}

// SetAlarm shows a zone in alarm as faulted.
func (sensor *AlarmSensor) SetAlarm(alarm bool) {
	alarmGauge.WithLabelValues(sensor.Name()).Set(boolAs[float64](alarm))
	if v := boolAs[int](alarm); sensor.Fault.Value() != v {
		_ = sensor.Fault.SetValue(v)
		log.Info("zone alarm", "zone", sensor.Number, "alarm", alarm)
	}
}

func setupZones(cfg Config) []*AlarmSensor {
	var sensors []*AlarmSensor
	for i, zone := range cfg.allZones() {
		a := newAlarmSensor(accessory.Info{
			Name:         zone.name,
			Manufacturer: manufacturer,
		}, zone)
		a.Id = uint64(100 + i)
		sensors = append(sensors, a)
	}
	return sensors
}
