package main

import (
	"net/http"
	"strconv"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	dsc "github.com/caarlos0/homekit-dsc"
)

type SecuritySystem struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem
	LowBattery     *characteristic.StatusLowBattery
	Fault          *characteristic.StatusFault

	partition int
	cfg       Config
	execute   Executor
}

func NewSecuritySystem(info accessory.Info, partition int, cfg Config, execute Executor) *SecuritySystem {
	a := &SecuritySystem{
		partition: partition,
		cfg:       cfg,
		execute:   execute,
	}
	a.A = accessory.New(info, accessory.TypeSecuritySystem)

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.LowBattery = characteristic.NewStatusLowBattery()
	a.SecuritySystem.AddC(a.LowBattery.C)

	a.Fault = characteristic.NewStatusFault()
	a.SecuritySystem.AddC(a.Fault.C)

	a.SecuritySystem.SecuritySystemTargetState.SetValueRequestFunc = a.updateHandler

	return a
}

func (a *SecuritySystem) Update(p dsc.Partition) {
	state := getAlarmState(p)
	armStateGauge.WithLabelValues(strconv.Itoa(a.partition)).Set(float64(state))
	if a.SecuritySystem.SecuritySystemCurrentState.Value() != state {
		err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(state)
		log.Info("set current state", "partition", a.partition, "state", state, "err", err)
	}

	if target := getTargetState(p); target >= 0 &&
		a.SecuritySystem.SecuritySystemTargetState.Value() != target {
		err := a.SecuritySystem.SecuritySystemTargetState.SetValue(target)
		log.Info("set target state", "partition", a.partition, "state", target, "err", err)
	}
}

func (a *SecuritySystem) UpdateTrouble(trouble, power, battery bool) {
	if v := boolAs[int](trouble || power); a.Fault.Value() != v {
		_ = a.Fault.SetValue(v)
		log.Info("alarm status", "partition", a.partition, "trouble", trouble, "power-trouble", power)
	}
	if v := boolAs[int](battery); a.LowBattery.Value() != v {
		_ = a.LowBattery.SetValue(v)
		log.Info("alarm status", "partition", a.partition, "low-battery", battery)
	}
}

func (a *SecuritySystem) updateHandler(
	v interface{},
	_ *http.Request,
) (response interface{}, code int) {
	target := v.(int)
	keys, err := a.cfg.targetKeys(a.partition, target)
	if err != nil {
		log.Error("could not change state", "partition", a.partition, "err", err)
		return nil, hap.JsonStatusInvalidValueInRequest
	}

	// Disarm before changing between armed states, the panel does not
	// take an arming key while armed.
	current := a.SecuritySystem.SecuritySystemCurrentState.Value()
	if target != characteristic.SecuritySystemTargetStateDisarm &&
		current != characteristic.SecuritySystemCurrentStateDisarmed {
		disarm, err := a.cfg.targetKeys(a.partition, characteristic.SecuritySystemTargetStateDisarm)
		if err != nil {
			log.Error("could not disarm", "partition", a.partition, "err", err)
			return nil, hap.JsonStatusInvalidValueInRequest
		}
		log.Info("disarm", "partition", a.partition)
		if err := a.execute(disarm); err != nil {
			log.Error("could not disarm", "partition", a.partition, "err", err)
			return nil, hap.JsonStatusResourceBusy
		}
	}

	switch target {
	case characteristic.SecuritySystemTargetStateStayArm:
		log.Info("arm stay", "partition", a.partition)
	case characteristic.SecuritySystemTargetStateAwayArm:
		log.Info("arm away", "partition", a.partition)
	case characteristic.SecuritySystemTargetStateNightArm:
		log.Info("arm night", "partition", a.partition)
	case characteristic.SecuritySystemTargetStateDisarm:
		log.Info("disarm", "partition", a.partition)
	}
	if err := a.execute(keys); err != nil {
		log.Error("could not write keys", "partition", a.partition, "err", err)
		return nil, hap.JsonStatusResourceBusy
	}
	return nil, hap.JsonStatusSuccess
}
