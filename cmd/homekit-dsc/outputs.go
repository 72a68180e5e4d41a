package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
	dsc "github.com/caarlos0/homekit-dsc"
)

// commandKeys are the keys that activate command outputs 1-4.
var commandKeys = map[int]string{
	1: "[",
	2: "]",
	3: "{",
	4: "}",
}

// Output is a PGM output. Outputs 1-4 can also be driven as command
// outputs, which adds a switch to them.
type Output struct {
	*accessory.A
	Number  int
	State   *service.ContactSensor
	Command *service.Switch
}

func newOutput(info accessory.Info, number int, execute Executor) *Output {
	a := Output{Number: number}
	a.A = accessory.New(info, accessory.TypeSensor)

	a.State = service.NewContactSensor()
	a.AddS(a.State.S)

	keys, ok := commandKeys[number]
	if !ok {
		return &a
	}
	a.Command = service.NewSwitch()
	a.AddS(a.Command.S)
	a.Command.On.SetValueRequestFunc = func(value interface{}, _ *http.Request) (response interface{}, code int) {
		log.Info("command output", "output", number, "on", value)
		if err := execute(keys); err != nil {
			log.Error("could not trigger command output", "output", number, "err", err)
			return nil, hap.JsonStatusResourceBusy
		}
		return nil, hap.JsonStatusSuccess
	}
	return &a
}

// Update reflects the output state on the contact sensor.
func (output *Output) Update(on bool) {
	outputGauge.WithLabelValues(strconv.Itoa(output.Number)).Set(boolAs[float64](on))
	if v := boolAs[int](on); output.State.ContactSensorState.Value() != v {
		_ = output.State.ContactSensorState.SetValue(v)
		log.Info("output", "output", output.Number, "on", on)
	}
}

// UpdateCommand reflects the output state on the command switch, if the
// output has one.
func (output *Output) UpdateCommand(outputs *dsc.Outputs) {
	if output.Command == nil || !outputs.Ack(output.Number, dsc.OutputCommand) {
		return
	}
	output.Command.On.SetValue(outputs.On(output.Number))
}

func setupOutputs(cfg Config, execute Executor, outputs *dsc.Outputs) []*Output {
	var result []*Output
	for i, number := range cfg.Outputs {
		a := newOutput(accessory.Info{
			Name:         fmt.Sprintf("Output %d", number),
			Manufacturer: manufacturer,
		}, number, execute)
		if a.Command != nil {
			outputs.Share(number)
		}
		a.Id = uint64(200 + i)
		result = append(result, a)
	}
	return result
}
