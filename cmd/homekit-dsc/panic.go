package main

import (
	"net/http"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
)

func setupPanicButton(cfg Config, execute Executor) *accessory.Switch {
	a := accessory.NewSwitch(accessory.Info{
		Name:         "Audible Panic",
		Manufacturer: manufacturer,
	})
	a.Switch.On.SetValueRequestFunc = func(value interface{}, _ *http.Request) (response interface{}, code int) {
		v := value.(bool)
		keys := "P"
		if !v {
			var err error
			keys, err = cfg.disarmAllKeys()
			if err != nil {
				log.Error("could not disarm", "err", err)
				return nil, hap.JsonStatusInvalidValueInRequest
			}
		} else {
			log.Warn("triggering an audible panic!")
		}
		if err := execute(keys); err != nil {
			log.Error("failed to trigger an audible panic", "err", err)
			return nil, hap.JsonStatusResourceBusy
		}
		return nil, hap.JsonStatusSuccess
	}
	return a
}
