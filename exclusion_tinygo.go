//go:build tinygo

package dsc

import "runtime/interrupt"

// exclusion disables interrupts while fn runs.
type exclusion struct{}

func (e *exclusion) do(fn func()) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	fn()
}
