//go:build !tinygo

package dsc

import "sync"

// exclusion keeps the interrupt side and the polling side out of each
// other for the few instructions that touch shared indices and flags.
type exclusion struct {
	mu sync.Mutex
}

func (e *exclusion) do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}
