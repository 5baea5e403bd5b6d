//go:build tinygo

package core

import "sync/atomic"

// loadCoarse reads the coarse counter
func loadCoarse(p *uint32) uint32 {
	return atomic.LoadUint32(p)
}

// storeCoarse writes the coarse counter
func storeCoarse(p *uint32, v uint32) {
	atomic.StoreUint32(p, v)
}
