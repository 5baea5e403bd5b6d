//go:build !tinygo

package core

// loadCoarse reads the coarse counter (regular Go implementation)
func loadCoarse(p *uint32) uint32 {
	return *p
}

// storeCoarse writes the coarse counter (regular Go implementation)
func storeCoarse(p *uint32, v uint32) {
	*p = v
}
