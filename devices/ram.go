// Package devices provides the generic memory-mapped devices the core
// library ships alongside the bus framework: RAM, ROM, and a 6551-style
// UART. These are the "RAM, ROM, UART, generic interrupt sources" framework
// devices named in spec.md §1, independent of any particular host system
// (the C64-specific chips live under c64/).
package devices

import "math/rand"

// RAM is a plain read/write memory.Device.
type RAM struct {
	data []uint8
}

// NewRAM allocates a zeroed RAM device of the given size.
func NewRAM(size uint16) *RAM {
	return &RAM{data: make([]uint8, size)}
}

func (r *RAM) Read(offset uint16) uint8       { return r.data[offset] }
func (r *RAM) Write(offset uint16, val uint8) { r.data[offset] = val }
func (r *RAM) Size() uint16                   { return uint16(len(r.data)) }
func (r *RAM) Peek(offset uint16) uint8       { return r.data[offset] }

// PowerOn randomizes contents, as real RAM powers up in an indeterminate
// state.
func (r *RAM) PowerOn(rng *rand.Rand) {
	for i := range r.data {
		r.data[i] = uint8(rng.Intn(256))
	}
}
