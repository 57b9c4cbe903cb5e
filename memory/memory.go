// Package memory defines the memory-bus and device-mapping substrate: an
// abstract read/write contract, a flat 64KiB implementation, and a device
// mapper that routes addresses to registered devices by range.
package memory

import (
	"fmt"
	"math/rand"
)

// Bus is the contract every memory subsystem implements: a byte-addressable
// read/write space plus an aggregated level-sensitive IRQ line. Reads must
// be pure with respect to bus state for RAM/ROM but may have side effects
// for I/O devices (a CIA ICR read clears latched flags, a UART data
// register read pops a FIFO entry) — the CPU invokes Read exactly once per
// intended access and never speculatively, so this is safe by construction
// in a single-threaded interpreter.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
	IRQActive() bool
}

// NMIBus is an optional extension implemented by buses that additionally
// aggregate an edge-triggered NMI line (the C64 bus does, via CIA2; a bare
// FlatBus does not).
type NMIBus interface {
	NMIActive() bool
}

// PeekBus lets tooling (the disassembler, a monitor) inspect a byte without
// invoking any side-effecting device read. Per the interior-mutability
// design note, this is the inverted, Go-idiomatic shape of "read takes a
// mutable reference, peek doesn't".
type PeekBus interface {
	Peek(addr uint16) uint8
}

// Device is a component that can be registered into a MappedBus. offset is
// always in [0, Size()).
type Device interface {
	Read(offset uint16) uint8
	Write(offset uint16, val uint8)
	Size() uint16
}

// Peeker is implemented by devices whose Read is side-effecting, to provide
// a non-mutating inspection path.
type Peeker interface {
	Peek(offset uint16) uint8
}

// Interrupter is implemented by devices that can assert a level-sensitive
// interrupt line. MappedBus.IRQActive() is the OR of all registered
// devices implementing this interface.
type Interrupter interface {
	IRQAsserted() bool
}

// AddressRange is a device's half-open address window [Base, Base+Size).
type AddressRange struct {
	Base uint16
	Size uint16
}

// end returns the exclusive end address and whether computing it overflowed
// 16 bits (a device's range cannot actually extend past $FFFF in practice,
// but the arithmetic is done widened so overlap checks never wrap
// silently).
func (r AddressRange) end() (uint32, bool) {
	e := uint32(r.Base) + uint32(r.Size)
	return e, e > 0x10000
}

// Contains reports whether addr falls in this half-open range.
func (r AddressRange) Contains(addr uint16) bool {
	end, _ := r.end()
	return uint32(addr) >= uint32(r.Base) && uint32(addr) < end
}

// Overlaps reports whether two ranges share any address.
func (r AddressRange) Overlaps(other AddressRange) bool {
	end, _ := r.end()
	oend, _ := other.end()
	return uint32(r.Base) < oend && end > uint32(other.Base)
}

// OverlapError is returned by AddDevice when a new mapping's range collides
// with an already-registered device.
type OverlapError struct {
	NewBase, NewSize           uint16
	ExistingBase, ExistingSize uint16
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("device range $%04X-$%04X overlaps existing device range $%04X-$%04X",
		e.NewBase, uint32(e.NewBase)+uint32(e.NewSize)-1,
		e.ExistingBase, uint32(e.ExistingBase)+uint32(e.ExistingSize)-1)
}

type deviceMapping struct {
	base   uint16
	device Device
}

func (m deviceMapping) rng() AddressRange {
	return AddressRange{Base: m.base, Size: m.device.Size()}
}

// MappedBus routes reads and writes to an ordered list of registered
// devices by address range. Ordering is insertion order and the search is
// linear, matching the spec's "a handful of devices, one integer
// comparison per mapping" rationale for preferring a vector over a map.
type MappedBus struct {
	devices  []deviceMapping
	unmapped uint8
}

// NewMappedBus creates an empty bus. Unmapped reads return $FF (the
// floating-bus convention) until overridden with SetUnmappedValue.
func NewMappedBus() *MappedBus {
	return &MappedBus{unmapped: 0xFF}
}

// SetUnmappedValue overrides the floating-bus constant returned by reads to
// unmapped addresses.
func (m *MappedBus) SetUnmappedValue(v uint8) {
	m.unmapped = v
}

// AddDevice registers a device at base. It fails with an *OverlapError if
// the new range overlaps any already-registered device; insertion order
// among non-overlapping devices is otherwise unconstrained.
func (m *MappedBus) AddDevice(base uint16, d Device) error {
	nr := AddressRange{Base: base, Size: d.Size()}
	for _, mp := range m.devices {
		if nr.Overlaps(mp.rng()) {
			return &OverlapError{
				NewBase: base, NewSize: d.Size(),
				ExistingBase: mp.base, ExistingSize: mp.device.Size(),
			}
		}
	}
	m.devices = append(m.devices, deviceMapping{base: base, device: d})
	return nil
}

func (m *MappedBus) find(addr uint16) (deviceMapping, uint16, bool) {
	for _, mp := range m.devices {
		if mp.rng().Contains(addr) {
			return mp, addr - mp.base, true
		}
	}
	return deviceMapping{}, 0, false
}

// Read implements Bus. An address not covered by any device returns the
// floating-bus value.
func (m *MappedBus) Read(addr uint16) uint8 {
	mp, off, ok := m.find(addr)
	if !ok {
		return m.unmapped
	}
	return mp.device.Read(off)
}

// Write implements Bus. A write to an address not covered by any device is
// silently discarded.
func (m *MappedBus) Write(addr uint16, val uint8) {
	mp, off, ok := m.find(addr)
	if !ok {
		return
	}
	mp.device.Write(off, val)
}

// Peek implements PeekBus: it uses a device's Peeker implementation if
// present, falling back to Read for devices with no side effects.
func (m *MappedBus) Peek(addr uint16) uint8 {
	mp, off, ok := m.find(addr)
	if !ok {
		return m.unmapped
	}
	if p, ok := mp.device.(Peeker); ok {
		return p.Peek(off)
	}
	return mp.device.Read(off)
}

// IRQActive implements Bus: the OR of every registered Interrupter's
// current assertion. Level-sensitive — the line stays asserted until the
// device itself clears the condition, typically via a register read.
func (m *MappedBus) IRQActive() bool {
	for _, mp := range m.devices {
		if ir, ok := mp.device.(Interrupter); ok && ir.IRQAsserted() {
			return true
		}
	}
	return false
}

// GetDeviceAt is the framework's one typed escape hatch: it returns the
// device registered at addr, downcast to T, when the device at that
// address is in fact a T. Used by callers that need to do something
// type-specific after registration (e.g. install a UART transmit
// callback).
func GetDeviceAt[T Device](m *MappedBus, addr uint16) (T, bool) {
	var zero T
	mp, _, ok := m.find(addr)
	if !ok {
		return zero, false
	}
	if t, ok := mp.device.(T); ok {
		return t, true
	}
	return zero, false
}

// FlatBus is the simplest Bus implementation: a flat 64KiB array with no
// device routing, IRQActive always false. Useful for CPU-only testing and
// for the assembler's round-trip acceptance tests.
type FlatBus struct {
	ram [65536]uint8
}

// NewFlatBus returns a zeroed 64KiB bus.
func NewFlatBus() *FlatBus {
	return &FlatBus{}
}

func (f *FlatBus) Read(addr uint16) uint8       { return f.ram[addr] }
func (f *FlatBus) Write(addr uint16, val uint8) { f.ram[addr] = val }
func (f *FlatBus) IRQActive() bool              { return false }
func (f *FlatBus) Peek(addr uint16) uint8       { return f.ram[addr] }

// PowerOn randomizes RAM contents, matching the teacher's power-on
// behaviour for RAM banks (real hardware RAM powers up in an
// indeterminate state).
func (f *FlatBus) PowerOn(rng *rand.Rand) {
	for i := range f.ram {
		f.ram[i] = uint8(rng.Intn(256))
	}
}

// LoadAt copies data into the bus starting at base, wrapping mod 2^16. Used
// to load assembler output or ROM images for testing.
func (f *FlatBus) LoadAt(base uint16, data []byte) {
	for i, b := range data {
		f.ram[uint16(int(base)+i)] = b
	}
}
