package devices

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregbell/lib6502-sub001/memory"
)

// TestFrameworkWiring registers RAM, ROM, and a UART into a real
// memory.MappedBus, the shape spec.md §1's "RAM, ROM, UART, generic
// interrupt sources" framework description is meant to support: any host
// system assembles its bus out of these, the way c64/memory does with its
// own C64-specific chips.
func TestFrameworkWiring(t *testing.T) {
	bus := memory.NewMappedBus()

	ram := NewRAM(0x1000)
	require.NoError(t, bus.AddDevice(0x0000, ram))

	rom := NewROM([]byte{0xA9, 0x42, 0x60}) // LDA #$42 / RTS
	require.NoError(t, bus.AddDevice(0x8000, rom))

	uart := NewUART()
	require.NoError(t, bus.AddDevice(0xD800, uart))

	bus.Write(0x0010, 0x99)
	assert.Equal(t, uint8(0x99), bus.Read(0x0010))

	assert.Equal(t, uint8(0xA9), bus.Read(0x8000))
	bus.Write(0x8000, 0x00) // ROM writes are discarded
	assert.Equal(t, uint8(0xA9), bus.Read(0x8000))

	assert.False(t, bus.IRQActive())
	bus.Write(0xD800+2, uartCommandIRQ) // command register at offset 2
	uart.ReceiveByte(0x7A)
	assert.True(t, bus.IRQActive(), "UART's asserted RX interrupt should propagate through MappedBus.IRQActive")

	got, ok := memory.GetDeviceAt[*UART](bus, 0xD800)
	require.True(t, ok)
	assert.Same(t, uart, got)

	_, ok = memory.GetDeviceAt[*RAM](bus, 0x8000)
	assert.False(t, ok, "the device at $8000 is a ROM, not a RAM")
}

func TestRAMPowerOnRandomizes(t *testing.T) {
	r := NewRAM(256)
	r.PowerOn(rand.New(rand.NewSource(1)))
	var nonZero bool
	for i := uint16(0); i < 256; i++ {
		if r.Read(i) != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "PowerOn should leave RAM in a non-trivial state")
}

func TestROMCopiesSourceData(t *testing.T) {
	src := []byte{1, 2, 3}
	rom := NewROM(src)
	src[0] = 0xFF // mutating the caller's slice must not affect the ROM
	assert.Equal(t, uint8(1), rom.Read(0))
}
