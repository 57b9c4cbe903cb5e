package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUARTNew(t *testing.T) {
	u := NewUART()
	assert.Equal(t, uint8(uartStatusTDRE), u.Status())
	assert.False(t, u.IRQAsserted())
}

func TestUARTTransmit(t *testing.T) {
	u := NewUART()
	var sent []uint8
	u.SetTransmitCallback(func(b uint8) { sent = append(sent, b) })
	u.Write(0, 'H')
	u.Write(0, 'i')
	require.Equal(t, []uint8{'H', 'i'}, sent)
}

func TestUARTReceive(t *testing.T) {
	u := NewUART()
	u.ReceiveByte(0x41)
	assert.Equal(t, 1, u.RXBufferLen())
	assert.NotZero(t, u.Status()&uartStatusRDRF)
	got := u.Read(0)
	assert.Equal(t, uint8(0x41), got)
	assert.Equal(t, 0, u.RXBufferLen())
}

func TestUARTStatusRegisterReadOnly(t *testing.T) {
	u := NewUART()
	before := u.Status()
	u.Write(1, 0xFF)
	assert.Equal(t, before, u.Status())
}

func TestUARTCommandControlRegisters(t *testing.T) {
	u := NewUART()
	u.Write(2, uartCommandIRQ)
	u.Write(3, 0x1E)
	assert.Equal(t, uint8(uartCommandIRQ), u.Read(2))
	assert.Equal(t, uint8(0x1E), u.Read(3))
}

func TestUARTBufferOverflow(t *testing.T) {
	u := NewUART()
	for i := 0; i < uartRXCapacity; i++ {
		u.ReceiveByte(uint8(i))
	}
	require.Equal(t, uartRXCapacity, u.RXBufferLen())
	u.ReceiveByte(0xFF)
	assert.NotZero(t, u.Status()&uartStatusOVRN)
	u.Read(0)
	assert.Zero(t, u.Status()&uartStatusOVRN, "reading the FIFO clears overrun")
}

func TestUARTEchoMode(t *testing.T) {
	u := NewUART()
	var echoed []uint8
	u.SetTransmitCallback(func(b uint8) { echoed = append(echoed, b) })
	u.Write(2, uartCommandEcho)
	u.ReceiveByte('Q')
	require.Equal(t, []uint8{'Q'}, echoed)
}

func TestUARTInterruptPending(t *testing.T) {
	u := NewUART()
	u.Write(2, uartCommandIRQ)
	u.ReceiveByte(1)
	assert.True(t, u.IRQAsserted())
	u.Read(0)
	assert.False(t, u.IRQAsserted())
}
