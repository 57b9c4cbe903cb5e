package devices

// UART is a 6551-style ACIA: a 4-byte register window at its base address
// (data, status, command, control), a 256-byte receive FIFO with overrun
// tracking, optional echo mode, and an edge-triggered interrupt-pending
// latch cleared by reading the data register. Grounded on
// original_source/src/devices/uart.rs.
type UART struct {
	data    uint8
	status  uint8 // bit4 TDRE (always 1), bit3 RDRF, bit2 OVRN
	command uint8 // bit1 IRQ enable, bit3 echo mode
	control uint8

	rx         []uint8 // FIFO, oldest first
	lastRX     uint8
	overrun    bool
	irqEnable  bool
	irqPending bool

	onTransmit func(uint8)
}

const (
	uartStatusTDRE  = 1 << 4
	uartStatusRDRF  = 1 << 3
	uartStatusOVRN  = 1 << 2
	uartCommandIRQ  = 1 << 1
	uartCommandEcho = 1 << 3
	uartRXCapacity  = 256
)

// NewUART returns a UART with transmit-data-register-empty permanently set,
// as the 6551 never models a busy transmitter in this emulator.
func NewUART() *UART {
	return &UART{status: uartStatusTDRE}
}

// SetTransmitCallback installs the function invoked synchronously whenever
// a byte is written to the data register (or echoed back in echo mode).
// Per spec.md §5, this call must not re-enter the bus.
func (u *UART) SetTransmitCallback(fn func(uint8)) {
	u.onTransmit = fn
}

func (u *UART) updateStatus() {
	u.status = uartStatusTDRE
	if len(u.rx) > 0 {
		u.status |= uartStatusRDRF
	}
	if u.overrun {
		u.status |= uartStatusOVRN
	}
}

// ReceiveByte delivers an incoming byte to the UART's receive FIFO, as if
// received over the wire. If the FIFO is full, the byte is dropped and the
// overrun flag is set instead.
func (u *UART) ReceiveByte(b uint8) {
	if len(u.rx) >= uartRXCapacity {
		u.overrun = true
		u.updateStatus()
		return
	}
	u.rx = append(u.rx, b)
	u.lastRX = b
	u.updateStatus()
	if u.irqEnable {
		u.irqPending = true
	}
	if u.command&uartCommandEcho != 0 && u.onTransmit != nil {
		u.onTransmit(b)
	}
}

// RXBufferLen reports the current receive FIFO depth (test/diagnostic
// helper).
func (u *UART) RXBufferLen() int { return len(u.rx) }

// Status returns the current status register value (test/diagnostic
// helper, non mutating).
func (u *UART) Status() uint8 { return u.status }

func (u *UART) writeData(val uint8) {
	u.data = val
	if u.onTransmit != nil {
		u.onTransmit(val)
	}
}

// Read implements memory.Device. Reading offset 0 pops the receive FIFO,
// clearing overrun and the interrupt-pending latch.
func (u *UART) Read(offset uint16) uint8 {
	switch offset {
	case 0:
		if len(u.rx) == 0 {
			return u.lastRX
		}
		b := u.rx[0]
		u.rx = u.rx[1:]
		u.lastRX = b
		u.overrun = false
		u.irqPending = false
		u.updateStatus()
		return b
	case 1:
		return u.status
	case 2:
		return u.command
	case 3:
		return u.control
	}
	return 0
}

// Peek inspects the data register without popping the FIFO.
func (u *UART) Peek(offset uint16) uint8 {
	switch offset {
	case 0:
		return u.lastRX
	case 1:
		return u.status
	case 2:
		return u.command
	case 3:
		return u.control
	}
	return 0
}

// Write implements memory.Device. Offset 1 (status) is read-only and
// ignored.
func (u *UART) Write(offset uint16, val uint8) {
	switch offset {
	case 0:
		u.writeData(val)
	case 1:
		// read only
	case 2:
		u.command = val
		u.irqEnable = val&uartCommandIRQ != 0
		if !u.irqEnable {
			u.irqPending = false
		}
	case 3:
		u.control = val
	}
}

func (u *UART) Size() uint16 { return 4 }

// IRQAsserted implements memory.Interrupter.
func (u *UART) IRQAsserted() bool { return u.irqPending }
