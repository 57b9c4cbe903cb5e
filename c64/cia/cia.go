// Package cia implements the MOS 6526 Complex Interface Adapter: two 8-bit
// I/O ports, two 16-bit countdown timers (with Timer B chainable off Timer
// A's underflow), a time-of-day clock with alarm, and an interrupt control
// register with set/clear-mask writes and clear-on-read flags. The C64 uses
// two instances: CIA1 ($DC00, keyboard/joystick, drives IRQ) and CIA2
// ($DD00, IEC bus/VIC bank select, drives NMI). Grounded on
// original_source/c64-emu/src/devices/cia.rs, with the shadow-latch timer
// idiom (separate counter/latch with a force-reload bit in the control
// register) adapted from the teacher's pia6532/pia6532.go.
package cia

// Type distinguishes CIA1 (IRQ) from CIA2 (NMI); c64/memory's bus decides
// which line a given instance feeds.
type Type int

const (
	CIA1 Type = iota
	CIA2
)

// Port is one 8-bit I/O port: an output data latch and a data-direction
// register (1 = output). Reading combines the output latch with external
// input for pins configured as inputs.
type Port struct {
	Data uint8
	DDR  uint8
}

// Output returns the effective driven value, masking off input pins.
func (p *Port) Output() uint8 { return p.Data & p.DDR }

// Read combines the output latch with external input for input-configured
// pins.
func (p *Port) Read(external uint8) uint8 {
	return (p.Data & p.DDR) | (external &^ p.DDR)
}

// Timer is one 16-bit countdown timer with a reload latch.
type Timer struct {
	Counter   uint16
	Latch     uint16
	Running   bool
	OneShot   bool
	Underflow bool
}

func newTimer() Timer {
	return Timer{Counter: 0xFFFF, Latch: 0xFFFF}
}

// clock advances the timer by one cycle, returning true on underflow.
func (t *Timer) clock() bool {
	t.Underflow = false
	if !t.Running {
		return false
	}
	if t.Counter == 0 {
		t.Underflow = true
		t.Counter = t.Latch
		if t.OneShot {
			t.Running = false
		}
		return true
	}
	t.Counter--
	return false
}

func (t *Timer) forceReload() { t.Counter = t.Latch }

// TOD is the time-of-day clock: BCD-packed tenths/seconds/minutes/hours
// with an independent alarm and a latch-on-read sequence (reading hours
// freezes tenths/seconds/minutes until the next tenths read).
type TOD struct {
	Tenths, Seconds, Minutes, Hours                     uint8
	AlarmTenths, AlarmSeconds, AlarmMinutes, AlarmHours uint8
	Stopped bool

	latched                                           bool
	latchTenths, latchSeconds, latchMinutes, latchHours uint8
}

func newTOD() TOD {
	return TOD{Hours: 0x01}
}

func (t *TOD) alarmMatch() bool {
	return t.Tenths == t.AlarmTenths && t.Seconds == t.AlarmSeconds &&
		t.Minutes == t.AlarmMinutes && t.Hours == t.AlarmHours
}

// bcdInc60 increments a BCD 00-59 counter (seconds/minutes), wrapping to 00
// and reporting the carry.
func bcdInc60(v uint8) (uint8, bool) {
	lo, hi := v&0x0F, (v>>4)&0x0F
	lo++
	if lo > 9 {
		lo = 0
		hi++
	}
	if hi > 5 {
		hi = 0
		return hi<<4 | lo, true
	}
	return hi<<4 | lo, false
}

// bcdIncHour advances a BCD 1-12 hour-with-AM/PM-flag register (bit 7), BCD
// skipping from 09 to 10 and toggling AM/PM on the 12->01 rollover.
func bcdIncHour(v uint8) uint8 {
	ampm := v & 0x80
	h := v &^ 0x80
	switch h {
	case 0x09:
		h = 0x10
	case 0x12:
		h = 0x01
		ampm ^= 0x80
	default:
		h++
	}
	return h | ampm
}

// tick advances the clock by one tenth of a second, unless stopped (mid
// write sequence). Returns whether the new time matches the alarm.
func (t *TOD) tick() bool {
	if t.Stopped {
		return false
	}
	t.Tenths++
	if t.Tenths > 9 {
		t.Tenths = 0
		var carry bool
		if t.Seconds, carry = bcdInc60(t.Seconds); carry {
			if t.Minutes, carry = bcdInc60(t.Minutes); carry {
				t.Hours = bcdIncHour(t.Hours)
			}
		}
	}
	return t.alarmMatch()
}

// Interrupt flag bits, shared by the mask and flag registers.
const (
	flagTimerA = 1 << 0
	flagTimerB = 1 << 1
	flagTOD    = 1 << 2
	flagSDR    = 1 << 3
	flagFlag   = 1 << 4
	flagIRQ    = 1 << 7 // set in the read value, not stored in the mask
)

// CIA6526 is one MOS 6526 chip instance, addressable as a memory.Device
// over its 16 registers mirrored across a 256-byte page.
type CIA6526 struct {
	typ Type

	PortA, PortB Port
	TimerA, TimerB Timer
	Tod            TOD
	SDR            uint8

	interruptFlags   uint8
	interruptMask    uint8
	interruptPending bool

	cra, crb uint8

	// clockHz is the configured PHI2 rate, used to derive how many cycles
	// make up one TOD tenth-of-a-second tick (CRA bit 7 selects the TOD
	// line frequency: 0 = 60Hz, 1 = 50Hz). todAccum counts cycles toward
	// the next tick.
	clockHz  uint32
	todAccum uint32

	// ExternalA/ExternalB are the input-side values driven onto the port
	// pins by whatever is wired externally (keyboard rows/columns,
	// joystick switches, the IEC bus). The bus assembling a C64 system
	// sets these before each CPU step.
	ExternalA uint8
	ExternalB uint8
}

// defaultClockHz is the PAL PHI2 rate, used until SetClockHz configures the
// actual system clock (a CIA built standalone, e.g. in a test, still ticks
// TOD at a plausible rate rather than never).
const defaultClockHz = 985_248

// New returns a CIA of the given type, reset to power-on state.
func New(typ Type) *CIA6526 {
	c := &CIA6526{typ: typ, clockHz: defaultClockHz}
	c.Reset()
	return c
}

// SetClockHz configures the PHI2 rate used to derive the TOD tick divisor.
// c64/system.go calls this with the region's clock rate.
func (c *CIA6526) SetClockHz(hz uint32) { c.clockHz = hz }

// Reset restores power-on state: ports cleared, timers at $FFFF and
// stopped, TOD at 1:00:00.0, no interrupt mask or pending flags.
func (c *CIA6526) Reset() {
	c.PortA = Port{}
	c.PortB = Port{}
	c.TimerA = newTimer()
	c.TimerB = newTimer()
	c.Tod = newTOD()
	c.todAccum = 0
	c.SDR = 0
	c.interruptFlags = 0
	c.interruptMask = 0
	c.interruptPending = false
	c.cra = 0
	c.crb = 0
	c.ExternalA = 0xFF
	c.ExternalB = 0xFF
}

// IsCIA1 reports whether this chip drives the IRQ line (CIA1) rather than
// NMI (CIA2).
func (c *CIA6526) IsCIA1() bool { return c.typ == CIA1 }

// Clock advances both timers by one cycle. Timer B can be configured (via
// CRB bits 5-6 == 0b10) to count Timer A underflows instead of clock
// cycles, the "linked timer" mode used by some IRQ-rate tricks.
func (c *CIA6526) Clock() {
	aUnderflow := c.TimerA.clock()
	if aUnderflow {
		c.interruptFlags |= flagTimerA
		c.checkInterrupt()
	}

	countB := true
	if c.crb&0x60 == 0x40 {
		countB = aUnderflow
	}
	if countB {
		if c.TimerB.clock() {
			c.interruptFlags |= flagTimerB
			c.checkInterrupt()
		}
	}

	c.clockTOD()
}

// clockTOD advances the tenth-of-a-second accumulator and ticks TOD when it
// rolls over. CRA bit 7 selects the TOD line frequency (0 = 60Hz input,
// 1 = 50Hz), matching the real 6526's TOD IN pin selection.
func (c *CIA6526) clockTOD() {
	lineHz := uint32(60)
	if c.cra&0x80 != 0 {
		lineHz = 50
	}
	divisor := c.clockHz / (lineHz * 10)
	if divisor == 0 {
		divisor = 1
	}

	c.todAccum++
	if c.todAccum < divisor {
		return
	}
	c.todAccum = 0

	if c.Tod.tick() {
		c.interruptFlags |= flagTOD
		c.checkInterrupt()
	}
}

func (c *CIA6526) checkInterrupt() {
	if c.interruptFlags&c.interruptMask != 0 {
		c.interruptPending = true
	}
}

// VICBank returns CIA2 port A bits 0-1 inverted: the VIC-II bank select
// (0-3), where the actual bank base is (3-value)*0x4000.
func (c *CIA6526) VICBank() uint8 {
	return (^c.PortA.Read(c.ExternalA)) & 0x03
}

// SetJoystickPortA takes active-high joystick bits (1 = pressed; 0=up,
// 1=down,2=left,3=right,4=fire) and merges them, inverted, into port A's
// active-low external input, leaving bits 5-7 alone.
func (c *CIA6526) SetJoystickPortA(state uint8) {
	c.ExternalA = (c.ExternalA & 0xE0) | (^state & 0x1F)
}

// SetJoystickPortB merges active-high joystick bits, inverted, into port
// B's active-low external input.
func (c *CIA6526) SetJoystickPortB(state uint8) {
	c.ExternalB = (c.ExternalB & 0xE0) | (^state & 0x1F)
}

// Read implements memory.Device. Registers mirror every 16 bytes across
// the chip's 256-byte page. Reading the interrupt control register (0x0D)
// clears the latched flags and pending state, matching real 6526 behavior.
func (c *CIA6526) Read(offset uint16) uint8 {
	switch offset & 0x0F {
	case 0x00:
		return c.PortA.Read(c.ExternalA)
	case 0x01:
		return c.PortB.Read(c.ExternalB)
	case 0x02:
		return c.PortA.DDR
	case 0x03:
		return c.PortB.DDR
	case 0x04:
		return uint8(c.TimerA.Counter)
	case 0x05:
		return uint8(c.TimerA.Counter >> 8)
	case 0x06:
		return uint8(c.TimerB.Counter)
	case 0x07:
		return uint8(c.TimerB.Counter >> 8)
	case 0x08:
		// Reading tenths always unlatches, whether or not it was latched.
		tenths := c.Tod.Tenths
		if c.Tod.latched {
			tenths = c.Tod.latchTenths
		}
		c.Tod.latched = false
		return tenths
	case 0x09:
		if c.Tod.latched {
			return c.Tod.latchSeconds
		}
		return c.Tod.Seconds
	case 0x0A:
		if c.Tod.latched {
			return c.Tod.latchMinutes
		}
		return c.Tod.Minutes
	case 0x0B:
		// Reading hours freezes tenths/seconds/minutes until tenths is
		// next read, so a read sequence started here never observes a
		// rollover mid-read.
		if !c.Tod.latched {
			c.Tod.latched = true
			c.Tod.latchTenths = c.Tod.Tenths
			c.Tod.latchSeconds = c.Tod.Seconds
			c.Tod.latchMinutes = c.Tod.Minutes
			c.Tod.latchHours = c.Tod.Hours
		}
		return c.Tod.latchHours
	case 0x0C:
		return c.SDR
	case 0x0D:
		flags := c.interruptFlags
		pending := c.interruptPending
		c.interruptFlags = 0
		c.interruptPending = false
		if pending {
			flags |= flagIRQ
		}
		return flags
	case 0x0E:
		return c.cra
	case 0x0F:
		return c.crb
	}
	return 0xFF
}

// Peek returns a register's value without clearing the interrupt control
// register's latched flags, for non-mutating disassembly/monitor use.
func (c *CIA6526) Peek(offset uint16) uint8 {
	switch offset & 0x0F {
	case 0x0D:
		flags := c.interruptFlags
		if c.interruptPending {
			flags |= flagIRQ
		}
		return flags
	case 0x08:
		if c.Tod.latched {
			return c.Tod.latchTenths
		}
		return c.Tod.Tenths
	case 0x0B:
		if c.Tod.latched {
			return c.Tod.latchHours
		}
		return c.Tod.Hours
	}
	return c.Read(offset)
}

// Write implements memory.Device.
func (c *CIA6526) Write(offset uint16, val uint8) {
	switch offset & 0x0F {
	case 0x00:
		c.PortA.Data = val
	case 0x01:
		c.PortB.Data = val
	case 0x02:
		c.PortA.DDR = val
	case 0x03:
		c.PortB.DDR = val
	case 0x04:
		c.TimerA.Latch = (c.TimerA.Latch & 0xFF00) | uint16(val)
	case 0x05:
		c.TimerA.Latch = (c.TimerA.Latch & 0x00FF) | uint16(val)<<8
		if !c.TimerA.Running {
			c.TimerA.Counter = c.TimerA.Latch
		}
	case 0x06:
		c.TimerB.Latch = (c.TimerB.Latch & 0xFF00) | uint16(val)
	case 0x07:
		c.TimerB.Latch = (c.TimerB.Latch & 0x00FF) | uint16(val)<<8
		if !c.TimerB.Running {
			c.TimerB.Counter = c.TimerB.Latch
		}
	case 0x08:
		if c.crb&0x80 != 0 {
			c.Tod.AlarmTenths = val & 0x0F
		} else {
			c.Tod.Tenths = val & 0x0F
			c.Tod.Stopped = false
		}
	case 0x09:
		if c.crb&0x80 != 0 {
			c.Tod.AlarmSeconds = val & 0x7F
		} else {
			c.Tod.Seconds = val & 0x7F
		}
	case 0x0A:
		if c.crb&0x80 != 0 {
			c.Tod.AlarmMinutes = val & 0x7F
		} else {
			c.Tod.Minutes = val & 0x7F
		}
	case 0x0B:
		if c.crb&0x80 != 0 {
			c.Tod.AlarmHours = val & 0x9F
		} else {
			c.Tod.Hours = val & 0x9F
			c.Tod.Stopped = true
		}
	case 0x0C:
		c.SDR = val
	case 0x0D:
		mask := val & 0x1F
		if val&0x80 != 0 {
			c.interruptMask |= mask
		} else {
			c.interruptMask &^= mask
		}
		c.checkInterrupt()
	case 0x0E:
		c.cra = val
		c.TimerA.Running = val&0x01 != 0
		c.TimerA.OneShot = val&0x08 != 0
		if val&0x10 != 0 {
			c.TimerA.forceReload()
		}
	case 0x0F:
		c.crb = val
		c.TimerB.Running = val&0x01 != 0
		c.TimerB.OneShot = val&0x08 != 0
		if val&0x10 != 0 {
			c.TimerB.forceReload()
		}
	}
}

// Size implements memory.Device: 256 bytes, the chip's full mirrored page.
func (c *CIA6526) Size() uint16 { return 256 }

// IRQAsserted implements memory.Interrupter. CIA2's pending state still
// feeds into NMI routing (handled by c64/memory, which reads this per
// instance and routes by Type) rather than being suppressed here.
func (c *CIA6526) IRQAsserted() bool { return c.interruptPending }
