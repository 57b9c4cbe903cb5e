// Package cpu implements the MOS 6502/6510 instruction interpreter: the
// register file, the 13 addressing modes, instruction semantics, flag
// updates, and IRQ/NMI/BRK servicing. Step() executes exactly one
// instruction and returns the cycles it consumed — the core never
// schedules work at sub-instruction granularity, so peripherals observe
// whole instructions' worth of cycles at a time.
package cpu

import (
	"fmt"
	"math/rand"

	"github.com/gregbell/lib6502-sub001/memory"
	"github.com/gregbell/lib6502-sub001/opcode"
)

// Interrupt and status-flag bit constants.
const (
	NMIVector   = uint16(0xFFFA)
	ResetVector = uint16(0xFFFC)
	IRQVector   = uint16(0xFFFE)

	PNegative  = uint8(0x80)
	POverflow  = uint8(0x40)
	PS1        = uint8(0x20) // unused bit, always reads 1
	PBreak     = uint8(0x10)
	PDecimal   = uint8(0x08)
	PInterrupt = uint8(0x04)
	PZero      = uint8(0x02)
	PCarry     = uint8(0x01)
)

// InvalidCPUState indicates the interpreter reached a state it cannot
// continue executing from (a programming error in the opcode table, not a
// condition reachable from well-formed byte input).
type InvalidCPUState struct {
	Reason string
}

func (e *InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// HaltOpcode is returned by Step() in strict mode when an unimplemented
// opcode is fetched. In the default lenient mode, Step() instead consumes
// the tabled cycle count and does nothing.
type HaltOpcode struct {
	Opcode uint8
}

func (e *HaltOpcode) Error() string {
	return fmt.Sprintf("halted on unimplemented opcode %#02x", e.Opcode)
}

// Option configures a CPU at construction time.
type Option func(*CPU)

// Strict makes Step() return a *HaltOpcode error for unimplemented opcodes
// instead of silently consuming their tabled cycle count.
func Strict() Option {
	return func(c *CPU) { c.strict = true }
}

// CPU is the 6502/6510 register file and interpreter state.
type CPU struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16
	P       uint8
	Cycles  uint64

	// IRQPending is sampled from Bus.IRQActive() at the end of every Step()
	// and consulted at the top of the next one, per spec's "level-sensitive,
	// read from the bus each instruction boundary" rule.
	IRQPending bool
	// NMIPending is edge-triggered and set only by TriggerNMI.
	NMIPending bool

	Bus memory.Bus

	strict bool
}

// New constructs a CPU wired to bus. A, X, Y, SP and PC start zeroed and
// P starts with only bit 5 and I set; call PowerOn or Reset before
// stepping.
func New(bus memory.Bus, opts ...Option) *CPU {
	c := &CPU{Bus: bus, P: PS1 | PInterrupt}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PowerOn randomizes the register file (mirroring real hardware's
// indeterminate power-on state) and then performs a Reset.
func (c *CPU) PowerOn(rng *rand.Rand) {
	c.A = uint8(rng.Intn(256))
	c.X = uint8(rng.Intn(256))
	c.Y = uint8(rng.Intn(256))
	c.Reset()
}

// Reset loads PC from the reset vector, sets SP=$FD and I=1, and clears the
// cycle counter and any pending interrupt latches.
func (c *CPU) Reset() {
	lo := uint16(c.Bus.Read(ResetVector))
	hi := uint16(c.Bus.Read(ResetVector + 1))
	c.PC = hi<<8 | lo
	c.SP = 0xFD
	c.P = PS1 | PInterrupt
	c.Cycles = 0
	c.IRQPending = false
	c.NMIPending = false
}

// TriggerNMI latches a non-maskable interrupt, serviced at the start of the
// next Step().
func (c *CPU) TriggerNMI() {
	c.NMIPending = true
}

// Step executes exactly one instruction (or one interrupt-service
// sequence) and returns the number of cycles it consumed.
func (c *CPU) Step() (uint8, error) {
	if c.NMIPending {
		c.NMIPending = false
		cyc := c.serviceInterrupt(NMIVector, false)
		c.Cycles += uint64(cyc)
		c.pollIRQ()
		return cyc, nil
	}
	if c.IRQPending && c.P&PInterrupt == 0 {
		c.IRQPending = false
		cyc := c.serviceInterrupt(IRQVector, false)
		c.Cycles += uint64(cyc)
		c.pollIRQ()
		return cyc, nil
	}

	op := c.Bus.Read(c.PC)
	c.PC++
	entry := opcode.Table[op]

	if !entry.Implemented {
		if c.strict {
			return 0, &HaltOpcode{Opcode: op}
		}
		c.Cycles += uint64(entry.Cycles)
		c.pollIRQ()
		return entry.Cycles, nil
	}

	cyc, err := c.execute(entry)
	if err != nil {
		return 0, err
	}
	c.Cycles += uint64(cyc)
	c.pollIRQ()
	return cyc, nil
}

func (c *CPU) pollIRQ() {
	c.IRQPending = c.Bus.IRQActive()
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.Bus.Read(c.PC))
	hi := uint16(c.Bus.Read(c.PC + 1))
	c.PC += 2
	return lo | hi<<8
}

// resolveAddress computes the effective address for a memory-addressing
// mode and reports whether indexing crossed a page boundary.
func (c *CPU) resolveAddress(mode opcode.Mode) (addr uint16, pageCrossed bool) {
	switch mode {
	case opcode.ZeroPage:
		addr = uint16(c.Bus.Read(c.PC))
		c.PC++
	case opcode.ZeroPageX:
		zp := c.Bus.Read(c.PC)
		c.PC++
		addr = uint16(zp + c.X)
	case opcode.ZeroPageY:
		zp := c.Bus.Read(c.PC)
		c.PC++
		addr = uint16(zp + c.Y)
	case opcode.Absolute:
		addr = c.fetch16()
	case opcode.AbsoluteX:
		base := c.fetch16()
		addr = base + uint16(c.X)
		pageCrossed = base&0xFF00 != addr&0xFF00
	case opcode.AbsoluteY:
		base := c.fetch16()
		addr = base + uint16(c.Y)
		pageCrossed = base&0xFF00 != addr&0xFF00
	case opcode.Indirect:
		ptr := c.fetch16()
		lo := c.Bus.Read(ptr)
		var hiAddr uint16
		if ptr&0x00FF == 0x00FF {
			// Hardware bug, reproduced faithfully: the high byte wraps
			// within the pointer's own page rather than crossing pages.
			hiAddr = ptr & 0xFF00
		} else {
			hiAddr = ptr + 1
		}
		hi := c.Bus.Read(hiAddr)
		addr = uint16(hi)<<8 | uint16(lo)
	case opcode.IndirectX:
		zp := c.Bus.Read(c.PC)
		c.PC++
		ptr := zp + c.X
		lo := c.Bus.Read(uint16(ptr))
		hi := c.Bus.Read(uint16(ptr + 1))
		addr = uint16(hi)<<8 | uint16(lo)
	case opcode.IndirectY:
		zp := c.Bus.Read(c.PC)
		c.PC++
		lo := c.Bus.Read(uint16(zp))
		hi := c.Bus.Read(uint16(zp + 1))
		base := uint16(hi)<<8 | uint16(lo)
		addr = base + uint16(c.Y)
		pageCrossed = base&0xFF00 != addr&0xFF00
	}
	return addr, pageCrossed
}

func (c *CPU) push(v uint8) {
	c.Bus.Write(0x0100|uint16(c.SP), v)
	c.SP--
}

func (c *CPU) pull() uint8 {
	c.SP++
	return c.Bus.Read(0x0100 | uint16(c.SP))
}

func (c *CPU) setFlag(mask uint8, set bool) {
	if set {
		c.P |= mask
	} else {
		c.P &^= mask
	}
}

func (c *CPU) zeroCheck(v uint8)     { c.setFlag(PZero, v == 0) }
func (c *CPU) negativeCheck(v uint8) { c.setFlag(PNegative, v&0x80 != 0) }

func (c *CPU) loadRegister(reg *uint8, v uint8) {
	*reg = v
	c.zeroCheck(v)
	c.negativeCheck(v)
}

func (c *CPU) compare(reg, mem uint8) {
	result := reg - mem
	c.setFlag(PCarry, reg >= mem)
	c.zeroCheck(result)
	c.negativeCheck(result)
}

// serviceInterrupt pushes PC and status, sets I, and loads PC from vector.
// brk distinguishes the B bit pushed for BRK/PHP (1) from IRQ/NMI (0); bit
// 5 is always pushed as 1. Always consumes 7 cycles.
func (c *CPU) serviceInterrupt(vector uint16, brk bool) uint8 {
	c.push(uint8(c.PC >> 8))
	c.push(uint8(c.PC))
	status := c.P | PS1
	if brk {
		status |= PBreak
	} else {
		status &^= PBreak
	}
	c.push(status)
	c.setFlag(PInterrupt, true)
	lo := uint16(c.Bus.Read(vector))
	hi := uint16(c.Bus.Read(vector + 1))
	c.PC = hi<<8 | lo
	return 7
}

func (c *CPU) branch(e opcode.Entry, take bool) (uint8, error) {
	offset := int8(c.Bus.Read(c.PC))
	c.PC++
	cycles := e.Cycles
	if take {
		oldPC := c.PC
		c.PC = uint16(int32(c.PC) + int32(offset))
		cycles++
		if oldPC&0xFF00 != c.PC&0xFF00 {
			cycles++
		}
	}
	return cycles, nil
}

func (c *CPU) asl(v uint8) uint8 {
	c.setFlag(PCarry, v&0x80 != 0)
	r := v << 1
	c.zeroCheck(r)
	c.negativeCheck(r)
	return r
}

func (c *CPU) lsr(v uint8) uint8 {
	c.setFlag(PCarry, v&0x01 != 0)
	r := v >> 1
	c.zeroCheck(r)
	c.negativeCheck(r)
	return r
}

func (c *CPU) rol(v uint8) uint8 {
	var carryIn uint8
	if c.P&PCarry != 0 {
		carryIn = 1
	}
	c.setFlag(PCarry, v&0x80 != 0)
	r := (v << 1) | carryIn
	c.zeroCheck(r)
	c.negativeCheck(r)
	return r
}

func (c *CPU) ror(v uint8) uint8 {
	var carryIn uint8
	if c.P&PCarry != 0 {
		carryIn = 0x80
	}
	c.setFlag(PCarry, v&0x01 != 0)
	r := (v >> 1) | carryIn
	c.zeroCheck(r)
	c.negativeCheck(r)
	return r
}

// adc and sbc compute N/Z/V from the binary-mode result even when D is set,
// per the documented NMOS quirk (spec.md §4.C/§9): decimal mode only
// changes A and C, not the other flags.
func (c *CPU) adc(m uint8) {
	a := c.A
	var carryIn uint16
	if c.P&PCarry != 0 {
		carryIn = 1
	}
	sum := uint16(a) + uint16(m) + carryIn
	binResult := uint8(sum)
	overflow := (a^binResult)&(m^binResult)&0x80 != 0

	if c.P&PDecimal != 0 {
		lo := (a & 0x0F) + (m & 0x0F) + uint8(carryIn)
		hi := (a >> 4) + (m >> 4)
		if lo > 9 {
			lo += 6
			hi++
		}
		carryOut := false
		if hi > 9 {
			hi += 6
			carryOut = true
		}
		c.A = (hi << 4) | (lo & 0x0F)
		c.setFlag(PCarry, carryOut)
	} else {
		c.A = binResult
		c.setFlag(PCarry, sum > 0xFF)
	}
	c.setFlag(PZero, binResult == 0)
	c.setFlag(PNegative, binResult&0x80 != 0)
	c.setFlag(POverflow, overflow)
}

func (c *CPU) sbc(m uint8) {
	a := c.A
	var carryIn uint16
	if c.P&PCarry != 0 {
		carryIn = 1
	}
	mInv := ^m
	sum := uint16(a) + uint16(mInv) + carryIn
	binResult := uint8(sum)
	overflow := (a^binResult)&(mInv^binResult)&0x80 != 0

	if c.P&PDecimal != 0 {
		var borrow int16
		if c.P&PCarry == 0 {
			borrow = 1
		}
		lo := int16(a&0x0F) - int16(m&0x0F) - borrow
		hi := int16(a>>4) - int16(m>>4)
		if lo < 0 {
			lo -= 6
			hi--
		}
		if hi < 0 {
			hi -= 6
		}
		c.A = uint8(hi<<4) | uint8(lo&0x0F)
	} else {
		c.A = binResult
	}
	c.setFlag(PCarry, sum > 0xFF)
	c.setFlag(PZero, binResult == 0)
	c.setFlag(PNegative, binResult&0x80 != 0)
	c.setFlag(POverflow, overflow)
}

// execute dispatches one implemented opcode. Control-transfer instructions
// (branches, JMP, JSR, RTS, RTI, BRK) return directly with their own cycle
// accounting; everything else falls through to the common
// addressing/semantics/page-cross path.
func (c *CPU) execute(e opcode.Entry) (uint8, error) {
	switch e.Mnemonic {
	case "BCC":
		return c.branch(e, c.P&PCarry == 0)
	case "BCS":
		return c.branch(e, c.P&PCarry != 0)
	case "BEQ":
		return c.branch(e, c.P&PZero != 0)
	case "BNE":
		return c.branch(e, c.P&PZero == 0)
	case "BMI":
		return c.branch(e, c.P&PNegative != 0)
	case "BPL":
		return c.branch(e, c.P&PNegative == 0)
	case "BVS":
		return c.branch(e, c.P&POverflow != 0)
	case "BVC":
		return c.branch(e, c.P&POverflow == 0)
	case "JMP":
		addr, _ := c.resolveAddress(e.Mode)
		c.PC = addr
		return e.Cycles, nil
	case "JSR":
		addr := c.fetch16()
		ret := c.PC - 1
		c.push(uint8(ret >> 8))
		c.push(uint8(ret))
		c.PC = addr
		return e.Cycles, nil
	case "RTS":
		lo := uint16(c.pull())
		hi := uint16(c.pull())
		c.PC = (hi<<8 | lo) + 1
		return e.Cycles, nil
	case "RTI":
		c.P = (c.pull() &^ PBreak) | PS1
		lo := uint16(c.pull())
		hi := uint16(c.pull())
		c.PC = hi<<8 | lo
		return e.Cycles, nil
	case "BRK":
		c.PC++ // the byte after BRK's opcode is a padding byte, still skipped
		return c.serviceInterrupt(IRQVector, true), nil
	}

	var addr uint16
	var loadVal uint8
	pageCrossed := false

	switch e.Mode {
	case opcode.Immediate:
		loadVal = c.Bus.Read(c.PC)
		c.PC++
	case opcode.Accumulator:
		loadVal = c.A
	case opcode.Implicit:
		// no operand
	default:
		addr, pageCrossed = c.resolveAddress(e.Mode)
		if e.Class == opcode.ClassRead || e.Class == opcode.ClassRMW {
			loadVal = c.Bus.Read(addr)
		}
	}

	cycles := e.Cycles

	switch e.Mnemonic {
	case "LDA":
		c.loadRegister(&c.A, loadVal)
	case "LDX":
		c.loadRegister(&c.X, loadVal)
	case "LDY":
		c.loadRegister(&c.Y, loadVal)
	case "STA":
		c.Bus.Write(addr, c.A)
	case "STX":
		c.Bus.Write(addr, c.X)
	case "STY":
		c.Bus.Write(addr, c.Y)
	case "TAX":
		c.loadRegister(&c.X, c.A)
	case "TXA":
		c.loadRegister(&c.A, c.X)
	case "TAY":
		c.loadRegister(&c.Y, c.A)
	case "TYA":
		c.loadRegister(&c.A, c.Y)
	case "TSX":
		c.loadRegister(&c.X, c.SP)
	case "TXS":
		c.SP = c.X
	case "PHA":
		c.push(c.A)
	case "PLA":
		c.A = c.pull()
		c.zeroCheck(c.A)
		c.negativeCheck(c.A)
	case "PHP":
		c.push(c.P | PBreak | PS1)
	case "PLP":
		c.P = (c.pull() &^ PBreak) | PS1
	case "ADC":
		c.adc(loadVal)
	case "SBC":
		c.sbc(loadVal)
	case "AND":
		c.loadRegister(&c.A, c.A&loadVal)
	case "ORA":
		c.loadRegister(&c.A, c.A|loadVal)
	case "EOR":
		c.loadRegister(&c.A, c.A^loadVal)
	case "BIT":
		c.setFlag(PZero, c.A&loadVal == 0)
		c.setFlag(PNegative, loadVal&PNegative != 0)
		c.setFlag(POverflow, loadVal&POverflow != 0)
	case "ASL", "LSR", "ROL", "ROR":
		var r uint8
		switch e.Mnemonic {
		case "ASL":
			r = c.asl(loadVal)
		case "LSR":
			r = c.lsr(loadVal)
		case "ROL":
			r = c.rol(loadVal)
		case "ROR":
			r = c.ror(loadVal)
		}
		if e.Mode == opcode.Accumulator {
			c.A = r
		} else {
			c.Bus.Write(addr, r)
		}
	case "INC":
		v := loadVal + 1
		c.Bus.Write(addr, v)
		c.zeroCheck(v)
		c.negativeCheck(v)
	case "DEC":
		v := loadVal - 1
		c.Bus.Write(addr, v)
		c.zeroCheck(v)
		c.negativeCheck(v)
	case "INX":
		c.loadRegister(&c.X, c.X+1)
	case "INY":
		c.loadRegister(&c.Y, c.Y+1)
	case "DEX":
		c.loadRegister(&c.X, c.X-1)
	case "DEY":
		c.loadRegister(&c.Y, c.Y-1)
	case "CMP":
		c.compare(c.A, loadVal)
	case "CPX":
		c.compare(c.X, loadVal)
	case "CPY":
		c.compare(c.Y, loadVal)
	case "CLC":
		c.setFlag(PCarry, false)
	case "SEC":
		c.setFlag(PCarry, true)
	case "CLI":
		c.setFlag(PInterrupt, false)
	case "SEI":
		c.setFlag(PInterrupt, true)
	case "CLD":
		c.setFlag(PDecimal, false)
	case "SED":
		c.setFlag(PDecimal, true)
	case "CLV":
		c.setFlag(POverflow, false)
	case "NOP":
		// nothing
	default:
		return 0, &InvalidCPUState{Reason: fmt.Sprintf("unhandled mnemonic %s", e.Mnemonic)}
	}

	if pageCrossed && e.PageCross {
		cycles++
	}
	return cycles, nil
}
