// Package disasm renders the bytes at a given address as one line of
// assembly text in exactly the syntax asm/assembler accepts, so that
// assembling, disassembling, and reassembling a program round-trips to
// identical bytes. Shares opcode.Table with the CPU interpreter and the
// assembler rather than re-deriving size/cycle/mnemonic data. Grounded
// on the teacher's disassemble/disassemble.go (one-opcode-at-a-time
// Step(pc, bus) -> (text, size) shape), reworked against opcode.Table
// instead of the teacher's own opcode switch.
package disasm

import (
	"fmt"

	"github.com/gregbell/lib6502-sub001/memory"
	"github.com/gregbell/lib6502-sub001/opcode"
)

// Peeker is the minimal read surface disassembly needs: non-mutating,
// so stepping through a program for a listing never perturbs device
// state (register-clear-on-read side effects included).
type Peeker interface {
	Peek(addr uint16) uint8
}

// Instruction is one disassembled line.
type Instruction struct {
	Address uint16
	Opcode  uint8
	Entry   opcode.Entry
	Text    string
	Size    uint8
}

// Step disassembles the instruction at pc and returns it; the next
// instruction starts at pc plus the returned Size. It always reads Entry.Size bytes
// (even for an unimplemented opcode, whose table entry still carries an
// accurate size), so callers can step through a full program without
// interpreting it.
func Step(pc uint16, bus Peeker) Instruction {
	op := bus.Peek(pc)
	e := opcode.Table[op]

	inst := Instruction{Address: pc, Opcode: op, Entry: e, Size: e.Size}

	if !e.Implemented {
		inst.Text = "???"
		return inst
	}

	var operand string
	switch e.Mode {
	case opcode.Implicit:
		operand = ""
	case opcode.Accumulator:
		operand = "A"
	case opcode.Immediate:
		operand = fmt.Sprintf("#$%02X", bus.Peek(pc+1))
	case opcode.ZeroPage:
		operand = fmt.Sprintf("$%02X", bus.Peek(pc+1))
	case opcode.ZeroPageX:
		operand = fmt.Sprintf("$%02X,X", bus.Peek(pc+1))
	case opcode.ZeroPageY:
		operand = fmt.Sprintf("$%02X,Y", bus.Peek(pc+1))
	case opcode.Absolute:
		operand = fmt.Sprintf("$%04X", word(bus, pc+1))
	case opcode.AbsoluteX:
		operand = fmt.Sprintf("$%04X,X", word(bus, pc+1))
	case opcode.AbsoluteY:
		operand = fmt.Sprintf("$%04X,Y", word(bus, pc+1))
	case opcode.Indirect:
		operand = fmt.Sprintf("($%04X)", word(bus, pc+1))
	case opcode.IndirectX:
		operand = fmt.Sprintf("($%02X,X)", bus.Peek(pc+1))
	case opcode.IndirectY:
		operand = fmt.Sprintf("($%02X),Y", bus.Peek(pc+1))
	case opcode.Relative:
		offset := int8(bus.Peek(pc + 1))
		target := uint16(int32(pc) + 2 + int32(offset))
		operand = fmt.Sprintf("$%04X", target)
	}

	if operand == "" {
		inst.Text = e.Mnemonic
	} else {
		inst.Text = e.Mnemonic + " " + operand
	}
	return inst
}

func word(bus Peeker, addr uint16) uint16 {
	lo := uint16(bus.Peek(addr))
	hi := uint16(bus.Peek(addr + 1))
	return lo | hi<<8
}

// Listing disassembles count instructions starting at pc, advancing by
// each instruction's size.
func Listing(pc uint16, count int, bus Peeker) []Instruction {
	out := make([]Instruction, 0, count)
	for i := 0; i < count; i++ {
		inst := Step(pc, bus)
		out = append(out, inst)
		size := inst.Size
		if size == 0 {
			size = 1
		}
		pc += uint16(size)
	}
	return out
}

var _ memory.PeekBus = (*memory.MappedBus)(nil)
