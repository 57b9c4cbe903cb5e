package assembler

import (
	"fmt"

	"github.com/gregbell/lib6502-sub001/asm/parser"
	"github.com/gregbell/lib6502-sub001/opcode"
)

// pass2 re-walks pass 1's chunk list (instructions and .byte/.word
// directives, in source order, each already bound to a fixed address and
// size) with the now-complete symbol table, resolving every operand and
// emitting bytes plus a source map entry per chunk. Label/constant
// definitions and .org produced no chunk in pass 1, since they emit no
// bytes themselves; .org's effect is implicit in the address gap between
// consecutive chunks, filled here with zero bytes.
func pass2(sized []sizedLine, symbols SymbolTable) ([]byte, *SourceMap, []error) {
	var out []byte
	sm := newSourceMap()
	var errs []error

	resolve := func(e parser.Expr) (uint16, bool) {
		if !e.IsLabel {
			return e.Value, true
		}
		sym, ok := symbols[e.Label]
		return sym.Value, ok
	}

	for _, sl := range sized {
		for uint16(len(out)) < sl.addr {
			out = append(out, 0)
		}
		start := sl.addr

		var bytes []byte
		var err error
		if sl.kind == chunkDirective {
			bytes, err = encodeDirective(sl, resolve)
		} else {
			bytes, err = encodeInstruction(sl, resolve)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, bytes...)
		sm.record(sl.line.Line, AddressRange{Start: start, End: start + uint16(len(bytes))})
	}

	return out, sm, errs
}

func encodeDirective(sl sizedLine, resolve func(parser.Expr) (uint16, bool)) ([]byte, error) {
	d := sl.line.Directive
	var out []byte
	switch d.Kind {
	case parser.DirectiveByte:
		for _, item := range d.Bytes {
			if item.IsString {
				out = append(out, []byte(item.String)...)
				continue
			}
			v, ok := resolve(item.Expr)
			if !ok {
				return nil, &AssemblyError{Kind: ErrUndefinedLabel, Line: sl.line.Line,
					Message: fmt.Sprintf("undefined symbol %q in .byte", item.Expr.Label)}
			}
			if v > 0xFF {
				return nil, &AssemblyError{Kind: ErrRangeError, Line: sl.line.Line,
					Message: fmt.Sprintf(".byte value %d exceeds a single byte", v)}
			}
			out = append(out, byte(v))
		}
	case parser.DirectiveWord:
		for _, expr := range d.Words {
			v, ok := resolve(expr)
			if !ok {
				return nil, &AssemblyError{Kind: ErrUndefinedLabel, Line: sl.line.Line,
					Message: fmt.Sprintf("undefined symbol %q in .word", expr.Label)}
			}
			out = append(out, byte(v&0xFF), byte(v>>8))
		}
	}
	return out, nil
}

func encodeInstruction(sl sizedLine, resolve func(parser.Expr) (uint16, bool)) ([]byte, error) {
	ln := sl.line
	mn := ln.Mnemonic

	if sl.isBranch {
		target, ok := resolve(ln.Operand.Expr)
		if !ok {
			return nil, &AssemblyError{Kind: ErrUndefinedLabel, Line: ln.Line,
				Message: fmt.Sprintf("undefined label %q", ln.Operand.Expr.Label)}
		}
		op, found := opcode.ByMnemonicMode(mn, opcode.Relative)
		if !found {
			return nil, &AssemblyError{Kind: ErrInvalidAddressingMode, Line: ln.Line,
				Message: fmt.Sprintf("%s has no relative-mode encoding", mn)}
		}
		offset := int32(target) - int32(sl.addr+2)
		if offset < -128 || offset > 127 {
			return nil, &AssemblyError{Kind: ErrRangeError, Line: ln.Line,
				Span:    Span{Start: int(sl.addr), End: int(sl.addr) + 2},
				Message: fmt.Sprintf("branch target out of range (offset %d)", offset)}
		}
		return []byte{op, byte(int8(offset))}, nil
	}

	op, found := opcode.ByMnemonicMode(mn, sl.mode)
	if !found {
		return nil, &AssemblyError{Kind: ErrInvalidAddressingMode, Line: ln.Line,
			Message: fmt.Sprintf("%s has no %s-mode encoding", mn, sl.mode)}
	}

	switch sl.mode {
	case opcode.Implicit, opcode.Accumulator:
		return []byte{op}, nil

	case opcode.Immediate, opcode.ZeroPage, opcode.ZeroPageX, opcode.ZeroPageY,
		opcode.IndirectX, opcode.IndirectY:
		v, ok := resolve(ln.Operand.Expr)
		if !ok {
			return nil, &AssemblyError{Kind: ErrUndefinedLabel, Line: ln.Line,
				Message: fmt.Sprintf("undefined symbol %q", ln.Operand.Expr.Label)}
		}
		return []byte{op, byte(v)}, nil

	case opcode.Absolute, opcode.AbsoluteX, opcode.AbsoluteY, opcode.Indirect:
		v, ok := resolve(ln.Operand.Expr)
		if !ok {
			return nil, &AssemblyError{Kind: ErrUndefinedLabel, Line: ln.Line,
				Message: fmt.Sprintf("undefined symbol %q", ln.Operand.Expr.Label)}
		}
		return []byte{op, byte(v & 0xFF), byte(v >> 8)}, nil
	}

	return nil, &AssemblyError{Kind: ErrInvalidAddressingMode, Line: ln.Line,
		Message: fmt.Sprintf("unhandled addressing mode %s", sl.mode)}
}
