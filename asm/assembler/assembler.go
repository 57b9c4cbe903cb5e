// Package assembler ties the lexer, parser, and the opcode table together
// into the two-pass pipeline: pass 1 assigns a definite size to every
// instruction and records labels/constants in a symbol table, pass 2
// resolves operands against the completed symbol table and emits bytes
// plus a source map. Designed against this project's own specification
// for the pass-1/pass-2 split (no Rust assembler source survived
// retrieval), built atop asm/lexer (grounded on lexer.rs) and asm/parser.
package assembler

import (
	"fmt"

	"github.com/gregbell/lib6502-sub001/asm/lexer"
	"github.com/gregbell/lib6502-sub001/asm/parser"
	"github.com/gregbell/lib6502-sub001/opcode"
)

// Output is the result of a successful assembly. Per spec, Bytes is only
// meaningful when Errors is empty.
type Output struct {
	Bytes       []byte
	SymbolTable SymbolTable
	Errors      []error

	sourceMap *SourceMap
}

func (o *Output) GetSourceLocation(addr uint16) (int, bool) {
	return o.sourceMap.GetSourceLocation(addr)
}

func (o *Output) GetAddressRange(line int) (AddressRange, bool) {
	return o.sourceMap.GetAddressRange(line)
}

func (o *Output) LookupSymbol(name string) (Symbol, bool) {
	s, ok := o.SymbolTable[name]
	return s, ok
}

type chunkKind int

const (
	chunkInstruction chunkKind = iota
	chunkDirective
)

// sizedLine augments a parsed AssemblyLine with the addressing mode and
// byte size pass 1 committed to. Label/constant definitions and .org
// never produce a sizedLine; only instructions and .byte/.word
// directives emit bytes.
type sizedLine struct {
	kind     chunkKind
	line     parser.AssemblyLine
	addr     uint16
	mode     opcode.Mode
	size     uint16
	isBranch bool
}

// Assemble runs the full lex → parse → pass-1 → pass-2 pipeline over one
// source file's text.
func Assemble(source string) (*Output, []error) {
	tokens, lexErrs := lexer.Tokenize(source)
	var errs []error
	for _, e := range lexErrs {
		errs = append(errs, wrapLexError(e))
	}

	lines, parseErrs := parser.Parse(tokens)
	for _, e := range parseErrs {
		errs = append(errs, wrapParseError(e))
	}

	symbols, sized, pass1Errs := pass1(lines)
	errs = append(errs, pass1Errs...)

	bytes, sourceMap, pass2Errs := pass2(sized, symbols)
	errs = append(errs, pass2Errs...)

	out := &Output{
		Bytes:       bytes,
		SymbolTable: symbols,
		Errors:      errs,
		sourceMap:   sourceMap,
	}
	if len(errs) > 0 {
		return out, errs
	}
	return out, nil
}

func wrapLexError(err error) error {
	le, ok := err.(*lexer.Error)
	if !ok {
		return &AssemblyError{Kind: ErrLexerError, Message: err.Error()}
	}
	return &AssemblyError{
		Kind:    ErrLexerError,
		Line:    le.Line,
		Column:  le.Column,
		Span:    Span{Start: le.Column, End: le.Column + 1},
		Message: le.Error(),
	}
}

func wrapParseError(err error) error {
	pe, ok := err.(*parser.Error)
	if !ok {
		return &AssemblyError{Kind: ErrUnexpectedToken, Message: err.Error()}
	}
	kind := ErrUnexpectedToken
	switch pe.Kind {
	case parser.ErrExpectedOperand:
		kind = ErrExpectedOperand
	case parser.ErrInvalidDirective:
		kind = ErrInvalidDirective
	case parser.ErrInvalidLabel:
		kind = ErrInvalidLabel
	case parser.ErrNumberTooLarge:
		kind = ErrNumberTooLarge
	}
	return &AssemblyError{
		Kind:    kind,
		Line:    pe.Line,
		Column:  pe.Column,
		Span:    Span{Start: pe.Column, End: pe.Column + 1},
		Message: pe.Message,
	}
}

// branchMnemonics is the set of relative-addressing instructions; their
// size is always 2 regardless of whether the operand looks like a label
// or a literal number.
var branchMnemonics = map[string]bool{
	"BCC": true, "BCS": true, "BEQ": true, "BNE": true,
	"BMI": true, "BPL": true, "BVC": true, "BVS": true,
}

// pass1 walks the parsed lines once, building the symbol table and
// committing each instruction to a definite addressing mode and size.
// Per spec: an operand referencing an as-yet-undefined symbol is assumed
// Absolute, guaranteeing pass 2 never needs to revisit a size.
func pass1(lines []parser.AssemblyLine) (SymbolTable, []sizedLine, []error) {
	symbols := make(SymbolTable)
	var sized []sizedLine
	var errs []error
	var loc uint16

	resolve := func(e parser.Expr) (uint16, bool) {
		if !e.IsLabel {
			return e.Value, true
		}
		sym, ok := symbols[e.Label]
		if !ok {
			return 0, false
		}
		return sym.Value, true
	}

	for _, ln := range lines {
		if ln.Label != "" {
			if _, dup := symbols[ln.Label]; dup {
				errs = append(errs, &AssemblyError{Kind: ErrDuplicateLabel, Line: ln.Line,
					Message: fmt.Sprintf("label %q already defined", ln.Label)})
			} else {
				symbols[ln.Label] = Symbol{Kind: SymbolLabel, Value: loc}
			}
		}

		if ln.Const != "" {
			v, ok := resolve(ln.ConstExpr)
			if !ok {
				errs = append(errs, &AssemblyError{Kind: ErrUnresolvedConstant, Line: ln.Line,
					Message: fmt.Sprintf("constant %q references undefined symbol %q", ln.Const, ln.ConstExpr.Label)})
			} else if _, dup := symbols[ln.Const]; dup {
				errs = append(errs, &AssemblyError{Kind: ErrDuplicateLabel, Line: ln.Line,
					Message: fmt.Sprintf("symbol %q already defined", ln.Const)})
			} else {
				symbols[ln.Const] = Symbol{Kind: SymbolConstant, Value: v}
			}
			continue
		}

		if ln.IsDirective {
			switch ln.Directive.Kind {
			case parser.DirectiveOrg:
				if v, ok := resolve(ln.Directive.Org); ok {
					loc = v
				} else {
					errs = append(errs, &AssemblyError{Kind: ErrUndefinedLabel, Line: ln.Line,
						Message: fmt.Sprintf("undefined symbol %q in .org", ln.Directive.Org.Label)})
				}
			case parser.DirectiveByte:
				var n uint16
				for _, item := range ln.Directive.Bytes {
					if item.IsString {
						n += uint16(len(item.String))
					} else {
						n++
					}
				}
				sized = append(sized, sizedLine{kind: chunkDirective, line: ln, addr: loc, size: n})
				loc += n
			case parser.DirectiveWord:
				n := 2 * uint16(len(ln.Directive.Words))
				sized = append(sized, sizedLine{kind: chunkDirective, line: ln, addr: loc, size: n})
				loc += n
			}
			continue
		}

		if !ln.HasInstruction {
			continue
		}

		mode, size, ok := resolveMode(ln, symbols, resolve)
		if !ok {
			errs = append(errs, &AssemblyError{Kind: ErrInvalidAddressingMode, Line: ln.Line,
				Message: fmt.Sprintf("%s has no valid addressing mode for this operand", ln.Mnemonic)})
			continue
		}
		sized = append(sized, sizedLine{kind: chunkInstruction, line: ln, addr: loc, mode: mode, size: uint16(size), isBranch: branchMnemonics[ln.Mnemonic]})
		loc += uint16(size)
	}

	return symbols, sized, errs
}

// resolveMode decides the addressing mode (and therefore size) pass 1
// commits an instruction to. For the ZeroPage/Absolute family the
// ambiguous case ("could be either, depending on the operand's value")
// is resolved greedily toward the smaller form only when the value is
// already known and small; an unresolved forward label reference always
// assumes Absolute.
func resolveMode(ln parser.AssemblyLine, symbols SymbolTable, resolve func(parser.Expr) (uint16, bool)) (opcode.Mode, uint8, bool) {
	mn := ln.Mnemonic

	if branchMnemonics[mn] {
		return opcode.Relative, 2, true
	}

	switch ln.Operand.Kind {
	case parser.OperandNone:
		if _, ok := opcode.ByMnemonicMode(mn, opcode.Implicit); ok {
			return opcode.Implicit, 1, true
		}
		return 0, 0, false

	case parser.OperandAccumulator:
		if _, ok := opcode.ByMnemonicMode(mn, opcode.Accumulator); ok {
			return opcode.Accumulator, 1, true
		}
		return 0, 0, false

	case parser.OperandImmediate:
		if _, ok := opcode.ByMnemonicMode(mn, opcode.Immediate); ok {
			return opcode.Immediate, 2, true
		}
		return 0, 0, false

	case parser.OperandIndirect:
		if _, ok := opcode.ByMnemonicMode(mn, opcode.Indirect); ok {
			return opcode.Indirect, 3, true
		}
		return 0, 0, false

	case parser.OperandIndirectX:
		if _, ok := opcode.ByMnemonicMode(mn, opcode.IndirectX); ok {
			return opcode.IndirectX, 2, true
		}
		return 0, 0, false

	case parser.OperandIndirectY:
		if _, ok := opcode.ByMnemonicMode(mn, opcode.IndirectY); ok {
			return opcode.IndirectY, 2, true
		}
		return 0, 0, false

	case parser.OperandValue, parser.OperandValueX, parser.OperandValueY:
		var zpMode, absMode opcode.Mode
		switch ln.Operand.Kind {
		case parser.OperandValue:
			zpMode, absMode = opcode.ZeroPage, opcode.Absolute
		case parser.OperandValueX:
			zpMode, absMode = opcode.ZeroPageX, opcode.AbsoluteX
		case parser.OperandValueY:
			zpMode, absMode = opcode.ZeroPageY, opcode.AbsoluteY
		}

		value, known := resolve(ln.Operand.Expr)
		_, hasZP := opcode.ByMnemonicMode(mn, zpMode)
		_, hasAbs := opcode.ByMnemonicMode(mn, absMode)

		if known && value <= 0xFF && hasZP {
			return zpMode, 2, true
		}
		if hasAbs {
			return absMode, 3, true
		}
		if hasZP {
			return zpMode, 2, true
		}
		return 0, 0, false
	}

	return 0, 0, false
}
