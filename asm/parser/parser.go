// Package parser implements the second stage of assembly: turning a token
// stream into a sequence of AssemblyLine nodes describing labels,
// directives, and instructions with their operand shapes. It is tolerant
// of case and of whitespace around commas and parentheses, as the lexer
// already normalizes identifiers to uppercase. Designed fresh against the
// grammar this project's specification describes, since no parser source
// survived retrieval alongside asm/lexer's Rust original.
package parser

import (
	"fmt"

	"github.com/gregbell/lib6502-sub001/asm/lexer"
)

// OperandKind disambiguates the syntactic shape of an operand; the
// assembler's pass 1 later narrows ZeroPage-shaped operands against
// Absolute ones by value.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandAccumulator
	OperandImmediate
	OperandValue    // bare nn / nnnn / label -> ZeroPage, Absolute, or Relative depending on context
	OperandValueX   // nn,X / nnnn,X
	OperandValueY   // nn,Y / nnnn,Y
	OperandIndirect // (nnnn)
	OperandIndirectX
	OperandIndirectY
)

// Expr is either a resolved numeric literal or a reference to a symbol
// that must be resolved during pass 1.
type Expr struct {
	IsLabel bool
	Label   string
	Value   uint16
	Line    int
	Column  int
}

type Operand struct {
	Kind OperandKind
	Expr Expr
}

type DirectiveKind int

const (
	DirectiveOrg DirectiveKind = iota
	DirectiveByte
	DirectiveWord
)

// ByteItem is either a numeric expression or a string literal (expanded
// to one byte per ASCII character during encoding).
type ByteItem struct {
	IsString bool
	String   string
	Expr     Expr
}

type Directive struct {
	Kind  DirectiveKind
	Org   Expr
	Bytes []ByteItem
	Words []Expr
}

// AssemblyLine is one logical source line: an optional label or constant
// definition, plus an optional directive or instruction.
type AssemblyLine struct {
	Line   int
	Label  string // label definition (IDENT :) if non-empty
	Const  string // constant definition name (IDENT = expr) if non-empty
	ConstExpr Expr

	IsDirective bool
	Directive   Directive

	Mnemonic string
	Operand  Operand
	HasInstruction bool
}

type ErrorKind int

const (
	ErrUnexpectedToken ErrorKind = iota
	ErrExpectedOperand
	ErrInvalidDirective
	ErrInvalidLabel
	ErrNumberTooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpectedToken:
		return "UnexpectedToken"
	case ErrExpectedOperand:
		return "ExpectedOperand"
	case ErrInvalidDirective:
		return "InvalidDirective"
	case ErrInvalidLabel:
		return "InvalidLabel"
	case ErrNumberTooLarge:
		return "NumberTooLarge"
	}
	return "ParseError"
}

type Error struct {
	Kind    ErrorKind
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Message)
}

// Parse consumes the full token stream and returns one AssemblyLine per
// non-blank source line. Parse errors are collected and returned
// alongside whatever lines were still recoverable, mirroring the lexer's
// accumulate-and-continue error policy so callers see every syntax
// problem in one pass.
func Parse(tokens []lexer.Token) ([]AssemblyLine, []error) {
	p := &parser{s: lexer.NewTokenStream(tokens)}
	var lines []AssemblyLine
	var errs []error

	for !p.s.IsEOF() {
		p.skipBlankLines()
		if p.s.IsEOF() {
			break
		}
		line, err := p.parseLine()
		if err != nil {
			errs = append(errs, err)
			p.skipToNextLine()
			continue
		}
		if line != nil {
			lines = append(lines, *line)
		}
	}

	if len(errs) == 0 {
		return lines, nil
	}
	return lines, errs
}

type parser struct {
	s *lexer.TokenStream
}

func (p *parser) skipBlankLines() {
	for {
		p.s.SkipWhitespace()
		tok, ok := p.s.Peek()
		if !ok || tok.Type == lexer.Eof {
			return
		}
		if tok.Type == lexer.Comment {
			p.s.Advance()
			continue
		}
		return
	}
}

// skipToNextLine recovers from a parse error by discarding tokens until
// past the next Newline or EOF.
func (p *parser) skipToNextLine() {
	for {
		tok, ok := p.s.Peek()
		if !ok || tok.Type == lexer.Eof {
			return
		}
		p.s.Advance()
		if tok.Type == lexer.Newline {
			return
		}
	}
}

func (p *parser) loc() (int, int) {
	return p.s.CurrentLocation()
}

func (p *parser) parseLine() (*AssemblyLine, error) {
	p.s.SkipWhitespace()
	line, col := p.loc()
	out := AssemblyLine{Line: line}

	tok, ok := p.s.Peek()
	if !ok || tok.Type == lexer.Eof {
		return nil, nil
	}

	if tok.Type == lexer.Dot {
		dir, err := p.parseDirective()
		if err != nil {
			return nil, err
		}
		out.IsDirective = true
		out.Directive = *dir
		p.endOfLine()
		return &out, nil
	}

	if tok.Type == lexer.Identifier {
		ident := tok.Text
		next, _ := p.s.PeekN(1)
		if next.Type == lexer.Colon {
			p.s.Advance()
			p.s.Advance()
			out.Label = ident
			p.skipSpaces()
			// a label may be followed by an instruction on the same line
			tok2, ok2 := p.s.Peek()
			if !ok2 || tok2.Type == lexer.Eof || tok2.Type == lexer.Newline || tok2.Type == lexer.Comment {
				p.endOfLine()
				return &out, nil
			}
			return p.parseInstructionInto(&out)
		}
		if next.Type == lexer.Equal {
			p.s.Advance()
			p.s.Advance()
			p.s.SkipWhitespace()
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			out.Const = ident
			out.ConstExpr = expr
			p.endOfLine()
			return &out, nil
		}
		return p.parseInstructionInto(&out)
	}

	return nil, &Error{Kind: ErrUnexpectedToken, Line: line, Column: col,
		Message: fmt.Sprintf("unexpected token %s", tok.Type)}
}

// skipSpaces skips Whitespace tokens but stops at a Newline, so that a
// line's operand is never taken from the following source line.
func (p *parser) skipSpaces() {
	for {
		tok, ok := p.s.Peek()
		if !ok || tok.Type != lexer.Whitespace {
			return
		}
		p.s.Advance()
	}
}

func (p *parser) endOfLine() {
	p.s.SkipWhitespace()
	if tok, ok := p.s.Peek(); ok && tok.Type == lexer.Comment {
		p.s.Advance()
	}
}

func (p *parser) parseDirective() (*Directive, error) {
	line, col := p.loc()
	p.s.Advance() // consume '.'
	nameTok, ok := p.s.Peek()
	if !ok || nameTok.Type != lexer.Identifier {
		return nil, &Error{Kind: ErrInvalidDirective, Line: line, Column: col, Message: "expected directive name after '.'"}
	}
	p.s.Advance()
	p.s.SkipWhitespace()

	switch nameTok.Text {
	case "ORG":
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Directive{Kind: DirectiveOrg, Org: expr}, nil
	case "BYTE":
		items, err := p.parseByteList()
		if err != nil {
			return nil, err
		}
		return &Directive{Kind: DirectiveByte, Bytes: items}, nil
	case "WORD":
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &Directive{Kind: DirectiveWord, Words: exprs}, nil
	}
	return nil, &Error{Kind: ErrInvalidDirective, Line: line, Column: col,
		Message: fmt.Sprintf("unknown directive .%s", nameTok.Text)}
}

func (p *parser) parseByteList() ([]ByteItem, error) {
	var items []ByteItem
	for {
		p.s.SkipWhitespace()
		tok, ok := p.s.Peek()
		if ok && tok.Type == lexer.StringLiteral {
			p.s.Advance()
			items = append(items, ByteItem{IsString: true, String: tok.Text})
		} else {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, ByteItem{Expr: expr})
		}
		p.s.SkipWhitespace()
		if tok, ok := p.s.Peek(); ok && tok.Type == lexer.Comma {
			p.s.Advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseExprList() ([]Expr, error) {
	var exprs []Expr
	for {
		p.s.SkipWhitespace()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		p.s.SkipWhitespace()
		if tok, ok := p.s.Peek(); ok && tok.Type == lexer.Comma {
			p.s.Advance()
			continue
		}
		break
	}
	return exprs, nil
}

// parseExpr parses a single numeric literal or a label reference.
// Numeric literals are already parsed by the lexer; this just wraps them.
func (p *parser) parseExpr() (Expr, error) {
	line, col := p.loc()
	tok, ok := p.s.Peek()
	if !ok {
		return Expr{}, &Error{Kind: ErrExpectedOperand, Line: line, Column: col, Message: "expected expression, found end of input"}
	}
	switch tok.Type {
	case lexer.HexNumber, lexer.DecimalNumber, lexer.BinaryNumber:
		p.s.Advance()
		return Expr{Value: tok.Value, Line: line, Column: col}, nil
	case lexer.Identifier:
		p.s.Advance()
		return Expr{IsLabel: true, Label: tok.Text, Line: line, Column: col}, nil
	}
	return Expr{}, &Error{Kind: ErrExpectedOperand, Line: line, Column: col,
		Message: fmt.Sprintf("expected a number or label, found %s", tok.Type)}
}

var registerNames = map[string]bool{"A": true, "X": true, "Y": true}

func (p *parser) parseInstructionInto(out *AssemblyLine) (*AssemblyLine, error) {
	mnemTok, _ := p.s.Consume()
	out.Mnemonic = mnemTok.Text
	out.HasInstruction = true

	p.skipSpaces()
	tok, ok := p.s.Peek()
	if !ok || tok.Type == lexer.Eof || tok.Type == lexer.Newline || tok.Type == lexer.Comment {
		out.Operand = Operand{Kind: OperandNone}
		p.endOfLine()
		return out, nil
	}

	operand, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	out.Operand = operand
	p.endOfLine()
	return out, nil
}

func (p *parser) parseOperand() (Operand, error) {
	line, col := p.loc()
	tok, _ := p.s.Peek()

	switch tok.Type {
	case lexer.Identifier:
		if tok.Text == "A" {
			// Accumulator mode only if nothing meaningful follows (A alone).
			next, _ := p.s.PeekN(1)
			if next.Type == lexer.Eof || next.Type == lexer.Newline || next.Type == lexer.Comment || next.Type == lexer.Whitespace {
				p.s.Advance()
				return Operand{Kind: OperandAccumulator}, nil
			}
		}
		expr, err := p.parseExpr()
		if err != nil {
			return Operand{}, err
		}
		return p.parseIndexSuffix(OperandValue, expr)

	case lexer.Hash:
		p.s.Advance()
		expr, err := p.parseExpr()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandImmediate, Expr: expr}, nil

	case lexer.HexNumber, lexer.DecimalNumber, lexer.BinaryNumber:
		expr, err := p.parseExpr()
		if err != nil {
			return Operand{}, err
		}
		return p.parseIndexSuffix(OperandValue, expr)

	case lexer.LParen:
		p.s.Advance()
		p.s.SkipWhitespace()
		expr, err := p.parseExpr()
		if err != nil {
			return Operand{}, err
		}
		p.s.SkipWhitespace()
		next, ok := p.s.Peek()
		if !ok {
			return Operand{}, &Error{Kind: ErrUnexpectedToken, Line: line, Column: col, Message: "unterminated indirect operand"}
		}
		switch next.Type {
		case lexer.Comma:
			// (zp,X)
			p.s.Advance()
			p.s.SkipWhitespace()
			reg, err := p.expectRegister('X')
			if err != nil {
				return Operand{}, err
			}
			_ = reg
			p.s.SkipWhitespace()
			if err := p.expectType(lexer.RParen, "indirect addressing"); err != nil {
				return Operand{}, err
			}
			return Operand{Kind: OperandIndirectX, Expr: expr}, nil
		case lexer.RParen:
			p.s.Advance()
			p.s.SkipWhitespace()
			if tok, ok := p.s.Peek(); ok && tok.Type == lexer.Comma {
				p.s.Advance()
				p.s.SkipWhitespace()
				if _, err := p.expectRegister('Y'); err != nil {
					return Operand{}, err
				}
				return Operand{Kind: OperandIndirectY, Expr: expr}, nil
			}
			return Operand{Kind: OperandIndirect, Expr: expr}, nil
		}
		return Operand{}, &Error{Kind: ErrUnexpectedToken, Line: line, Column: col,
			Message: fmt.Sprintf("expected ',' or ')' in indirect operand, found %s", next.Type)}
	}

	return Operand{}, &Error{Kind: ErrExpectedOperand, Line: line, Column: col,
		Message: fmt.Sprintf("expected operand, found %s", tok.Type)}
}

func (p *parser) parseIndexSuffix(kind OperandKind, expr Expr) (Operand, error) {
	p.s.SkipWhitespace()
	tok, ok := p.s.Peek()
	if !ok || tok.Type != lexer.Comma {
		return Operand{Kind: kind, Expr: expr}, nil
	}
	p.s.Advance()
	p.s.SkipWhitespace()
	reg, err := p.consumeRegister()
	if err != nil {
		return Operand{}, err
	}
	if reg == 'X' {
		return Operand{Kind: OperandValueX, Expr: expr}, nil
	}
	return Operand{Kind: OperandValueY, Expr: expr}, nil
}

func (p *parser) consumeRegister() (byte, error) {
	line, col := p.loc()
	tok, ok := p.s.Peek()
	if !ok || tok.Type != lexer.Identifier || !registerNames[tok.Text] || tok.Text == "A" {
		return 0, &Error{Kind: ErrUnexpectedToken, Line: line, Column: col, Message: "expected register X or Y"}
	}
	p.s.Advance()
	return tok.Text[0], nil
}

func (p *parser) expectRegister(want byte) (byte, error) {
	line, col := p.loc()
	reg, err := p.consumeRegister()
	if err != nil {
		return 0, err
	}
	if reg != want {
		return 0, &Error{Kind: ErrUnexpectedToken, Line: line, Column: col,
			Message: fmt.Sprintf("expected register %c, found %c", want, reg)}
	}
	return reg, nil
}

func (p *parser) expectType(t lexer.TokenType, context string) error {
	line, col := p.loc()
	tok, ok := p.s.Peek()
	if !ok || tok.Type != t {
		return &Error{Kind: ErrUnexpectedToken, Line: line, Column: col,
			Message: fmt.Sprintf("expected %s in %s", t, context)}
	}
	p.s.Advance()
	return nil
}
