package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregbell/lib6502-sub001/asm/lexer"
)

func tokenize(t *testing.T, src string) []lexer.Token {
	t.Helper()
	tokens, errs := lexer.Tokenize(src)
	require.Nil(t, errs)
	return tokens
}

func TestParseImmediate(t *testing.T) {
	lines, errs := Parse(tokenize(t, "LDA #$42"))
	require.Nil(t, errs)
	require.Len(t, lines, 1)
	assert.Equal(t, "LDA", lines[0].Mnemonic)
	assert.Equal(t, OperandImmediate, lines[0].Operand.Kind)
	assert.Equal(t, uint16(0x42), lines[0].Operand.Expr.Value)
}

func TestParseLabelThenInstruction(t *testing.T) {
	lines, errs := Parse(tokenize(t, "LOOP: LDA $10\nJMP LOOP"))
	require.Nil(t, errs)
	require.Len(t, lines, 2)
	assert.Equal(t, "LOOP", lines[0].Label)
	assert.Equal(t, "LDA", lines[0].Mnemonic)
	assert.Equal(t, "JMP", lines[1].Mnemonic)
	assert.True(t, lines[1].Operand.Expr.IsLabel)
	assert.Equal(t, "LOOP", lines[1].Operand.Expr.Label)
}

func TestParseConstant(t *testing.T) {
	lines, errs := Parse(tokenize(t, "SCREEN = $0400"))
	require.Nil(t, errs)
	require.Len(t, lines, 1)
	assert.Equal(t, "SCREEN", lines[0].Const)
	assert.Equal(t, uint16(0x0400), lines[0].ConstExpr.Value)
}

func TestParseDirectiveOrg(t *testing.T) {
	lines, errs := Parse(tokenize(t, ".org $8000"))
	require.Nil(t, errs)
	require.Len(t, lines, 1)
	require.True(t, lines[0].IsDirective)
	assert.Equal(t, DirectiveOrg, lines[0].Directive.Kind)
	assert.Equal(t, uint16(0x8000), lines[0].Directive.Org.Value)
}

func TestParseDirectiveByteMixed(t *testing.T) {
	lines, errs := Parse(tokenize(t, `.byte $01, "HI", 3`))
	require.Nil(t, errs)
	require.Len(t, lines, 1)
	items := lines[0].Directive.Bytes
	require.Len(t, items, 3)
	assert.False(t, items[0].IsString)
	assert.Equal(t, uint16(1), items[0].Expr.Value)
	assert.True(t, items[1].IsString)
	assert.Equal(t, "HI", items[1].String)
	assert.Equal(t, uint16(3), items[2].Expr.Value)
}

func TestParseDirectiveWord(t *testing.T) {
	lines, errs := Parse(tokenize(t, ".word $1234, $5678"))
	require.Nil(t, errs)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Directive.Words, 2)
	assert.Equal(t, uint16(0x1234), lines[0].Directive.Words[0].Value)
}

func TestParseAccumulatorMode(t *testing.T) {
	lines, errs := Parse(tokenize(t, "ASL A"))
	require.Nil(t, errs)
	assert.Equal(t, OperandAccumulator, lines[0].Operand.Kind)
}

func TestParseImplicitMode(t *testing.T) {
	lines, errs := Parse(tokenize(t, "NOP"))
	require.Nil(t, errs)
	assert.Equal(t, OperandNone, lines[0].Operand.Kind)
}

func TestParseIndexedModes(t *testing.T) {
	lines, errs := Parse(tokenize(t, "LDA $10,X\nLDA $1000,Y"))
	require.Nil(t, errs)
	require.Len(t, lines, 2)
	assert.Equal(t, OperandValueX, lines[0].Operand.Kind)
	assert.Equal(t, OperandValueY, lines[1].Operand.Kind)
}

func TestParseIndirectModes(t *testing.T) {
	lines, errs := Parse(tokenize(t, "JMP ($1234)\nLDA ($10,X)\nLDA ($10),Y"))
	require.Nil(t, errs)
	require.Len(t, lines, 3)
	assert.Equal(t, OperandIndirect, lines[0].Operand.Kind)
	assert.Equal(t, OperandIndirectX, lines[1].Operand.Kind)
	assert.Equal(t, OperandIndirectY, lines[2].Operand.Kind)
}

func TestParseCaseInsensitiveWhitespaceTolerant(t *testing.T) {
	for _, src := range []string{"LDA #$42", "lda #$42", "LdA #$42", "  LDA   #$42  "} {
		lines, errs := Parse(tokenize(t, src))
		require.Nil(t, errs, src)
		require.Len(t, lines, 1, src)
		assert.Equal(t, "LDA", lines[0].Mnemonic, src)
	}
}

func TestParseInvalidMnemonicAcceptedSyntactically(t *testing.T) {
	// The parser does not know the mnemonic table; unrecognised mnemonics
	// are a semantic error surfaced later by the assembler.
	lines, errs := Parse(tokenize(t, "FROB #$10"))
	require.Nil(t, errs)
	require.Len(t, lines, 1)
	assert.Equal(t, "FROB", lines[0].Mnemonic)
}

func TestParseUnexpectedTokenError(t *testing.T) {
	_, errs := Parse(tokenize(t, ", LDA"))
	require.NotEmpty(t, errs)
}

func TestParseMultiLine(t *testing.T) {
	lines, errs := Parse(tokenize(t, "LDA #$42\nSTA $8000\nJMP $8000\n"))
	require.Nil(t, errs)
	require.Len(t, lines, 3)
}
