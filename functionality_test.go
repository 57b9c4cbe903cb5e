// Package functionality does end-to-end verification of the full
// assemble -> load -> execute pipeline, exercising asm/assembler and
// cpu together the way a real user's source file would be built and
// run, rather than hand-encoded opcode bytes. Grounded on the teacher's
// root-level functionality_test.go, which plays the same role (a
// top-level integration suite distinct from the package-local unit
// tests) over its own ROM-driven acceptance corpus.
package functionality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregbell/lib6502-sub001/asm/assembler"
	"github.com/gregbell/lib6502-sub001/cpu"
	"github.com/gregbell/lib6502-sub001/memory"
)

func TestEndToEndAssembleLoadRun(t *testing.T) {
	src := ".org $8000\nLDA #$42\nSTA $0200\nBRK\n"
	out, errs := assembler.Assemble(src)
	require.Nil(t, errs)
	require.Empty(t, out.SymbolTable)

	line, ok := out.GetSourceLocation(0x8000)
	require.True(t, ok)
	assert.Equal(t, 2, line, "LDA is source line 2, after the .org on line 1")
	rng, ok := out.GetAddressRange(2)
	require.True(t, ok)
	assert.Equal(t, assembler.AddressRange{Start: 0x8000, End: 0x8002}, rng)

	bus := memory.NewFlatBus()
	bus.LoadAt(0, out.Bytes)
	bus.LoadAt(0xFFFE, []byte{0x00, 0x00}) // IRQ/BRK vector -> $0000

	c := cpu.New(bus)
	c.PC = 0x8000
	c.SP = 0xFD

	var total uint64
	for i := 0; i < 3; i++ {
		cyc, err := c.Step()
		require.NoError(t, err)
		total += uint64(cyc)
	}

	assert.Equal(t, uint8(0x42), c.A)
	assert.Equal(t, uint8(0x42), bus.Read(0x0200))
	assert.Equal(t, uint64(13), total, "2 (LDA) + 4 (STA) + 7 (BRK)")
	assert.Equal(t, uint16(0x0000), c.PC, "BRK vector target")
}

func TestForwardBranchSizing(t *testing.T) {
	src := "BEQ FWD\nNOP\nFWD: NOP\n"
	out, errs := assembler.Assemble(src)
	require.Nil(t, errs)
	assert.Equal(t, []byte{0xF0, 0x01, 0xEA, 0xEA}, out.Bytes)

	sym, ok := out.LookupSymbol("FWD")
	require.True(t, ok)
	assert.Equal(t, assembler.SymbolLabel, sym.Kind)
	assert.Equal(t, uint16(3), sym.Value)
}
