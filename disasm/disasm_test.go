package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregbell/lib6502-sub001/asm/assembler"
	"github.com/gregbell/lib6502-sub001/memory"
)

func TestStepImmediate(t *testing.T) {
	bus := memory.NewFlatBus()
	bus.LoadAt(0x8000, []byte{0xA9, 0x42})
	inst := Step(0x8000, bus)
	assert.Equal(t, "LDA #$42", inst.Text)
	assert.Equal(t, uint8(2), inst.Size)
}

func TestStepAbsoluteIndexed(t *testing.T) {
	bus := memory.NewFlatBus()
	bus.LoadAt(0x8000, []byte{0xBD, 0x00, 0x20})
	inst := Step(0x8000, bus)
	assert.Equal(t, "LDA $2000,X", inst.Text)
}

func TestStepIndirectModes(t *testing.T) {
	bus := memory.NewFlatBus()
	bus.LoadAt(0x8000, []byte{0x6C, 0x00, 0x30})
	bus.LoadAt(0x8003, []byte{0xA1, 0x10})
	bus.LoadAt(0x8005, []byte{0xB1, 0x20})
	assert.Equal(t, "JMP ($3000)", Step(0x8000, bus).Text)
	assert.Equal(t, "LDA ($10,X)", Step(0x8003, bus).Text)
	assert.Equal(t, "LDA ($20),Y", Step(0x8005, bus).Text)
}

func TestStepRelativeComputesTarget(t *testing.T) {
	bus := memory.NewFlatBus()
	bus.LoadAt(0x8000, []byte{0xD0, 0xFD}) // BNE -3
	inst := Step(0x8000, bus)
	assert.Equal(t, "BNE $7FFF", inst.Text)
}

func TestStepUnimplementedOpcode(t *testing.T) {
	bus := memory.NewFlatBus()
	bus.LoadAt(0x8000, []byte{0x02}) // illegal opcode
	inst := Step(0x8000, bus)
	assert.Equal(t, "???", inst.Text)
	assert.Equal(t, uint8(1), inst.Size)
}

func TestListingAdvancesBySize(t *testing.T) {
	bus := memory.NewFlatBus()
	bus.LoadAt(0x8000, []byte{0xA9, 0x42, 0x8D, 0x00, 0x02, 0x00, 0x00})
	insts := Listing(0x8000, 3, bus)
	require.Len(t, insts, 3)
	assert.Equal(t, "LDA #$42", insts[0].Text)
	assert.Equal(t, uint16(0x8000), insts[0].Address)
	assert.Equal(t, "STA $0200", insts[1].Text)
	assert.Equal(t, uint16(0x8002), insts[1].Address)
	assert.Equal(t, "BRK", insts[2].Text)
	assert.Equal(t, uint16(0x8005), insts[2].Address)
}

func TestAssembleDisassembleReassembleRoundTrip(t *testing.T) {
	src := "LDA #$42\nSTA $0200\nJMP $0000\n"
	out, errs := assembler.Assemble(src)
	require.Nil(t, errs)

	bus := memory.NewFlatBus()
	bus.LoadAt(0, out.Bytes)

	var lines []string
	pc := uint16(0)
	for pc < uint16(len(out.Bytes)) {
		inst := Step(pc, bus)
		lines = append(lines, inst.Text)
		pc += uint16(inst.Size)
	}

	reassembled := ""
	for _, l := range lines {
		reassembled += l + "\n"
	}
	out2, errs2 := assembler.Assemble(reassembled)
	require.Nil(t, errs2)
	assert.Equal(t, out.Bytes, out2.Bytes)
}
