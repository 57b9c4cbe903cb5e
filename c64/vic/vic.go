// Package vic implements the VIC-II video chip's register file and its
// external-collaborator contract with the system timing loop: StepScanline
// is invoked once per scanline with the already-fetched character/bitmap
// data and RAM snapshots, and CheckRasterIRQ compares the raster line
// against the programmed compare value. Pixel rasterisation itself is out
// of scope (an explicit Non-goal); StepScanline only updates the raster
// position and interrupt-status bookkeeping a real rasteriser would also
// need to maintain. No Rust source for this chip survived the retrieval
// pack; designed from its usage surface in
// original_source/c64-emu/src/system/c64_system.rs (mem.vic.read(0x18),
// mem.vic_bank(), bitmap_mode(), sprite_enable_bits(), get_sprite_pointer,
// check_raster_irq(), step_scanline(...)).
package vic

// Register offsets within the 47-byte VIC-II register window ($D000-$D02E
// on the real chip, mirrored every 64 bytes across $D000-$D3FF by
// c64/memory).
const (
	RegSpriteXY       = 0x00 // 16 bytes: 8 sprites x (X low, Y)
	RegSpriteXMSB     = 0x10
	RegControl1       = 0x11
	RegRaster         = 0x12
	RegLightPenX      = 0x13
	RegLightPenY      = 0x14
	RegSpriteEnable   = 0x15
	RegControl2       = 0x16
	RegSpriteYExpand  = 0x17
	RegMemPointers    = 0x18
	RegInterruptFlag  = 0x19
	RegInterruptEnable = 0x1A
	RegSpritePriority = 0x1B
	RegSpriteMulti    = 0x1C
	RegSpriteXExpand  = 0x1D
	RegSpriteSpriteCol = 0x1E
	RegSpriteBgCol    = 0x1F
	RegBorderColor    = 0x20
	RegBackground0    = 0x21
	RegBackground1    = 0x22
	RegBackground2    = 0x23
	RegBackground3    = 0x24
	RegSpriteMulti0   = 0x25
	RegSpriteMulti1   = 0x26
	RegSpriteColor0   = 0x27 // through 0x2E, 8 sprite colors

	registerCount = 0x2F
)

// Control register 1 ($D011) bit positions.
const (
	ctrl1RasterMSB = 1 << 7
	ctrl1ECM       = 1 << 6
	ctrl1BMM       = 1 << 5
	ctrl1DEN       = 1 << 4
	ctrl1RSEL      = 1 << 3
)

// Control register 2 ($D016) bit positions.
const ctrl2MCM = 1 << 4

// Interrupt flag/enable bit positions, shared between $D019 and $D01A.
const (
	irqRaster      = 1 << 0
	irqSpriteBG    = 1 << 1
	irqSpriteSprite = 1 << 2
	irqLightPen    = 1 << 3
	irqAny         = 1 << 7
)

// VICII is the register file for one VIC-II instance.
type VICII struct {
	regs [registerCount]uint8

	raster uint16 // current scanline, full 9 bits (regs only expose 8 + MSB flag)
}

// New returns a VIC-II with registers zeroed, as at power-on.
func New() *VICII {
	return &VICII{}
}

// Read implements memory.Device. Offsets beyond the 47 implemented
// registers (up to the 64-byte mirror period c64/memory applies) read as
// $FF, matching real hardware's floating unused bits.
func (v *VICII) Read(offset uint16) uint8 {
	r := offset & 0x3F
	switch r {
	case RegRaster:
		return uint8(v.raster)
	case RegControl1:
		val := v.regs[RegControl1] &^ ctrl1RasterMSB
		if v.raster&0x100 != 0 {
			val |= ctrl1RasterMSB
		}
		return val
	case RegInterruptFlag:
		val := v.regs[RegInterruptFlag] & 0x0F
		if val&v.regs[RegInterruptEnable]&0x0F != 0 {
			val |= irqAny
		}
		return val | 0x70 // unused bits 4-6 read as 1
	}
	if int(r) < registerCount {
		return v.regs[r]
	}
	return 0xFF
}

// Peek is identical to Read: the register file has no destructive reads
// (unlike a real 6526 CIA's ICR, $D019's flags are sticky until explicitly
// acknowledged by writing 1s, not by reading).
func (v *VICII) Peek(offset uint16) uint8 { return v.Read(offset) }

// Write implements memory.Device.
func (v *VICII) Write(offset uint16, val uint8) {
	r := offset & 0x3F
	if int(r) >= registerCount {
		return
	}
	switch r {
	case RegRaster:
		v.regs[RegRaster] = val
	case RegControl1:
		v.regs[RegControl1] = val
	case RegInterruptFlag:
		// Writing a 1 to a flag bit acknowledges (clears) it.
		v.regs[RegInterruptFlag] &^= val & 0x0F
	default:
		v.regs[r] = val
	}
}

// Size implements memory.Device: 64 bytes, the chip's mirror period.
func (v *VICII) Size() uint16 { return 64 }

// IRQAsserted implements memory.Interrupter.
func (v *VICII) IRQAsserted() bool {
	flags := v.regs[RegInterruptFlag] & 0x0F
	return flags&v.regs[RegInterruptEnable]&0x0F != 0
}

// BitmapMode reports control register 1's BMM bit.
func (v *VICII) BitmapMode() bool { return v.regs[RegControl1]&ctrl1BMM != 0 }

// MulticolorMode reports control register 2's MCM bit.
func (v *VICII) MulticolorMode() bool { return v.regs[RegControl2]&ctrl2MCM != 0 }

// DisplayEnabled reports control register 1's DEN bit.
func (v *VICII) DisplayEnabled() bool { return v.regs[RegControl1]&ctrl1DEN != 0 }

// SpriteEnableBits returns the 8-bit sprite enable mask ($D015).
func (v *VICII) SpriteEnableBits() uint8 { return v.regs[RegSpriteEnable] }

// GetSpritePointer reads sprite n's pointer byte out of a 1000-byte screen
// RAM snapshot, at offset $3F8+n, as the VIC-II itself would fetch it.
func (v *VICII) GetSpritePointer(screenRAM []byte, n int) uint8 {
	idx := 0x3F8 + n
	if idx < 0 || idx >= len(screenRAM) {
		return 0
	}
	return screenRAM[idx]
}

// BorderColor returns the border color register, low nibble.
func (v *VICII) BorderColor() uint8 { return v.regs[RegBorderColor] & 0x0F }

// Raster returns the current scanline the VIC-II is positioned at
// (0-311 PAL, 0-262 NTSC), the full 9-bit value regs $D011/$D012 together
// encode.
func (v *VICII) Raster() uint16 { return v.raster }

// RasterCompare returns the programmed raster-IRQ compare line, combining
// $D012 with $D011's raster MSB bit.
func (v *VICII) RasterCompare() uint16 {
	compare := uint16(v.regs[RegRaster])
	if v.regs[RegControl1]&ctrl1RasterMSB != 0 {
		compare |= 0x100
	}
	return compare
}

// StepScanline advances the VIC-II to scanline n and records its position
// in the raster registers. charData, screenRAM, and colorRAM are the
// caller's already-fetched memory snapshots for this line; per the
// documented external-collaborator contract they are accepted (the VIC-II
// would need exactly this data to rasterise) but not otherwise consumed,
// since pixel output is out of scope.
func (v *VICII) StepScanline(n int, charData, screenRAM, colorRAM []byte) {
	v.raster = uint16(n)
}

// CheckRasterIRQ compares the current raster line against the programmed
// compare value, and if they match, latches the raster-interrupt flag in
// $D019. Called once per scanline by the system timing loop, after
// StepScanline.
func (v *VICII) CheckRasterIRQ() {
	if v.raster == v.RasterCompare() {
		v.regs[RegInterruptFlag] |= irqRaster
	}
}

// GetAllRegisters returns a copy of all 47 implemented registers, for
// debugging/monitor display.
func (v *VICII) GetAllRegisters() [registerCount]uint8 {
	out := v.regs
	out[RegRaster] = uint8(v.raster)
	if v.raster&0x100 != 0 {
		out[RegControl1] |= ctrl1RasterMSB
	} else {
		out[RegControl1] &^= ctrl1RasterMSB
	}
	return out
}
