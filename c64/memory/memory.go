// Package memory implements the C64's bank-switched address space: the
// 6510 CPU's I/O port ($00-$01) controls whether BASIC/KERNAL/Character
// ROM or RAM is visible in three overlapping windows, and I/O devices
// (VIC-II, SID, color RAM, two CIAs) are mapped into $D000-$DFFF when
// enabled. Grounded on
// original_source/c64-emu/src/system/c64_memory.rs's match-based
// read/write dispatch, translated into Go's memory.Bus/PeekBus/NMIBus
// contract from the memory package rather than Rust's bespoke
// MemoryBus trait.
package memory

import (
	"fmt"

	"github.com/gregbell/lib6502-sub001/c64/cia"
	"github.com/gregbell/lib6502-sub001/c64/keyboard"
	"github.com/gregbell/lib6502-sub001/c64/sid"
	"github.com/gregbell/lib6502-sub001/c64/vic"
)

const (
	ioStart    = 0xD000
	ioEnd      = 0xDFFF
	basicStart = 0xA000
	basicEnd   = 0xBFFF
	kernalStart = 0xE000
)

// Port6510 is the 6510 CPU's built-in I/O port at $00-$01: a data
// direction register and data latch whose low three bits (LORAM, HIRAM,
// CHAREN) drive the memory map's bank switching. No Rust source for this
// survived the retrieval pack (c64_memory.rs only calls its methods);
// designed fresh from that usage surface and the standard C64 bank table.
type Port6510 struct {
	Data uint8
	DDR  uint8

	// External holds the input-side value for pins configured as inputs
	// (cassette sense, etc.); unconnected in this emulator, so it stays 0.
	External uint8
}

// NewPort6510 returns the port at its real power-on default: DDR=$2F,
// data=$37 (LORAM=HIRAM=CHAREN=1, the usual all-ROM-visible boot state).
func NewPort6510() Port6510 {
	return Port6510{DDR: 0x2F, Data: 0x37}
}

func (p *Port6510) effective() uint8 {
	return (p.Data & p.DDR) | (p.External &^ p.DDR)
}

// Read returns the DDR (addr&1==0) or the effective data value (addr&1==1).
func (p *Port6510) Read(addr uint16) uint8 {
	if addr&1 == 0 {
		return p.DDR
	}
	return p.effective()
}

// Write updates the DDR or data latch.
func (p *Port6510) Write(addr uint16, val uint8) {
	if addr&1 == 0 {
		p.DDR = val
	} else {
		p.Data = val
	}
}

func (p *Port6510) basicVisible() bool {
	v := p.effective()
	return v&0x01 != 0 && v&0x02 != 0
}

func (p *Port6510) kernalVisible() bool {
	return p.effective()&0x02 != 0
}

func (p *Port6510) ioVisible() bool {
	v := p.effective()
	return v&0x04 != 0 && (v&0x01 != 0 || v&0x02 != 0)
}

func (p *Port6510) charROMVisible() bool {
	v := p.effective()
	return v&0x04 == 0 && (v&0x01 != 0 || v&0x02 != 0)
}

// ColorRam is the C64's separate 1KB color memory ($D800-$DBFF), wired
// directly to the VIC-II's color lines rather than the main data bus:
// only the low nibble of each byte is implemented, the upper nibble reads
// back as whatever the bus happens to be floating at (modelled here as
// always-set, matching c64_memory.rs's test_color_ram comment that the
// upper nibble is "floating").
type ColorRam struct {
	nibbles [1024]uint8
}

func (c *ColorRam) read(addr uint16) uint8 {
	return c.nibbles[addr&0x3FF] | 0xF0
}

func (c *ColorRam) write(addr uint16, val uint8) {
	c.nibbles[addr&0x3FF] = val & 0x0F
}

func (c *ColorRam) reset() {
	c.nibbles = [1024]uint8{}
}

// Read returns color RAM at addr (masked to 0-1023): the stored low nibble
// with the upper nibble read as set, exactly as the CPU sees it. Exported
// because the VIC-II is wired directly to color RAM on real hardware,
// bypassing the 6510 I/O port's bank-switch visibility rules the CPU's
// bus reads are subject to — the system timing loop fetches scanline
// snapshots through this rather than through Memory.Read.
func (c *ColorRam) Read(addr uint16) uint8 { return c.read(addr) }

// Memory is the C64's full address space: 64KB RAM, the three switchable
// ROMs, the 6510 I/O port, and the mapped I/O devices.
type Memory struct {
	ram [65536]uint8

	basicROM  [8192]uint8
	kernalROM [8192]uint8
	charROM   [4096]uint8
	romsLoaded bool

	Port Port6510

	VIC      *vic.VICII
	SID      *sid.SID
	CIA1     *cia.CIA6526
	CIA2     *cia.CIA6526
	ColorRAM ColorRam
	Keyboard *keyboard.Matrix
}

// New returns a C64 memory system with empty ROMs and freshly constructed
// devices, RAM zeroed except for the port's own default bytes at $00/$01.
func New() *Memory {
	m := &Memory{
		Port:     NewPort6510(),
		VIC:      vic.New(),
		SID:      sid.New(),
		CIA1:     cia.New(cia.CIA1),
		CIA2:     cia.New(cia.CIA2),
		Keyboard: keyboard.New(),
	}
	m.ram[0x00] = m.Port.DDR
	m.ram[0x01] = m.Port.Data
	return m
}

// LoadROMs installs all three ROM images at once, validating their sizes.
func (m *Memory) LoadROMs(basic, kernal, charrom []byte) error {
	if len(basic) != len(m.basicROM) {
		return fmt.Errorf("memory: BASIC ROM must be %d bytes, got %d", len(m.basicROM), len(basic))
	}
	if len(kernal) != len(m.kernalROM) {
		return fmt.Errorf("memory: KERNAL ROM must be %d bytes, got %d", len(m.kernalROM), len(kernal))
	}
	if len(charrom) != len(m.charROM) {
		return fmt.Errorf("memory: Character ROM must be %d bytes, got %d", len(m.charROM), len(charrom))
	}
	copy(m.basicROM[:], basic)
	copy(m.kernalROM[:], kernal)
	copy(m.charROM[:], charrom)
	m.romsLoaded = true
	return nil
}

// LoadKernal installs only the KERNAL ROM, for partial-ROM test setups.
func (m *Memory) LoadKernal(data []byte) {
	copy(m.kernalROM[:], data)
	m.updateROMsLoaded()
}

// LoadBasic installs only the BASIC ROM.
func (m *Memory) LoadBasic(data []byte) {
	copy(m.basicROM[:], data)
	m.updateROMsLoaded()
}

// LoadCharROM installs only the character ROM.
func (m *Memory) LoadCharROM(data []byte) {
	copy(m.charROM[:], data)
	m.updateROMsLoaded()
}

func (m *Memory) updateROMsLoaded() {
	nonZero := func(b []uint8) bool {
		for _, v := range b {
			if v != 0 {
				return true
			}
		}
		return false
	}
	m.romsLoaded = nonZero(m.kernalROM[:]) && nonZero(m.basicROM[:]) && nonZero(m.charROM[:])
}

// ROMsLoaded reports whether LoadROMs has been called, or all three ROMs
// otherwise ended up non-zero via the individual Load* calls.
func (m *Memory) ROMsLoaded() bool { return m.romsLoaded }

// RAM returns direct read access to the full 64KB RAM array, for
// DMA-like bulk operations (e.g. the monitor dumping a region).
func (m *Memory) RAM() []uint8 { return m.ram[:] }

// CharROM returns the 4KB character ROM, for VIC-II text-mode rendering
// by a host that implements pixel output itself.
func (m *Memory) CharROM() []uint8 { return m.charROM[:] }

// VICBank returns the VIC-II's current 16KB bank (0-3), selected by CIA2
// port A's inverted low two bits.
func (m *Memory) VICBank() uint8 { return m.CIA2.VICBank() }

// VICRead reads a byte the way the VIC-II itself sees memory: it never
// sees BASIC, KERNAL, or I/O, and sees character ROM at $1000-$1FFF
// within banks 0 and 2.
func (m *Memory) VICRead(addr uint16) uint8 {
	bank := uint16(m.VICBank())
	physical := (bank << 14) | (addr & 0x3FFF)

	if (bank == 0 || bank == 2) && addr&0x3FFF >= 0x1000 && addr&0x3FFF < 0x2000 {
		return m.charROM[addr&0x0FFF]
	}
	return m.ram[physical]
}

// Reset restores power-on state: RAM is cleared (ROMs survive), devices
// are reset, and the port returns to its default bank-switch state.
func (m *Memory) Reset() {
	m.ram = [65536]uint8{}
	m.Port = NewPort6510()
	m.ram[0x00] = m.Port.DDR
	m.ram[0x01] = m.Port.Data
	m.VIC = vic.New()
	m.SID = sid.New()
	m.CIA1.Reset()
	m.CIA2.Reset()
	m.ColorRAM.reset()
	m.Keyboard.ReleaseAll()
}

func ioOffset(addr uint16) uint16 { return addr & 0x00FF }

// readCIA1PortB combines the keyboard matrix scan (driven by CIA1 port
// A's column-select output) with whatever external input (joystick) is
// already latched on port B, matching the real hardware's wired-AND of
// keyboard rows and joystick switches on the same physical port.
func (m *Memory) readCIA1PortB() uint8 {
	colSelect := m.CIA1.PortA.Output()
	kbRows := m.Keyboard.Scan(colSelect)
	combined := m.CIA1.ExternalB & kbRows
	return m.CIA1.PortB.Read(combined)
}

// Read implements memory.Bus.
func (m *Memory) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x0001:
		return m.Port.Read(addr)

	case addr <= 0x9FFF, addr >= 0xC000 && addr <= 0xCFFF:
		return m.ram[addr]

	case addr >= basicStart && addr <= basicEnd:
		if m.Port.basicVisible() {
			return m.basicROM[addr-basicStart]
		}
		return m.ram[addr]

	case addr >= ioStart && addr <= ioEnd:
		return m.readIO(addr)

	case addr >= kernalStart:
		if m.Port.kernalVisible() {
			return m.kernalROM[addr-kernalStart]
		}
		return m.ram[addr]
	}
	return 0xFF
}

func (m *Memory) readIO(addr uint16) uint8 {
	if m.Port.ioVisible() {
		switch {
		case addr >= 0xD000 && addr <= 0xD3FF:
			return m.VIC.Read(ioOffset(addr) & 0x3F)
		case addr >= 0xD400 && addr <= 0xD7FF:
			return m.SID.Read(ioOffset(addr) & 0x1F)
		case addr >= 0xD800 && addr <= 0xDBFF:
			return m.ColorRAM.read(addr - 0xD800)
		case addr >= 0xDC00 && addr <= 0xDCFF:
			if ioOffset(addr)&0x0F == 0x01 {
				return m.readCIA1PortB()
			}
			return m.CIA1.Read(ioOffset(addr))
		case addr >= 0xDD00 && addr <= 0xDDFF:
			return m.CIA2.Read(ioOffset(addr))
		default: // $DE00-$DFFF, unmapped expansion port
			return 0xFF
		}
	}
	if m.Port.charROMVisible() {
		return m.charROM[addr-ioStart]
	}
	return m.ram[addr]
}

// Peek is Read's non-mutating counterpart for disassembler/monitor use,
// routing through each device's Peek where one is defined and falling
// back to direct storage elsewhere (RAM/ROM reads have no side effects).
func (m *Memory) Peek(addr uint16) uint8 {
	switch {
	case addr >= ioStart && addr <= ioEnd && m.Port.ioVisible():
		switch {
		case addr >= 0xD000 && addr <= 0xD3FF:
			return m.VIC.Peek(ioOffset(addr) & 0x3F)
		case addr >= 0xD400 && addr <= 0xD7FF:
			return m.SID.Peek(ioOffset(addr) & 0x1F)
		case addr >= 0xDC00 && addr <= 0xDCFF:
			if ioOffset(addr)&0x0F == 0x01 {
				return m.readCIA1PortB()
			}
			return m.CIA1.Peek(ioOffset(addr))
		case addr >= 0xDD00 && addr <= 0xDDFF:
			return m.CIA2.Peek(ioOffset(addr))
		}
	}
	return m.Read(addr)
}

// Write implements memory.Bus.
func (m *Memory) Write(addr uint16, val uint8) {
	switch {
	case addr <= 0x0001:
		m.Port.Write(addr, val)
		m.ram[addr] = val

	case addr <= 0x9FFF, addr >= 0xC000 && addr <= 0xCFFF:
		m.ram[addr] = val

	case addr >= basicStart && addr <= basicEnd:
		m.ram[addr] = val

	case addr >= ioStart && addr <= ioEnd:
		m.writeIO(addr, val)

	case addr >= kernalStart:
		m.ram[addr] = val
	}
}

func (m *Memory) writeIO(addr uint16, val uint8) {
	if m.Port.ioVisible() {
		switch {
		case addr >= 0xD000 && addr <= 0xD3FF:
			m.VIC.Write(ioOffset(addr)&0x3F, val)
		case addr >= 0xD400 && addr <= 0xD7FF:
			m.SID.Write(ioOffset(addr)&0x1F, val)
		case addr >= 0xD800 && addr <= 0xDBFF:
			m.ColorRAM.write(addr-0xD800, val)
		case addr >= 0xDC00 && addr <= 0xDCFF:
			m.CIA1.Write(ioOffset(addr), val)
		case addr >= 0xDD00 && addr <= 0xDDFF:
			m.CIA2.Write(ioOffset(addr), val)
		}
		return
	}
	// Character ROM window (or RAM once no ROM is visible) always
	// write-through to RAM.
	m.ram[addr] = val
}

// IRQActive implements memory.Bus: CIA1 and the VIC-II both drive the
// 6510's IRQ line.
func (m *Memory) IRQActive() bool {
	return m.CIA1.IRQAsserted() || m.VIC.IRQAsserted()
}

// NMIActive implements memory.NMIBus: CIA2 drives NMI, not IRQ. The
// RESTORE key's direct NMI trigger is handled by the caller invoking the
// CPU's NMI entry point directly, outside the memory map.
func (m *Memory) NMIActive() bool {
	return m.CIA2.IRQAsserted()
}
