// Package c64 wires the CPU, the bank-switched memory map, and the C64
// peripherals together into one frame-stepped system, and supplies the
// PAL/NTSC timing constants that govern it. Grounded on
// original_source/c64-emu/src/system/c64_system.rs's Region enum and
// step_frame(), translated into the cycle-accurate-instruction,
// scanline-accurate-renderer loop spec.md §4.E pseudocodes.
package c64

import (
	"github.com/gregbell/lib6502-sub001/c64/iec"
	"github.com/gregbell/lib6502-sub001/c64/joystick"
	"github.com/gregbell/lib6502-sub001/c64/memory"
	"github.com/gregbell/lib6502-sub001/c64/vic"
	"github.com/gregbell/lib6502-sub001/cpu"
)

// Region selects PAL or NTSC timing.
type Region int

const (
	PAL Region = iota
	NTSC
)

// ClockHz returns the CPU clock frequency in Hz.
func (r Region) ClockHz() uint32 {
	if r == NTSC {
		return 1_022_727
	}
	return 985_248
}

// Scanlines returns the number of scanlines per frame.
func (r Region) Scanlines() uint16 {
	if r == NTSC {
		return 263
	}
	return 312
}

// CyclesPerLine returns the CPU cycles allotted to each scanline.
func (r Region) CyclesPerLine() uint16 {
	if r == NTSC {
		return 65
	}
	return 63
}

// CyclesPerFrame returns the total CPU cycles in one frame.
func (r Region) CyclesPerFrame() uint32 {
	return uint32(r.Scanlines()) * uint32(r.CyclesPerLine())
}

// FrameRate returns the nominal frame rate in Hz.
func (r Region) FrameRate() float32 {
	if r == NTSC {
		return 59.826
	}
	return 50.125
}

// System is a complete C64: CPU, bank-switched memory, the C64
// peripherals it owns, and the frame timing loop that drives them all.
type System struct {
	CPU    *cpu.CPU
	Memory *memory.Memory

	Joystick *joystick.Ports
	IEC      *iec.Bus

	region Region

	currentScanline  uint16
	cycleInScanline  uint16
	frameCount       uint64
	running          bool

	nmiLineWasActive bool
}

// New returns a System in the given region, with a drive at IEC device 8
// and every peripheral at its power-on default. ROMs must be loaded via
// Memory.LoadROMs before Reset/StepFrame will execute anything meaningful.
func New(region Region) *System {
	mem := memory.New()
	s := &System{
		CPU:      cpu.New(mem),
		Memory:   mem,
		Joystick: joystick.New(),
		IEC:      iec.New(iec.NewDrive1541(8)),
		region:   region,
	}
	mem.SID.SetSampleRate(44100, region.ClockHz())
	mem.CIA1.SetClockHz(region.ClockHz())
	mem.CIA2.SetClockHz(region.ClockHz())
	return s
}

// Region returns the system's current PAL/NTSC setting.
func (s *System) Region() Region { return s.region }

// SetRegion changes the timing region, re-deriving the SID's configured
// clock rate to match.
func (s *System) SetRegion(region Region) {
	s.region = region
	s.Memory.SID.SetSampleRate(44100, region.ClockHz())
	s.Memory.CIA1.SetClockHz(region.ClockHz())
	s.Memory.CIA2.SetClockHz(region.ClockHz())
}

// Reset returns the system to power-on state: memory and devices reset,
// the CPU reloaded from the reset vector, scanline/cycle/frame counters
// zeroed, and the frame loop started (ROMs, if loaded, survive).
func (s *System) Reset() {
	s.Memory.Reset()
	s.IEC.Reset()
	s.CPU.Reset()
	s.currentScanline = 0
	s.cycleInScanline = 0
	s.frameCount = 0
	s.running = true
}

// FrameCount returns the number of complete frames StepFrame has run
// since the last Reset.
func (s *System) FrameCount() uint64 { return s.frameCount }

// Running reports whether StepFrame currently executes cycles.
func (s *System) Running() bool { return s.running }

// Pause stops StepFrame from executing further cycles until Resume.
func (s *System) Pause() { s.running = false }

// Resume re-enables StepFrame.
func (s *System) Resume() { s.running = true }

// RestoreKey triggers the RESTORE key's NMI. RESTORE is wired directly to
// the NMI line on real hardware rather than going through CIA2 like every
// other interrupt source, so it bypasses the memory-mapped keyboard
// matrix entirely.
func (s *System) RestoreKey() { s.CPU.TriggerNMI() }

// syncJoystickToCIA pushes both physical joystick ports' current state
// onto CIA1's external port inputs. Physical port 1 feeds port B,
// physical port 2 feeds port A, matching the original wiring (port 1
// shares pins with keyboard column select, so most games use port 2).
//
// joystick.Port stores and returns its state in the active-low hardware
// convention, but cia.CIA6526.SetJoystickPortA/B expects an active-high
// mask and performs its own inversion to active-low internally — so the
// two packages' conventions are inverses of each other at this boundary,
// and this wiring inverts Get() once more to cancel that out and land
// the correct active-low value in CIA1's external input.
func (s *System) syncJoystickToCIA() {
	port1 := ^s.Joystick.PhysicalPort1().Get() & 0x1F
	port2 := ^s.Joystick.PhysicalPort2().Get() & 0x1F
	s.Memory.CIA1.SetJoystickPortB(port1)
	s.Memory.CIA1.SetJoystickPortA(port2)
}

// SetJoystick sets the logical port's (1 or 2) active-high button state
// and immediately syncs it onto CIA1.
func (s *System) SetJoystick(port uint8, activeHigh uint8) {
	s.Joystick.SetPort(port, activeHigh)
	s.syncJoystickToCIA()
}

// ToggleJoystickSwap flips which physical port logical port 1/2 input
// lands on, and re-syncs CIA1.
func (s *System) ToggleJoystickSwap() {
	s.Joystick.ToggleSwap()
	s.syncJoystickToCIA()
}

// checkNMIEdge samples CIA2's interrupt line and latches an NMI on the
// idle-to-asserted transition, matching real 6510 behavior: NMI is
// edge-triggered, not level-sensitive like IRQ, so a CIA2 condition that
// stays asserted across many instructions only interrupts once.
func (s *System) checkNMIEdge() {
	nmiNow := s.Memory.NMIActive()
	if nmiNow && !s.nmiLineWasActive {
		s.CPU.TriggerNMI()
	}
	s.nmiLineWasActive = nmiNow
}

// renderScanline fetches the memory snapshots the VIC-II would read for
// scanline n (screen RAM, color RAM, and either bitmap or character data
// depending on mode) and hands them to vic.StepScanline. Pixel
// compositing itself is out of scope; this exists so the scanline
// contract sees exactly the data real hardware would fetch.
func (s *System) renderScanline(n uint16) {
	v := s.Memory.VIC
	memPointers := v.Read(vic.RegMemPointers)

	screenOffset := uint16(memPointers>>4&0x0F) * 0x0400
	var screenRAM [1000]byte
	for i := range screenRAM {
		screenRAM[i] = s.Memory.VICRead(screenOffset + uint16(i))
	}

	var colorRAM [1000]byte
	for i := range colorRAM {
		colorRAM[i] = s.Memory.ColorRAM.Read(uint16(i))
	}

	if v.BitmapMode() {
		bitmapOffset := uint16(0x0000)
		if memPointers&0x08 != 0 {
			bitmapOffset = 0x2000
		}
		var bitmapData [8000]byte
		for i := range bitmapData {
			bitmapData[i] = s.Memory.VICRead(bitmapOffset + uint16(i))
		}
		v.StepScanline(int(n), bitmapData[:], screenRAM[:], colorRAM[:])
		return
	}

	charOffset := uint16(memPointers>>1&0x07) * 0x0800
	var charData [2048]byte
	for i := range charData {
		charData[i] = s.Memory.VICRead(charOffset + uint16(i))
	}
	v.StepScanline(int(n), charData[:], screenRAM[:], colorRAM[:])
}

// StepFrame runs cycles_per_frame worth of CPU execution, clocking CIA1/
// CIA2/SID once per elapsed cycle and the VIC-II scanline contract at
// every line boundary, per spec.md §4.E. Returns the number of CPU
// cycles actually executed (0 if paused).
func (s *System) StepFrame() uint32 {
	if !s.running {
		return 0
	}

	cyclesRemaining := int64(s.region.CyclesPerFrame())
	var totalCycles uint32

	for cyclesRemaining > 0 {
		cyc, err := s.CPU.Step()
		if err != nil {
			// A *HaltOpcode only reaches here if the CPU was built with
			// cpu.Strict(); System never opts into that, so this should
			// be unreachable in practice, but stop rather than spin.
			break
		}
		cyclesRemaining -= int64(cyc)
		totalCycles += uint32(cyc)

		for i := uint8(0); i < cyc; i++ {
			s.Memory.CIA1.Clock()
			s.Memory.CIA2.Clock()
			s.Memory.SID.Clock()
		}

		s.checkNMIEdge()

		s.cycleInScanline += uint16(cyc)
		for s.cycleInScanline >= s.region.CyclesPerLine() {
			s.cycleInScanline -= s.region.CyclesPerLine()

			s.renderScanline(s.currentScanline)
			s.Memory.VIC.CheckRasterIRQ()

			s.currentScanline++
			if s.currentScanline >= s.region.Scanlines() {
				s.currentScanline = 0
			}
		}
	}

	s.frameCount++
	return totalCycles
}
