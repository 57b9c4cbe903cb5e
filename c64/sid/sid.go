// Package sid implements the MOS 6581/8580 SID's register file: three
// voices' frequency/pulse-width/control/ADSR registers, the filter
// cutoff/resonance/mode register, and master volume, plus a Clock hook
// invoked once per CPU cycle by the system timing loop. No tone generation
// or filter DSP is implemented, per the spec's explicit Non-goal — Clock
// exists so the timing loop has somewhere to account for SID cycles and so
// a future synthesis backend has a single integration point, not because
// this package produces audio. No Rust source for this chip survived the
// retrieval pack; designed from its usage surface in
// original_source/c64-emu/src/system/c64_system.rs (sid.clock(),
// sid.take_samples(), sid.set_sample_rate(...)).
package sid

// Register offsets within the 29-byte SID register window ($D400-$D41C),
// three identical 7-byte voice blocks followed by filter/volume.
const (
	voiceStride = 7

	voiceFreqLo = 0
	voiceFreqHi = 1
	voicePWLo   = 2
	voicePWHi   = 3
	voiceControl = 4
	voiceAttackDecay  = 5
	voiceSustainRelease = 6

	RegFilterCutoffLo = 0x15
	RegFilterCutoffHi = 0x16
	RegFilterResCtrl  = 0x17
	RegModeVolume     = 0x18

	registerCount = 0x19
)

// Voice control register bit positions.
const (
	ControlGate    = 1 << 0
	ControlSync    = 1 << 1
	ControlRingMod = 1 << 2
	ControlTest    = 1 << 3
	ControlTriangle = 1 << 4
	ControlSawtooth = 1 << 5
	ControlPulse    = 1 << 6
	ControlNoise    = 1 << 7
)

// SID is the register file for one 6581/8580 instance.
type SID struct {
	regs [registerCount]uint8

	cycles     uint64
	sampleRate uint32
	clockRate  uint32
	audioOn    bool
}

// New returns a SID with registers zeroed, audio generation enabled by
// default (matching real hardware, which has no "mute" latch).
func New() *SID {
	return &SID{audioOn: true, sampleRate: 44100, clockRate: 985_248}
}

// Read implements memory.Device. Registers 0x00-0x18 read back their last
// written value, including those that are write-only on real hardware.
// Offsets 0x19-0x1F, which cover the paddle and oscillator/envelope
// output registers (not modelled, since there is no oscillator), read
// back as 0xFF.
func (s *SID) Read(offset uint16) uint8 {
	r := offset & 0x1F
	if int(r) < registerCount {
		return s.regs[r]
	}
	return 0xFF
}

// Peek is identical to Read: nothing in the register file is
// side-effecting on read.
func (s *SID) Peek(offset uint16) uint8 { return s.Read(offset) }

// Write implements memory.Device.
func (s *SID) Write(offset uint16, val uint8) {
	r := offset & 0x1F
	if int(r) < registerCount {
		s.regs[r] = val
	}
}

// Size implements memory.Device: 32 bytes, the chip's mirror period.
func (s *SID) Size() uint16 { return 32 }

// Clock advances the chip by one CPU cycle. With no DSP implemented this
// only tracks elapsed cycles; a synthesis backend would hook in here to
// step its oscillator/envelope/filter state machines.
func (s *SID) Clock() {
	s.cycles++
}

// Cycles returns the number of Clock calls since construction or reset,
// a diagnostic/monitor helper.
func (s *SID) Cycles() uint64 { return s.cycles }

// SetSampleRate records the desired output sample rate and the driving
// clock rate (PAL/NTSC), for a future synthesis backend's resampler.
func (s *SID) SetSampleRate(sampleRate, clockRate uint32) {
	s.sampleRate = sampleRate
	s.clockRate = clockRate
}

// SampleRate returns the currently configured output sample rate.
func (s *SID) SampleRate() uint32 { return s.sampleRate }

// SetAudioEnabled toggles whether a synthesis backend should generate
// samples. The SID continues to accept register writes regardless, since
// games must not observe a difference in register behavior when audio is
// muted.
func (s *SID) SetAudioEnabled(enabled bool) { s.audioOn = enabled }

// AudioEnabled reports the current audio-generation flag.
func (s *SID) AudioEnabled() bool { return s.audioOn }

// voiceControl returns voice n's (0-2) control register.
func (s *SID) voiceControl(n int) uint8 {
	return s.regs[n*voiceStride+voiceControl]
}

// GateOn reports whether voice n's gate bit is set (the ADSR envelope is
// in its attack/decay/sustain phase rather than release).
func (s *SID) GateOn(n int) bool {
	if n < 0 || n > 2 {
		return false
	}
	return s.voiceControl(n)&ControlGate != 0
}

// Volume returns the master volume, the low nibble of $D418.
func (s *SID) Volume() uint8 { return s.regs[RegModeVolume] & 0x0F }

// GetAllRegisters returns a copy of all 25 implemented registers, for
// debugging/monitor display.
func (s *SID) GetAllRegisters() [registerCount]uint8 {
	return s.regs
}
