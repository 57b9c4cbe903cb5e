// Package iec implements the Commodore serial (IEC) bus at the protocol
// level: LISTEN/UNLISTEN/TALK/UNTALK/OPEN/CLOSE/DATA command bytes are
// dispatched directly, rather than bit-banged across ATN/CLK/DATA lines
// cycle by cycle, matching the scope the spec draws around this
// peripheral. Grounded on
// original_source/c64-emu/src/system/iec_bus.rs.
package iec

import "fmt"

// State is the bus's current protocol phase.
type State int

const (
	StateIdle State = iota
	StateCommand
	StateListen
	StateTalk
)

// Command byte ranges, per the IEEE-488-derived Commodore serial protocol.
const (
	cmdListenMin    = 0x20
	cmdListenMax    = 0x3E
	cmdUnlisten     = 0x3F
	cmdTalkMin      = 0x40
	cmdTalkMax      = 0x5E
	cmdUntalk       = 0x5F
	cmdOpenMin      = 0x60
	cmdOpenMax      = 0x6F
	cmdCloseMin     = 0xE0
	cmdCloseMax     = 0xEF
	cmdDataMin      = 0xF0
	cmdDataMax      = 0xFF
)

// Status byte bits returned by Status.
const (
	StatusEOI            = 1 << 6 // end of file reached on last read
	StatusDeviceNotPresent = 1 << 7
)

// Bus is the IEC serial bus, addressing a single attached Drive1541 (real
// hardware daisy-chains up to 31 devices; this emulator models the common
// single-drive case).
type Bus struct {
	state State

	activeDevice  uint8
	activeChannel uint8
	haveChannel   bool

	commandBuf []byte

	drive *Drive1541

	lastStatus uint8
	eof        bool
}

// New returns a bus with drive attached at its own DeviceNumber address.
func New(drive *Drive1541) *Bus {
	return &Bus{drive: drive}
}

// Reset returns the bus to idle, closing every open channel on the
// attached drive, as a hardware reset would.
func (b *Bus) Reset() {
	b.state = StateIdle
	b.activeDevice = 0
	b.activeChannel = 0
	b.haveChannel = false
	b.commandBuf = nil
	b.lastStatus = 0
	b.eof = false
	if b.drive != nil {
		b.drive.CloseAllChannels()
	}
}

// State returns the bus's current protocol phase.
func (b *Bus) State() State { return b.state }

// ActiveDevice returns the device number currently addressed by LISTEN or
// TALK, valid only once State is not StateIdle.
func (b *Bus) ActiveDevice() uint8 { return b.activeDevice }

// Drive returns the attached drive.
func (b *Bus) Drive() *Drive1541 { return b.drive }

// HasDisk reports whether the attached drive has a disk mounted.
func (b *Bus) HasDisk() bool { return b.drive != nil && b.drive.HasDisk() }

// IsEOF reports whether the most recent ReadByte reached the end of the
// current channel's data.
func (b *Bus) IsEOF() bool { return b.eof }

func (b *Bus) deviceAddressed() bool {
	return b.drive != nil && b.activeDevice == b.drive.DeviceNumber()
}

// SendCommand dispatches a single command byte under ATN, the controller
// (the KERNAL, in real use) asserting ATN and putting a byte on the bus.
func (b *Bus) SendCommand(cmd uint8) {
	switch {
	case cmd >= cmdListenMin && cmd <= cmdListenMax:
		b.activeDevice = cmd - cmdListenMin
		b.state = StateListen
		b.haveChannel = false
		b.commandBuf = nil

	case cmd == cmdUnlisten:
		if b.state == StateListen {
			b.flushCommandBuffer()
		}
		b.state = StateIdle

	case cmd >= cmdTalkMin && cmd <= cmdTalkMax:
		b.activeDevice = cmd - cmdTalkMin
		b.state = StateTalk
		b.haveChannel = false

	case cmd == cmdUntalk:
		b.state = StateIdle

	case cmd >= cmdOpenMin && cmd <= cmdOpenMax:
		b.activeChannel = cmd - cmdOpenMin
		b.haveChannel = true
		b.commandBuf = nil

	case cmd >= cmdCloseMin && cmd <= cmdCloseMax:
		ch := cmd - cmdCloseMin
		if b.deviceAddressed() {
			b.drive.CloseChannel(ch)
		}

	case cmd >= cmdDataMin && cmd <= cmdDataMax:
		b.activeChannel = cmd - cmdDataMin
		b.haveChannel = true
	}
}

// SendByte feeds one data byte to the currently LISTEN-addressed device
// (e.g. a filename byte following an OPEN command byte). Returns false if
// no device is currently listening.
func (b *Bus) SendByte(data uint8) bool {
	if b.state != StateListen || !b.deviceAddressed() {
		return false
	}
	b.commandBuf = append(b.commandBuf, data)
	return true
}

// flushCommandBuffer interprets an accumulated command-channel byte
// sequence as a filename and opens it, following real KERNAL convention
// where the filename is sent as data bytes on the just-opened channel
// while the device is still in LISTEN state.
func (b *Bus) flushCommandBuffer() {
	if !b.haveChannel || len(b.commandBuf) == 0 || b.drive == nil {
		return
	}
	filename := string(b.commandBuf)
	mode := ChannelRead
	if b.activeChannel == 1 {
		mode = ChannelWrite
	}
	if b.activeChannel == 15 {
		mode = ChannelCommand
	}
	_ = b.drive.OpenChannel(b.activeChannel, filename, mode)
	b.commandBuf = nil
}

// ReceiveByte returns the next byte from the TALK-addressed device's
// active channel. The second return is false once the device has no more
// data (IsEOF becomes true at that point) or isn't currently talking.
func (b *Bus) ReceiveByte() (uint8, bool) {
	b.eof = false
	if b.state != StateTalk || !b.deviceAddressed() || !b.haveChannel || b.drive == nil {
		return 0, false
	}
	val, ok, err := b.drive.ReadByte(b.activeChannel)
	if err != nil || !ok {
		b.eof = true
		return 0, false
	}
	return val, true
}

// Status returns the last-operation status byte: StatusDeviceNotPresent
// if no drive answers the currently addressed device number, or
// StatusEOI if the last ReceiveByte hit end of file.
func (b *Bus) Status() uint8 {
	var s uint8
	if b.state != StateIdle && !b.deviceAddressed() {
		s |= StatusDeviceNotPresent
	}
	if b.eof {
		s |= StatusEOI
	}
	b.lastStatus = s
	return s
}

// OpenFile is a host-side convenience wrapping the LISTEN/OPEN/filename/
// UNLISTEN sequence a KERNAL OPEN call would perform, for tests and
// callers that don't need to drive the bus byte by byte.
func (b *Bus) OpenFile(device, channel uint8, filename string) error {
	if b.drive == nil || b.drive.DeviceNumber() != device {
		return fmt.Errorf("iec: device %d not present", device)
	}
	b.SendCommand(cmdListenMin + device)
	b.SendCommand(cmdOpenMin + channel)
	for i := 0; i < len(filename); i++ {
		b.SendByte(filename[i])
	}
	b.SendCommand(cmdUnlisten)
	return nil
}

// CloseFile is the host-side convenience counterpart to OpenFile.
func (b *Bus) CloseFile(device, channel uint8) error {
	if b.drive == nil || b.drive.DeviceNumber() != device {
		return fmt.Errorf("iec: device %d not present", device)
	}
	b.SendCommand(cmdListenMin + device)
	b.SendCommand(cmdCloseMin + channel)
	b.SendCommand(cmdUnlisten)
	return nil
}

// ReadByte is the host-side convenience counterpart reading one byte from
// an already-open channel: addresses the device to TALK, reads a byte,
// then returns it to idle so a following OpenFile/ReadByte sequence on a
// different device works without an explicit UNTALK from the caller.
func (b *Bus) ReadByte(device, channel uint8) (uint8, bool) {
	if b.drive == nil || b.drive.DeviceNumber() != device {
		return 0, false
	}
	b.SendCommand(cmdTalkMin + device)
	b.activeChannel = channel
	b.haveChannel = true
	val, ok := b.ReceiveByte()
	b.SendCommand(cmdUntalk)
	return val, ok
}

// ReadBytes reads up to len(buf) bytes from an open channel, stopping
// early at EOF, returning the number of bytes read.
func (b *Bus) ReadBytes(device, channel uint8, buf []byte) int {
	n := 0
	for n < len(buf) {
		val, ok := b.ReadByte(device, channel)
		if !ok {
			break
		}
		buf[n] = val
		n++
	}
	return n
}
