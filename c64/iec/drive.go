package iec

import "fmt"

// ChannelMode is the access mode a channel was opened with.
type ChannelMode int

const (
	ChannelRead ChannelMode = iota
	ChannelWrite
	ChannelCommand
)

type channel struct {
	mode ChannelMode
	data []byte
	pos  int
}

// Drive1541 is an in-memory stand-in for a 1541 disk drive: a named-file
// directory a test or host program populates directly, opened/closed by
// channel number and read sequentially. This is explicitly not a D64
// image parser — original_source/'s disk_1541.rs (the file this package's
// Rust counterpart would have been ported from) was filtered out of the
// retrieval pack, so this is a from-scratch design grounded only on
// iec_bus.rs's usage of it (device_number, has_disk, open_channel,
// close_channel, close_all_channels, read_byte).
type Drive1541 struct {
	deviceNumber uint8
	files        map[string][]byte
	mounted      bool
	channels     map[uint8]*channel
}

// NewDrive1541 returns a drive at the given IEC device number (8 is
// conventional for the first/only drive), with no disk mounted.
func NewDrive1541(deviceNumber uint8) *Drive1541 {
	return &Drive1541{
		deviceNumber: deviceNumber,
		channels:     make(map[uint8]*channel),
	}
}

// DeviceNumber returns the drive's IEC bus address.
func (d *Drive1541) DeviceNumber() uint8 { return d.deviceNumber }

// Mount installs a named-file directory as the drive's "disk", replacing
// any previously mounted one.
func (d *Drive1541) Mount(files map[string][]byte) {
	d.files = files
	d.mounted = true
}

// Unmount removes the current disk and closes every open channel.
func (d *Drive1541) Unmount() {
	d.files = nil
	d.mounted = false
	d.CloseAllChannels()
}

// HasDisk reports whether a disk is currently mounted.
func (d *Drive1541) HasDisk() bool { return d.mounted }

// OpenChannel opens filename on the given channel number (0-15) in mode.
// Channel 15, by IEC convention, is the command channel and does not need
// a mounted file to open.
func (d *Drive1541) OpenChannel(ch uint8, filename string, mode ChannelMode) error {
	if mode == ChannelCommand {
		d.channels[ch] = &channel{mode: mode}
		return nil
	}
	if !d.mounted {
		return fmt.Errorf("iec: no disk mounted")
	}
	if mode == ChannelWrite {
		d.channels[ch] = &channel{mode: mode}
		return nil
	}
	data, ok := d.files[filename]
	if !ok {
		return fmt.Errorf("iec: file not found: %q", filename)
	}
	d.channels[ch] = &channel{mode: mode, data: data}
	return nil
}

// CloseChannel closes the given channel if open. Closing an unopened
// channel is a no-op, matching the KERNAL's tolerance of redundant CLOSE
// calls.
func (d *Drive1541) CloseChannel(ch uint8) {
	delete(d.channels, ch)
}

// CloseAllChannels closes every open channel, as on a bus reset.
func (d *Drive1541) CloseAllChannels() {
	d.channels = make(map[uint8]*channel)
}

// ReadByte returns the next byte from ch's data, false once exhausted, or
// an error if the channel isn't open for reading.
func (d *Drive1541) ReadByte(ch uint8) (uint8, bool, error) {
	c, ok := d.channels[ch]
	if !ok {
		return 0, false, fmt.Errorf("iec: channel %d not open", ch)
	}
	if c.mode != ChannelRead {
		return 0, false, fmt.Errorf("iec: channel %d not open for read", ch)
	}
	if c.pos >= len(c.data) {
		return 0, false, nil
	}
	b := c.data[c.pos]
	c.pos++
	return b, true, nil
}
