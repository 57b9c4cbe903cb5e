package iec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBusIdle(t *testing.T) {
	drive := NewDrive1541(8)
	b := New(drive)
	assert.Equal(t, StateIdle, b.State())
	assert.False(t, b.HasDisk())
}

func TestListenCommandEntersListenState(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x20 + 8)
	assert.Equal(t, StateListen, b.State())
	assert.Equal(t, uint8(8), b.ActiveDevice())
}

func TestTalkCommandEntersTalkState(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x40 + 8)
	assert.Equal(t, StateTalk, b.State())
	assert.Equal(t, uint8(8), b.ActiveDevice())
}

func TestUnlistenReturnsIdle(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x20 + 8)
	b.SendCommand(0x3F)
	assert.Equal(t, StateIdle, b.State())
}

func TestUntalkReturnsIdle(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x40 + 8)
	b.SendCommand(0x5F)
	assert.Equal(t, StateIdle, b.State())
}

func TestDeviceNotPresentStatus(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x20 + 9) // listen device 9, nothing answers
	s := b.Status()
	assert.NotZero(t, s&StatusDeviceNotPresent)
}

func TestDevicePresentNoErrorStatus(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x20 + 8)
	s := b.Status()
	assert.Zero(t, s&StatusDeviceNotPresent)
}

func TestOpenFileReadAndClose(t *testing.T) {
	drive := NewDrive1541(8)
	drive.Mount(map[string][]byte{"HELLO": {1, 2, 3}})
	b := New(drive)

	assert.NoError(t, b.OpenFile(8, 2, "HELLO"))

	v1, ok := b.ReadByte(8, 2)
	assert.True(t, ok)
	assert.Equal(t, uint8(1), v1)

	v2, ok := b.ReadByte(8, 2)
	assert.True(t, ok)
	assert.Equal(t, uint8(2), v2)

	v3, ok := b.ReadByte(8, 2)
	assert.True(t, ok)
	assert.Equal(t, uint8(3), v3)

	_, ok = b.ReadByte(8, 2)
	assert.False(t, ok)
	assert.True(t, b.IsEOF())

	assert.NoError(t, b.CloseFile(8, 2))
}

func TestOpenFileNotFound(t *testing.T) {
	drive := NewDrive1541(8)
	drive.Mount(map[string][]byte{})
	b := New(drive)
	assert.NoError(t, b.OpenFile(8, 2, "MISSING"))
	_, ok := b.ReadByte(8, 2)
	assert.False(t, ok)
}

func TestOpenFileWrongDevice(t *testing.T) {
	b := New(NewDrive1541(8))
	err := b.OpenFile(9, 2, "HELLO")
	assert.Error(t, err)
}

func TestReadBytesStopsAtEOF(t *testing.T) {
	drive := NewDrive1541(8)
	drive.Mount(map[string][]byte{"DATA": {10, 20, 30}})
	b := New(drive)
	assert.NoError(t, b.OpenFile(8, 3, "DATA"))

	buf := make([]byte, 10)
	n := b.ReadBytes(8, 3, buf)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{10, 20, 30}, buf[:n])
}

func TestSecondaryAddressChannelTracking(t *testing.T) {
	b := New(NewDrive1541(8))
	b.SendCommand(0x20 + 8)
	b.SendCommand(0x60 + 5)
	assert.Equal(t, uint8(5), b.activeChannel)
	assert.True(t, b.haveChannel)
}

func TestResetClosesChannelsAndIdles(t *testing.T) {
	drive := NewDrive1541(8)
	drive.Mount(map[string][]byte{"F": {1}})
	b := New(drive)
	assert.NoError(t, b.OpenFile(8, 4, "F"))
	b.Reset()
	assert.Equal(t, StateIdle, b.State())
	_, ok, err := drive.ReadByte(4)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDrive1541UnmountClosesChannels(t *testing.T) {
	drive := NewDrive1541(8)
	drive.Mount(map[string][]byte{"F": {9}})
	assert.NoError(t, drive.OpenChannel(1, "F", ChannelRead))
	drive.Unmount()
	assert.False(t, drive.HasDisk())
	_, ok, err := drive.ReadByte(1)
	assert.False(t, ok)
	assert.Error(t, err)
}
