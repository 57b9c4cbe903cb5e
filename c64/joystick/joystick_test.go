package joystick

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPortsReleasedActiveLow(t *testing.T) {
	j := New()
	assert.Equal(t, uint8(0xFF), j.PhysicalPort1().Get())
	assert.Equal(t, uint8(0xFF), j.PhysicalPort2().Get())
}

func TestSetPortUnswapped(t *testing.T) {
	j := New()
	j.SetPort(1, Up|Fire)
	assert.Equal(t, uint8(0xFF&^(Up|Fire)), j.PhysicalPort1().Get())
	assert.Equal(t, uint8(0xFF), j.PhysicalPort2().Get())
}

func TestSetPortSwapped(t *testing.T) {
	j := New()
	j.SetSwapped(true)
	j.SetPort(1, Up)
	// port 1 input now lands on the physical port 2 wire
	assert.Equal(t, uint8(0xFF), j.PhysicalPort1().Get())
	assert.Equal(t, uint8(0xFF&^Up), j.PhysicalPort2().Get())
}

func TestToggleSwap(t *testing.T) {
	j := New()
	assert.False(t, j.IsSwapped())
	j.ToggleSwap()
	assert.True(t, j.IsSwapped())
	j.ToggleSwap()
	assert.False(t, j.IsSwapped())
}

func TestReleaseAll(t *testing.T) {
	j := New()
	j.SetPort(1, Up|Down)
	j.SetPort(2, Left)
	j.ReleaseAll()
	assert.Equal(t, uint8(0xFF), j.PhysicalPort1().Get())
	assert.Equal(t, uint8(0xFF), j.PhysicalPort2().Get())
}
