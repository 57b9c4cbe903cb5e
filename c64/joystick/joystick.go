// Package joystick implements the C64's two 9-pin digital joystick ports
// as active-low 5-bit state (up/down/left/right/fire), with an optional
// port-swap flag, merged onto CIA1's external port inputs. No Rust source
// for this module survived the retrieval pack (only its usage surface in
// original_source/c64-emu/src/system/c64_system.rs did); designed fresh
// from that call surface: set_joystick(port, state), physical_port1/2,
// is_swapped/set_swapped/toggle_swap, release_all.
package joystick

// Active-high input bits accepted by Port.Set; the port itself stores and
// reports the active-low hardware convention.
const (
	Up = 1 << iota
	Down
	Left
	Right
	Fire
)

// Port is one physical joystick's state, active-low as the hardware wire
// convention (0 = pressed/pulled).
type Port struct {
	state uint8 // active-low, bits 0-4
}

func newPort() Port { return Port{state: 0x1F} }

// Set records the active-high bitmask (bit set = direction/fire pressed),
// storing it inverted to match the port's active-low convention.
func (p *Port) Set(activeHigh uint8) {
	p.state = (^activeHigh) & 0x1F
}

// Get returns the port's active-low state (bits 5-7 are always 1).
func (p *Port) Get() uint8 {
	return p.state | 0xE0
}

func (p *Port) release() { p.state = 0x1F }

// Ports manages both physical joystick ports and the logical port-swap
// flag some games use so that the "main" joystick can sit in port 2
// (CIA1 doesn't scan the keyboard through port 2, so it's interference
// free) while the player still plugs into the port they expect.
type Ports struct {
	port1, port2 Port
	swapped      bool
}

// New returns both ports released and unswapped.
func New() *Ports {
	return &Ports{port1: newPort(), port2: newPort()}
}

// SetPort sets the logical port (1 or 2) state, active-high, respecting
// the current swap flag. Any other port number is ignored.
func (j *Ports) SetPort(port uint8, activeHigh uint8) {
	switch {
	case port == 1 && !j.swapped, port == 2 && j.swapped:
		j.port1.Set(activeHigh)
	case port == 2 && !j.swapped, port == 1 && j.swapped:
		j.port2.Set(activeHigh)
	}
}

// PhysicalPort1 returns physical port 1's state (CIA1 port B's external
// input), regardless of swap.
func (j *Ports) PhysicalPort1() *Port { return &j.port1 }

// PhysicalPort2 returns physical port 2's state (CIA1 port A's external
// input), regardless of swap.
func (j *Ports) PhysicalPort2() *Port { return &j.port2 }

// IsSwapped reports the current port-swap flag.
func (j *Ports) IsSwapped() bool { return j.swapped }

// SetSwapped sets the port-swap flag directly.
func (j *Ports) SetSwapped(swapped bool) { j.swapped = swapped }

// ToggleSwap flips the port-swap flag.
func (j *Ports) ToggleSwap() { j.swapped = !j.swapped }

// ReleaseAll releases every button/direction on both physical ports.
func (j *Ports) ReleaseAll() {
	j.port1.release()
	j.port2.release()
}
