// Package keyboard implements the C64's 8x8 keyboard matrix, scanned
// through CIA1: Port A (column select, active low) drives which columns
// are pulled low, Port B (row read, active low) reports which rows
// connect back through a pressed key. RESTORE is wired directly to NMI and
// is not part of the matrix. Grounded on
// original_source/c64-emu/src/system/keyboard.rs.
package keyboard

// Matrix tracks which of the 64 key positions are currently pressed.
type Matrix struct {
	pressed [8][8]bool
}

// New returns a matrix with all keys released.
func New() *Matrix {
	return &Matrix{}
}

// KeyDown presses the key at (row, col). Out-of-range positions are
// ignored rather than panicking: a mismapped PC keycode should not be able
// to crash the emulator.
func (m *Matrix) KeyDown(row, col uint8) {
	if row >= 8 || col >= 8 {
		return
	}
	m.pressed[row][col] = true
}

// KeyUp releases the key at (row, col).
func (m *Matrix) KeyUp(row, col uint8) {
	if row >= 8 || col >= 8 {
		return
	}
	m.pressed[row][col] = false
}

// IsPressed reports whether the key at (row, col) is currently held.
func (m *Matrix) IsPressed(row, col uint8) bool {
	if row >= 8 || col >= 8 {
		return false
	}
	return m.pressed[row][col]
}

// ReleaseAll clears every key, as on a focus-loss or reset event.
func (m *Matrix) ReleaseAll() {
	m.pressed = [8][8]bool{}
}

// Scan returns the active-low row value produced by pulling low the
// columns whose bit is 0 in colSelect (CIA1 Port A's output). A 1 bit in
// the result means no pressed key connects that row to any selected
// column.
func (m *Matrix) Scan(colSelect uint8) uint8 {
	result := uint8(0xFF)
	for col := uint8(0); col < 8; col++ {
		if colSelect&(1<<col) != 0 {
			continue
		}
		for row := uint8(0); row < 8; row++ {
			if m.pressed[row][col] {
				result &^= 1 << row
			}
		}
	}
	return result
}

// KeyMapping is the C64 matrix position a host key maps to, plus whether
// producing that character on a real C64 requires holding SHIFT (e.g. '!'
// is Shift+1).
type KeyMapping struct {
	Row, Col     uint8
	RequiresShift bool
}

func direct(row, col uint8) KeyMapping   { return KeyMapping{Row: row, Col: col} }
func shifted(row, col uint8) KeyMapping  { return KeyMapping{Row: row, Col: col, RequiresShift: true} }

// keyTable maps host key-event codes (following the browser
// KeyboardEvent.code vocabulary, e.g. "KeyA", "Digit1", "Enter") to C64
// matrix positions. Table entries are (row, col) pairs, row being the Port
// B bit read back and col the Port A bit driven low (the KERNAL's
// decode-table index is col*8+row); KeyMapping.Row/Col are what the matrix
// expects.
var keyTable = map[string]KeyMapping{
	"KeyA": direct(2, 1), "KeyB": direct(4, 3), "KeyC": direct(4, 2), "KeyD": direct(2, 2),
	"KeyE": direct(6, 1), "KeyF": direct(5, 2), "KeyG": direct(2, 3), "KeyH": direct(5, 3),
	"KeyI": direct(1, 4), "KeyJ": direct(2, 4), "KeyK": direct(5, 4), "KeyL": direct(2, 5),
	"KeyM": direct(4, 4), "KeyN": direct(7, 4), "KeyO": direct(6, 4), "KeyP": direct(1, 5),
	"KeyQ": direct(6, 7), "KeyR": direct(1, 2), "KeyS": direct(5, 1), "KeyT": direct(6, 2),
	"KeyU": direct(6, 3), "KeyV": direct(7, 3), "KeyW": direct(1, 1), "KeyX": direct(7, 2),
	"KeyY": direct(1, 3), "KeyZ": direct(4, 1),

	"Digit1": direct(0, 7), "Digit2": direct(3, 7), "Digit3": direct(0, 1), "Digit4": direct(3, 1),
	"Digit5": direct(0, 2), "Digit6": direct(3, 2), "Digit7": direct(0, 3), "Digit8": direct(3, 3),
	"Digit9": direct(0, 4), "Digit0": direct(3, 4),

	"F1": direct(4, 0), "F2": shifted(4, 0),
	"F3": direct(5, 0), "F4": shifted(5, 0),
	"F5": direct(6, 0), "F6": shifted(6, 0),
	"F7": direct(3, 0), "F8": shifted(3, 0),

	"ShiftLeft": direct(7, 1), "ShiftRight": direct(4, 6),
	"ControlLeft": direct(2, 7), "ControlRight": direct(2, 7),
	"AltLeft": direct(5, 7), "AltRight": direct(5, 7), "MetaLeft": direct(5, 7), "MetaRight": direct(5, 7),

	"Space": direct(4, 7), "Enter": direct(1, 0), "NumpadEnter": direct(1, 0),
	"Backspace": direct(0, 0), "Escape": direct(7, 7), "Tab": direct(2, 7),

	"ArrowUp": shifted(7, 0), "ArrowDown": direct(7, 0),
	"ArrowLeft": shifted(2, 0), "ArrowRight": direct(2, 0),
	"Home": direct(3, 6),

	"Period": direct(4, 5), "Comma": direct(7, 5), "Slash": direct(7, 6), "Semicolon": direct(2, 6),
	"Quote": shifted(0, 3), "BracketLeft": direct(5, 5), "BracketRight": direct(1, 6),
	"Backslash": direct(0, 6), "Backquote": direct(1, 7), "Minus": direct(3, 5), "Equal": direct(5, 6),

	"Insert": shifted(0, 0), "Delete": direct(0, 0),
}

// MapKeycode maps a host key-event code to its C64 matrix position. The
// second return is false for keys with no C64 equivalent.
func MapKeycode(code string) (KeyMapping, bool) {
	m, ok := keyTable[code]
	return m, ok
}
