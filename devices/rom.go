package devices

// ROM is a read-only memory.Device; writes are silently discarded, matching
// the bus contract for unmapped/read-only targets.
type ROM struct {
	data []uint8
}

// NewROM copies data into a new ROM device.
func NewROM(data []byte) *ROM {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &ROM{data: cp}
}

func (r *ROM) Read(offset uint16) uint8   { return r.data[offset] }
func (r *ROM) Write(uint16, uint8)        {}
func (r *ROM) Size() uint16               { return uint16(len(r.data)) }
func (r *ROM) Peek(offset uint16) uint8   { return r.data[offset] }
