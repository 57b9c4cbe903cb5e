package memory

import (
	"testing"

	"github.com/go-test/deep"
)

type stubDevice struct {
	size uint16
	mem  []uint8
}

func newStub(size uint16) *stubDevice {
	return &stubDevice{size: size, mem: make([]uint8, size)}
}

func (s *stubDevice) Read(offset uint16) uint8       { return s.mem[offset] }
func (s *stubDevice) Write(offset uint16, val uint8) { s.mem[offset] = val }
func (s *stubDevice) Size() uint16                   { return s.size }

func TestEmptyBusReturnsFloatingValue(t *testing.T) {
	b := NewMappedBus()
	if got, want := b.Read(0x1234), uint8(0xFF); got != want {
		t.Errorf("Read() on empty bus = %#x, want %#x", got, want)
	}
}

func TestSingleDeviceRouting(t *testing.T) {
	b := NewMappedBus()
	d := newStub(0x10)
	if err := b.AddDevice(0x2000, d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	b.Write(0x2005, 0x42)
	if got, want := b.Read(0x2005), uint8(0x42); got != want {
		t.Errorf("Read(0x2005) = %#x, want %#x", got, want)
	}
	if got, want := d.mem[5], uint8(0x42); got != want {
		t.Errorf("device offset 5 = %#x, want %#x", got, want)
	}
	if got, want := b.Read(0x2010), uint8(0xFF); got != want {
		t.Errorf("Read() past device end = %#x, want %#x (floating)", got, want)
	}
}

func TestMultipleDeviceRouting(t *testing.T) {
	b := NewMappedBus()
	a, c := newStub(0x100), newStub(0x100)
	if err := b.AddDevice(0x0000, a); err != nil {
		t.Fatalf("AddDevice a: %v", err)
	}
	if err := b.AddDevice(0x1000, c); err != nil {
		t.Fatalf("AddDevice c: %v", err)
	}
	b.Write(0x0010, 1)
	b.Write(0x1010, 2)
	if got := b.Read(0x0010); got != 1 {
		t.Errorf("Read(0x0010) = %d, want 1", got)
	}
	if got := b.Read(0x1010); got != 2 {
		t.Errorf("Read(0x1010) = %d, want 2", got)
	}
}

func TestOverlapRejected(t *testing.T) {
	b := NewMappedBus()
	if err := b.AddDevice(0x1000, newStub(0x100)); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	// Overlap in the middle.
	if err := b.AddDevice(0x1050, newStub(0x10)); err == nil {
		t.Fatal("expected overlap error for middle overlap, got nil")
	}
	// Overlap via shared prefix.
	if err := b.AddDevice(0x0F80, newStub(0x100)); err == nil {
		t.Fatal("expected overlap error for prefix overlap, got nil")
	}
	// Exactly adjacent ranges must succeed.
	if err := b.AddDevice(0x1100, newStub(0x10)); err != nil {
		t.Errorf("adjacent range rejected: %v", err)
	}
	// Non-overlapping, disjoint range must succeed.
	if err := b.AddDevice(0x2000, newStub(0x10)); err != nil {
		t.Errorf("disjoint range rejected: %v", err)
	}
}

func TestUnmappedWriteIsNoop(t *testing.T) {
	b := NewMappedBus()
	d := newStub(0x10)
	if err := b.AddDevice(0x4000, d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	b.Write(0x5000, 0x99) // unmapped
	for i, v := range d.mem {
		if v != 0 {
			t.Errorf("unmapped write leaked into device at offset %d: %#x", i, v)
		}
	}
}

type irqDevice struct {
	stubDevice
	asserted bool
}

func (i *irqDevice) IRQAsserted() bool { return i.asserted }

func TestIRQActiveIsOrOfDevices(t *testing.T) {
	b := NewMappedBus()
	d1 := &irqDevice{stubDevice: *newStub(0x10)}
	d2 := &irqDevice{stubDevice: *newStub(0x10)}
	if err := b.AddDevice(0x0000, d1); err != nil {
		t.Fatal(err)
	}
	if err := b.AddDevice(0x0100, d2); err != nil {
		t.Fatal(err)
	}
	if b.IRQActive() {
		t.Fatal("IRQActive() true before any device asserts")
	}
	d2.asserted = true
	if !b.IRQActive() {
		t.Fatal("IRQActive() false after a device asserts")
	}
}

func TestGetDeviceAtDowncast(t *testing.T) {
	b := NewMappedBus()
	d := &irqDevice{stubDevice: *newStub(0x10)}
	if err := b.AddDevice(0x9000, d); err != nil {
		t.Fatal(err)
	}
	got, ok := GetDeviceAt[*irqDevice](b, 0x9003)
	if !ok {
		t.Fatal("GetDeviceAt: not found")
	}
	if diff := deep.Equal(got, d); diff != nil {
		t.Errorf("GetDeviceAt returned wrong device: %v", diff)
	}
	if _, ok := GetDeviceAt[*stubDevice](b, 0x9003); ok {
		t.Error("GetDeviceAt succeeded for the wrong concrete type")
	}
}

func TestFlatBusLoadAt(t *testing.T) {
	f := NewFlatBus()
	f.LoadAt(0x8000, []byte{0xA9, 0x42})
	if got := f.Read(0x8000); got != 0xA9 {
		t.Errorf("Read(0x8000) = %#x, want 0xA9", got)
	}
	if got := f.Read(0x8001); got != 0x42 {
		t.Errorf("Read(0x8001) = %#x, want 0x42", got)
	}
	if f.IRQActive() {
		t.Error("FlatBus.IRQActive() should always be false")
	}
}
