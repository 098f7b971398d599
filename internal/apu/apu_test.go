package apu

import (
	"testing"

	"github.com/go-test/deep"
)

func TestDMCRestartOnEnableLoadsSampleFields(t *testing.T) {
	a := New()
	a.writeDMCSampleAddress(0x10) // $C000 + $10*64 = $C400
	a.writeDMCSampleLength(0x01)  // ($01*16)+1 = 17 bytes

	a.writeChannelEnable(0x10) // enable DMC only

	if a.dmc.currentAddress != 0xC400 {
		t.Fatalf("currentAddress = %#x, want $C400", a.dmc.currentAddress)
	}
	if a.dmc.bytesRemaining != 17 {
		t.Fatalf("bytesRemaining = %d, want 17", a.dmc.bytesRemaining)
	}
}

func TestDMCSampleFetchUsesReadCPUMemoryAndRequestsStall(t *testing.T) {
	a := New()
	memory := map[uint16]uint8{0xC400: 0xAB}
	var stalled int
	a.ReadCPUMemory = func(addr uint16) uint8 { return memory[addr] }
	a.RequestStall = func(cycles int) { stalled += cycles }

	a.writeDMCControl(0x00)
	a.writeDMCSampleAddress(0x10)
	a.writeDMCSampleLength(0x01)
	a.writeChannelEnable(0x10)

	a.dmc.sampleBufferEmpty = false
	a.dmc.sampleBufferBits = 0
	a.stepDMCTimer(&a.dmc)

	if a.dmc.sampleBuffer != 0xAB {
		t.Fatalf("sampleBuffer = %#x, want $AB", a.dmc.sampleBuffer)
	}
	if stalled == 0 {
		t.Fatal("expected RequestStall to be called for the sample fetch")
	}
}

func TestDMCAddressWrapsAt0xFFFF(t *testing.T) {
	a := New()
	a.ReadCPUMemory = func(addr uint16) uint8 { return 0 }
	a.RequestStall = func(cycles int) {}
	a.dmc.currentAddress = 0xFFFF
	a.dmc.bytesRemaining = 2
	a.dmc.sampleBufferEmpty = false
	a.dmc.sampleBufferBits = 0

	a.stepDMCTimer(&a.dmc)

	if a.dmc.currentAddress != 0x8000 {
		t.Fatalf("currentAddress after wrap = %#x, want $8000", a.dmc.currentAddress)
	}
}

func TestIRQLineIsORofFrameAndDMCFlags(t *testing.T) {
	a := New()
	if a.IRQLine() {
		t.Fatal("expected no IRQ at reset")
	}
	a.frameIRQFlag = true
	if !a.IRQLine() {
		t.Fatal("expected IRQ line asserted when frame IRQ flag set")
	}
	a.frameIRQFlag = false
	a.dmc.irqFlag = true
	if !a.IRQLine() {
		t.Fatal("expected IRQ line asserted when DMC IRQ flag set")
	}
}

func TestSnapshotRoundTripsExactly(t *testing.T) {
	a := New()
	a.WriteRegister(0x4000, 0x3F)
	a.WriteRegister(0x4002, 0x12)
	a.WriteRegister(0x4003, 0x05)
	a.WriteRegister(0x400C, 0x2A)
	a.WriteRegister(0x4012, 0x10)
	a.WriteRegister(0x4013, 0x01)
	a.WriteRegister(0x4015, 0x1F)
	for i := 0; i < 100; i++ {
		a.Step(true)
	}

	snap := a.Snapshot()

	restored := New()
	restored.LoadSnapshot(snap)

	if diff := deep.Equal(snap, restored.Snapshot()); diff != nil {
		t.Fatalf("snapshot did not round-trip: %v", diff)
	}
}
