package machine

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"nesgo/internal/cpu"
	"nesgo/internal/region"
)

func buildNROM() []byte {
	h := make([]byte, 16)
	copy(h[0:4], []byte("NES\x1A"))
	h[4] = 1 // 16 KiB PRG
	h[5] = 1 // 8 KiB CHR
	rom := append(h, make([]byte, 16384+8192)...)
	// reset vector -> $8000
	rom[16+0x3FFC] = 0x00
	rom[16+0x3FFD] = 0x80
	return rom
}

func TestInsertCartridgeResetsToVector(t *testing.T) {
	m := New(FormatPaletteIndex, region.NTSC, 44100)
	if err := m.InsertCartridge(buildNROM()); err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}
	snap := m.CPUSnapshot()
	if snap.PC != 0x8000 {
		t.Fatalf("PC = %#x, want $8000", snap.PC)
	}
}

func TestSaveSnapshotWithoutCartridgeErrors(t *testing.T) {
	m := New(FormatPaletteIndex, region.NTSC, 44100)
	if _, err := m.SaveSnapshot(); err == nil {
		t.Fatal("expected error saving snapshot with no cartridge")
	}
}

func TestSaveLoadSnapshotRoundTrips(t *testing.T) {
	m := New(FormatPaletteIndex, region.NTSC, 44100)
	if err := m.InsertCartridge(buildNROM()); err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}
	for i := 0; i < 1000; i++ {
		m.ClockCPUCycle(true)
	}

	saved, err := m.SaveSnapshot()
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// Reset the CPU so the load is actually exercised rather than
	// trivially matching the machine's current state.
	m.Reset(cpu.PowerOn)

	if err := m.LoadSnapshot(saved); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	restored, err := m.SaveSnapshot()
	if err != nil {
		t.Fatalf("SaveSnapshot after load: %v", err)
	}

	if diff := deep.Equal(saved, restored); diff != nil {
		t.Fatalf("state did not round-trip through LoadSnapshot:\n%s\ndiff: %v", spew.Sdump(saved), diff)
	}
}

func TestSaveLoadSnapshotPreservesControllerStrobe(t *testing.T) {
	m := New(FormatPaletteIndex, region.NTSC, 44100)
	if err := m.InsertCartridge(buildNROM()); err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}
	m.bus.Write(0x4016, 0x01) // hold the strobe line high

	saved, err := m.SaveSnapshot()
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if !saved.ControllerStrobe {
		t.Fatal("expected ControllerStrobe to be true after strobing high")
	}

	m.bus.Write(0x4016, 0x00)
	if err := m.LoadSnapshot(saved); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !m.bus.Input.StrobeState() {
		t.Fatal("expected LoadSnapshot to restore the strobe line to high")
	}
}

func TestRenderBufferSizeMatchesFormat(t *testing.T) {
	m := New(FormatRGB888, region.NTSC, 44100)
	if err := m.InsertCartridge(buildNROM()); err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}
	buf := m.RenderBuffer()
	if len(buf) != 256*240*4 {
		t.Fatalf("buffer len = %d, want %d", len(buf), 256*240*4)
	}
}
