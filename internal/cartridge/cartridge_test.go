package cartridge

import (
	"bytes"
	"testing"
)

func buildHeader(mapperLow, flags6, flags7 uint8, prgUnits, chrUnits uint8) []byte {
	h := make([]byte, 16)
	copy(h[0:4], []byte("NES\x1A"))
	h[4] = prgUnits
	h[5] = chrUnits
	h[6] = flags6 | (mapperLow << 4)
	h[7] = flags7
	return h
}

func TestLoadFromReaderINESHorizontalMirroring(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(0, 0x00, 0x00, 1, 1))
	buf.Write(make([]byte, 16384))
	buf.Write(make([]byte, 8192))

	cart, err := LoadFromReader(&buf)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cart.Mirror != MirrorHorizontal {
		t.Fatalf("mirror = %v, want Horizontal", cart.Mirror)
	}
	if cart.MapperID != 0 {
		t.Fatalf("mapper = %d, want 0", cart.MapperID)
	}
	if _, ok := cart.Mapper.(*mapper0); !ok {
		t.Fatalf("mapper type = %T, want *mapper0", cart.Mapper)
	}
}

func TestLoadFromReaderNES2ExtendedMapper(t *testing.T) {
	var buf bytes.Buffer
	h := buildHeader(0x01, 0x01, 0x08, 1, 0) // mapper low nibble 1, NES2.0 flag
	h[8] = 0x11                              // high mapper nibble 1 -> mapper 0x101, submapper 1
	buf.Write(h)
	buf.Write(make([]byte, 16384))

	cart, err := LoadFromReader(&buf)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if !cart.Header.NES2 {
		t.Fatal("expected NES2 header to be detected")
	}
	if cart.Header.Mapper != 0x101 {
		t.Fatalf("mapper = %#x, want 0x101", cart.Header.Mapper)
	}
	if cart.Header.Submapper != 1 {
		t.Fatalf("submapper = %d, want 1", cart.Header.Submapper)
	}
	if !cart.HasCHRRAM {
		t.Fatal("expected CHR RAM fallback when CHR ROM size is zero")
	}
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 16))
	if _, err := LoadFromReader(buf); err != ErrInvalidHeader {
		t.Fatalf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestLoadFromReaderUnsupportedMapper(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(0x0F, 0x00, 0x00, 1, 1))
	buf.Write(make([]byte, 16384))
	buf.Write(make([]byte, 8192))

	_, err := LoadFromReader(&buf)
	if err == nil {
		t.Fatal("expected error for unsupported mapper")
	}
}

func TestMapper0PRGMirroringFor16KiB(t *testing.T) {
	cart := &Cartridge{PRGROM: make([]uint8, 16384), PRGRAM: make([]uint8, 8192)}
	cart.PRGROM[0] = 0xAB
	m := newMapper0(cart)

	lo, _ := m.CPURead(0x8000)
	hi, _ := m.CPURead(0xC000)
	if lo != 0xAB || hi != 0xAB {
		t.Fatalf("16KiB PRG should mirror into upper bank: lo=%#x hi=%#x", lo, hi)
	}
}

func TestMirrorNametableVerticalAndHorizontal(t *testing.T) {
	v := mirrorNametable(MirrorVertical, 0x2400)
	if v.CIRAMOffset != 0x0400 {
		t.Fatalf("vertical mirror of $2400 offset = %#x, want $0400", v.CIRAMOffset)
	}
	h := mirrorNametable(MirrorHorizontal, 0x2400)
	if h.CIRAMOffset != 0x0000 {
		t.Fatalf("horizontal mirror of $2400 offset = %#x, want $0000", h.CIRAMOffset)
	}
	fs := mirrorNametable(MirrorFourScreen, 0x2C00)
	if !fs.MapperOwned {
		t.Fatal("four-screen mirroring should report mapper-owned storage")
	}
}

func TestMapper4ScanlineIRQFiresAfterLatchedCount(t *testing.T) {
	cart := &Cartridge{PRGROM: make([]uint8, 0x2000*8), PRGRAM: make([]uint8, 8192), HasCHRRAM: true, CHRRAM: make([]uint8, 8192)}
	m := newMapper4(cart)
	m.CPUWrite(0xC000, 4) // latch
	m.CPUWrite(0xC001, 0) // reload on next clock
	m.CPUWrite(0xE001, 0) // enable

	for i := 0; i < 5; i++ {
		m.a12LowSince = 8
		m.PPUVRAMAccess(0x0000, AccessBackground) // A12 low
		m.a12LowSince = 8
		m.PPUVRAMAccess(0x1000, AccessBackground) // A12 rising edge
	}
	if !m.IRQPending() {
		t.Fatal("expected scanline IRQ to be pending after counter reaches zero")
	}
	m.ClearIRQ()
	if m.IRQPending() {
		t.Fatal("ClearIRQ should clear pending state")
	}
}

func TestMapper5Multiplier(t *testing.T) {
	cart := &Cartridge{PRGROM: make([]uint8, 0x2000*4), PRGRAM: make([]uint8, 8192)}
	m := newMapper5(cart)
	m.CPUWrite(0x5205, 12)
	m.CPUWrite(0x5206, 10)
	lo, _ := m.CPURead(0x5205)
	hi, _ := m.CPURead(0x5206)
	got := uint16(lo) | uint16(hi)<<8
	if got != 120 {
		t.Fatalf("multiplier result = %d, want 120", got)
	}
}

func TestMapper5FillModeNametable(t *testing.T) {
	cart := &Cartridge{PRGROM: make([]uint8, 0x2000*4), PRGRAM: make([]uint8, 8192)}
	m := newMapper5(cart)
	m.CPUWrite(0x5105, 0xFF) // all four quadrants fill-mode
	m.CPUWrite(0x5106, 0x42)
	m.CPUWrite(0x5107, 0x03)

	target := m.MapNametable(0x2000)
	if !target.FillMode {
		t.Fatal("expected fill mode target")
	}
	if v := m.MapperNametableRead(target.CIRAMOffset); v != 0x42 {
		t.Fatalf("fill tile read = %#x, want $42", v)
	}
	attrOffset := target.CIRAMOffset&0xF000 | 0x03C0
	if v := m.MapperNametableRead(attrOffset); v != 0xFF {
		t.Fatalf("fill attribute read = %#x, want $FF", v)
	}
}

func TestMapper5PCMExpansionAudioWriteMode(t *testing.T) {
	cart := &Cartridge{PRGROM: make([]uint8, 0x2000*4), PRGRAM: make([]uint8, 8192)}
	m := newMapper5(cart)
	m.CPUWrite(0x5010, 0x00) // write mode
	m.CPUWrite(0x5011, 0xFF)

	exp, ok := m.AsExpansionAudio()
	if !ok {
		t.Fatal("expected MMC5 to report expansion audio support")
	}
	samples := exp.Samples()
	if len(samples) != 1 || samples[0] <= 0 {
		t.Fatalf("samples = %v, want one positive sample for a max DAC write", samples)
	}
}

func TestMapper5PCMReadModeIgnoresWrites(t *testing.T) {
	cart := &Cartridge{PRGROM: make([]uint8, 0x2000*4), PRGRAM: make([]uint8, 8192)}
	m := newMapper5(cart)
	m.CPUWrite(0x5010, 0x01) // read mode: $5011 writes are ignored
	m.CPUWrite(0x5011, 0xFF)

	exp, _ := m.AsExpansionAudio()
	samples := exp.Samples()
	if samples[0] != -1 {
		t.Fatalf("samples[0] = %v, want -1 (DAC left at zero, the bottom of its range)", samples[0])
	}
}
