package ppu

import (
	"testing"

	"nesgo/internal/cartridge"
	"nesgo/internal/region"
)

// fakeMapper is a bare CNROM-ish mapper: flat CHR RAM, horizontal mirroring,
// no mapper-owned nametable storage, no IRQ. It's enough surface for the PPU
// tests below without dragging in a full cartridge load.
type fakeMapper struct {
	chr      [0x2000]uint8
	accesses []uint16
}

func (m *fakeMapper) CPURead(addr uint16) (uint8, bool) { return 0, false }
func (m *fakeMapper) CPUWrite(addr uint16, value uint8) {}
func (m *fakeMapper) CPUClock(cpuCycle uint64)          {}

func (m *fakeMapper) PPURead(addr uint16) uint8     { return m.chr[addr&0x1FFF] }
func (m *fakeMapper) PPUWrite(addr uint16, v uint8) { m.chr[addr&0x1FFF] = v }
func (m *fakeMapper) PPUVRAMAccess(addr uint16, kind cartridge.VRAMAccessKind) {
	m.accesses = append(m.accesses, addr)
}

func (m *fakeMapper) MapNametable(addr uint16) cartridge.NametableTarget {
	// Horizontal mirroring: bit 11 selects the physical 1 KiB half, bit
	// 10 is folded into it.
	table := (addr >> 10) & 0x03
	offset := addr & 0x03FF
	physical := uint16(0)
	if table >= 2 {
		physical = 0x0400
	}
	return cartridge.NametableTarget{CIRAMOffset: physical | offset}
}
func (m *fakeMapper) MapperNametableRead(offset uint16) uint8    { return 0 }
func (m *fakeMapper) MapperNametableWrite(offset uint16, v uint8) {}

func (m *fakeMapper) IRQPending() bool { return false }
func (m *fakeMapper) ClearIRQ()        {}

func (m *fakeMapper) AsExpansionAudio() (cartridge.ExpansionAudio, bool) { return nil, false }

func (m *fakeMapper) SaveState() cartridge.MapperState { return cartridge.MapperState{} }
func (m *fakeMapper) LoadState(cartridge.MapperState)  {}

func newTestPPU() (*PPU, *fakeMapper) {
	m := &fakeMapper{}
	p := New(region.For(region.NTSC))
	p.SetMapper(m)
	return p, m
}

func TestVBlankFlagSetsAtLine241Dot1(t *testing.T) {
	p, _ := newTestPPU()
	for p.scanline != 241 || p.dot != 1 {
		p.Step()
	}
	p.Step() // run dot 1 itself, where the flag is set
	if p.status&0x80 == 0 {
		t.Fatal("expected VBlank flag set at scanline 241 dot 1")
	}
}

func TestVBlankFlagClearedByStatusRead(t *testing.T) {
	p, _ := newTestPPU()
	for p.scanline != 241 || p.dot != 1 {
		p.Step()
	}
	p.Step() // run dot 1 itself, where the flag is set
	v := p.ReadRegister(0x2002)
	if v&0x80 == 0 {
		t.Fatal("expected read of $2002 to report VBlank set")
	}
	if p.status&0x80 != 0 {
		t.Fatal("expected VBlank flag cleared after $2002 read")
	}
}

func TestStatusReadClearsWriteLatch(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0x2005, 0x10) // first write sets w=true
	if !p.w {
		t.Fatal("expected write latch set after first $2005 write")
	}
	p.ReadRegister(0x2002)
	if p.w {
		t.Fatal("expected $2002 read to clear the write latch")
	}
}

func TestScrollRegisterXYSplit(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0x2005, 0xF8) // coarse X = 0x1F, fine X = 0
	p.WriteRegister(0x2005, 0xFF) // coarse Y = 0x1F, fine Y = 0x07
	if p.t&0x001F != 0x1F {
		t.Fatalf("coarse X in t = %#x, want 0x1F", p.t&0x001F)
	}
	if (p.t>>12)&0x07 != 0x07 {
		t.Fatalf("fine Y in t = %#x, want 0x07", (p.t >> 12) & 0x07)
	}
}

func TestPPUAddrWriteTwoStepLoadsV(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0x2006, 0x21)
	p.WriteRegister(0x2006, 0x08)
	// the address is latched into v after a short delay on real hardware;
	// this implementation models it via pendingVRAMAddr/pendingVRAMDelay.
	if p.pendingVRAMAddr != 0x2108 {
		t.Fatalf("pendingVRAMAddr = %#x, want $2108", p.pendingVRAMAddr)
	}
}

func TestPPUDataBufferedReadOutsidePalette(t *testing.T) {
	p, m := newTestPPU()
	m.chr[0x0010] = 0x55
	p.v = 0x0010
	first := p.ReadRegister(0x2007)
	if first == 0x55 {
		t.Fatal("expected first $2007 read to return the stale buffer, not the fresh byte")
	}
	second := p.ReadRegister(0x2007)
	if second != 0x55 {
		t.Fatalf("second $2007 read = %#x, want $55 (now in the buffer)", second)
	}
}

func TestPPUDataPaletteReadIsUnbuffered(t *testing.T) {
	p, _ := newTestPPU()
	p.pal.Write(0x3F05, 0x2A)
	p.v = 0x3F05
	got := p.ReadRegister(0x2007)
	if got&0x3F != 0x2A {
		t.Fatalf("palette read = %#x, want $2A", got&0x3F)
	}
}

func TestNametableFetchNotifiesMapper(t *testing.T) {
	p, m := newTestPPU()
	p.v = 0x2000
	p.fetchNametableByte()
	if len(m.accesses) != 1 || m.accesses[0] != 0x2000 {
		t.Fatalf("mapper accesses = %v, want [$2000]", m.accesses)
	}
}

func TestNMIAssertedOnEnableWhileVBlankSet(t *testing.T) {
	p, _ := newTestPPU()
	p.status |= 0x80 // pretend VBlank is already set
	var fired bool
	p.SetNMICallback(func() { fired = true })
	p.WriteRegister(0x2000, 0x80) // enable NMI on VBlank
	if !fired {
		t.Fatal("expected enabling NMI while VBlank is set to immediately raise NMI")
	}
	if !p.NMILine() {
		t.Fatal("expected NMILine() true after immediate raise")
	}
}

func TestDisablingNMIDropsTheLine(t *testing.T) {
	p, _ := newTestPPU()
	p.status |= 0x80
	p.WriteRegister(0x2000, 0x80)
	if !p.NMILine() {
		t.Fatal("setup: expected NMI line asserted")
	}
	p.WriteRegister(0x2000, 0x00)
	if p.NMILine() {
		t.Fatal("expected clearing the NMI enable bit to drop the line")
	}
}

func TestOAMAddrWriteThenDataIncrementsAddress(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0x2003, 0x05)
	p.WriteRegister(0x2004, 0x77)
	if p.oam[5] != 0x77 {
		t.Fatalf("oam[5] = %#x, want $77", p.oam[5])
	}
	if p.oamAddr != 0x06 {
		t.Fatalf("oamAddr = %d, want 6", p.oamAddr)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0x2000, 0x08)
	p.WriteRegister(0x2001, 0x1E)
	p.v = 0x2345
	p.t = 0x1234

	snap := p.Snapshot()
	other, _ := newTestPPU()
	other.LoadSnapshot(snap)

	if other.ctrl != p.ctrl || other.mask != p.mask || other.v != p.v || other.t != p.t {
		t.Fatal("snapshot did not restore register state")
	}
}
