package cartridge

// mapper0 implements NROM: no bank switching, a fixed 16 or 32 KiB PRG
// window (mirrored if only 16 KiB is present) and a fixed 8 KiB CHR
// window, optionally backed by CHR-RAM.
type mapper0 struct {
	cart *Cartridge
}

func newMapper0(cart *Cartridge) *mapper0 { return &mapper0{cart: cart} }

func (m *mapper0) CPURead(addr uint16) (uint8, bool) {
	switch {
	case addr >= 0x6000 && addr < 0x8000:
		return m.cart.PRGRAM[addr-0x6000], true
	case addr >= 0x8000:
		i := int(addr-0x8000) % len(m.cart.PRGROM)
		return m.cart.PRGROM[i], true
	}
	return 0, false
}

func (m *mapper0) CPUWrite(addr uint16, value uint8) {
	if addr >= 0x6000 && addr < 0x8000 {
		m.cart.PRGRAM[addr-0x6000] = value
	}
}

func (m *mapper0) CPUClock(uint64) {}

func (m *mapper0) PPURead(addr uint16) uint8 {
	if m.cart.HasCHRRAM {
		return m.cart.CHRRAM[addr&0x1FFF]
	}
	return m.cart.CHRROM[addr&0x1FFF]
}

func (m *mapper0) PPUWrite(addr uint16, value uint8) {
	if m.cart.HasCHRRAM {
		m.cart.CHRRAM[addr&0x1FFF] = value
	}
}

func (m *mapper0) PPUVRAMAccess(uint16, VRAMAccessKind) {}

func (m *mapper0) MapNametable(addr uint16) NametableTarget {
	return mirrorNametable(m.cart.Mirror, addr)
}

func (m *mapper0) MapperNametableRead(uint16) uint8         { return 0 }
func (m *mapper0) MapperNametableWrite(uint16, uint8)       {}
func (m *mapper0) IRQPending() bool                         { return false }
func (m *mapper0) ClearIRQ()                                {}
func (m *mapper0) AsExpansionAudio() (ExpansionAudio, bool) { return nil, false }
func (m *mapper0) SaveState() MapperState                   { return MapperState{MapperID: 0} }
func (m *mapper0) LoadState(MapperState)                    {}

// mirrorNametable implements the four standard hardware mirroring modes
// shared by every mapper that doesn't control mirroring itself.
func mirrorNametable(mode MirrorMode, addr uint16) NametableTarget {
	table := (addr - 0x2000) / 0x400 // 0..3 logical nametable
	offset := addr & 0x03FF

	var physical uint16
	switch mode {
	case MirrorVertical:
		physical = table % 2
	case MirrorHorizontal:
		physical = table / 2
	case MirrorSingleScreen0:
		physical = 0
	case MirrorSingleScreen1:
		physical = 1
	case MirrorFourScreen:
		return NametableTarget{MapperOwned: true}
	}
	return NametableTarget{CIRAMOffset: physical*0x400 + offset}
}
