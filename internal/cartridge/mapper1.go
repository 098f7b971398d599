package cartridge

// mapper1 implements MMC1 (SxROM): a 5-bit serial shift register loaded
// one bit per CPU write (LSB first), committed to a control/bank
// register on the fifth write. A write with bit 7 set resets the shift
// register and forces PRG mode 3 regardless of the bit shifted in.
type mapper1 struct {
	cart *Cartridge

	shift      uint8
	shiftCount uint8

	control uint8 // mirroring (bits0-1), PRG mode (bits2-3), CHR mode (bit4)
	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgRAMEnabled bool
}

func newMapper1(cart *Cartridge) *mapper1 {
	return &mapper1{cart: cart, control: 0x0C, shift: 0, shiftCount: 0, prgRAMEnabled: true}
}

func (m *mapper1) prgBankCount() int { return len(m.cart.PRGROM) / 0x4000 }

func (m *mapper1) CPURead(addr uint16) (uint8, bool) {
	switch {
	case addr >= 0x6000 && addr < 0x8000:
		if !m.prgRAMEnabled {
			return 0, true
		}
		return m.cart.PRGRAM[addr-0x6000], true
	case addr >= 0x8000:
		prgMode := (m.control >> 2) & 0x03
		var bank int
		switch prgMode {
		case 0, 1:
			bank = int(m.prgBank&0x0E) >> 1 // 32KB mode: ignore low bit
			i := bank*0x8000 + int(addr-0x8000)
			return m.cart.PRGROM[i%len(m.cart.PRGROM)], true
		case 2:
			if addr < 0xC000 {
				return m.cart.PRGROM[int(addr-0x8000)], true
			}
			bank = int(m.prgBank) % m.prgBankCount()
			return m.cart.PRGROM[bank*0x4000+int(addr-0xC000)], true
		default: // 3
			if addr < 0xC000 {
				bank = int(m.prgBank) % m.prgBankCount()
				return m.cart.PRGROM[bank*0x4000+int(addr-0x8000)], true
			}
			last := m.prgBankCount() - 1
			return m.cart.PRGROM[last*0x4000+int(addr-0xC000)], true
		}
	}
	return 0, false
}

func (m *mapper1) CPUWrite(addr uint16, value uint8) {
	if addr >= 0x6000 && addr < 0x8000 {
		if m.prgRAMEnabled {
			m.cart.PRGRAM[addr-0x6000] = value
		}
		return
	}
	if addr < 0x8000 {
		return
	}
	if value&0x80 != 0 {
		m.shift, m.shiftCount = 0, 0
		m.control |= 0x0C
		return
	}
	m.shift = m.shift>>1 | (value&1)<<4
	m.shiftCount++
	if m.shiftCount < 5 {
		return
	}
	result := m.shift
	m.shift, m.shiftCount = 0, 0
	switch {
	case addr < 0xA000:
		m.control = result
	case addr < 0xC000:
		m.chrBank0 = result
	case addr < 0xE000:
		m.chrBank1 = result
	default:
		m.prgBank = result & 0x0F
		m.prgRAMEnabled = result&0x10 == 0
	}
}

func (m *mapper1) CPUClock(uint64) {}

func (m *mapper1) chrBankCount8k() int {
	sz := len(m.cart.CHRROM)
	if m.cart.HasCHRRAM {
		sz = len(m.cart.CHRRAM)
	}
	return sz / 0x1000
}

func (m *mapper1) chrRead(bankReg uint8, addr uint16, chrMode4k bool) uint8 {
	data := m.cart.CHRROM
	if m.cart.HasCHRRAM {
		data = m.cart.CHRRAM
	}
	if len(data) == 0 {
		return 0
	}
	if !chrMode4k {
		bank := int(bankReg>>1) % max(1, len(data)/0x2000)
		return data[(bank*0x2000+int(addr))%len(data)]
	}
	bank := int(bankReg) % max(1, m.chrBankCount8k())
	return data[(bank*0x1000+int(addr&0x0FFF))%len(data)]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *mapper1) PPURead(addr uint16) uint8 {
	chrMode4k := m.control&0x10 != 0
	if !chrMode4k {
		return m.chrRead(m.chrBank0, addr, false)
	}
	if addr < 0x1000 {
		return m.chrRead(m.chrBank0, addr, true)
	}
	return m.chrRead(m.chrBank1, addr-0x1000, true)
}

func (m *mapper1) PPUWrite(addr uint16, value uint8) {
	if !m.cart.HasCHRRAM {
		return
	}
	m.cart.CHRRAM[int(addr)%len(m.cart.CHRRAM)] = value
}

func (m *mapper1) PPUVRAMAccess(uint16, VRAMAccessKind) {}

func (m *mapper1) MapNametable(addr uint16) NametableTarget {
	switch m.control & 0x03 {
	case 0:
		return mirrorNametable(MirrorSingleScreen0, addr)
	case 1:
		return mirrorNametable(MirrorSingleScreen1, addr)
	case 2:
		return mirrorNametable(MirrorVertical, addr)
	default:
		return mirrorNametable(MirrorHorizontal, addr)
	}
}

func (m *mapper1) MapperNametableRead(uint16) uint8         { return 0 }
func (m *mapper1) MapperNametableWrite(uint16, uint8)       {}
func (m *mapper1) IRQPending() bool                         { return false }
func (m *mapper1) ClearIRQ()                                {}
func (m *mapper1) AsExpansionAudio() (ExpansionAudio, bool) { return nil, false }

func (m *mapper1) SaveState() MapperState {
	return MapperState{
		MapperID: 1,
		Regs:     [16]uint8{m.control, m.chrBank0, m.chrBank1, m.prgBank, m.shift, m.shiftCount, boolToU8(m.prgRAMEnabled)},
		PRGRAM:   append([]uint8(nil), m.cart.PRGRAM...),
	}
}

func (m *mapper1) LoadState(s MapperState) {
	m.control, m.chrBank0, m.chrBank1, m.prgBank = s.Regs[0], s.Regs[1], s.Regs[2], s.Regs[3]
	m.shift, m.shiftCount = s.Regs[4], s.Regs[5]
	m.prgRAMEnabled = s.Regs[6] != 0
	copy(m.cart.PRGRAM, s.PRGRAM)
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
