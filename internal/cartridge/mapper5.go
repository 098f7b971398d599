package cartridge

// mapper5 implements MMC5 (ExROM): configurable PRG windows in 8/16/32 KiB
// modes, CHR windows in 1/2/4/8 KiB modes, 1 KiB of extended RAM usable as
// nametable storage, attribute fill-mode, a scanline IRQ detected from the
// PPU's repeated nametable-fetch pattern, and an 8x8->16 unsigned
// multiplier. The vertical split registers are latched but not rendered:
// split-screen needs tile X/Y and background-vs-sprite context this PPU
// does not expose through PPUVRAMAccess, matching the upstream core this
// register layout is grounded on.
type mapper5 struct {
	cart *Cartridge
	exram [1024]uint8

	prgMode  uint8 // $5100
	chrMode  uint8 // $5101

	prgRAMProtect1 uint8 // $5102
	prgRAMProtect2 uint8 // $5103

	exRAMMode  uint8 // $5104
	ntMapping  uint8 // $5105
	fillTile   uint8 // $5106
	fillAttr   uint8 // $5107

	prgBank6000 uint8 // $5113
	prgBank8000 uint8 // $5114
	prgBankA000 uint8 // $5115
	prgBankC000 uint8 // $5116
	prgBankE000 uint8 // $5117

	chrBanks     [8]uint8 // $5120-$5127
	chrUpperBits uint8    // $5130

	splitControl uint8 // $5200
	splitScroll  uint8 // $5201
	splitCHRBank uint8 // $5202

	irqScanline uint8 // $5203
	irqEnabled  bool
	irqPending  bool

	mulA, mulB uint8
	mulResult  uint16

	pcmMode  uint8 // $5010: bit 0 selects write (0) vs read (1) DAC mode
	pcmLevel uint8 // $5011: direct 8-bit DAC value, write mode only

	currentScanline          uint8
	lastScanlineCycle        uint64
	inFrame                  bool
	lastNTAddr               uint16
	ntAddrRepeatCount        uint8
	expectScanlineNextFetch  bool
	ppuCycle                 uint64
}

func newMapper5(cart *Cartridge) *mapper5 {
	m := &mapper5{cart: cart}
	m.prgMode = 3
	m.chrMode = 3
	m.prgBankA000 = 1
	m.prgBankC000 = 2
	m.prgBankE000 = uint8(m.prgBankCount8k() - 1)
	m.mulA, m.mulB = 0xFF, 0xFF
	m.mulResult = 0xFF * 0xFF
	return m
}

func (m *mapper5) prgBankCount8k() int {
	n := len(m.cart.PRGROM) / 0x2000
	if n == 0 {
		return 1
	}
	return n
}

func (m *mapper5) prgRAMEnabled() bool {
	return len(m.cart.PRGRAM) > 0 && m.prgRAMProtect1&0x03 == 0x02 && m.prgRAMProtect2&0x03 == 0x01
}

// prgBankIndex resolves an 8/16/32 KiB bank register to an effective 8 KiB
// bank index for the given CPU address, following the MMC5 bit layout:
// register bit 7 (the ROM/RAM select, decided by readSwitchable) is masked
// off, and the low address bits extend wider windows across multiple 8 KiB
// banks.
func (m *mapper5) prgBankIndex(reg uint8, sizeKiB int, addr uint16) int {
	reg7 := int(reg & 0x7F)
	var bank int
	switch sizeKiB {
	case 8:
		bank = reg7
	case 16:
		a13 := int(addr>>13) & 1
		bank = (reg7 &^ 1) | a13
	default: // 32
		a13 := int(addr>>13) & 1
		a14 := int(addr>>14) & 1
		bank = (reg7 &^ 0x03) | (a14 << 1) | a13
	}
	n := m.prgBankCount8k()
	return ((bank % n) + n) % n
}

func (m *mapper5) readPRGROMWindow(addr uint16, reg uint8, sizeKiB int) uint8 {
	if len(m.cart.PRGROM) == 0 {
		return 0
	}
	bank := m.prgBankIndex(reg, sizeKiB, addr)
	offset := int(addr) & 0x1FFF
	return m.cart.PRGROM[bank*0x2000+offset]
}

func (m *mapper5) prgRAMPage(reg uint8) int {
	if len(m.cart.PRGRAM) == 0 {
		return 0
	}
	return int(reg&0x07) % max(1, len(m.cart.PRGRAM)/0x2000)
}

func (m *mapper5) readPRGRAMPage(addr uint16, reg uint8) uint8 {
	if len(m.cart.PRGRAM) == 0 {
		return 0
	}
	idx := m.prgRAMPage(reg)*0x2000 + int(addr)&0x1FFF
	return m.cart.PRGRAM[idx%len(m.cart.PRGRAM)]
}

func (m *mapper5) writePRGRAMPage(addr uint16, reg uint8, value uint8) {
	if len(m.cart.PRGRAM) == 0 || !m.prgRAMEnabled() {
		return
	}
	idx := m.prgRAMPage(reg)*0x2000 + int(addr)&0x1FFF
	m.cart.PRGRAM[idx%len(m.cart.PRGRAM)] = value
}

func (m *mapper5) readSwitchable(addr uint16, reg uint8, sizeKiB int) uint8 {
	if reg&0x80 == 0 && len(m.cart.PRGRAM) > 0 {
		return m.readPRGRAMPage(addr, reg)
	}
	return m.readPRGROMWindow(addr, reg, sizeKiB)
}

func (m *mapper5) CPURead(addr uint16) (uint8, bool) {
	switch {
	case addr >= 0x5204 && addr == 0x5204:
		var v uint8
		if m.irqPending {
			v |= 0x80
		}
		if m.inFrame {
			v |= 0x40
		}
		m.irqPending = false
		return v, true
	case addr == 0x5205:
		return uint8(m.mulResult), true
	case addr == 0x5206:
		return uint8(m.mulResult >> 8), true
	case addr >= 0x5C00 && addr <= 0x5FFF:
		if m.exRAMMode&0x03 < 2 {
			return 0, true
		}
		return m.exram[addr-0x5C00], true
	case addr >= 0x6000 && addr <= 0x7FFF:
		if len(m.cart.PRGRAM) == 0 {
			return 0, true
		}
		return m.readPRGRAMPage(addr, m.prgBank6000), true
	case addr >= 0x8000:
		switch m.prgMode & 0x03 {
		case 0:
			return m.readPRGROMWindow(addr, m.prgBankE000, 32), true
		case 1:
			if addr < 0xC000 {
				return m.readSwitchable(addr, m.prgBankA000, 16), true
			}
			return m.readPRGROMWindow(addr, m.prgBankE000, 16), true
		case 2:
			switch {
			case addr < 0xC000:
				return m.readSwitchable(addr, m.prgBankA000, 16), true
			case addr < 0xE000:
				return m.readSwitchable(addr, m.prgBankC000, 8), true
			default:
				return m.readPRGROMWindow(addr, m.prgBankE000, 8), true
			}
		default:
			switch {
			case addr < 0xA000:
				return m.readSwitchable(addr, m.prgBank8000, 8), true
			case addr < 0xC000:
				return m.readSwitchable(addr, m.prgBankA000, 8), true
			case addr < 0xE000:
				return m.readSwitchable(addr, m.prgBankC000, 8), true
			default:
				return m.readPRGROMWindow(addr, m.prgBankE000, 8), true
			}
		}
	}
	return 0, false
}

func (m *mapper5) CPUWrite(addr uint16, value uint8) {
	switch {
	case addr == 0x5100:
		m.prgMode = value & 0x03
	case addr == 0x5101:
		m.chrMode = value & 0x03
	case addr == 0x5102:
		m.prgRAMProtect1 = value
	case addr == 0x5103:
		m.prgRAMProtect2 = value
	case addr == 0x5010:
		m.pcmMode = value
	case addr == 0x5011:
		if m.pcmMode&0x01 == 0 {
			m.pcmLevel = value
		}
	case addr == 0x5104:
		m.exRAMMode = value & 0x03
	case addr == 0x5105:
		m.ntMapping = value
	case addr == 0x5106:
		m.fillTile = value
	case addr == 0x5107:
		m.fillAttr = value & 0x03
	case addr == 0x5113:
		m.prgBank6000 = value
	case addr == 0x5114:
		m.prgBank8000 = value
	case addr == 0x5115:
		m.prgBankA000 = value
	case addr == 0x5116:
		m.prgBankC000 = value
	case addr == 0x5117:
		m.prgBankE000 = value
	case addr >= 0x5120 && addr <= 0x5127:
		m.chrBanks[addr-0x5120] = value
	case addr == 0x5130:
		m.chrUpperBits = value & 0x03
	case addr == 0x5200:
		m.splitControl = value
	case addr == 0x5201:
		m.splitScroll = value
	case addr == 0x5202:
		m.splitCHRBank = value
	case addr == 0x5203:
		m.irqScanline = value
		m.irqPending = false
	case addr == 0x5204:
		m.irqEnabled = value&0x80 != 0
		if !m.irqEnabled {
			m.irqPending = false
		}
	case addr == 0x5205:
		m.mulA = value
		m.mulResult = uint16(m.mulA) * uint16(m.mulB)
	case addr == 0x5206:
		m.mulB = value
		m.mulResult = uint16(m.mulA) * uint16(m.mulB)
	case addr >= 0x5C00 && addr <= 0x5FFF:
		if m.exRAMMode&0x03 != 0x03 {
			m.exram[addr-0x5C00] = value
		}
	case addr >= 0x6000 && addr <= 0x7FFF:
		m.writePRGRAMPage(addr, m.prgBank6000, value)
	case addr >= 0x8000:
		if len(m.cart.PRGRAM) == 0 || !m.prgRAMEnabled() {
			return
		}
		switch m.prgMode & 0x03 {
		case 1:
			if addr < 0xC000 && m.prgBankA000&0x80 == 0 {
				m.writePRGRAMPage(addr, m.prgBankA000, value)
			}
		case 2:
			if addr < 0xC000 && m.prgBankA000&0x80 == 0 {
				m.writePRGRAMPage(addr, m.prgBankA000, value)
			} else if addr < 0xE000 && m.prgBankC000&0x80 == 0 {
				m.writePRGRAMPage(addr, m.prgBankC000, value)
			}
		case 3:
			switch {
			case addr < 0xA000 && m.prgBank8000&0x80 == 0:
				m.writePRGRAMPage(addr, m.prgBank8000, value)
			case addr >= 0xA000 && addr < 0xC000 && m.prgBankA000&0x80 == 0:
				m.writePRGRAMPage(addr, m.prgBankA000, value)
			case addr >= 0xC000 && addr < 0xE000 && m.prgBankC000&0x80 == 0:
				m.writePRGRAMPage(addr, m.prgBankC000, value)
			}
		}
	}
}

func (m *mapper5) CPUClock(uint64) {}

func (m *mapper5) chrBankForAddr(addr uint16) (bankIndex, bankSize int) {
	var regIndex int
	switch m.chrMode & 0x03 {
	case 0:
		regIndex, bankSize = 7, 0x2000
	case 1:
		if addr < 0x1000 {
			regIndex, bankSize = 3, 0x1000
		} else {
			regIndex, bankSize = 7, 0x1000
		}
	case 2:
		switch {
		case addr < 0x0800:
			regIndex, bankSize = 1, 0x0800
		case addr < 0x1000:
			regIndex, bankSize = 3, 0x0800
		case addr < 0x1800:
			regIndex, bankSize = 5, 0x0800
		default:
			regIndex, bankSize = 7, 0x0800
		}
	default:
		regIndex, bankSize = int(addr>>10)&0x07, 0x0400
	}
	bankVal := m.chrBanks[regIndex]
	bankIndex = int(m.chrUpperBits)<<8 | int(bankVal)
	return bankIndex, bankSize
}

func (m *mapper5) chrData() []uint8 {
	if m.cart.HasCHRRAM {
		return m.cart.CHRRAM
	}
	return m.cart.CHRROM
}

func (m *mapper5) PPURead(addr uint16) uint8 {
	if addr >= 0x2000 {
		return 0
	}
	data := m.chrData()
	if len(data) == 0 {
		return 0
	}
	bank, size := m.chrBankForAddr(addr)
	base := (bank * size) % len(data)
	return data[(base+int(addr)&(size-1))%len(data)]
}

func (m *mapper5) PPUWrite(addr uint16, value uint8) {
	if addr >= 0x2000 || !m.cart.HasCHRRAM {
		return
	}
	data := m.cart.CHRRAM
	if len(data) == 0 {
		return
	}
	bank, size := m.chrBankForAddr(addr)
	base := (bank * size) % len(data)
	data[(base+int(addr)&(size-1))%len(data)] = value
}

// PPUVRAMAccess detects the scanline boundary the way real MMC5 boards do:
// three consecutive fetches of the same nametable address, then the next
// fetch marks the boundary. A large gap in PPU cycle count since the last
// detected boundary is treated as a new frame starting over at scanline 0.
func (m *mapper5) PPUVRAMAccess(addr uint16, kind VRAMAccessKind) {
	m.ppuCycle++
	if kind != AccessBackground && kind != AccessSprite {
		return
	}
	m.inFrame = true

	if addr < 0x2000 || addr > 0x2FFF {
		m.ntAddrRepeatCount = 0
		return
	}
	if m.lastNTAddr == addr {
		m.ntAddrRepeatCount++
	} else {
		m.lastNTAddr = addr
		m.ntAddrRepeatCount = 1
	}
	if m.ntAddrRepeatCount == 3 {
		m.expectScanlineNextFetch = true
		m.ntAddrRepeatCount = 0
		return
	}
	if !m.expectScanlineNextFetch {
		return
	}
	m.expectScanlineNextFetch = false

	const scanlineGapThreshold = 2000
	if m.lastScanlineCycle == 0 || m.ppuCycle-m.lastScanlineCycle > scanlineGapThreshold {
		m.currentScanline = 0
	} else {
		m.currentScanline++
	}
	m.lastScanlineCycle = m.ppuCycle

	if m.irqEnabled && m.irqScanline != 0 && m.currentScanline == m.irqScanline {
		m.irqPending = true
	}
}

func isFillOffset(offset uint16) bool   { return offset&0x1000 != 0 }
func fillOffsetRel(offset uint16) uint16 { return offset & 0x03FF }

func (m *mapper5) MapNametable(addr uint16) NametableTarget {
	if addr < 0x2000 || addr >= 0x3000 {
		return NametableTarget{CIRAMOffset: addr & 0x07FF}
	}
	nt := uint8((addr - 0x2000) / 0x400)
	offset := (addr - 0x2000) & 0x03FF
	sel := (m.ntMapping >> (nt * 2)) & 0x03
	switch sel {
	case 0:
		return NametableTarget{CIRAMOffset: offset}
	case 1:
		return NametableTarget{CIRAMOffset: 0x0400 | offset}
	case 2:
		return NametableTarget{MapperOwned: true, CIRAMOffset: offset}
	default:
		return NametableTarget{MapperOwned: true, FillMode: true, CIRAMOffset: 0x1000 | offset}
	}
}

func (m *mapper5) MapperNametableRead(offset uint16) uint8 {
	if isFillOffset(offset) {
		rel := fillOffsetRel(offset)
		if rel < 0x03C0 {
			return m.fillTile
		}
		bits := m.fillAttr & 0x03
		return bits * 0x55
	}
	if m.exRAMMode&0x03 >= 0x02 {
		return 0
	}
	return m.exram[offset&0x03FF]
}

func (m *mapper5) MapperNametableWrite(offset uint16, value uint8) {
	if isFillOffset(offset) {
		return
	}
	m.exram[offset&0x03FF] = value
}

func (m *mapper5) IRQPending() bool { return m.irqPending }
func (m *mapper5) ClearIRQ()        { m.irqPending = false }

// ClockAudio is a no-op: the PCM channel is a direct DAC driven entirely by
// $5011 writes, with no internal envelope or timer to advance.
func (m *mapper5) ClockAudio() {}

// Samples returns the PCM channel's current DAC level as a single centered
// sample. Read mode (pcmMode bit 0), which drives $5011 reads through an
// IRQ-timed playback engine instead of direct writes, is not implemented;
// ROMs using it will hear silence from this channel.
func (m *mapper5) Samples() []float32 {
	return []float32{(float32(m.pcmLevel) - 128) / 128}
}

func (m *mapper5) AsExpansionAudio() (ExpansionAudio, bool) { return m, true }

func (m *mapper5) SaveState() MapperState {
	s := MapperState{MapperID: 5, PRGRAM: append([]uint8(nil), m.cart.PRGRAM...), ExRAM: append([]uint8(nil), m.exram[:]...)}
	s.Regs = [16]uint8{
		m.prgMode, m.chrMode, m.prgRAMProtect1, m.prgRAMProtect2,
		m.exRAMMode, m.ntMapping, m.fillTile, m.fillAttr,
		m.prgBank6000, m.prgBank8000, m.prgBankA000, m.prgBankC000,
		m.prgBankE000, m.chrUpperBits, boolToU8(m.irqEnabled), boolToU8(m.irqPending),
	}
	return s
}

func (m *mapper5) LoadState(s MapperState) {
	m.prgMode, m.chrMode, m.prgRAMProtect1, m.prgRAMProtect2 = s.Regs[0], s.Regs[1], s.Regs[2], s.Regs[3]
	m.exRAMMode, m.ntMapping, m.fillTile, m.fillAttr = s.Regs[4], s.Regs[5], s.Regs[6], s.Regs[7]
	m.prgBank6000, m.prgBank8000, m.prgBankA000, m.prgBankC000 = s.Regs[8], s.Regs[9], s.Regs[10], s.Regs[11]
	m.prgBankE000, m.chrUpperBits = s.Regs[12], s.Regs[13]
	m.irqEnabled, m.irqPending = s.Regs[14] != 0, s.Regs[15] != 0
	copy(m.cart.PRGRAM, s.PRGRAM)
	copy(m.exram[:], s.ExRAM)
}
