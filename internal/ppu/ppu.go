// Package ppu implements the NES Picture Processing Unit (2C02): a
// dot-stepped rendering pipeline driven one PPU dot at a time by the
// shared bus, producing a 256x240 frame and a level-triggered NMI line.
package ppu

import (
	"nesgo/internal/cartridge"
	"nesgo/internal/memory"
	"nesgo/internal/openbus"
	"nesgo/internal/region"
)

// VRAM is the interface the PPU needs from the cartridge side: the
// mapper's CHR access and nametable routing (CIRAM and palette RAM live
// inside the PPU). Keeping it this narrow lets tests substitute a bare
// mapper.
type VRAM interface {
	cartridge.Mapper
}

type spriteSlot struct {
	patternLo, patternHi uint8
	attr                 uint8
	x                    uint8
	isSprite0            bool
}

// PPU is the 2C02 core: registers, internal scroll state, the background
// shift-register pipeline, sprite evaluation/fetch automaton, and the
// 256x240 palette-index framebuffer.
type PPU struct {
	mapper cartridge.Mapper
	ciram  memory.CIRAM
	pal    memory.Palette
	oam    memory.OAM

	timing region.Timing

	ctrl, mask, status uint8
	oamAddr            uint8

	v, t uint16
	x    uint8
	w    bool

	readBuffer uint8
	bus        openbus.Latch

	pendingVRAMAddr  uint16
	pendingVRAMDelay int

	scanline int
	dot      int
	frame    uint64
	oddFrame bool

	ntByte, atByte, bgLowByte, bgHighByte uint8
	bgShiftLo, bgShiftHi                  uint16
	atShiftLo, atShiftHi                  uint8
	atLatchLo, atLatchHi                  uint8

	secondaryOAM   memory.SecondaryOAM
	spriteCount    int
	spriteZeroLine bool

	sprites [8]spriteSlot

	nmiLine   bool
	nmiOutput func()

	oamWriteCorruptRow int

	FrameBuffer [256 * 240]uint16 // palette indices, 0-63 (+emphasis bits in 6-8)
}

func New(timing region.Timing) *PPU {
	return &PPU{timing: timing, scanline: -1}
}

func (p *PPU) SetMapper(m cartridge.Mapper) { p.mapper = m }
func (p *PPU) SetNMICallback(fn func())     { p.nmiOutput = fn }

func (p *PPU) Reset() {
	p.ctrl, p.mask = 0, 0
	p.status = 0
	p.oamAddr = 0
	p.v, p.t, p.x = 0, 0, 0
	p.w = false
	p.readBuffer = 0
	p.bus.Reset()
	p.scanline, p.dot = -1, 0
	p.frame, p.oddFrame = 0, false
	p.nmiLine = false
	for i := range p.oam {
		p.oam[i] = 0
	}
	for i := range p.FrameBuffer {
		p.FrameBuffer[i] = 0
	}
}

// TickOpenBus advances the PPU's open-bus decay latch by one bus access.
// The bus calls this once per CPU cycle so the latch decays on real time
// rather than only on the PPU register reads/writes that refresh it.
func (p *PPU) TickOpenBus() {
	p.bus.Tick()
}

func (p *PPU) renderingEnabled() bool { return p.mask&0x18 != 0 }
func (p *PPU) showBackground() bool   { return p.mask&0x08 != 0 }
func (p *PPU) showSprites() bool      { return p.mask&0x10 != 0 }

// ReadRegister services a CPU read of $2000-$2007 (already demirrored by
// the bus). Reads from write-only registers return the open-bus latch.
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr & 7 {
	case 2:
		v := (p.status & 0xE0) | (p.bus.Peek() & 0x1F)
		p.status &^= 0x80
		p.w = false
		p.bus.RefreshMask(v, 0xE0)
		return v
	case 4:
		v := p.oam[p.oamAddr]
		p.bus.Refresh(v)
		return v
	case 7:
		v := p.readPPUData()
		p.bus.Refresh(v)
		return v
	default:
		return p.bus.Peek()
	}
}

func (p *PPU) readPPUData() uint8 {
	addr := p.v & 0x3FFF
	var result uint8
	if addr >= 0x3F00 {
		result = p.pal.Read(addr)
		p.readBuffer = p.readNametableMirror(addr - 0x1000)
	} else {
		result = p.readBuffer
		p.readBuffer = p.vramRead(addr)
	}
	p.incrementV()
	return result
}

func (p *PPU) vramRead(addr uint16) uint8 {
	if addr < 0x2000 {
		return p.mapper.PPURead(addr)
	}
	return p.readNametableMirror(addr)
}

func (p *PPU) readNametableMirror(addr uint16) uint8 {
	t := p.mapper.MapNametable(addr)
	if t.MapperOwned {
		return p.mapper.MapperNametableRead(t.CIRAMOffset)
	}
	return p.ciram.Read(t.CIRAMOffset)
}

func (p *PPU) writeNametableMirror(addr uint16, v uint8) {
	t := p.mapper.MapNametable(addr)
	if t.MapperOwned {
		p.mapper.MapperNametableWrite(t.CIRAMOffset, v)
		return
	}
	p.ciram.Write(t.CIRAMOffset, v)
}

// WriteRegister services a CPU write to $2000-$2007.
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	p.bus.Refresh(value)
	switch addr & 7 {
	case 0:
		prevNMIEnabled := p.ctrl&0x80 != 0
		p.ctrl = value
		p.t = (p.t &^ 0x0C00) | (uint16(value&0x03) << 10)
		if !prevNMIEnabled && value&0x80 != 0 && p.status&0x80 != 0 {
			p.raiseNMI()
		}
		if value&0x80 == 0 {
			p.nmiLine = false
		}
	case 1:
		p.mask = value
	case 2:
		// read-only
	case 3:
		if p.renderingEnabled() && (p.scanline < 240 || p.scanline == -1) {
			p.oamWriteCorruptRow = int(p.oamAddr &^ 0x03)
		}
		p.oamAddr = value
	case 4:
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 5:
		if !p.w {
			p.t = (p.t &^ 0x001F) | uint16(value>>3)
			p.x = value & 0x07
		} else {
			p.t = (p.t &^ 0x73E0) | (uint16(value&0x07) << 12) | (uint16(value&0xF8) << 2)
		}
		p.w = !p.w
	case 6:
		if !p.w {
			p.t = (p.t &^ 0x7F00) | (uint16(value&0x3F) << 8)
		} else {
			p.t = (p.t &^ 0x00FF) | uint16(value)
			p.pendingVRAMAddr = p.t
			p.pendingVRAMDelay = 3
		}
		p.w = !p.w
	case 7:
		p.writePPUData(value)
	}
}

func (p *PPU) writePPUData(value uint8) {
	addr := p.v & 0x3FFF
	if addr >= 0x3F00 {
		p.pal.Write(addr, value)
	} else if addr < 0x2000 {
		p.mapper.PPUWrite(addr, value)
	} else {
		p.writeNametableMirror(addr, value)
	}
	p.incrementV()
}

func (p *PPU) incrementV() {
	if p.renderingEnabled() && (p.scanline < 240 && p.scanline >= -1) {
		p.incrementCoarseX()
		p.incrementY()
		return
	}
	if p.ctrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

// WriteOAMByte services the OAM DMA path ($2004 writes driven by the bus
// during DMA), routed the same as a direct $2004 write.
func (p *PPU) WriteOAMByte(value uint8) {
	p.oam[p.oamAddr] = value
	p.oamAddr++
}

func (p *PPU) raiseNMI() {
	if !p.nmiLine && p.nmiOutput != nil {
		p.nmiOutput()
	}
	p.nmiLine = true
}

// Step advances the PPU by exactly one dot.
func (p *PPU) Step() {
	if p.pendingVRAMDelay > 0 {
		p.pendingVRAMDelay--
		if p.pendingVRAMDelay == 0 {
			p.v = p.pendingVRAMAddr
		}
	}

	switch {
	case p.scanline == -1:
		p.preRenderDot()
	case p.scanline >= 0 && p.scanline < 240:
		p.visibleDot()
	case p.scanline == 241 && p.dot == 1:
		p.status |= 0x80
		if p.ctrl&0x80 != 0 {
			p.raiseNMI()
		}
	}

	p.advanceDot()
}

func (p *PPU) advanceDot() {
	p.dot++
	lastDot := 340
	if p.scanline == -1 && p.oddFrame && p.renderingEnabled() && p.timing.NMIOddFrameShortens {
		lastDot = 339
	}
	if p.dot > lastDot {
		p.dot = 0
		p.scanline++
		if p.scanline > 260 {
			p.scanline = -1
			p.frame++
			p.oddFrame = !p.oddFrame
		}
	}
}

func (p *PPU) preRenderDot() {
	if p.dot == 1 {
		p.status &^= 0xE0
		p.nmiLine = false
	}
	p.sharedRenderingDot()
	if p.renderingEnabled() && p.dot >= 280 && p.dot <= 304 {
		p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0)
	}
}

func (p *PPU) visibleDot() {
	if p.dot >= 1 && p.dot <= 256 {
		p.outputPixel()
	}
	p.sharedRenderingDot()
}

// sharedRenderingDot runs the background fetch/shift pipeline and sprite
// evaluation common to the pre-render and visible scanlines.
func (p *PPU) sharedRenderingDot() {
	if !p.renderingEnabled() {
		return
	}

	switch {
	case p.dot >= 1 && p.dot <= 256:
		p.backgroundFetchCycle(p.dot)
		if p.dot == 256 {
			p.incrementY()
		}
	case p.dot == 257:
		p.v = (p.v &^ 0x041F) | (p.t & 0x041F)
		p.loadSpritesForNextLine()
	case p.dot >= 321 && p.dot <= 336:
		p.backgroundFetchCycle(p.dot)
	}

	if p.dot >= 1 && p.dot <= 64 && p.dot%2 == 0 {
		idx := (p.dot/2 - 1) % 32
		p.secondaryOAM[idx] = 0xFF
	}
	if p.dot == 65 {
		p.evaluateSprites()
	}
}

// backgroundFetchCycle executes the repeating 8-dot {NT, AT, low, high}
// fetch pattern and shifts the background registers every dot.
func (p *PPU) backgroundFetchCycle(dot int) {
	if (dot >= 2 && dot <= 257) || (dot >= 322 && dot <= 337) {
		p.shiftBackground()
	}

	phase := (dot - 1) % 8
	switch phase {
	case 1:
		p.ntByte = p.fetchNametableByte()
	case 3:
		p.atByte = p.fetchAttributeByte()
	case 5:
		p.bgLowByte = p.fetchPatternByte(false)
	case 7:
		p.bgHighByte = p.fetchPatternByte(true)
		p.reloadShiftRegisters()
	}
}

func (p *PPU) fetchNametableByte() uint8 {
	addr := 0x2000 | (p.v & 0x0FFF)
	p.mapper.PPUVRAMAccess(addr, cartridge.AccessBackground)
	return p.readNametableMirror(addr)
}

func (p *PPU) fetchAttributeByte() uint8 {
	addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	at := p.readNametableMirror(addr)
	shift := ((p.v >> 4) & 4) | (p.v & 2)
	return (at >> shift) & 0x03
}

func (p *PPU) fetchPatternByte(high bool) uint8 {
	fineY := (p.v >> 12) & 0x07
	table := uint16(0)
	if p.ctrl&0x10 != 0 {
		table = 0x1000
	}
	addr := table | uint16(p.ntByte)<<4 | fineY
	if high {
		addr |= 8
	}
	p.mapper.PPUVRAMAccess(addr, cartridge.AccessBackground)
	return p.mapper.PPURead(addr)
}

func (p *PPU) reloadShiftRegisters() {
	p.bgShiftLo = (p.bgShiftLo &^ 0x00FF) | uint16(p.bgLowByte)
	p.bgShiftHi = (p.bgShiftHi &^ 0x00FF) | uint16(p.bgHighByte)
	if p.atByte&1 != 0 {
		p.atLatchLo = 0xFF
	} else {
		p.atLatchLo = 0x00
	}
	if p.atByte&2 != 0 {
		p.atLatchHi = 0xFF
	} else {
		p.atLatchHi = 0x00
	}
}

func (p *PPU) shiftBackground() {
	p.bgShiftLo <<= 1
	p.bgShiftHi <<= 1
	p.atShiftLo = p.atShiftLo<<1 | boolBit(p.atLatchLo&0x80 != 0)
	p.atShiftHi = p.atShiftHi<<1 | boolBit(p.atLatchHi&0x80 != 0)
	p.atLatchLo <<= 1
	p.atLatchHi <<= 1
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (p *PPU) incrementCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | (y << 5)
}

// evaluateSprites implements the hardware sprite-evaluation automaton that
// runs during dots 65-256: scan all 64 OAM sprites, copy up to 8 into
// secondary OAM for the current line, and reproduce the diagonal
// evaluation bug where, once eight sprites are already found, the
// evaluator continues scanning attribute bytes with a desynchronized
// n/m index pair, causing false-positive overflow flags.
func (p *PPU) evaluateSprites() {
	p.spriteCount = 0
	p.spriteZeroLine = false
	spriteHeight := 8
	if p.ctrl&0x20 != 0 {
		spriteHeight = 16
	}

	n, m := 0, 0
	foundEight := false
	for n < 64 {
		y := int(p.oam[n*4])
		inRange := p.scanline >= y && p.scanline < y+spriteHeight
		if !foundEight {
			if inRange {
				if p.spriteCount < 8 {
					copy(p.secondaryOAM[p.spriteCount*4:p.spriteCount*4+4], p.oam[n*4:n*4+4])
					if n == 0 {
						p.spriteZeroLine = true
					}
					p.spriteCount++
				}
				n++
				if p.spriteCount == 8 {
					foundEight = true
					m = 0
				}
			} else {
				n++
			}
			continue
		}

		// Post-eight-found diagonal bug: keep scanning with m incrementing
		// alongside n regardless of match, occasionally testing the wrong
		// byte of a sprite's four and producing spurious overflow.
		candidateY := int(p.oam[n*4+m])
		if p.scanline >= candidateY && p.scanline < candidateY+spriteHeight {
			p.status |= 0x20
			break
		}
		n++
		m = (m + 1) % 4
		if n >= 64 {
			break
		}
	}
}

func (p *PPU) loadSpritesForNextLine() {
	spriteHeight := 8
	if p.ctrl&0x20 != 0 {
		spriteHeight = 16
	}
	for i := 0; i < 8; i++ {
		p.sprites[i] = spriteSlot{}
	}
	for i := 0; i < p.spriteCount; i++ {
		y := p.secondaryOAM[i*4]
		tile := p.secondaryOAM[i*4+1]
		attr := p.secondaryOAM[i*4+2]
		x := p.secondaryOAM[i*4+3]

		row := p.scanline - int(y)
		if attr&0x80 != 0 {
			row = spriteHeight - 1 - row
		}
		if row < 0 {
			row = 0
		}

		var addr uint16
		if spriteHeight == 16 {
			table := uint16(tile&1) * 0x1000
			cell := uint16(tile &^ 1)
			if row >= 8 {
				cell++
				row -= 8
			}
			addr = table | cell<<4 | uint16(row)
		} else {
			table := uint16(0)
			if p.ctrl&0x08 != 0 {
				table = 0x1000
			}
			addr = table | uint16(tile)<<4 | uint16(row)
		}

		lo := p.mapper.PPURead(addr)
		hi := p.mapper.PPURead(addr | 8)
		p.mapper.PPUVRAMAccess(addr, cartridge.AccessSprite)
		if attr&0x40 != 0 {
			lo, hi = reverseBits(lo), reverseBits(hi)
		}
		p.sprites[i] = spriteSlot{patternLo: lo, patternHi: hi, attr: attr, x: x, isSprite0: p.spriteZeroLine && i == 0}
	}
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r = r<<1 | (b & 1)
		b >>= 1
	}
	return r
}

func (p *PPU) outputPixel() {
	x := p.dot - 1
	y := p.scanline
	if x < 0 || x >= 256 || y < 0 || y >= 240 {
		return
	}

	bgPixel, bgPalette := p.backgroundPixelAt()
	spritePixel, spritePalette, spritePriority, spriteIsZero := p.spritePixelAt(x)

	leftClipBG := x < 8 && p.mask&0x02 == 0
	leftClipSprite := x < 8 && p.mask&0x04 == 0
	if leftClipBG || !p.showBackground() {
		bgPixel = 0
	}
	if leftClipSprite || !p.showSprites() {
		spritePixel = 0
	}

	if bgPixel != 0 && spritePixel != 0 && spriteIsZero && x != 255 {
		p.status |= 0x40
	}

	var palAddr uint16
	switch {
	case spritePixel != 0 && (spritePriority == 0 || bgPixel == 0):
		palAddr = 0x10 + uint16(spritePalette)*4 + uint16(spritePixel)
	case bgPixel != 0:
		palAddr = uint16(bgPalette)*4 + uint16(bgPixel)
	default:
		palAddr = 0
	}

	p.FrameBuffer[y*256+x] = uint16(p.pal.Read(palAddr)&0x3F) | uint16(p.mask&0xE0)<<1
}

func (p *PPU) backgroundPixelAt() (pixel, palette uint8) {
	shift := 15 - p.x
	lo := uint8((p.bgShiftLo >> shift) & 1)
	hi := uint8((p.bgShiftHi >> shift) & 1)
	pixel = hi<<1 | lo

	ashift := 7 - p.x
	alo := (p.atShiftLo >> ashift) & 1
	ahi := (p.atShiftHi >> ashift) & 1
	palette = ahi<<1 | alo
	return
}

func (p *PPU) spritePixelAt(x int) (pixel, palette, priority uint8, isZero bool) {
	for i := 0; i < p.spriteCount; i++ {
		s := p.sprites[i]
		offset := x - int(s.x)
		if offset < 0 || offset > 7 {
			continue
		}
		lo := (s.patternLo >> (7 - offset)) & 1
		hi := (s.patternHi >> (7 - offset)) & 1
		v := hi<<1 | lo
		if v == 0 {
			continue
		}
		return v, s.attr & 0x03, (s.attr >> 5) & 1, s.isSprite0
	}
	return 0, 0, 0, false
}

// Snapshot is the serializable PPU state for save states.
type Snapshot struct {
	Ctrl, Mask, Status uint8
	OAMAddr            uint8
	V, T               uint16
	X                  uint8
	W                  bool
	ReadBuffer         uint8
	Scanline, Dot      int
	Frame              uint64
	OddFrame           bool
	OAM                memory.OAM
	CIRAM              memory.CIRAM
	Palette            memory.Palette
	OpenBus            openbus.Snapshot
}

func (p *PPU) Snapshot() Snapshot {
	return Snapshot{
		Ctrl: p.ctrl, Mask: p.mask, Status: p.status, OAMAddr: p.oamAddr,
		V: p.v, T: p.t, X: p.x, W: p.w, ReadBuffer: p.readBuffer,
		Scanline: p.scanline, Dot: p.dot, Frame: p.frame, OddFrame: p.oddFrame,
		OAM: p.oam, CIRAM: p.ciram, Palette: p.pal, OpenBus: p.bus.Save(),
	}
}

func (p *PPU) LoadSnapshot(s Snapshot) {
	p.ctrl, p.mask, p.status, p.oamAddr = s.Ctrl, s.Mask, s.Status, s.OAMAddr
	p.v, p.t, p.x, p.w = s.V, s.T, s.X, s.W
	p.readBuffer = s.ReadBuffer
	p.scanline, p.dot, p.frame, p.oddFrame = s.Scanline, s.Dot, s.Frame, s.OddFrame
	p.oam, p.ciram, p.pal = s.OAM, s.CIRAM, s.Palette
	p.bus.Restore(s.OpenBus)
}

// NMILine reports the PPU's current level-triggered NMI output.
func (p *PPU) NMILine() bool { return p.nmiLine }

// FrameCount returns the number of frames completed so far.
func (p *PPU) FrameCount() uint64 { return p.frame }
