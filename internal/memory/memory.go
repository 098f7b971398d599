// Package memory implements the fixed-size RAM blocks shared by the rest
// of the core: CPU work RAM, the PPU's nametable RAM (CIRAM), palette RAM,
// and the two OAM tables. None of these blocks know about mirroring rules
// beyond their own address space; the bus and PPU apply the wider memory
// map on top.
package memory

// RAM is the NES's 2 KiB of CPU-visible work RAM, mirrored every 0x0800
// bytes across $0000-$1FFF.
type RAM [0x0800]byte

// Read returns the byte at addr, wrapping into the 2 KiB block.
func (r *RAM) Read(addr uint16) uint8 {
	return r[addr&0x07FF]
}

// Write stores value at addr, wrapping into the 2 KiB block.
func (r *RAM) Write(addr uint16, value uint8) {
	r[addr&0x07FF] = value
}

// Clear zeroes the RAM, matching the documented power-on pattern used by
// this implementation (all zero; real hardware is undefined but test ROMs
// do not depend on the exact pattern).
func (r *RAM) Clear() {
	for i := range r {
		r[i] = 0
	}
}

// CIRAM is the 2 KiB of nametable RAM built into the console. The
// cartridge controls how its four logical nametable slots map onto these
// two physical KiB.
type CIRAM [0x0800]byte

func (c *CIRAM) Read(offset uint16) uint8     { return c[offset&0x07FF] }
func (c *CIRAM) Write(offset uint16, v uint8) { c[offset&0x07FF] = v }

// Palette is the PPU's 32-byte palette RAM. Indices 0x10/0x14/0x18/0x1C
// mirror 0x00/0x04/0x08/0x0C so that the "universal background color"
// slot used by sprites and backgrounds is the same physical byte.
type Palette [32]byte

func paletteIndex(addr uint16) uint16 {
	i := addr & 0x1F
	if i >= 0x10 && i&0x03 == 0 {
		i &^= 0x10
	}
	return i
}

func (p *Palette) Read(addr uint16) uint8 {
	return p[paletteIndex(addr)]
}

func (p *Palette) Write(addr uint16, value uint8) {
	p[paletteIndex(addr)] = value
}

// OAM is the 256-byte primary object attribute table: 64 sprites of 4
// bytes each (Y, tile, attribute, X).
type OAM [256]byte

// SecondaryOAM holds the up-to-8 sprites selected for the next scanline.
type SecondaryOAM [32]byte
