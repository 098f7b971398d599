// Package video converts the PPU's palette-index frame buffer into actual
// pixels. The PPU never produces RGB itself -- it only ever knows palette
// RAM indices -- so every frontend (the ebiten window, a PPM dump, a
// headless diff tool) goes through here.
package video

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/draw"
)

// Format selects the pixel encoding machine.Machine.RenderBuffer produces.
type Format uint8

const (
	FormatPaletteIndex Format = iota
	FormatRGB555
	FormatRGB888
)

// HardwarePalette is the 64-entry NTSC NES master palette. Emphasis bits
// are applied on top of this table by darkening the non-emphasized
// channels; see ApplyEmphasis.
var HardwarePalette = color.Palette{
	color.RGBA{84, 84, 84, 255}, color.RGBA{0, 30, 116, 255}, color.RGBA{8, 16, 144, 255}, color.RGBA{48, 0, 136, 255},
	color.RGBA{68, 0, 100, 255}, color.RGBA{92, 0, 48, 255}, color.RGBA{84, 4, 0, 255}, color.RGBA{60, 24, 0, 255},
	color.RGBA{32, 42, 0, 255}, color.RGBA{8, 58, 0, 255}, color.RGBA{0, 64, 0, 255}, color.RGBA{0, 60, 0, 255},
	color.RGBA{0, 50, 60, 255}, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255},

	color.RGBA{152, 150, 152, 255}, color.RGBA{8, 76, 196, 255}, color.RGBA{48, 50, 236, 255}, color.RGBA{92, 30, 228, 255},
	color.RGBA{136, 20, 176, 255}, color.RGBA{160, 20, 100, 255}, color.RGBA{152, 34, 32, 255}, color.RGBA{120, 60, 0, 255},
	color.RGBA{84, 90, 0, 255}, color.RGBA{40, 114, 0, 255}, color.RGBA{8, 124, 0, 255}, color.RGBA{0, 118, 40, 255},
	color.RGBA{0, 102, 120, 255}, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255},

	color.RGBA{236, 238, 236, 255}, color.RGBA{76, 154, 236, 255}, color.RGBA{120, 124, 236, 255}, color.RGBA{176, 98, 236, 255},
	color.RGBA{228, 84, 236, 255}, color.RGBA{236, 88, 180, 255}, color.RGBA{236, 106, 100, 255}, color.RGBA{212, 136, 32, 255},
	color.RGBA{160, 170, 0, 255}, color.RGBA{116, 196, 0, 255}, color.RGBA{76, 208, 32, 255}, color.RGBA{56, 204, 108, 255},
	color.RGBA{56, 180, 204, 255}, color.RGBA{60, 60, 60, 255}, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255},

	color.RGBA{236, 238, 236, 255}, color.RGBA{168, 204, 236, 255}, color.RGBA{188, 188, 236, 255}, color.RGBA{212, 178, 236, 255},
	color.RGBA{236, 174, 236, 255}, color.RGBA{236, 174, 212, 255}, color.RGBA{236, 180, 176, 255}, color.RGBA{228, 196, 144, 255},
	color.RGBA{204, 210, 120, 255}, color.RGBA{180, 222, 120, 255}, color.RGBA{168, 226, 144, 255}, color.RGBA{152, 226, 180, 255},
	color.RGBA{160, 214, 228, 255}, color.RGBA{160, 162, 160, 255}, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255},
}

// ApplyEmphasis darkens the two non-emphasized color channels by 12.5% per
// the documented 2C02 emphasis behavior. bits carries mask bits 5-7
// (R/G/B emphasis) shifted down to bit 0-2.
func ApplyEmphasis(c color.RGBA, bits uint8) color.RGBA {
	if bits == 0 {
		return c
	}
	dim := func(v uint8, emphasized bool) uint8 {
		if emphasized {
			return v
		}
		return uint8(uint16(v) * 7 / 8)
	}
	return color.RGBA{
		R: dim(c.R, bits&0x1 != 0),
		G: dim(c.G, bits&0x2 != 0),
		B: dim(c.B, bits&0x4 != 0),
		A: 255,
	}
}

// RGBA resolves a PPU frame buffer entry (palette index in bits 0-5,
// emphasis bits in 6-8) to a displayable color using pal, a 64-entry
// palette such as HardwarePalette or one loaded with LoadPalette.
func RGBA(pal color.Palette, entry uint16) color.RGBA {
	idx := entry & 0x3F
	emphasis := uint8((entry >> 6) & 0x07)
	base := pal[idx].(color.RGBA)
	return ApplyEmphasis(base, emphasis)
}

// RenderRGBA8888 converts a 256x240 palette-index frame buffer into
// interleaved RGBA8888 bytes, the layout ebiten's (*ebiten.Image).WritePixels
// expects.
func RenderRGBA8888(pal color.Palette, frame *[256 * 240]uint16, out []byte) {
	for i, entry := range frame {
		c := RGBA(pal, entry)
		out[i*4+0] = c.R
		out[i*4+1] = c.G
		out[i*4+2] = c.B
		out[i*4+3] = c.A
	}
}

// RenderRGB555 packs the frame buffer into 15-bit RGB555, one uint16 per
// pixel, for frontends that want a denser in-memory representation than
// RGBA8888 (e.g. a network streaming backend).
func RenderRGB555(pal color.Palette, frame *[256 * 240]uint16, out []uint16) {
	for i, entry := range frame {
		c := RGBA(pal, entry)
		r := uint16(c.R>>3) & 0x1F
		g := uint16(c.G>>3) & 0x1F
		b := uint16(c.B>>3) & 0x1F
		out[i] = r<<10 | g<<5 | b
	}
}

// Image builds a standard library image.Image from the frame buffer, for
// frontends that want to hand the frame to general-purpose image tooling
// (PNG/PPM encoders, diff tools) instead of drawing it directly.
func Image(pal color.Palette, frame *[256 * 240]uint16) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 256, 240))
	for i, entry := range frame {
		c := RGBA(pal, entry)
		img.SetRGBA(i%256, i/256, c)
	}
	return img
}

// DefaultPalette returns a fresh copy of the built-in NTSC master palette,
// safe for a caller to hold and mutate independently of HardwarePalette.
func DefaultPalette() color.Palette {
	pal := make(color.Palette, len(HardwarePalette))
	copy(pal, HardwarePalette)
	return pal
}

// LoadPalette reads a 64-entry raw RGB palette file (192 bytes: R,G,B per
// entry, the de facto .pal format shared by most NES emulators) and
// returns it as a color.Palette suitable for Machine.SetPalette.
func LoadPalette(r io.Reader) (color.Palette, error) {
	var raw [64 * 3]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("video: reading palette: %w", err)
	}
	pal := make(color.Palette, 64)
	for i := range pal {
		pal[i] = color.RGBA{R: raw[i*3], G: raw[i*3+1], B: raw[i*3+2], A: 255}
	}
	return pal, nil
}

// Scale resizes src to the given dimensions using nearest-neighbor
// interpolation, matching the blocky look real CRTs and most NES
// emulators' integer-scaled output have.
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
