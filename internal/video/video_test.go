package video

import (
	"bytes"
	"image/color"
	"testing"
)

func TestRGBAUsesSuppliedPalette(t *testing.T) {
	custom := color.Palette{color.RGBA{1, 2, 3, 255}}
	for i := 1; i < 64; i++ {
		custom = append(custom, color.RGBA{0, 0, 0, 255})
	}
	got := RGBA(custom, 0)
	if got != (color.RGBA{1, 2, 3, 255}) {
		t.Fatalf("RGBA(custom, 0) = %+v, want the custom palette's entry 0", got)
	}
}

func TestDefaultPaletteIsIndependentCopy(t *testing.T) {
	pal := DefaultPalette()
	pal[0] = color.RGBA{9, 9, 9, 255}
	if HardwarePalette[0] == (color.RGBA{9, 9, 9, 255}) {
		t.Fatal("mutating DefaultPalette() leaked into HardwarePalette")
	}
}

func TestLoadPaletteParsesRawRGBTriples(t *testing.T) {
	var raw [64 * 3]byte
	raw[0], raw[1], raw[2] = 10, 20, 30 // entry 0
	raw[3], raw[4], raw[5] = 40, 50, 60 // entry 1

	pal, err := LoadPalette(bytes.NewReader(raw[:]))
	if err != nil {
		t.Fatalf("LoadPalette: %v", err)
	}
	if len(pal) != 64 {
		t.Fatalf("len(pal) = %d, want 64", len(pal))
	}
	if pal[0] != (color.RGBA{10, 20, 30, 255}) {
		t.Fatalf("pal[0] = %+v, want {10 20 30 255}", pal[0])
	}
	if pal[1] != (color.RGBA{40, 50, 60, 255}) {
		t.Fatalf("pal[1] = %+v, want {40 50 60 255}", pal[1])
	}
}

func TestLoadPaletteRejectsShortInput(t *testing.T) {
	if _, err := LoadPalette(bytes.NewReader(make([]byte, 10))); err == nil {
		t.Fatal("expected an error for a too-short palette file")
	}
}

func TestRenderRGBA8888WritesInterleavedBytes(t *testing.T) {
	var frame [256 * 240]uint16
	frame[0] = 0x00 // palette index 0, no emphasis

	out := make([]byte, 256*240*4)
	RenderRGBA8888(HardwarePalette, &frame, out)

	want := RGBA(HardwarePalette, 0)
	if out[0] != want.R || out[1] != want.G || out[2] != want.B || out[3] != want.A {
		t.Fatalf("out[0:4] = %v, want %+v", out[0:4], want)
	}
}

func TestApplyEmphasisDimsNonEmphasizedChannels(t *testing.T) {
	c := color.RGBA{200, 200, 200, 255}
	dimmed := ApplyEmphasis(c, 0x1) // emphasize red only
	if dimmed.R != 200 {
		t.Fatalf("emphasized channel R = %d, want unchanged 200", dimmed.R)
	}
	if dimmed.G != 175 || dimmed.B != 175 {
		t.Fatalf("non-emphasized channels = %d,%d, want 175,175", dimmed.G, dimmed.B)
	}
}
