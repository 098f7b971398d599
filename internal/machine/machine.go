// Package machine exposes the emulator core's host-facing API: a single
// synchronous facade over the bus/CPU/PPU/APU/cartridge that a frontend
// (the ebiten window, a headless test-ROM runner, or a future WASM host)
// drives one call at a time.
package machine

import (
	"bytes"
	"image/color"
	"io"

	"nesgo/internal/bus"
	"nesgo/internal/cartridge"
	"nesgo/internal/cpu"
	"nesgo/internal/input"
	"nesgo/internal/mixer"
	"nesgo/internal/region"
	"nesgo/internal/savestate"
	"nesgo/internal/video"
)

// FramebufferFormat selects the pixel encoding RenderBuffer produces.
type FramebufferFormat = video.Format

const (
	FormatPaletteIndex = video.FormatPaletteIndex
	FormatRGB555       = video.FormatRGB555
	FormatRGB888       = video.FormatRGB888
)

// StereoSample is one host-rate L/R output pair from RunFrame.
type StereoSample struct {
	Left, Right float32
}

// Machine is the host-facing emulator instance.
type Machine struct {
	bus     *bus.Bus
	cart    *cartridge.Cartridge
	format  FramebufferFormat
	palette color.Palette
}

// New constructs a Machine with no cartridge inserted. sampleRate is the
// host audio device's rate in Hz; the APU's internal resampler is set to
// produce samples at exactly that rate so RunFrame's output never needs
// further resampling downstream.
func New(format FramebufferFormat, region region.Region, sampleRate int) *Machine {
	m := &Machine{
		bus:     bus.New(timingFor(region)),
		format:  format,
		palette: video.DefaultPalette(),
	}
	m.bus.APU.SetSampleRate(sampleRate)
	return m
}

func timingFor(r region.Region) region.Timing { return region.For(r) }

// InsertCartridge loads a ROM image from raw bytes and performs a
// power-on reset with it attached.
func (m *Machine) InsertCartridge(romBytes []byte) error {
	cart, err := cartridge.LoadFromReader(bytes.NewReader(romBytes))
	if err != nil {
		return err
	}
	m.cart = cart
	m.bus.LoadCartridge(cart)
	return nil
}

// EjectCartridge drops the Machine's reference to the current cartridge,
// so SaveSnapshot reports no cartridge and RunFrame mixes no expansion
// audio. The bus keeps the previously inserted cartridge mapped until a
// new one is inserted, and no reset is performed.
func (m *Machine) EjectCartridge() {
	m.cart = nil
}

// Reset performs the requested reset kind.
func (m *Machine) Reset(kind cpu.ResetKind) {
	m.bus.CPU.Reset(kind)
}

// SetButton updates one button on one controller port.
func (m *Machine) SetButton(port int, button input.Button, pressed bool) {
	c := m.bus.Input.P1
	if port == 1 {
		c = m.bus.Input.P2
	}
	c.SetButton(button, pressed)
}

// ClockResult reports what happened during one ClockCPUCycle call.
type ClockResult struct {
	FrameAdvanced bool
	ApuClocked    bool
	OpcodeActive  bool
}

// ClockCPUCycle advances the machine by exactly one CPU bus cycle. audio
// selects whether the APU mixes a host-rate sample this cycle; pass false
// when fast-forwarding without needing sound.
func (m *Machine) ClockCPUCycle(audio bool) ClockResult {
	before := m.bus.PPU.FrameCount()
	apuClocked := m.bus.Tick(audio)
	return ClockResult{
		FrameAdvanced: m.bus.PPU.FrameCount() != before,
		ApuClocked:    apuClocked,
		OpcodeActive:  !m.bus.CPU.InstructionBoundary(),
	}
}

// RunFrame clocks the machine until the next frame boundary and returns the
// audio generated along the way as host-rate stereo sample pairs. audio
// selects whether the APU mixes samples at all; pass false for a headless
// run (e.g. a test-ROM harness) that has no use for sound.
func (m *Machine) RunFrame(audio bool) []StereoSample {
	m.bus.RunFrame(audio)
	if !audio {
		m.bus.APU.GetSamples()
		return nil
	}
	mono := mixer.Mix(m.bus.APU.GetSamples(), m.cart)
	stereo := make([]StereoSample, len(mono))
	for i, s := range mono {
		stereo[i] = StereoSample{Left: s, Right: s}
	}
	return stereo
}

// RenderBuffer returns the latest frame in the configured framebuffer
// format. FormatRGB888 yields four bytes per pixel (R, G, B, then an
// alpha byte of 255), not packed three-byte RGB.
func (m *Machine) RenderBuffer() []byte {
	fb := m.bus.PPU.FrameBuffer
	switch m.format {
	case FormatRGB888:
		out := make([]byte, 256*240*4)
		video.RenderRGBA8888(m.palette, &fb, out)
		return out
	case FormatRGB555:
		packed := make([]uint16, 256*240)
		video.RenderRGB555(m.palette, &fb, packed)
		out := make([]byte, len(packed)*2)
		for i, v := range packed {
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		}
		return out
	default:
		out := make([]byte, 256*240)
		for i, v := range fb {
			out[i] = byte(v)
		}
		return out
	}
}

// Palette returns the palette currently used to render frame buffers.
func (m *Machine) Palette() color.Palette { return m.palette }

// SetPalette installs a 64-entry palette in place of the built-in NTSC
// master palette, taking effect on the next RenderBuffer call.
func (m *Machine) SetPalette(p color.Palette) {
	if len(p) != 64 {
		return
	}
	m.palette = p
}

// LoadPaletteFile loads a raw 64-entry RGB palette (see video.LoadPalette)
// from r and installs it via SetPalette.
func (m *Machine) LoadPaletteFile(r io.Reader) error {
	pal, err := video.LoadPalette(r)
	if err != nil {
		return err
	}
	m.SetPalette(pal)
	return nil
}

// PeekCPUByte reads CPU address space without side effects where
// possible. The PPU/APU registers it touches are genuinely read-modify
// side-effecting on real hardware; peek still routes through them since
// there is no side-effect-free alternative, matching the documented
// behavior of most emulator debuggers.
func (m *Machine) PeekCPUByte(addr uint16) uint8 {
	return m.bus.Read(addr)
}

// PeekCPUSlice fills buf starting at base.
func (m *Machine) PeekCPUSlice(base uint16, buf []byte) {
	for i := range buf {
		buf[i] = m.bus.Read(base + uint16(i))
	}
}

// CPUSnapshot returns the current CPU register state.
func (m *Machine) CPUSnapshot() cpu.Snapshot { return m.bus.CPU.Snapshot() }

// SetCPUSnapshot restores CPU register state.
func (m *Machine) SetCPUSnapshot(s cpu.Snapshot) { m.bus.CPU.LoadSnapshot(s) }

// SaveSnapshot captures the full machine state as a savestate.State tree.
func (m *Machine) SaveSnapshot() (savestate.State, error) {
	if m.cart == nil {
		return savestate.State{}, &savestate.Error{Kind: savestate.ErrNoCartridge}
	}
	return savestate.State{
		FormatVersion: savestate.FormatVersion,
		MapperID:      m.cart.MapperID,
		ROMHash:       savestate.HashROM(m.cart),
		CPU:           m.bus.CPU.Snapshot(),
		PPU:           m.bus.PPU.Snapshot(),
		APU:           m.bus.APU.Snapshot(),
		RAM:           m.bus.RAM(),
		Mapper:        m.cart.Mapper.SaveState(),

		ControllerStrobe: m.bus.Input.StrobeState(),
	}, nil
}

// LoadSnapshot validates s against the currently-inserted cartridge and,
// if it matches, restores every sub-state.
func (m *Machine) LoadSnapshot(s savestate.State) error {
	if err := savestate.Validate(s, m.cart); err != nil {
		return err
	}
	m.bus.CPU.LoadSnapshot(s.CPU)
	m.bus.PPU.LoadSnapshot(s.PPU)
	m.bus.APU.LoadSnapshot(s.APU)
	m.bus.LoadRAM(s.RAM)
	m.cart.Mapper.LoadState(s.Mapper)
	m.bus.Input.SetStrobeState(s.ControllerStrobe)
	return nil
}

// TakeSerialOutput drains bytes emitted via the controller-port-1
// data-out pin under the blargg test-ROM convention.
func (m *Machine) TakeSerialOutput() []byte {
	return m.bus.Input.TakeSerialOutput()
}

// TestROMStatus reads the $6000 status-byte protocol used by blargg-style
// test ROMs: $80 is "running", $00 "pass", anything else a failure code.
// The accompanying message starting at $6004 is returned alongside it.
func (m *Machine) TestROMStatus() (status uint8, message string) {
	status = m.bus.Read(0x6000)
	if m.bus.Read(0x6001) != 0xDE || m.bus.Read(0x6002) != 0xB0 || m.bus.Read(0x6003) != 0x61 {
		return status, ""
	}
	var buf bytes.Buffer
	for addr := uint16(0x6004); addr < 0x7000; addr++ {
		b := m.bus.Read(addr)
		if b == 0 {
			break
		}
		buf.WriteByte(b)
	}
	return status, buf.String()
}

// Cartridge exposes the currently-inserted cartridge, or nil.
func (m *Machine) Cartridge() *cartridge.Cartridge { return m.cart }
