// Package bus wires the CPU, PPU, APU, cartridge and controller ports
// together into the shared clock that drives them. It owns the CPU-visible
// $0000-$FFFF memory map and implements cpu.Bus so the CPU package never
// needs to know about any of the other components directly.
package bus

import (
	"nesgo/internal/apu"
	"nesgo/internal/cartridge"
	"nesgo/internal/cpu"
	"nesgo/internal/input"
	"nesgo/internal/memory"
	"nesgo/internal/openbus"
	"nesgo/internal/ppu"
	"nesgo/internal/region"
)

// Bus is the machine's shared clock and CPU memory map.
type Bus struct {
	CPU   *cpu.CPU
	PPU   *ppu.PPU
	APU   *apu.APU
	Input *input.Ports

	ram memory.RAM

	cart *cartridge.Cartridge

	timing region.Timing

	// cpuOpenBus is the CPU-side data-bus latch: reads from unmapped or
	// write-only addresses return whatever it last held, decaying bit by
	// bit the same way the PPU's own latch does.
	cpuOpenBus openbus.Latch

	// palCycleCounter tracks position in the 5-CPU-cycle/16-PPU-dot PAL
	// repeating pattern (3,3,3,3,4) that approximates the true 3.2
	// dots-per-cycle ratio without floating point.
	palCycleCounter uint8
}

// New builds a bus with no cartridge inserted. Insert one with
// LoadCartridge before running the CPU.
func New(timing region.Timing) *Bus {
	b := &Bus{
		PPU:    ppu.New(timing),
		APU:    apu.New(),
		Input:  input.NewPorts(),
		timing: timing,
	}
	b.CPU = cpu.New(b)
	b.APU.ReadCPUMemory = b.Read
	b.APU.RequestStall = b.CPU.RequestDMCStall
	return b
}

// LoadCartridge inserts a cartridge and resets the machine to power-on
// state with it attached.
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.cart = cart
	b.PPU.SetMapper(cart.Mapper)
	b.Reset()
}

// Cartridge returns the currently-inserted cartridge, or nil.
func (b *Bus) Cartridge() *cartridge.Cartridge { return b.cart }

// RAM returns a copy of the CPU work RAM for save-state capture.
func (b *Bus) RAM() memory.RAM { return b.ram }

// LoadRAM restores the CPU work RAM from a save state.
func (b *Bus) LoadRAM(r memory.RAM) { b.ram = r }

// Reset performs a power-on reset of every owned component and reloads the
// CPU's program counter from the reset vector.
func (b *Bus) Reset() {
	b.ram.Clear()
	b.Input.Reset()
	b.PPU.Reset()
	b.APU.Reset()
	b.cpuOpenBus.Reset()
	if b.CPU != nil {
		b.CPU.Reset(cpu.PowerOn)
	}
}

// Read implements cpu.Bus. It also backs DMC sample fetches: only PRG
// space is a legal DMC sample source, so routing it through the ordinary
// memory map is correct and keeps the APU ignorant of the rest of the
// machine.
func (b *Bus) Read(addr uint16) uint8 {
	var v uint8
	switch {
	case addr < 0x2000:
		v = b.ram.Read(addr)
	case addr < 0x4000:
		v = b.PPU.ReadRegister(0x2000 + addr&7)
	case addr == 0x4015:
		v = b.APU.ReadStatus()
	case addr == 0x4016:
		v = b.Input.Read(0) | (b.cpuOpenBus.Peek() & 0xE0)
	case addr == 0x4017:
		v = b.Input.Read(1) | (b.cpuOpenBus.Peek() & 0xE0)
	case addr < 0x4018:
		v = b.cpuOpenBus.Peek()
	default:
		if b.cart != nil {
			if rv, ok := b.cart.Mapper.CPURead(addr); ok {
				v = rv
			} else {
				v = b.cpuOpenBus.Peek()
			}
		}
	}
	b.cpuOpenBus.Refresh(v)
	return v
}

// Write implements cpu.Bus.
func (b *Bus) Write(addr uint16, value uint8) {
	b.cpuOpenBus.Refresh(value)
	switch {
	case addr < 0x2000:
		b.ram.Write(addr, value)
	case addr < 0x4000:
		b.PPU.WriteRegister(0x2000+addr&7, value)
	case addr == 0x4014:
		b.CPU.StartOAMDMA(value, b.CPU.Cycles()%2 == 1)
	case addr == 0x4016:
		b.Input.Write(value)
	case addr >= 0x4000 && addr <= 0x4013, addr == 0x4015, addr == 0x4017:
		b.APU.WriteRegister(addr, value)
	default:
		if b.cart != nil {
			b.cart.Mapper.CPUWrite(addr, value)
		}
	}
}

// Tick advances the whole machine by exactly one CPU bus cycle: the PPU
// dots owed for this cycle, one APU tick, the CPU's own cycle, then
// interrupt sampling. This ordering matches the real hardware's per-cycle
// interleaving closely enough for every documented mid-instruction
// interrupt-timing test. audio controls whether the APU mixes a host-rate
// sample this cycle; it reports whether one was produced.
func (b *Bus) Tick(audio bool) bool {
	for i := 0; i < b.dotsThisCycle(); i++ {
		b.PPU.Step()
	}
	b.PPU.TickOpenBus()
	b.cpuOpenBus.Tick()
	apuClocked := b.APU.Step(audio)
	if b.cart != nil {
		if exp, ok := b.cart.Mapper.AsExpansionAudio(); ok {
			exp.ClockAudio()
		}
	}
	b.CPU.Step()
	b.CPU.SetIRQLine(b.irqLine())
	b.CPU.SetNMILine(b.PPU.NMILine())
	b.CPU.SampleInterrupts()
	return apuClocked
}

// dotsThisCycle returns how many PPU dots this CPU cycle advances. NTSC and
// Dendy are a flat 3; PAL cycles through 3,3,3,3,4 so five CPU cycles
// advance 16 dots, matching its true 3.2 dots/cycle ratio.
func (b *Bus) dotsThisCycle() int {
	if !b.timing.PalFraction {
		return b.timing.DotsPerCPUCycle
	}
	dots := 3
	if b.palCycleCounter == 4 {
		dots = 4
	}
	b.palCycleCounter++
	if b.palCycleCounter == 5 {
		b.palCycleCounter = 0
	}
	return dots
}

// irqLine is the logical OR of every IRQ source the CPU's single level
// input needs to see: the APU frame/DMC IRQs and the cartridge mapper's
// own IRQ line (MMC3/MMC5 scanline counters).
func (b *Bus) irqLine() bool {
	if b.APU.IRQLine() {
		return true
	}
	if b.cart != nil && b.cart.Mapper.IRQPending() {
		return true
	}
	return false
}

// RunFrame clocks the machine until one full PPU frame has completed.
func (b *Bus) RunFrame(audio bool) {
	start := b.PPU.FrameCount()
	for b.PPU.FrameCount() == start {
		b.Tick(audio)
	}
}
