// Package cpu implements a cycle-accurate 6502 variant as used in the
// NES/Famicom (no decimal mode, identical otherwise). Execution is a
// coroutine-style state machine: Step advances exactly one CPU bus cycle,
// consuming one micro-op from a queue built when the opcode was fetched.
// This mirrors how the hardware itself works -- every cycle is one bus
// access -- without needing language-level coroutines.
package cpu

// Bus is the CPU's view of the rest of the machine. Every call models one
// real bus cycle: the caller is expected to drive the PPU by three dots
// and the APU by one tick before the access completes, and to sample the
// NMI/IRQ lines afterward. See the bus package for that wiring.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

const (
	stackBase = 0x0100

	nFlagMask      = 0x80
	vFlagMask      = 0x40
	unusedFlagMask = 0x20
	bFlagMask      = 0x10
	dFlagMask      = 0x08
	iFlagMask      = 0x04
	zFlagMask      = 0x02
	cFlagMask      = 0x01

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// ResetKind distinguishes a cold boot from a console reset button press.
type ResetKind uint8

const (
	PowerOn ResetKind = iota
	Soft
)

// microOp performs exactly one bus cycle of work and reports whether the
// instruction/sequence is finished after it runs.
type microOp func(c *CPU) (done bool)

// seqKind records what's currently occupying the micro-op queue.
type seqKind uint8

const (
	seqNone seqKind = iota
	seqInstruction
	seqNMI
	seqIRQ
	seqBRK
)

// CPU is the 6502-derived processor core.
type CPU struct {
	A, X, Y uint8
	S       uint8
	PC      uint16

	// Status flags kept as individual bools for readable instruction
	// bodies; GetStatusByte/SetStatusByte pack and unpack them for stack
	// pushes, snapshots and test-ROM inspection. B is not a stored flag on
	// real hardware -- it's only the value pushed by BRK/PHP versus a
	// hardware interrupt -- so there is no field for it here.
	N, V, D, I, Z, C bool

	bus Bus

	// In-flight instruction/interrupt-sequence state.
	opcode uint8
	seq    seqKind
	queue  [10]microOp
	qlen   int
	qpos   int

	effectiveAddr uint16
	baseAddr      uint16
	tmp           uint8
	pageCrossed   bool

	// Interrupt lines and latches.
	nmiLine     bool
	nmiPrevLine bool
	nmiLatched  bool
	irqLine     bool
	irqSampled  bool // level sampled at the end of the previous cycle

	oamDMA   oamDMAState
	dmcStall int // cycles DMC DMA must steal before the CPU may continue

	cycles uint64
}

type oamDMAState struct {
	active    bool
	page      uint8
	offset    uint16
	dummyLeft uint8
	readPhase bool
	latch     uint8
}

// New creates a CPU wired to the given bus. Call Reset before stepping.
func New(bus Bus) *CPU {
	return &CPU{bus: bus, S: 0xFD}
}

// SetBus rebinds the CPU to a different bus implementation, used when the
// owning Machine reconstructs its bus view after loading a snapshot.
func (c *CPU) SetBus(bus Bus) { c.bus = bus }

// GetStatusByte packs the flags into the classic NV1BDIZC layout. The
// unused bit (5) always reads as 1; B reads as 0 here (it is only ever 1
// in the byte actually pushed to the stack by BRK/PHP).
func (c *CPU) GetStatusByte() uint8 {
	var s uint8
	if c.N {
		s |= nFlagMask
	}
	if c.V {
		s |= vFlagMask
	}
	s |= unusedFlagMask
	if c.D {
		s |= dFlagMask
	}
	if c.I {
		s |= iFlagMask
	}
	if c.Z {
		s |= zFlagMask
	}
	if c.C {
		s |= cFlagMask
	}
	return s
}

// SetStatusByte unpacks a status byte into the flag fields.
func (c *CPU) SetStatusByte(s uint8) {
	c.N = s&nFlagMask != 0
	c.V = s&vFlagMask != 0
	c.D = s&dFlagMask != 0
	c.I = s&iFlagMask != 0
	c.Z = s&zFlagMask != 0
	c.C = s&cFlagMask != 0
}

func (c *CPU) setZN(v uint8) {
	c.Z = v == 0
	c.N = v&0x80 != 0
}

// Reset applies power-on or soft-reset semantics. Both read the reset
// vector; only PowerOn clears registers to their documented power-up
// values. Soft reset decrements S by 3 (as if three bytes were "pushed"
// with the writes suppressed) and sets I, but otherwise preserves CPU
// state, including RAM contents it does not itself touch.
func (c *CPU) Reset(kind ResetKind) {
	if kind == PowerOn {
		c.A, c.X, c.Y = 0, 0, 0
		c.S = 0xFD
		c.N, c.V, c.D, c.Z, c.C = false, false, false, false, false
	} else {
		c.S -= 3
	}
	c.I = true
	c.qlen, c.qpos = 0, 0
	c.seq = seqNone
	c.nmiLatched = false
	c.nmiLine, c.nmiPrevLine = false, false
	c.irqLine, c.irqSampled = false, false
	c.oamDMA = oamDMAState{}
	c.dmcStall = 0

	for i := 0; i < 5; i++ {
		c.bus.Read(c.PC)
		c.cycles++
	}
	lo := uint16(c.bus.Read(resetVector))
	hi := uint16(c.bus.Read(resetVector + 1))
	c.PC = hi<<8 | lo
	c.cycles += 2
}

// SetNMILine updates the level-triggered NMI input. NMI is serviced on
// the rising edge of (Status.bit7 && Control.bit7), which the PPU
// presents to the CPU as a level; the edge is latched here and stays
// pending until serviced.
func (c *CPU) SetNMILine(level bool) {
	if level && !c.nmiPrevLine {
		c.nmiLatched = true
	}
	c.nmiPrevLine = level
	c.nmiLine = level
}

// SetIRQLine updates the level-triggered IRQ input -- the logical OR of
// the APU frame counter, DMC, and mapper IRQ sources.
func (c *CPU) SetIRQLine(level bool) {
	c.irqLine = level
}

// SampleInterrupts latches the current IRQ level for the "previous cycle"
// sample that instruction-boundary logic consults. The bus calls this
// once per CPU cycle, after routing the access, as the end-cycle
// half-tick.
func (c *CPU) SampleInterrupts() {
	c.irqSampled = c.irqLine
}

// RequestDMCStall tells the CPU that DMC DMA needs the given number of
// cycles on the bus before other activity may continue. The CPU's
// micro-step index is preserved across the stall.
func (c *CPU) RequestDMCStall(cycles int) {
	c.dmcStall += cycles
}

// StartOAMDMA begins an OAM DMA transfer from page*$100. The transfer
// occupies 513 CPU cycles normally, 514 if it starts on an odd CPU cycle
// (one extra alignment dummy cycle).
func (c *CPU) StartOAMDMA(page uint8, oddCycle bool) {
	c.oamDMA = oamDMAState{
		active:    true,
		page:      page,
		dummyLeft: 1 + boolToU8(oddCycle),
		readPhase: true,
	}
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// OAMDMAActive reports whether an OAM DMA transfer is currently consuming
// CPU bus cycles.
func (c *CPU) OAMDMAActive() bool { return c.oamDMA.active }

// Cycles returns the total number of CPU bus cycles executed since reset.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Step advances the CPU by exactly one bus cycle: a DMC stall cycle, one
// OAM DMA transfer cycle, one micro-op of the in-flight instruction or
// interrupt sequence, or the fetch of a new opcode.
func (c *CPU) Step() {
	c.cycles++

	if c.dmcStall > 0 {
		c.dmcStall--
		c.bus.Read(c.PC) // dummy read; the bus stall is transparent to state
		return
	}

	if c.oamDMA.active {
		c.stepOAMDMA()
		return
	}

	if c.qpos < c.qlen {
		op := c.queue[c.qpos]
		c.qpos++
		if op(c) {
			c.finishSequence()
		}
		return
	}

	c.fetchNext()
}

func (c *CPU) stepOAMDMA() {
	d := &c.oamDMA
	if d.dummyLeft > 0 {
		c.bus.Read(c.PC)
		d.dummyLeft--
		return
	}
	if d.readPhase {
		d.latch = c.bus.Read(uint16(d.page)<<8 | d.offset)
	} else {
		c.bus.Write(0x2004, d.latch)
		d.offset++
		if d.offset > 0xFF {
			*d = oamDMAState{}
			return
		}
	}
	d.readPhase = !d.readPhase
}

// finishSequence is called once the in-flight instruction or interrupt
// sequence's final micro-op has run. It decides what the next Step should
// do: service a newly/still-pending interrupt, or fall through to an
// ordinary opcode fetch.
func (c *CPU) finishSequence() {
	c.seq = seqNone
	if c.nmiLatched {
		c.nmiLatched = false
		c.beginNMI()
		return
	}
	if c.irqSampled && !c.I {
		c.beginIRQ(false)
	}
}

// fetchNext fetches the next opcode, or begins an interrupt sequence if
// one is latched, building the micro-op queue for whichever runs. Because
// interrupts are only taken between instructions, this is the only other
// place (besides finishSequence) that starts one.
func (c *CPU) fetchNext() {
	if c.nmiLatched {
		c.nmiLatched = false
		c.beginNMI()
		return
	}
	if c.irqSampled && !c.I {
		c.beginIRQ(false)
		return
	}

	c.opcode = c.bus.Read(c.PC)
	c.PC++
	c.buildInstruction(c.opcode)
}

func (c *CPU) beginNMI() {
	c.seq = seqNMI
	c.qpos, c.qlen = 0, 0
	c.enqueue(
		func(c *CPU) bool { c.bus.Read(c.PC); return false },
		func(c *CPU) bool { c.push(uint8(c.PC >> 8)); return false },
		func(c *CPU) bool { c.push(uint8(c.PC)); return false },
		func(c *CPU) bool {
			c.push(c.GetStatusByte() &^ bFlagMask)
			c.I = true
			return false
		},
		func(c *CPU) bool { c.tmp = c.bus.Read(nmiVector); return false },
		func(c *CPU) bool {
			hi := c.bus.Read(nmiVector + 1)
			c.PC = uint16(hi)<<8 | uint16(c.tmp)
			return true
		},
	)
}

// beginIRQ starts a 7-cycle interrupt sequence for BRK (fromBRK) or a
// hardware IRQ. The two differ only in whether the first two cycles read
// (and discard) the instruction stream versus a padding byte, and in the
// B flag pushed to the stack. A hardware NMI racing on the vector-fetch
// cycle wins and redirects to the NMI vector, matching hardware.
func (c *CPU) beginIRQ(fromBRK bool) {
	if fromBRK {
		c.seq = seqBRK
	} else {
		c.seq = seqIRQ
	}
	c.qpos, c.qlen = 0, 0
	bFlag := uint8(0)
	if fromBRK {
		bFlag = bFlagMask
	}
	c.enqueue(
		func(c *CPU) bool { c.bus.Read(c.PC); return false },
		func(c *CPU) bool { c.push(uint8(c.PC >> 8)); return false },
		func(c *CPU) bool { c.push(uint8(c.PC)); return false },
		func(c *CPU) bool {
			c.push((c.GetStatusByte() &^ bFlagMask) | bFlag)
			c.I = true
			return false
		},
		func(c *CPU) bool {
			if c.nmiLatched {
				c.nmiLatched = false
				c.seq = seqNMI
				c.tmp = c.bus.Read(nmiVector)
				return false
			}
			c.tmp = c.bus.Read(irqVector)
			return false
		},
		func(c *CPU) bool {
			vecHi := uint16(irqVector + 1)
			if c.seq == seqNMI {
				vecHi = nmiVector + 1
			}
			hi := c.bus.Read(vecHi)
			c.PC = uint16(hi)<<8 | uint16(c.tmp)
			return true
		},
	)
}

func (c *CPU) enqueue(ops ...microOp) {
	for _, op := range ops {
		c.queue[c.qlen] = op
		c.qlen++
	}
}

func (c *CPU) push(v uint8) {
	c.bus.Write(stackBase+uint16(c.S), v)
	c.S--
}

func (c *CPU) pop() uint8 {
	c.S++
	return c.bus.Read(stackBase + uint16(c.S))
}

// Snapshot is the serializable CPU register state used by save-states and
// by the host's register-introspection API.
type Snapshot struct {
	A, X, Y, S uint8
	PC         uint16
	P          uint8
	Cycles     uint64
}

func (c *CPU) Snapshot() Snapshot {
	return Snapshot{A: c.A, X: c.X, Y: c.Y, S: c.S, PC: c.PC, P: c.GetStatusByte(), Cycles: c.cycles}
}

func (c *CPU) LoadSnapshot(s Snapshot) {
	c.A, c.X, c.Y, c.S, c.PC = s.A, s.X, s.Y, s.S, s.PC
	c.SetStatusByte(s.P)
	c.cycles = s.Cycles
	c.qlen, c.qpos = 0, 0
	c.seq = seqNone
}

// InstructionBoundary reports whether the CPU is between instructions --
// the only safe point for a save-state capture per the concurrency model.
func (c *CPU) InstructionBoundary() bool {
	return c.qpos >= c.qlen && !c.oamDMA.active && c.dmcStall == 0
}
