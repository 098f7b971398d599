// Package apu implements the NES's five-channel Audio Processing Unit: two
// pulse generators, a triangle, noise, and the delta-modulation (DMC)
// sample channel, driven by a shared frame counter. Channel-specific
// register handling lives in pulse.go, triangle.go, noise.go and dmc.go;
// this file owns the parts that tie them together.
package apu

// APU is the NES's audio processing unit.
type APU struct {
	pulse1   PulseChannel
	pulse2   PulseChannel
	triangle TriangleChannel
	noise    NoiseChannel
	dmc      DMCChannel

	frameCounter     uint16
	frameMode        bool // false = 4-step, true = 5-step
	frameIRQEnable   bool
	frameCounterStep uint8
	frameIRQFlag     bool

	channelEnable [5]bool // pulse1, pulse2, triangle, noise, dmc

	sampleBuffer     []float32
	sampleRate       int
	cpuFrequency     float64
	cycleAccumulator float64

	cycles uint64

	// ReadCPUMemory fetches one DMC sample byte from CPU address space.
	// The bus wires this to its own Read so the DMC channel can pull
	// samples directly from PRG-ROM/RAM without the APU knowing about
	// the rest of the memory map.
	ReadCPUMemory func(addr uint16) uint8
	// RequestStall tells the owning CPU to burn the given number of
	// cycles for the DMC sample fetch, mirroring real hardware's DMA
	// theft of the bus.
	RequestStall func(cycles int)
}

// envelope is the shared decay-based volume generator the pulse and noise
// channels each embed, clocked on the frame counter's quarter-frame beat.
// The triangle channel has no envelope; it uses a linear counter instead.
type envelope struct {
	start   bool
	decay   uint8
	divider uint8
}

// clock advances the envelope by one quarter-frame tick. period doubles as
// both the constant-volume value and the envelope divider's reload period,
// since both are driven by the same four control-register bits.
func (e *envelope) clock(loop bool, period uint8) {
	switch {
	case e.start:
		e.start = false
		e.decay = 15
		e.divider = period
	case e.divider == 0:
		e.divider = period
		if e.decay > 0 {
			e.decay--
		} else if loop {
			e.decay = 15
		}
	default:
		e.divider--
	}
}

// output returns the constant volume when envelope generation is disabled,
// otherwise the current decay level.
func (e *envelope) output(constantVolume bool, period uint8) uint8 {
	if constantVolume {
		return period
	}
	return e.decay
}

// clockLength decrements a channel's length counter unless it is halted or
// already at zero. Pulse, triangle and noise all share this rule.
func clockLength(counter *uint8, halted bool) {
	if !halted && *counter > 0 {
		*counter--
	}
}

// lengthTable maps a 5-bit length-load field to the number of frame-counter
// half-frame ticks the channel keeps playing.
var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6,
	160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 8, 48, 6, 96, 4,
	192, 2, 72, 16, 28, 32, 52, 2,
}

// New creates an APU at power-on, defaulting to a 44.1kHz output rate; call
// SetSampleRate to match a host audio device running at a different rate.
func New() *APU {
	a := &APU{
		sampleBuffer:   make([]float32, 0, 4096),
		sampleRate:     44100,
		cpuFrequency:   1789773.0, // NTSC CPU frequency
		frameIRQEnable: true,
	}
	a.noise.shiftRegister = 1
	return a
}

// Reset restores power-on state without disturbing the configured sample
// rate or the DMC's CPU-memory callbacks.
func (a *APU) Reset() {
	a.pulse1 = PulseChannel{}
	a.pulse2 = PulseChannel{}
	a.triangle = TriangleChannel{}
	a.noise = NoiseChannel{shiftRegister: 1}
	a.dmc = DMCChannel{}

	a.frameCounter = 0
	a.frameCounterStep = 0
	a.frameMode = false
	a.frameIRQEnable = true
	a.frameIRQFlag = false

	for i := range a.channelEnable {
		a.channelEnable[i] = false
	}

	a.cycles = 0
	a.cycleAccumulator = 0
	a.sampleBuffer = a.sampleBuffer[:0]
}

// Snapshot is the serializable subset of APU state for save states: every
// channel struct plus frame-counter/enable state. Audio buffers and the
// DMC/stall callbacks are runtime-only and are not part of it.
type Snapshot struct {
	Pulse1, Pulse2   PulseChannel
	Triangle         TriangleChannel
	Noise            NoiseChannel
	DMC              DMCChannel
	FrameCounter     uint16
	FrameMode        bool
	FrameIRQEnable   bool
	FrameCounterStep uint8
	FrameIRQFlag     bool
	ChannelEnable    [5]bool
	Cycles           uint64
}

func (a *APU) Snapshot() Snapshot {
	return Snapshot{
		Pulse1:           a.pulse1,
		Pulse2:           a.pulse2,
		Triangle:         a.triangle,
		Noise:            a.noise,
		DMC:              a.dmc,
		FrameCounter:     a.frameCounter,
		FrameMode:        a.frameMode,
		FrameIRQEnable:   a.frameIRQEnable,
		FrameCounterStep: a.frameCounterStep,
		FrameIRQFlag:     a.frameIRQFlag,
		ChannelEnable:    a.channelEnable,
		Cycles:           a.cycles,
	}
}

func (a *APU) LoadSnapshot(s Snapshot) {
	a.pulse1 = s.Pulse1
	a.pulse2 = s.Pulse2
	a.triangle = s.Triangle
	a.noise = s.Noise
	a.dmc = s.DMC
	a.frameCounter = s.FrameCounter
	a.frameMode = s.FrameMode
	a.frameIRQEnable = s.FrameIRQEnable
	a.frameCounterStep = s.FrameCounterStep
	a.frameIRQFlag = s.FrameIRQFlag
	a.channelEnable = s.ChannelEnable
	a.cycles = s.Cycles
}

// Step advances every channel's timer and the frame counter by one CPU
// cycle. generateAudio controls only whether a host-rate sample is mixed
// and buffered this cycle -- callers that are fast-forwarding without
// needing sound (e.g. frame-skipping) still get correct channel/length/
// envelope timing by passing false, since test-ROM IRQ and length-counter
// behavior must not depend on whether audio output is wanted. It reports
// whether a sample was actually appended to the buffer this cycle.
func (a *APU) Step(generateAudio bool) bool {
	a.cycles++
	a.stepFrameCounter()
	a.stepChannelTimers()
	if !generateAudio {
		return false
	}
	return a.generateSample()
}

func (a *APU) stepFrameCounter() {
	a.frameCounter++

	if a.frameMode {
		switch a.frameCounter {
		case 7457:
			a.clockEnvelopeAndLinear()
		case 14913:
			a.clockEnvelopeAndLinear()
			a.clockLengthAndSweep()
		case 22371:
			a.clockEnvelopeAndLinear()
		case 37281:
			a.clockEnvelopeAndLinear()
			a.clockLengthAndSweep()
			a.frameCounter = 0
			a.frameCounterStep = 0
		}
		return
	}

	switch a.frameCounter {
	case 7457:
		a.clockEnvelopeAndLinear()
	case 14913:
		a.clockEnvelopeAndLinear()
		a.clockLengthAndSweep()
	case 22371:
		a.clockEnvelopeAndLinear()
	case 29829:
		a.clockEnvelopeAndLinear()
		a.clockLengthAndSweep()
	case 29830:
		if a.frameIRQEnable {
			a.frameIRQFlag = true
		}
		a.frameCounter = 0
		a.frameCounterStep = 0
	}
}

func (a *APU) clockEnvelopeAndLinear() {
	a.pulse1.envelope.clock(a.pulse1.lengthHalt, a.pulse1.volume)
	a.pulse2.envelope.clock(a.pulse2.lengthHalt, a.pulse2.volume)
	a.noise.envelope.clock(a.noise.lengthHalt, a.noise.volume)
	a.clockTriangleLinear(&a.triangle)
}

func (a *APU) clockLengthAndSweep() {
	clockLength(&a.pulse1.lengthCounter, a.pulse1.lengthHalt)
	a.clockPulseSweep(&a.pulse1, true)
	clockLength(&a.pulse2.lengthCounter, a.pulse2.lengthHalt)
	a.clockPulseSweep(&a.pulse2, false)
	clockLength(&a.triangle.lengthCounter, a.triangle.lengthCounterHalt)
	clockLength(&a.noise.lengthCounter, a.noise.lengthHalt)
}

func (a *APU) stepChannelTimers() {
	if a.channelEnable[0] {
		a.stepPulseTimer(&a.pulse1)
	}
	if a.channelEnable[1] {
		a.stepPulseTimer(&a.pulse2)
	}
	if a.channelEnable[2] {
		a.stepTriangleTimer(&a.triangle)
	}
	if a.channelEnable[3] {
		a.stepNoiseTimer(&a.noise)
	}
	if a.channelEnable[4] {
		a.stepDMCTimer(&a.dmc)
	}
}

// generateSample accumulates fractional cycles at the configured output
// rate and, once a full sample period has elapsed, mixes and buffers one
// sample. Returns whether a sample was produced this call.
func (a *APU) generateSample() bool {
	a.cycleAccumulator += float64(a.sampleRate) / a.cpuFrequency
	if a.cycleAccumulator < 1.0 {
		return false
	}
	a.cycleAccumulator -= 1.0

	sample := a.mixChannels(
		a.getPulseOutput(&a.pulse1),
		a.getPulseOutput(&a.pulse2),
		a.getTriangleOutput(&a.triangle),
		a.getNoiseOutput(&a.noise),
		a.dmc.outputLevel,
	)
	a.sampleBuffer = append(a.sampleBuffer, sample)
	return true
}

// mixChannels applies the NES's nonlinear DAC mixing formula, documented at
// nesdev.org, to produce a single -1..1 sample from the five raw channel
// outputs.
func (a *APU) mixChannels(pulse1, pulse2, triangle, noise, dmc uint8) float32 {
	pulseSum := float64(pulse1 + pulse2)
	var pulseOut float64
	if pulseSum != 0 {
		pulseOut = 95.88 / ((8128.0 / pulseSum) + 100.0)
	}

	tndSum := (float64(triangle) / 8227.0) + (float64(noise) / 12241.0) + (float64(dmc) / 22638.0)
	var tndOut float64
	if tndSum != 0 {
		tndOut = 159.79 / ((1.0 / tndSum) + 100.0)
	}

	return float32((pulseOut+tndOut)/30.0 - 1.0)
}

// WriteRegister dispatches a CPU write to the matching channel or control
// register.
func (a *APU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x4000:
		a.writePulseControl(&a.pulse1, value)
	case 0x4001:
		a.writePulseSweep(&a.pulse1, value)
	case 0x4002:
		a.writePulseTimerLow(&a.pulse1, value)
	case 0x4003:
		a.writePulseTimerHigh(&a.pulse1, value)

	case 0x4004:
		a.writePulseControl(&a.pulse2, value)
	case 0x4005:
		a.writePulseSweep(&a.pulse2, value)
	case 0x4006:
		a.writePulseTimerLow(&a.pulse2, value)
	case 0x4007:
		a.writePulseTimerHigh(&a.pulse2, value)

	case 0x4008:
		a.writeTriangleControl(value)
	case 0x400A:
		a.writeTriangleTimerLow(value)
	case 0x400B:
		a.writeTriangleTimerHigh(value)

	case 0x400C:
		a.writeNoiseControl(value)
	case 0x400E:
		a.writeNoisePeriod(value)
	case 0x400F:
		a.writeNoiseLength(value)

	case 0x4010:
		a.writeDMCControl(value)
	case 0x4011:
		a.writeDMCDirectLoad(value)
	case 0x4012:
		a.writeDMCSampleAddress(value)
	case 0x4013:
		a.writeDMCSampleLength(value)

	case 0x4015:
		a.writeChannelEnable(value)
	case 0x4017:
		a.writeFrameCounter(value)
	}
}

// GetSamples drains and returns every sample buffered since the last call.
func (a *APU) GetSamples() []float32 {
	samples := make([]float32, len(a.sampleBuffer))
	copy(samples, a.sampleBuffer)
	a.sampleBuffer = a.sampleBuffer[:0]
	return samples
}

// ReadStatus services $4015: per-channel active flags plus both IRQ flags.
// Reading it clears the frame IRQ flag.
func (a *APU) ReadStatus() uint8 {
	var status uint8
	if a.pulse1.lengthCounter > 0 {
		status |= 0x01
	}
	if a.pulse2.lengthCounter > 0 {
		status |= 0x02
	}
	if a.triangle.lengthCounter > 0 {
		status |= 0x04
	}
	if a.noise.lengthCounter > 0 {
		status |= 0x08
	}
	if a.dmc.bytesRemaining > 0 {
		status |= 0x10
	}
	if a.frameIRQFlag {
		status |= 0x40
	}
	if a.dmc.irqFlag {
		status |= 0x80
	}
	a.frameIRQFlag = false
	return status
}

// writeChannelEnable services $4015: enabling/disabling channels and
// restarting the DMC sample fetch.
func (a *APU) writeChannelEnable(value uint8) {
	a.channelEnable[0] = value&0x01 != 0
	a.channelEnable[1] = value&0x02 != 0
	a.channelEnable[2] = value&0x04 != 0
	a.channelEnable[3] = value&0x08 != 0
	a.channelEnable[4] = value&0x10 != 0

	if !a.channelEnable[0] {
		a.pulse1.lengthCounter = 0
	}
	if !a.channelEnable[1] {
		a.pulse2.lengthCounter = 0
	}
	if !a.channelEnable[2] {
		a.triangle.lengthCounter = 0
	}
	if !a.channelEnable[3] {
		a.noise.lengthCounter = 0
	}
	if !a.channelEnable[4] {
		a.dmc.bytesRemaining = 0
	} else if a.dmc.bytesRemaining == 0 {
		a.dmc.currentAddress = a.dmc.sampleAddress
		a.dmc.bytesRemaining = a.dmc.sampleLength
	}
	a.dmc.irqFlag = false
}

// writeFrameCounter services $4017: selects 4- or 5-step mode and, in
// 5-step mode, immediately clocks every unit once.
func (a *APU) writeFrameCounter(value uint8) {
	a.frameMode = value&0x80 != 0
	a.frameIRQEnable = value&0x40 == 0
	if !a.frameIRQEnable {
		a.frameIRQFlag = false
	}

	a.frameCounter = 0
	a.frameCounterStep = 0

	if a.frameMode {
		a.clockEnvelopeAndLinear()
		a.clockLengthAndSweep()
	}
}

// IRQLine reports the logical OR of the frame counter and DMC IRQ flags,
// the single level the bus needs to feed into the CPU's IRQ input.
func (a *APU) IRQLine() bool {
	return a.frameIRQFlag || a.dmc.irqFlag
}

// SetSampleRate retargets the host-rate sample generator; any partial
// accumulation toward the previous rate is discarded.
func (a *APU) SetSampleRate(rate int) {
	a.sampleRate = rate
	a.cycleAccumulator = 0
}

// GetSampleRate returns the currently configured output sample rate.
func (a *APU) GetSampleRate() int {
	return a.sampleRate
}
