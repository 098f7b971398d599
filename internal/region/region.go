// Package region holds the timing constants that differ between TV systems.
//
// The CPU, PPU and APU are all driven off a single master clock; the only
// thing that changes between NTSC, PAL and Dendy is the ratio of PPU dots
// to CPU cycles, the scanline count per frame, and a handful of APU period
// tables. Keeping them grouped here means the rest of the core never has
// to ask "which region am I" more than once per frame.
package region

// Region selects the console variant being emulated.
type Region uint8

const (
	NTSC Region = iota
	PAL
	Dendy
)

// Timing bundles the per-region constants the bus, PPU and APU consult.
type Timing struct {
	Region Region

	// DotsPerCPUCycle is the number of PPU dots advanced per CPU cycle.
	// NTSC and Dendy run the PPU at 3 dots/cycle; PAL runs at 3.2 dots/cycle
	// (16 dots per 5 CPU cycles), approximated here by callers that track
	// fractional dots explicitly; see Timing.PalFraction.
	DotsPerCPUCycle int

	// PalFraction is set on PAL hardware, where the ratio is 3.2 dots per
	// CPU cycle rather than an integer 3; callers add the fractional dot.
	PalFraction bool

	ScanlinesPerFrame int
	VisibleScanlines  int
	PostRenderLine    int
	VBlankStartLine   int
	PreRenderLine     int // sentinel scanline, represented as -1 by callers

	// CPUClockHz is the CPU's clock rate, used by the mixer/resampler to
	// convert cycle-tagged amplitude deltas into wall-clock time.
	CPUClockHz float64

	// NMIOddFrameShortens is true when the pre-render scanline is one dot
	// shorter on odd frames with rendering enabled (NTSC only).
	NMIOddFrameShortens bool
}

// For reports the Timing for a given Region.
func For(r Region) Timing {
	switch r {
	case PAL:
		return Timing{
			Region:            PAL,
			DotsPerCPUCycle:   3,
			PalFraction:       true,
			ScanlinesPerFrame: 312,
			VisibleScanlines:  240,
			PostRenderLine:    240,
			VBlankStartLine:   241,
			PreRenderLine:     -1,
			CPUClockHz:        1662607.0,
		}
	case Dendy:
		return Timing{
			Region:            Dendy,
			DotsPerCPUCycle:   3,
			ScanlinesPerFrame: 312,
			VisibleScanlines:  240,
			PostRenderLine:    240,
			VBlankStartLine:   291,
			PreRenderLine:     -1,
			CPUClockHz:        1773448.0,
		}
	default:
		return Timing{
			Region:              NTSC,
			DotsPerCPUCycle:     3,
			ScanlinesPerFrame:   262,
			VisibleScanlines:    240,
			PostRenderLine:      240,
			VBlankStartLine:     241,
			PreRenderLine:       -1,
			CPUClockHz:          1789773.0,
			NMIOddFrameShortens: true,
		}
	}
}

func (r Region) String() string {
	switch r {
	case PAL:
		return "PAL"
	case Dendy:
		return "Dendy"
	default:
		return "NTSC"
	}
}
