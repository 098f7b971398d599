// Package mixer combines the APU's own five-channel mix with whatever
// cartridge-side expansion audio chip is present (MMC5, VRC6, VRC7, N163,
// 5B, FDS), weighted the way each board's analog mixing network combines
// with the console's own output. The APU never needs to know a cartridge
// exists; this package is the only place the two are brought together.
package mixer

import "nesgo/internal/cartridge"

// Weight is a chip's relative loudness on the shared analog mix, taken from
// each board's documented mixing-resistor ratios.
type Weight float32

const (
	WeightFDS  Weight = 20
	WeightMMC5 Weight = 43
	WeightN163 Weight = 20
	WeightVRC6 Weight = 5
	Weight5B   Weight = 15 // Sunsoft 5B
	WeightVRC7 Weight = 1
)

const totalWeight = WeightFDS + WeightMMC5 + WeightN163 + WeightVRC6 + Weight5B + WeightVRC7

// ChipWeight returns the mixing weight for a cartridge's expansion-audio
// chip, keyed by mapper ID. Mappers with no documented expansion chip get
// weight 0 and contribute nothing to the mix.
func ChipWeight(mapperID uint8) Weight {
	switch mapperID {
	case 5:
		return WeightMMC5
	case 19:
		return WeightN163
	case 24, 26:
		return WeightVRC6
	case 69:
		return Weight5B
	case 85:
		return WeightVRC7
	case 20:
		return WeightFDS
	default:
		return 0
	}
}

// Mix combines apuSamples with cart's expansion-audio output, if it has
// one, scaled by ChipWeight against the sum of every documented chip
// weight, and clamped back into [-1, 1].
func Mix(apuSamples []float32, cart *cartridge.Cartridge) []float32 {
	if cart == nil || cart.Mapper == nil {
		return apuSamples
	}
	exp, ok := cart.Mapper.AsExpansionAudio()
	if !ok {
		return apuSamples
	}
	weight := ChipWeight(cart.MapperID)
	if weight == 0 {
		return apuSamples
	}
	expSamples := exp.Samples()
	if len(expSamples) == 0 {
		return apuSamples
	}

	scale := float32(weight) / float32(totalWeight)
	out := make([]float32, len(apuSamples))
	for i, v := range apuSamples {
		e := expSamples[i%len(expSamples)]
		out[i] = clamp(v + e*scale)
	}
	return out
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
