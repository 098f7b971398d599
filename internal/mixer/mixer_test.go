package mixer

import (
	"math"
	"testing"

	"nesgo/internal/cartridge"
)

type fakeExpansion struct{ level float32 }

func (f *fakeExpansion) ClockAudio()        {}
func (f *fakeExpansion) Samples() []float32 { return []float32{f.level} }

type fakeMapperWithAudio struct {
	cartridge.Mapper
	exp *fakeExpansion
}

func (m *fakeMapperWithAudio) AsExpansionAudio() (cartridge.ExpansionAudio, bool) {
	return m.exp, true
}

func TestMixWithNoCartridgeReturnsInputUnchanged(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3}
	out := Mix(in, nil)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestMixWithUnweightedMapperReturnsInputUnchanged(t *testing.T) {
	cart := &cartridge.Cartridge{MapperID: 0, Mapper: &fakeMapperWithAudio{exp: &fakeExpansion{level: 1}}}
	in := []float32{0.5}
	out := Mix(in, cart)
	if out[0] != 0.5 {
		t.Fatalf("expected unweighted mapper to leave samples unchanged, got %v", out[0])
	}
}

func TestMixWithMMC5AddsWeightedExpansionSample(t *testing.T) {
	cart := &cartridge.Cartridge{MapperID: 5, Mapper: &fakeMapperWithAudio{exp: &fakeExpansion{level: 1}}}
	out := Mix([]float32{0}, cart)
	want := float32(WeightMMC5) / float32(totalWeight)
	if math.Abs(float64(out[0]-want)) > 1e-6 {
		t.Fatalf("out[0] = %v, want %v", out[0], want)
	}
}

func TestMixClampsToUnitRange(t *testing.T) {
	cart := &cartridge.Cartridge{MapperID: 5, Mapper: &fakeMapperWithAudio{exp: &fakeExpansion{level: 1}}}
	out := Mix([]float32{1}, cart)
	if out[0] != 1 {
		t.Fatalf("out[0] = %v, want clamped to 1", out[0])
	}
}

func TestChipWeightUnknownMapperIsZero(t *testing.T) {
	if ChipWeight(99) != 0 {
		t.Fatalf("ChipWeight(99) = %v, want 0", ChipWeight(99))
	}
}
