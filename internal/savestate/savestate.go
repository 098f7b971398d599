// Package savestate defines the versioned tree of sub-states a full
// machine snapshot is built from. It does not pick a binary encoding --
// callers gob/json/msgpack-encode the State struct themselves -- it only
// owns the shape and the validation rules for loading one back.
package savestate

import (
	"crypto/sha256"
	"fmt"

	"nesgo/internal/apu"
	"nesgo/internal/cartridge"
	"nesgo/internal/cpu"
	"nesgo/internal/memory"
	"nesgo/internal/ppu"
)

// HashROM fingerprints a cartridge's immutable ROM data for the optional
// ROMHash field; two cartridges with identical hashes are interchangeable
// for save-state purposes even if MapperMismatch wouldn't otherwise fire.
func HashROM(cart *cartridge.Cartridge) [32]byte {
	h := sha256.New()
	h.Write(cart.PRGROM)
	h.Write(cart.CHRROM)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// FormatVersion increments whenever the State shape changes in a way that
// breaks binary compatibility with previously-saved states.
const FormatVersion = 1

// State is the full serializable machine snapshot: CPU, PPU, APU, shared
// RAM, the mapper's own registers/RAM, and the shared controller strobe
// line, tagged with enough metadata to validate a load against the
// currently-inserted cartridge.
type State struct {
	FormatVersion int
	MapperID      uint8
	ROMHash       [32]byte

	CPU    cpu.Snapshot
	PPU    ppu.Snapshot
	APU    apu.Snapshot
	RAM    memory.RAM
	Mapper cartridge.MapperState

	ControllerStrobe bool
}

// Error is the SaveStateError taxonomy: no cartridge loaded, a mismatched
// mapper/ROM on load, or a structurally corrupt snapshot.
type Error struct {
	Kind   ErrorKind
	Detail string
}

type ErrorKind uint8

const (
	ErrNoCartridge ErrorKind = iota
	ErrMapperMismatch
	ErrCorrupt
)

func (e *Error) Error() string {
	switch e.Kind {
	case ErrNoCartridge:
		return "savestate: no cartridge loaded"
	case ErrMapperMismatch:
		return "savestate: mapper mismatch: " + e.Detail
	default:
		return "savestate: corrupt: " + e.Detail
	}
}

// Validate checks a loaded State against the cartridge currently inserted
// before any of its fields are applied to the running machine.
func Validate(s State, cart *cartridge.Cartridge) error {
	if cart == nil {
		return &Error{Kind: ErrNoCartridge}
	}
	if s.FormatVersion != FormatVersion {
		return &Error{Kind: ErrCorrupt, Detail: fmt.Sprintf("format version %d, want %d", s.FormatVersion, FormatVersion)}
	}
	if s.MapperID != cart.MapperID {
		return &Error{Kind: ErrMapperMismatch, Detail: fmt.Sprintf("snapshot mapper %d, cartridge mapper %d", s.MapperID, cart.MapperID)}
	}
	if len(s.Mapper.PRGRAM) != len(cart.PRGRAM) {
		return &Error{Kind: ErrCorrupt, Detail: "PRG-RAM size mismatch"}
	}
	return nil
}
