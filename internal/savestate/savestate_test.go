package savestate

import (
	"testing"

	"nesgo/internal/cartridge"
)

func TestValidateRejectsMapperMismatch(t *testing.T) {
	cart := &cartridge.Cartridge{MapperID: 1, PRGRAM: make([]uint8, 8192)}
	s := State{FormatVersion: FormatVersion, MapperID: 4, Mapper: cartridge.MapperState{PRGRAM: make([]uint8, 8192)}}

	err := Validate(s, cart)
	se, ok := err.(*Error)
	if !ok || se.Kind != ErrMapperMismatch {
		t.Fatalf("err = %v, want ErrMapperMismatch", err)
	}
}

func TestValidateRejectsNoCartridge(t *testing.T) {
	err := Validate(State{}, nil)
	se, ok := err.(*Error)
	if !ok || se.Kind != ErrNoCartridge {
		t.Fatalf("err = %v, want ErrNoCartridge", err)
	}
}

func TestValidateRejectsPRGRAMSizeMismatch(t *testing.T) {
	cart := &cartridge.Cartridge{MapperID: 0, PRGRAM: make([]uint8, 8192)}
	s := State{FormatVersion: FormatVersion, MapperID: 0, Mapper: cartridge.MapperState{PRGRAM: make([]uint8, 2048)}}

	err := Validate(s, cart)
	se, ok := err.(*Error)
	if !ok || se.Kind != ErrCorrupt {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestValidateAccepts(t *testing.T) {
	cart := &cartridge.Cartridge{MapperID: 0, PRGRAM: make([]uint8, 8192)}
	s := State{FormatVersion: FormatVersion, MapperID: 0, Mapper: cartridge.MapperState{PRGRAM: make([]uint8, 8192)}}
	if err := Validate(s, cart); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
