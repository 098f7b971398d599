package cpu

// This file registers every opcode's addressing mode and behavior into
// opcodeTable. It is organized by instruction family rather than by
// opcode value, matching how the instruction set is documented.

func registerLoadStore() {
	lda := func(c *CPU, v uint8) { c.A = v; c.setZN(v) }
	ldx := func(c *CPU, v uint8) { c.X = v; c.setZN(v) }
	ldy := func(c *CPU, v uint8) { c.Y = v; c.setZN(v) }
	sta := func(c *CPU) uint8 { return c.A }
	stx := func(c *CPU) uint8 { return c.X }
	sty := func(c *CPU) uint8 { return c.Y }

	reg(0xA9, opInfo{mode: modeImmediate, kind: kindRead, exec: lda})
	reg(0xA5, opInfo{mode: modeZeroPage, kind: kindRead, exec: lda})
	reg(0xB5, opInfo{mode: modeZeroPageX, kind: kindRead, exec: lda})
	reg(0xAD, opInfo{mode: modeAbsolute, kind: kindRead, exec: lda})
	reg(0xBD, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: lda})
	reg(0xB9, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: lda})
	reg(0xA1, opInfo{mode: modeIndirectX, kind: kindRead, exec: lda})
	reg(0xB1, opInfo{mode: modeIndirectY, kind: kindRead, exec: lda})

	reg(0xA2, opInfo{mode: modeImmediate, kind: kindRead, exec: ldx})
	reg(0xA6, opInfo{mode: modeZeroPage, kind: kindRead, exec: ldx})
	reg(0xB6, opInfo{mode: modeZeroPageY, kind: kindRead, exec: ldx})
	reg(0xAE, opInfo{mode: modeAbsolute, kind: kindRead, exec: ldx})
	reg(0xBE, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: ldx})

	reg(0xA0, opInfo{mode: modeImmediate, kind: kindRead, exec: ldy})
	reg(0xA4, opInfo{mode: modeZeroPage, kind: kindRead, exec: ldy})
	reg(0xB4, opInfo{mode: modeZeroPageX, kind: kindRead, exec: ldy})
	reg(0xAC, opInfo{mode: modeAbsolute, kind: kindRead, exec: ldy})
	reg(0xBC, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: ldy})

	reg(0x85, opInfo{mode: modeZeroPage, kind: kindWrite, store: sta})
	reg(0x95, opInfo{mode: modeZeroPageX, kind: kindWrite, store: sta})
	reg(0x8D, opInfo{mode: modeAbsolute, kind: kindWrite, store: sta})
	reg(0x9D, opInfo{mode: modeAbsoluteX, kind: kindWrite, store: sta})
	reg(0x99, opInfo{mode: modeAbsoluteY, kind: kindWrite, store: sta})
	reg(0x81, opInfo{mode: modeIndirectX, kind: kindWrite, store: sta})
	reg(0x91, opInfo{mode: modeIndirectY, kind: kindWrite, store: sta})

	reg(0x86, opInfo{mode: modeZeroPage, kind: kindWrite, store: stx})
	reg(0x96, opInfo{mode: modeZeroPageY, kind: kindWrite, store: stx})
	reg(0x8E, opInfo{mode: modeAbsolute, kind: kindWrite, store: stx})

	reg(0x84, opInfo{mode: modeZeroPage, kind: kindWrite, store: sty})
	reg(0x94, opInfo{mode: modeZeroPageX, kind: kindWrite, store: sty})
	reg(0x8C, opInfo{mode: modeAbsolute, kind: kindWrite, store: sty})
}

func (c *CPU) adc(v uint8) {
	sum := uint16(c.A) + uint16(v) + uint16(boolToU8(c.C))
	result := uint8(sum)
	c.V = (c.A^result)&(v^result)&0x80 != 0
	c.C = sum > 0xFF
	c.A = result
	c.setZN(result)
}

func (c *CPU) sbc(v uint8) {
	c.adc(v ^ 0xFF)
}

func registerArithmeticLogic() {
	adc := func(c *CPU, v uint8) { c.adc(v) }
	sbc := func(c *CPU, v uint8) { c.sbc(v) }
	and := func(c *CPU, v uint8) { c.A &= v; c.setZN(c.A) }
	ora := func(c *CPU, v uint8) { c.A |= v; c.setZN(c.A) }
	eor := func(c *CPU, v uint8) { c.A ^= v; c.setZN(c.A) }
	bit := func(c *CPU, v uint8) {
		c.Z = c.A&v == 0
		c.N = v&0x80 != 0
		c.V = v&0x40 != 0
	}
	cmp := func(c *CPU, v uint8) { c.C = c.A >= v; c.setZN(c.A - v) }
	cpx := func(c *CPU, v uint8) { c.C = c.X >= v; c.setZN(c.X - v) }
	cpy := func(c *CPU, v uint8) { c.C = c.Y >= v; c.setZN(c.Y - v) }

	reg(0x69, opInfo{mode: modeImmediate, kind: kindRead, exec: adc})
	reg(0x65, opInfo{mode: modeZeroPage, kind: kindRead, exec: adc})
	reg(0x75, opInfo{mode: modeZeroPageX, kind: kindRead, exec: adc})
	reg(0x6D, opInfo{mode: modeAbsolute, kind: kindRead, exec: adc})
	reg(0x7D, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: adc})
	reg(0x79, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: adc})
	reg(0x61, opInfo{mode: modeIndirectX, kind: kindRead, exec: adc})
	reg(0x71, opInfo{mode: modeIndirectY, kind: kindRead, exec: adc})

	reg(0xE9, opInfo{mode: modeImmediate, kind: kindRead, exec: sbc})
	reg(0xE5, opInfo{mode: modeZeroPage, kind: kindRead, exec: sbc})
	reg(0xF5, opInfo{mode: modeZeroPageX, kind: kindRead, exec: sbc})
	reg(0xED, opInfo{mode: modeAbsolute, kind: kindRead, exec: sbc})
	reg(0xFD, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: sbc})
	reg(0xF9, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: sbc})
	reg(0xE1, opInfo{mode: modeIndirectX, kind: kindRead, exec: sbc})
	reg(0xF1, opInfo{mode: modeIndirectY, kind: kindRead, exec: sbc})

	reg(0x29, opInfo{mode: modeImmediate, kind: kindRead, exec: and})
	reg(0x25, opInfo{mode: modeZeroPage, kind: kindRead, exec: and})
	reg(0x35, opInfo{mode: modeZeroPageX, kind: kindRead, exec: and})
	reg(0x2D, opInfo{mode: modeAbsolute, kind: kindRead, exec: and})
	reg(0x3D, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: and})
	reg(0x39, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: and})
	reg(0x21, opInfo{mode: modeIndirectX, kind: kindRead, exec: and})
	reg(0x31, opInfo{mode: modeIndirectY, kind: kindRead, exec: and})

	reg(0x09, opInfo{mode: modeImmediate, kind: kindRead, exec: ora})
	reg(0x05, opInfo{mode: modeZeroPage, kind: kindRead, exec: ora})
	reg(0x15, opInfo{mode: modeZeroPageX, kind: kindRead, exec: ora})
	reg(0x0D, opInfo{mode: modeAbsolute, kind: kindRead, exec: ora})
	reg(0x1D, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: ora})
	reg(0x19, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: ora})
	reg(0x01, opInfo{mode: modeIndirectX, kind: kindRead, exec: ora})
	reg(0x11, opInfo{mode: modeIndirectY, kind: kindRead, exec: ora})

	reg(0x49, opInfo{mode: modeImmediate, kind: kindRead, exec: eor})
	reg(0x45, opInfo{mode: modeZeroPage, kind: kindRead, exec: eor})
	reg(0x55, opInfo{mode: modeZeroPageX, kind: kindRead, exec: eor})
	reg(0x4D, opInfo{mode: modeAbsolute, kind: kindRead, exec: eor})
	reg(0x5D, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: eor})
	reg(0x59, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: eor})
	reg(0x41, opInfo{mode: modeIndirectX, kind: kindRead, exec: eor})
	reg(0x51, opInfo{mode: modeIndirectY, kind: kindRead, exec: eor})

	reg(0x24, opInfo{mode: modeZeroPage, kind: kindRead, exec: bit})
	reg(0x2C, opInfo{mode: modeAbsolute, kind: kindRead, exec: bit})

	reg(0xC9, opInfo{mode: modeImmediate, kind: kindRead, exec: cmp})
	reg(0xC5, opInfo{mode: modeZeroPage, kind: kindRead, exec: cmp})
	reg(0xD5, opInfo{mode: modeZeroPageX, kind: kindRead, exec: cmp})
	reg(0xCD, opInfo{mode: modeAbsolute, kind: kindRead, exec: cmp})
	reg(0xDD, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: cmp})
	reg(0xD9, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: cmp})
	reg(0xC1, opInfo{mode: modeIndirectX, kind: kindRead, exec: cmp})
	reg(0xD1, opInfo{mode: modeIndirectY, kind: kindRead, exec: cmp})

	reg(0xE0, opInfo{mode: modeImmediate, kind: kindRead, exec: cpx})
	reg(0xE4, opInfo{mode: modeZeroPage, kind: kindRead, exec: cpx})
	reg(0xEC, opInfo{mode: modeAbsolute, kind: kindRead, exec: cpx})

	reg(0xC0, opInfo{mode: modeImmediate, kind: kindRead, exec: cpy})
	reg(0xC4, opInfo{mode: modeZeroPage, kind: kindRead, exec: cpy})
	reg(0xCC, opInfo{mode: modeAbsolute, kind: kindRead, exec: cpy})
}

func registerShiftsAndIncDec() {
	asl := func(c *CPU, v uint8) uint8 {
		c.C = v&0x80 != 0
		r := v << 1
		c.setZN(r)
		return r
	}
	lsr := func(c *CPU, v uint8) uint8 {
		c.C = v&0x01 != 0
		r := v >> 1
		c.setZN(r)
		return r
	}
	rol := func(c *CPU, v uint8) uint8 {
		carryIn := boolToU8(c.C)
		c.C = v&0x80 != 0
		r := v<<1 | carryIn
		c.setZN(r)
		return r
	}
	ror := func(c *CPU, v uint8) uint8 {
		carryIn := boolToU8(c.C) << 7
		c.C = v&0x01 != 0
		r := v>>1 | carryIn
		c.setZN(r)
		return r
	}
	inc := func(c *CPU, v uint8) uint8 { r := v + 1; c.setZN(r); return r }
	dec := func(c *CPU, v uint8) uint8 { r := v - 1; c.setZN(r); return r }

	reg(0x0A, opInfo{mode: modeAccumulator, kind: kindAccRMW, rmw: asl})
	reg(0x06, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: asl})
	reg(0x16, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: asl})
	reg(0x0E, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: asl})
	reg(0x1E, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: asl})

	reg(0x4A, opInfo{mode: modeAccumulator, kind: kindAccRMW, rmw: lsr})
	reg(0x46, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: lsr})
	reg(0x56, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: lsr})
	reg(0x4E, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: lsr})
	reg(0x5E, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: lsr})

	reg(0x2A, opInfo{mode: modeAccumulator, kind: kindAccRMW, rmw: rol})
	reg(0x26, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: rol})
	reg(0x36, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: rol})
	reg(0x2E, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: rol})
	reg(0x3E, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: rol})

	reg(0x6A, opInfo{mode: modeAccumulator, kind: kindAccRMW, rmw: ror})
	reg(0x66, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: ror})
	reg(0x76, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: ror})
	reg(0x6E, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: ror})
	reg(0x7E, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: ror})

	reg(0xE6, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: inc})
	reg(0xF6, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: inc})
	reg(0xEE, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: inc})
	reg(0xFE, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: inc})

	reg(0xC6, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: dec})
	reg(0xD6, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: dec})
	reg(0xCE, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: dec})
	reg(0xDE, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: dec})

	reg(0xE8, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.X++; c.setZN(c.X) }})
	reg(0xC8, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.Y++; c.setZN(c.Y) }})
	reg(0xCA, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.X--; c.setZN(c.X) }})
	reg(0x88, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.Y--; c.setZN(c.Y) }})
}

func registerBranchesAndJumps() {
	registerBranch(0x10, func(c *CPU) bool { return !c.N })
	registerBranch(0x30, func(c *CPU) bool { return c.N })
	registerBranch(0x50, func(c *CPU) bool { return !c.V })
	registerBranch(0x70, func(c *CPU) bool { return c.V })
	registerBranch(0x90, func(c *CPU) bool { return !c.C })
	registerBranch(0xB0, func(c *CPU) bool { return c.C })
	registerBranch(0xD0, func(c *CPU) bool { return !c.Z })
	registerBranch(0xF0, func(c *CPU) bool { return c.Z })

	reg(0x4C, opInfo{kind: kindJumpAbs})
	reg(0x6C, opInfo{kind: kindJumpIndirect})
	reg(0x20, opInfo{kind: kindJSR})
	reg(0x60, opInfo{kind: kindRTS})
	reg(0x40, opInfo{kind: kindRTI})
	reg(0x00, opInfo{kind: kindBRK})
}

func registerStackAndFlags() {
	reg(0x48, opInfo{kind: kindPush, store: func(c *CPU) uint8 { return c.A }})
	reg(0x08, opInfo{kind: kindPush, store: func(c *CPU) uint8 { return c.GetStatusByte() | bFlagMask }})
	reg(0x68, opInfo{kind: kindPull, exec: func(c *CPU, v uint8) { c.A = v; c.setZN(v) }})
	reg(0x28, opInfo{kind: kindPull, exec: func(c *CPU, v uint8) { c.SetStatusByte(v) }})

	reg(0xAA, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.X = c.A; c.setZN(c.X) }})
	reg(0x8A, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.A = c.X; c.setZN(c.A) }})
	reg(0xA8, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.Y = c.A; c.setZN(c.Y) }})
	reg(0x98, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.A = c.Y; c.setZN(c.A) }})
	reg(0xBA, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.X = c.S; c.setZN(c.X) }})
	reg(0x9A, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.S = c.X }})

	reg(0x18, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.C = false }})
	reg(0x38, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.C = true }})
	reg(0x58, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.I = false }})
	reg(0x78, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.I = true }})
	reg(0xB8, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.V = false }})
	reg(0xD8, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.D = false }})
	reg(0xF8, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) { c.D = true }})

	reg(0xEA, opInfo{mode: modeImplied, kind: kindImplied, run: func(c *CPU) {}})
}
