package cpu

// addrMode identifies how an opcode's operand address is computed.
type addrMode uint8

const (
	modeImplied addrMode = iota
	modeAccumulator
	modeImmediate
	modeZeroPage
	modeZeroPageX
	modeZeroPageY
	modeAbsolute
	modeAbsoluteX
	modeAbsoluteY
	modeIndirect
	modeIndirectX
	modeIndirectY
	modeRelative
)

// opKind says what shape of micro-op sequence an opcode needs once its
// address (if any) has been computed.
type opKind uint8

const (
	kindRead    opKind = iota // load-style: ends in a bus read, exec(value)
	kindWrite                 // store-style: ends in a bus write of execWrite()
	kindRMW                   // read-modify-write: dummy write of old value, then new
	kindImplied               // single-byte, register/flag-only operation
	kindAccRMW                // modifies A directly, one extra cycle, no memory access
	kindBranch
	kindJumpAbs
	kindJSR
	kindRTS
	kindRTI
	kindBRK
	kindPush
	kindPull
	kindJumpIndirect
)

type opInfo struct {
	mode addrMode
	kind opKind
	// exec is used by kindRead (receives the loaded byte).
	exec func(c *CPU, v uint8)
	// store is used by kindWrite (returns the byte to write).
	store func(c *CPU) uint8
	// rmw is used by kindRMW/kindAccRMW (returns the modified byte).
	rmw func(c *CPU, v uint8) uint8
	// run is used by kindImplied (no operand).
	run func(c *CPU)
	// branch is used by kindBranch: reports whether the branch is taken.
	branch func(c *CPU) bool
}

var opcodeTable [256]opInfo

func reg(op uint8, info opInfo) {
	opcodeTable[op] = info
}

// buildInstruction fills the micro-op queue for the instruction at
// opcode, whose first byte has already been fetched. Every branch below
// enqueues the exact bus accesses real hardware performs for that
// opcode/addressing-mode pair, including dummy reads/writes.
func (c *CPU) buildInstruction(opcode uint8) {
	c.qpos, c.qlen = 0, 0
	c.seq = seqInstruction
	info := opcodeTable[opcode]

	switch info.kind {
	case kindImplied:
		c.enqueue(func(c *CPU) bool { c.bus.Read(c.PC); info.run(c); return true })
		return
	case kindAccRMW:
		c.enqueue(func(c *CPU) bool {
			c.bus.Read(c.PC)
			c.A = info.rmw(c, c.A)
			return true
		})
		return
	case kindBranch:
		c.buildBranch(info)
		return
	case kindJumpAbs:
		c.buildJMPAbsolute()
		return
	case kindJumpIndirect:
		c.buildJMPIndirect()
		return
	case kindJSR:
		c.buildJSR()
		return
	case kindRTS:
		c.buildRTS()
		return
	case kindRTI:
		c.buildRTI()
		return
	case kindBRK:
		c.buildBRKInstruction()
		return
	case kindPush:
		c.buildPush(info)
		return
	case kindPull:
		c.buildPull(info)
		return
	}

	switch info.mode {
	case modeImmediate:
		c.enqueue(func(c *CPU) bool {
			v := c.bus.Read(c.PC)
			c.PC++
			info.exec(c, v)
			return true
		})
	case modeZeroPage:
		c.buildZeroPage(info)
	case modeZeroPageX:
		c.buildZeroPageIndexed(info, &c.X)
	case modeZeroPageY:
		c.buildZeroPageIndexed(info, &c.Y)
	case modeAbsolute:
		c.buildAbsolute(info)
	case modeAbsoluteX:
		c.buildAbsoluteIndexed(info, &c.X)
	case modeAbsoluteY:
		c.buildAbsoluteIndexed(info, &c.Y)
	case modeIndirectX:
		c.buildIndexedIndirect(info)
	case modeIndirectY:
		c.buildIndirectIndexed(info)
	default:
		// Unassigned opcode slot: behaves as a one-cycle NOP. Real 6502s
		// have several such "stable" illegal opcodes; unmapped ones here
		// are simply never reached by valid code streams.
		c.enqueue(func(c *CPU) bool { c.bus.Read(c.PC); return true })
	}
}

// finish wraps the last micro-op of a read/write/rmw sequence so callers
// can write "finish(step)" instead of repeating "return true" everywhere.
func finish(op func(c *CPU)) microOp {
	return func(c *CPU) bool { op(c); return true }
}
func cont(op func(c *CPU)) microOp {
	return func(c *CPU) bool { op(c); return false }
}

func (c *CPU) buildZeroPage(info opInfo) {
	switch info.kind {
	case kindRead:
		c.enqueue(
			cont(func(c *CPU) { c.effectiveAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			finish(func(c *CPU) { info.exec(c, c.bus.Read(c.effectiveAddr)) }),
		)
	case kindWrite:
		c.enqueue(
			cont(func(c *CPU) { c.effectiveAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.store(c)) }),
		)
	case kindRMW:
		c.enqueue(
			cont(func(c *CPU) { c.effectiveAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) { c.tmp = c.bus.Read(c.effectiveAddr) }),
			cont(func(c *CPU) { c.bus.Write(c.effectiveAddr, c.tmp) }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.rmw(c, c.tmp)) }),
		)
	}
}

func (c *CPU) buildZeroPageIndexed(info opInfo, index *uint8) {
	switch info.kind {
	case kindRead:
		c.enqueue(
			cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				c.bus.Read(c.baseAddr)
				c.effectiveAddr = uint16(uint8(c.baseAddr) + *index)
			}),
			finish(func(c *CPU) { info.exec(c, c.bus.Read(c.effectiveAddr)) }),
		)
	case kindWrite:
		c.enqueue(
			cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				c.bus.Read(c.baseAddr)
				c.effectiveAddr = uint16(uint8(c.baseAddr) + *index)
			}),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.store(c)) }),
		)
	case kindRMW:
		c.enqueue(
			cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				c.bus.Read(c.baseAddr)
				c.effectiveAddr = uint16(uint8(c.baseAddr) + *index)
			}),
			cont(func(c *CPU) { c.tmp = c.bus.Read(c.effectiveAddr) }),
			cont(func(c *CPU) { c.bus.Write(c.effectiveAddr, c.tmp) }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.rmw(c, c.tmp)) }),
		)
	}
}

func (c *CPU) fetchAbsAddr() {
	lo := uint16(c.bus.Read(c.PC))
	c.PC++
	hi := uint16(c.bus.Read(c.PC))
	c.PC++
	c.baseAddr = hi<<8 | lo
}

func (c *CPU) buildAbsolute(info opInfo) {
	switch info.kind {
	case kindRead:
		c.enqueue(
			cont(func(c *CPU) { c.effectiveAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				c.effectiveAddr |= uint16(c.bus.Read(c.PC)) << 8
				c.PC++
			}),
			finish(func(c *CPU) { info.exec(c, c.bus.Read(c.effectiveAddr)) }),
		)
	case kindWrite:
		c.enqueue(
			cont(func(c *CPU) { c.effectiveAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				c.effectiveAddr |= uint16(c.bus.Read(c.PC)) << 8
				c.PC++
			}),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.store(c)) }),
		)
	case kindRMW:
		c.enqueue(
			cont(func(c *CPU) { c.effectiveAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				c.effectiveAddr |= uint16(c.bus.Read(c.PC)) << 8
				c.PC++
			}),
			cont(func(c *CPU) { c.tmp = c.bus.Read(c.effectiveAddr) }),
			cont(func(c *CPU) { c.bus.Write(c.effectiveAddr, c.tmp) }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.rmw(c, c.tmp)) }),
		)
	}
}

// buildAbsoluteIndexed implements absolute,X and absolute,Y. Reads take
// the dummy high-page-read shortcut and only pay the extra cycle when the
// index crosses a page; writes and read-modify-writes always pay it,
// since hardware cannot know in advance whether the access is safe.
func (c *CPU) buildAbsoluteIndexed(info opInfo, index *uint8) {
	switch info.kind {
	case kindRead:
		c.enqueue(
			cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				hi := uint16(c.bus.Read(c.PC)) << 8
				c.PC++
				c.baseAddr |= hi
				lowSum := (c.baseAddr & 0xFF) + uint16(*index)
				c.pageCrossed = lowSum > 0xFF
				c.effectiveAddr = (c.baseAddr & 0xFF00) | (lowSum & 0xFF)
			}),
			// Speculative read at the uncorrected address. If the index
			// didn't cross a page this already is the final value; if it
			// did, the byte is discarded, the address corrected, and one
			// more read cycle appended.
			func(c *CPU) bool {
				v := c.bus.Read(c.effectiveAddr)
				if !c.pageCrossed {
					info.exec(c, v)
					return true
				}
				c.effectiveAddr += 0x0100
				c.enqueue(finish(func(c *CPU) { info.exec(c, c.bus.Read(c.effectiveAddr)) }))
				return false
			},
		)
	case kindWrite:
		c.enqueue(
			cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				hi := uint16(c.bus.Read(c.PC)) << 8
				c.PC++
				c.baseAddr |= hi
				lowSum := (c.baseAddr & 0xFF) + uint16(*index)
				c.pageCrossed = lowSum > 0xFF
				c.effectiveAddr = (c.baseAddr & 0xFF00) | (lowSum & 0xFF)
			}),
			cont(func(c *CPU) {
				c.bus.Read(c.effectiveAddr)
				if c.pageCrossed {
					c.effectiveAddr += 0x0100
				}
			}),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.store(c)) }),
		)
	case kindRMW:
		c.enqueue(
			cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
			cont(func(c *CPU) {
				hi := uint16(c.bus.Read(c.PC)) << 8
				c.PC++
				c.baseAddr |= hi
				lowSum := (c.baseAddr & 0xFF) + uint16(*index)
				c.pageCrossed = lowSum > 0xFF
				c.effectiveAddr = (c.baseAddr & 0xFF00) | (lowSum & 0xFF)
			}),
			cont(func(c *CPU) {
				c.bus.Read(c.effectiveAddr)
				if c.pageCrossed {
					c.effectiveAddr += 0x0100
				}
			}),
			cont(func(c *CPU) { c.tmp = c.bus.Read(c.effectiveAddr) }),
			cont(func(c *CPU) { c.bus.Write(c.effectiveAddr, c.tmp) }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.rmw(c, c.tmp)) }),
		)
	}
}

// buildIndexedIndirect implements (zp,X): a zero-page pointer fetch,
// indexed by X before the 16-bit target is read -- always 6 cycles.
func (c *CPU) buildIndexedIndirect(info opInfo) {
	steps := []microOp{
		cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
		cont(func(c *CPU) { c.bus.Read(c.baseAddr) }),
		cont(func(c *CPU) {
			ptr := uint8(c.baseAddr) + c.X
			c.tmp = ptr
			c.effectiveAddr = uint16(c.bus.Read(uint16(ptr)))
		}),
		cont(func(c *CPU) {
			hi := uint16(c.bus.Read(uint16(c.tmp + 1)))
			c.effectiveAddr |= hi << 8
		}),
	}
	switch info.kind {
	case kindRead:
		steps = append(steps, finish(func(c *CPU) { info.exec(c, c.bus.Read(c.effectiveAddr)) }))
	case kindWrite:
		steps = append(steps, finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.store(c)) }))
	case kindRMW:
		steps = append(steps,
			cont(func(c *CPU) { c.tmp = c.bus.Read(c.effectiveAddr) }),
			cont(func(c *CPU) { c.bus.Write(c.effectiveAddr, c.tmp) }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.rmw(c, c.tmp)) }),
		)
	}
	c.enqueue(steps...)
}

// buildIndirectIndexed implements (zp),Y: the zero-page pointer is read
// first, then Y is added to the resulting 16-bit address with the same
// page-cross accounting as absolute,X/Y.
func (c *CPU) buildIndirectIndexed(info opInfo) {
	steps := []microOp{
		cont(func(c *CPU) { c.tmp = c.bus.Read(c.PC); c.PC++ }),
		cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(uint16(c.tmp))) }),
		cont(func(c *CPU) {
			hi := uint16(c.bus.Read(uint16(c.tmp + 1)))
			c.baseAddr |= hi << 8
			lowSum := (c.baseAddr & 0xFF) + uint16(c.Y)
			c.pageCrossed = lowSum > 0xFF
			c.effectiveAddr = (c.baseAddr & 0xFF00) | (lowSum & 0xFF)
		}),
	}
	switch info.kind {
	case kindRead:
		steps = append(steps, func(c *CPU) bool {
			v := c.bus.Read(c.effectiveAddr)
			if !c.pageCrossed {
				info.exec(c, v)
				return true
			}
			c.effectiveAddr += 0x0100
			c.enqueue(finish(func(c *CPU) { info.exec(c, c.bus.Read(c.effectiveAddr)) }))
			return false
		})
	case kindWrite:
		steps = append(steps,
			cont(func(c *CPU) {
				c.bus.Read(c.effectiveAddr)
				if c.pageCrossed {
					c.effectiveAddr += 0x0100
				}
			}),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.store(c)) }),
		)
	case kindRMW:
		steps = append(steps,
			cont(func(c *CPU) {
				c.bus.Read(c.effectiveAddr)
				if c.pageCrossed {
					c.effectiveAddr += 0x0100
				}
			}),
			cont(func(c *CPU) { c.tmp = c.bus.Read(c.effectiveAddr) }),
			cont(func(c *CPU) { c.bus.Write(c.effectiveAddr, c.tmp) }),
			finish(func(c *CPU) { c.bus.Write(c.effectiveAddr, info.rmw(c, c.tmp)) }),
		)
	}
	c.enqueue(steps...)
}

func (c *CPU) buildBranch(info opInfo) {
	c.enqueue(func(c *CPU) bool {
		offset := int8(c.bus.Read(c.PC))
		c.PC++
		if !info.branch(c) {
			return true
		}
		target := uint16(int32(c.PC) + int32(offset))
		c.baseAddr = c.PC
		c.effectiveAddr = target
		c.enqueue(func(c *CPU) bool {
			c.bus.Read(c.PC)
			c.PC = (c.baseAddr & 0xFF00) | (c.effectiveAddr & 0xFF)
			if c.effectiveAddr&0xFF00 == c.baseAddr&0xFF00 {
				return true
			}
			c.enqueue(func(c *CPU) bool {
				c.bus.Read(c.PC)
				c.PC = c.effectiveAddr
				return true
			})
			return false
		})
		return false
	})
}

func (c *CPU) buildJMPAbsolute() {
	c.enqueue(
		cont(func(c *CPU) { c.tmp = c.bus.Read(c.PC); c.PC++ }),
		finish(func(c *CPU) {
			hi := uint16(c.bus.Read(c.PC))
			c.PC = hi<<8 | uint16(c.tmp)
		}),
	)
}

// buildJMPIndirect reproduces the famous page-wrap bug: if the pointer
// low byte is $FF, the high byte is fetched from the start of the same
// page rather than the next page.
func (c *CPU) buildJMPIndirect() {
	c.enqueue(
		cont(func(c *CPU) { c.baseAddr = uint16(c.bus.Read(c.PC)); c.PC++ }),
		cont(func(c *CPU) { c.baseAddr |= uint16(c.bus.Read(c.PC)) << 8; c.PC++ }),
		cont(func(c *CPU) { c.tmp = c.bus.Read(c.baseAddr) }),
		finish(func(c *CPU) {
			hiAddr := (c.baseAddr & 0xFF00) | ((c.baseAddr + 1) & 0xFF)
			hi := uint16(c.bus.Read(hiAddr))
			c.PC = hi<<8 | uint16(c.tmp)
		}),
	)
}

func (c *CPU) buildJSR() {
	c.enqueue(
		cont(func(c *CPU) { c.tmp = c.bus.Read(c.PC); c.PC++ }),
		cont(func(c *CPU) { c.bus.Read(stackBase + uint16(c.S)) }),
		cont(func(c *CPU) { c.push(uint8(c.PC >> 8)) }),
		cont(func(c *CPU) { c.push(uint8(c.PC)) }),
		finish(func(c *CPU) {
			hi := uint16(c.bus.Read(c.PC))
			c.PC = hi<<8 | uint16(c.tmp)
		}),
	)
}

func (c *CPU) buildRTS() {
	c.enqueue(
		cont(func(c *CPU) { c.bus.Read(c.PC) }),
		cont(func(c *CPU) { c.bus.Read(stackBase + uint16(c.S)) }),
		cont(func(c *CPU) { c.tmp = c.pop() }),
		cont(func(c *CPU) { c.PC = uint16(c.pop())<<8 | uint16(c.tmp) }),
		finish(func(c *CPU) { c.bus.Read(c.PC); c.PC++ }),
	)
}

func (c *CPU) buildRTI() {
	c.enqueue(
		cont(func(c *CPU) { c.bus.Read(c.PC) }),
		cont(func(c *CPU) { c.bus.Read(stackBase + uint16(c.S)) }),
		cont(func(c *CPU) { c.SetStatusByte(c.pop()) }),
		cont(func(c *CPU) { c.tmp = c.pop() }),
		finish(func(c *CPU) { c.PC = uint16(c.pop())<<8 | uint16(c.tmp) }),
	)
}

// buildBRKInstruction handles the BRK opcode directly; hardware
// IRQ/NMI-triggered sequences reuse beginIRQ/beginNMI instead.
func (c *CPU) buildBRKInstruction() {
	c.enqueue(func(c *CPU) bool {
		c.bus.Read(c.PC) // the padding byte following BRK's opcode
		c.PC++
		c.beginIRQ(true)
		return false
	})
}

func (c *CPU) buildPush(info opInfo) {
	c.enqueue(
		cont(func(c *CPU) { c.bus.Read(c.PC) }),
		finish(func(c *CPU) { c.push(info.store(c)) }),
	)
}

func (c *CPU) buildPull(info opInfo) {
	c.enqueue(
		cont(func(c *CPU) { c.bus.Read(c.PC) }),
		cont(func(c *CPU) { c.bus.Read(stackBase + uint16(c.S)) }),
		finish(func(c *CPU) { info.exec(c, c.pop()) }),
	)
}

func registerBranch(op uint8, pred func(c *CPU) bool) {
	opcodeTable[op] = opInfo{mode: modeRelative, kind: kindBranch, branch: pred}
}

func init() {
	registerLoadStore()
	registerArithmeticLogic()
	registerShiftsAndIncDec()
	registerBranchesAndJumps()
	registerStackAndFlags()
	registerIllegal()
}
