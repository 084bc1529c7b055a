package chip8

import (
	"github.com/retroenv/retrogolib/log"
)

// opcode is one decoded 16-bit instruction word. Every field a CHIP-8
// instruction can carry is extracted up front; each instruction uses the
// subset it needs.
type opcode struct {
	word uint16 // the raw big-endian instruction word
	addr uint16 // low 12 bits
	x    byte   // bits 8-11, first register index
	y    byte   // bits 4-7, second register index
	kk   byte   // low 8 bits, immediate byte
	n    byte   // low 4 bits, immediate nibble
}

// decode splits an instruction word into its fields. It is a pure function
// of the word; validity is only decided during execution.
func decode(word uint16) opcode {
	return opcode{
		word: word,
		addr: word & 0x0FFF,
		x:    byte(word >> 8 & 0x0F),
		y:    byte(word >> 4 & 0x0F),
		kk:   byte(word),
		n:    byte(word & 0x0F),
	}
}

// Step fetches, decodes and executes exactly one instruction. The program
// counter is advanced past the instruction before execution, so jumps and
// skips operate on the post-increment value.
//
// Unrecognized opcodes are logged and skipped. The only errors returned are
// ErrStackOverflow and ErrStackUnderflow; the host decides whether to halt
// or reset.
func (vm *VM) Step() error {
	word := uint16(vm.Memory[vm.PC&addrMask])<<8 | uint16(vm.Memory[(vm.PC+1)&addrMask])
	vm.PC += 2
	return vm.execute(decode(word))
}

func (vm *VM) execute(op opcode) error {
	switch op.word >> 12 {
	case 0x0:
		switch op.word {
		case 0x00E0: // CLS
			vm.ClearDisplay()
		case 0x00EE: // RET
			if vm.SP == 0 {
				return ErrStackUnderflow
			}
			vm.SP--
			vm.PC = vm.Stack[vm.SP]
		default:
			// 0NNN machine code routines are not emulated.
			vm.reportUnknown(op)
		}

	case 0x1: // JP addr
		vm.PC = op.addr

	case 0x2: // CALL addr
		if vm.SP == StackDepth {
			return ErrStackOverflow
		}
		vm.Stack[vm.SP] = vm.PC
		vm.SP++
		vm.PC = op.addr

	case 0x3: // SE Vx, byte
		if vm.V[op.x] == op.kk {
			vm.PC += 2
		}

	case 0x4: // SNE Vx, byte
		if vm.V[op.x] != op.kk {
			vm.PC += 2
		}

	case 0x5: // SE Vx, Vy
		if op.n != 0 {
			vm.reportUnknown(op)
			break
		}
		if vm.V[op.x] == vm.V[op.y] {
			vm.PC += 2
		}

	case 0x6: // LD Vx, byte
		vm.V[op.x] = op.kk

	case 0x7: // ADD Vx, byte (wrapping, no flag)
		vm.V[op.x] += op.kk

	case 0x8:
		vm.executeALU(op)

	case 0x9: // SNE Vx, Vy
		if op.n != 0 {
			vm.reportUnknown(op)
			break
		}
		if vm.V[op.x] != vm.V[op.y] {
			vm.PC += 2
		}

	case 0xA: // LD I, addr
		vm.I = op.addr

	case 0xB: // JP V0, addr
		vm.PC = op.addr + uint16(vm.V[0])

	case 0xC: // RND Vx, byte
		vm.V[op.x] = byte(vm.Rand.Intn(256)) & op.kk

	case 0xD: // DRW Vx, Vy, nibble
		vm.draw(op)

	case 0xE:
		switch op.kk {
		case 0x9E: // SKP Vx
			if vm.Key == vm.V[op.x] {
				vm.PC += 2
			}
		case 0xA1: // SKNP Vx
			if vm.Key != vm.V[op.x] {
				vm.PC += 2
			}
		default:
			vm.reportUnknown(op)
		}

	case 0xF:
		vm.executeMisc(op)
	}
	return nil
}

// executeALU handles the 8XYN register-register operations.
func (vm *VM) executeALU(op opcode) {
	switch op.n {
	case 0x0: // LD Vx, Vy
		vm.V[op.x] = vm.V[op.y]

	case 0x1: // OR Vx, Vy
		vm.V[op.x] |= vm.V[op.y]

	case 0x2: // AND Vx, Vy
		vm.V[op.x] &= vm.V[op.y]

	case 0x3: // XOR Vx, Vy
		vm.V[op.x] ^= vm.V[op.y]

	case 0x4: // ADD Vx, Vy with carry
		sum := uint16(vm.V[op.x]) + uint16(vm.V[op.y])
		vm.V[op.x] = byte(sum)
		vm.V[flagReg] = byte(sum >> 8)

	case 0x5: // SUB Vx, Vy; VF = 1 when no borrow
		vm.V[flagReg] = flagByte(vm.V[op.x] >= vm.V[op.y])
		vm.V[op.x] -= vm.V[op.y]

	case 0x6: // SHR Vx {, Vy}
		if vm.ShiftUsesVY {
			vm.V[flagReg] = vm.V[op.y] & 0x01
			vm.V[op.x] = vm.V[op.y] >> 1
		} else {
			vm.V[flagReg] = vm.V[op.x] & 0x01
			vm.V[op.x] >>= 1
		}

	case 0x7: // SUBN Vx, Vy; VF = 1 when no borrow
		vm.V[flagReg] = flagByte(vm.V[op.y] >= vm.V[op.x])
		vm.V[op.x] = vm.V[op.y] - vm.V[op.x]

	case 0xE: // SHL Vx {, Vy}
		if vm.ShiftUsesVY {
			vm.V[flagReg] = vm.V[op.y] >> 7
			vm.V[op.x] = vm.V[op.y] << 1
		} else {
			vm.V[flagReg] = vm.V[op.x] >> 7
			vm.V[op.x] <<= 1
		}

	default:
		vm.reportUnknown(op)
	}
}

// executeMisc handles the FXNN timer, input, memory and BCD operations.
func (vm *VM) executeMisc(op opcode) {
	switch op.kk {
	case 0x07: // LD Vx, DT
		vm.V[op.x] = vm.DelayTimer

	case 0x0A: // LD Vx, K - busy-wait by re-executing until a key is latched
		if vm.Key == NoKey {
			vm.PC -= 2
			return
		}
		vm.V[op.x] = vm.Key

	case 0x15: // LD DT, Vx
		vm.DelayTimer = vm.V[op.x]

	case 0x18: // LD ST, Vx
		vm.SoundTimer = vm.V[op.x]

	case 0x1E: // ADD I, Vx; VF = 1 on 12-bit range overflow
		sum := vm.I + uint16(vm.V[op.x])
		vm.V[flagReg] = flagByte(sum > addrMask)
		vm.I = sum & addrMask

	case 0x29: // LD F, Vx - glyph sprite address
		vm.I = (uint16(vm.V[op.x]) * glyphSize) & addrMask

	case 0x33: // LD B, Vx - BCD digits at I, I+1, I+2
		v := vm.V[op.x]
		vm.Memory[vm.I&addrMask] = v / 100
		vm.Memory[(vm.I+1)&addrMask] = v / 10 % 10
		vm.Memory[(vm.I+2)&addrMask] = v % 10

	case 0x55: // LD [I], V0..Vx
		for r := uint16(0); r <= uint16(op.x); r++ {
			vm.Memory[(vm.I+r)&addrMask] = vm.V[r]
		}
		if vm.IndexAutoIncrement {
			vm.I += uint16(op.x) + 1
		}

	case 0x65: // LD V0..Vx, [I]
		for r := uint16(0); r <= uint16(op.x); r++ {
			vm.V[r] = vm.Memory[(vm.I+r)&addrMask]
		}
		if vm.IndexAutoIncrement {
			vm.I += uint16(op.x) + 1
		}

	default:
		vm.reportUnknown(op)
	}
}

// draw XORs an n-row sprite read from memory at I onto the framebuffer at
// (Vx mod 64, Vy mod 32), wrapping rows and columns. VF is cleared first and
// set to 1 if any lit pixel is turned off.
func (vm *VM) draw(op opcode) {
	vm.V[flagReg] = 0

	for row := uint16(0); row < uint16(op.n); row++ {
		sprite := vm.Memory[(vm.I+row)&addrMask]
		py := (uint16(vm.V[op.y]) + row) % DisplayHeight

		for bit := uint16(0); bit < 8; bit++ {
			if sprite&(0x80>>bit) == 0 {
				continue
			}
			px := (uint16(vm.V[op.x]) + bit) % DisplayWidth
			idx := py*DisplayWidth + px
			if vm.display[idx] != 0 {
				vm.display[idx] = 0
				vm.V[flagReg] = 1
			} else {
				vm.display[idx] = 1
			}
		}
	}
}

func (vm *VM) reportUnknown(op opcode) {
	vm.logger.Warn("Unknown opcode",
		log.Hex("opcode", op.word),
		log.Hex("pc", vm.PC-2))
}

func flagByte(set bool) byte {
	if set {
		return 1
	}
	return 0
}
