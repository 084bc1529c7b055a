package chip8

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// lookupOpcode matches an instruction word against the canonical CHIP-8
// opcode table.
func lookupOpcode(word uint16) (chip8.Opcode, bool) {
	for _, op := range chip8.Opcodes[int(word>>12)] {
		if op.Info.Mask&word == op.Info.Value {
			return op, true
		}
	}
	return chip8.Opcode{}, false
}

// Disassemble returns the assembly form of one instruction word, for example
// "ld V3, $0A" or "jp $228". It returns "" for words that do not decode to a
// CHIP-8 instruction.
func Disassemble(word uint16) string {
	op, ok := lookupOpcode(word)
	if !ok || op.Instruction == nil {
		return ""
	}
	name := op.Instruction.Name
	if params := formatParams(name, word); params != "" {
		return name + " " + params
	}
	return name
}

// formatParams renders the operand list for an instruction name. The operand
// encoding depends on the opcode family, so the raw word is consulted again.
func formatParams(name string, word uint16) string {
	fields := decode(word)

	switch name {
	case chip8.JpName:
		if word>>12 == 0xB {
			return fmt.Sprintf("V0, $%03X", fields.addr)
		}
		return fmt.Sprintf("$%03X", fields.addr)

	case chip8.CallName:
		return fmt.Sprintf("$%03X", fields.addr)

	case chip8.SeName, chip8.SneName:
		if word>>12 == 0x5 || word>>12 == 0x9 {
			return fmt.Sprintf("V%X, V%X", fields.x, fields.y)
		}
		return fmt.Sprintf("V%X, $%02X", fields.x, fields.kk)

	case chip8.LdName:
		return formatLoadParams(fields)

	case chip8.AddName:
		switch word >> 12 {
		case 0x7:
			return fmt.Sprintf("V%X, $%02X", fields.x, fields.kk)
		case 0xF:
			return fmt.Sprintf("I, V%X", fields.x)
		}
		return fmt.Sprintf("V%X, V%X", fields.x, fields.y)

	case chip8.OrName, chip8.AndName, chip8.XorName, chip8.SubName, chip8.SubnName:
		return fmt.Sprintf("V%X, V%X", fields.x, fields.y)

	case chip8.ShrName, chip8.ShlName, chip8.SkpName, chip8.SknpName:
		return fmt.Sprintf("V%X", fields.x)

	case chip8.RndName:
		return fmt.Sprintf("V%X, $%02X", fields.x, fields.kk)

	case chip8.DrwName:
		return fmt.Sprintf("V%X, V%X, $%X", fields.x, fields.y, fields.n)
	}
	return ""
}

// formatLoadParams covers the many LD encodings: immediate, register,
// index, timers, key wait, glyph, BCD and register block transfers.
func formatLoadParams(fields opcode) string {
	switch fields.word >> 12 {
	case 0x6:
		return fmt.Sprintf("V%X, $%02X", fields.x, fields.kk)
	case 0x8:
		return fmt.Sprintf("V%X, V%X", fields.x, fields.y)
	case 0xA:
		return fmt.Sprintf("I, $%03X", fields.addr)
	case 0xF:
		switch fields.kk {
		case 0x07:
			return fmt.Sprintf("V%X, DT", fields.x)
		case 0x0A:
			return fmt.Sprintf("V%X, K", fields.x)
		case 0x15:
			return fmt.Sprintf("DT, V%X", fields.x)
		case 0x18:
			return fmt.Sprintf("ST, V%X", fields.x)
		case 0x29:
			return fmt.Sprintf("F, V%X", fields.x)
		case 0x33:
			return fmt.Sprintf("B, V%X", fields.x)
		case 0x55:
			return fmt.Sprintf("[I], V%X", fields.x)
		case 0x65:
			return fmt.Sprintf("V%X, [I]", fields.x)
		}
	}
	return ""
}
