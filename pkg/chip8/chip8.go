// Package chip8 implements a CHIP-8 virtual machine: 4K of memory, sixteen
// 8-bit registers, a 16-entry call stack, two 60 Hz countdown timers and a
// 64x32 monochrome framebuffer.
//
// The VM performs no timing or threading of its own. The host drives it by
// calling Step some number of times per displayed frame, TickTimers once per
// 60 Hz tick, and SetKey whenever the pressed key changes.
package chip8

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/retroenv/retrogolib/log"
)

const (
	// MemorySize is the full addressable memory of the machine.
	MemorySize = 4096

	// ProgramStart is the address programs are loaded at and execute from.
	// Everything below it is reserved for the interpreter and the glyph set.
	ProgramStart = 0x200

	// MaxProgramSize is the largest ROM that fits above ProgramStart.
	MaxProgramSize = MemorySize - ProgramStart

	// DisplayWidth and DisplayHeight are the framebuffer dimensions in pixels.
	DisplayWidth  = 64
	DisplayHeight = 32

	// StackDepth is the maximum number of nested calls.
	StackDepth = 16

	// NoKey is the input latch sentinel meaning no key is pressed.
	NoKey = 0xFF

	// flagReg is V15, overwritten by the carry/borrow/collision instructions.
	flagReg = 0xF

	// addrMask bounds memory addresses to the architectural 12 bits.
	addrMask = 0xFFF

	// glyphSize is the height in bytes of one built-in hex digit sprite.
	glyphSize = 5
)

// fontset holds the built-in hexadecimal glyphs, one 4x5 sprite per digit,
// stored at the bottom of memory.
var fontset = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// ErrProgramTooLarge is returned by Load when the ROM does not fit above
// ProgramStart. The VM state is left untouched.
var ErrProgramTooLarge = errors.New("program exceeds available memory")

// ErrStackOverflow is returned by Step when a call would exceed StackDepth
// nested calls. The architecture leaves this undefined; failing fast keeps
// the machine deterministic.
var ErrStackOverflow = errors.New("call stack overflow")

// ErrStackUnderflow is returned by Step on a return with an empty call stack.
var ErrStackUnderflow = errors.New("call stack underflow")

// VM is a single CHIP-8 machine instance. It is not safe for concurrent use;
// run multiple ROMs with independent instances.
type VM struct {
	Memory [MemorySize]byte

	// V are the general purpose registers. V[15] doubles as the flag
	// register and is stored like any other slot; only the explicit
	// flag-writing instructions treat it specially.
	V [16]byte

	// I is the index register. Only the low 12 bits are meaningful.
	I uint16

	// PC is the program counter. All instructions are 2 bytes, big-endian.
	PC uint16

	Stack [StackDepth]uint16
	SP    uint8

	// DelayTimer and SoundTimer count down to zero at 60 Hz, driven
	// externally through TickTimers.
	DelayTimer byte
	SoundTimer byte

	// Key is the input latch: the currently pressed key (0x0-0xF) or NoKey.
	Key byte

	// ShiftUsesVY makes 8XY6/8XYE shift VY into VX instead of shifting VX
	// in place, matching older interpreters. Some ROMs need one behavior,
	// some the other.
	ShiftUsesVY bool

	// IndexAutoIncrement makes FX55/FX65 advance I by X+1 afterwards.
	IndexAutoIncrement bool

	// Rand is the byte source for the RND instruction. Replace it with a
	// seeded source for reproducible runs.
	Rand *rand.Rand

	display [DisplayWidth * DisplayHeight]byte

	logger *log.Logger
}

// New returns a machine with the glyph set installed and the program counter
// at ProgramStart. A nil logger falls back to the default configuration.
func New(logger *log.Logger) *VM {
	if logger == nil {
		logger = log.NewWithConfig(log.DefaultConfig())
	}
	vm := &VM{
		PC:     ProgramStart,
		Key:    NoKey,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
	copy(vm.Memory[:], fontset[:])
	return vm
}

// Load resets the machine to its power-on baseline and copies program into
// memory at ProgramStart. If program does not fit, ErrProgramTooLarge is
// returned and the previous state is left unchanged.
func (vm *VM) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	vm.Reset()
	copy(vm.Memory[ProgramStart:], program)

	vm.logger.Debug("Program loaded",
		log.Int("size", len(program)),
		log.Hex("start", uint16(ProgramStart)))
	return nil
}

// Reset returns every register, the stack, both timers, the input latch and
// the framebuffer to the power-on baseline. Program memory above ProgramStart
// is cleared as well; the glyph set stays in place.
func (vm *VM) Reset() {
	vm.Memory = [MemorySize]byte{}
	copy(vm.Memory[:], fontset[:])

	vm.V = [16]byte{}
	vm.Stack = [StackDepth]uint16{}
	vm.SP = 0
	vm.I = 0
	vm.PC = ProgramStart
	vm.DelayTimer = 0
	vm.SoundTimer = 0
	vm.Key = NoKey
	vm.ClearDisplay()
}

// TickTimers decrements both countdown timers, saturating at zero. The host
// calls it once per 60 Hz tick, independent of the Step rate.
func (vm *VM) TickTimers() {
	if vm.DelayTimer > 0 {
		vm.DelayTimer--
	}
	if vm.SoundTimer > 0 {
		vm.SoundTimer--
	}
}

// SetKey overwrites the input latch with key (0x0-0xF) or NoKey. The machine
// has no concept of multiple simultaneous keys.
func (vm *VM) SetKey(key byte) {
	vm.Key = key
}

// ClearDisplay zeroes the framebuffer.
func (vm *VM) ClearDisplay() {
	vm.display = [DisplayWidth * DisplayHeight]byte{}
}

// Pixels returns a copy of the framebuffer, one byte per pixel (0 or 1),
// row-major.
func (vm *VM) Pixels() []byte {
	out := make([]byte, len(vm.display))
	copy(out, vm.display[:])
	return out
}
