package chip8

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/retroenv/retrogolib/log"
)

// newTestVM creates a machine with a test logger and a fixed random seed.
func newTestVM(t *testing.T) *VM {
	t.Helper()
	vm := New(log.NewTestLogger(t))
	vm.Rand = rand.New(rand.NewSource(1))
	return vm
}

// loadWords writes big-endian instruction words into memory starting at
// ProgramStart, bypassing Load.
func loadWords(vm *VM, words ...uint16) {
	addr := uint16(ProgramStart)
	for _, w := range words {
		vm.Memory[addr] = byte(w >> 8)
		vm.Memory[addr+1] = byte(w)
		addr += 2
	}
}

// step executes one instruction and fails the test on a machine fault.
func step(t *testing.T, vm *VM) {
	t.Helper()
	if err := vm.Step(); err != nil {
		t.Fatalf("Step: unexpected error: %v", err)
	}
}

func TestNewInstallsGlyphs(t *testing.T) {
	vm := newTestVM(t)

	if !bytes.Equal(vm.Memory[:len(fontset)], fontset[:]) {
		t.Error("glyph set not present at address 0")
	}
	if vm.PC != ProgramStart {
		t.Errorf("PC: expected 0x%03X, got 0x%03X", ProgramStart, vm.PC)
	}
	if vm.Key != NoKey {
		t.Errorf("Key: expected NoKey, got 0x%02X", vm.Key)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	vm := newTestVM(t)

	program := []byte{0x60, 0x2A, 0x12, 0x00}
	if err := vm.Load(program); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(vm.Memory[ProgramStart:ProgramStart+len(program)], program) {
		t.Error("program bytes differ at ProgramStart")
	}
}

func TestLoadTooLarge(t *testing.T) {
	vm := newTestVM(t)
	vm.V[3] = 0x42
	vm.PC = 0x300

	err := vm.Load(make([]byte, MaxProgramSize+1))
	if !errors.Is(err, ErrProgramTooLarge) {
		t.Fatalf("Load: expected ErrProgramTooLarge, got %v", err)
	}
	// A failed load must leave the previous state untouched.
	if vm.V[3] != 0x42 || vm.PC != 0x300 {
		t.Error("state changed after rejected load")
	}

	if err := vm.Load(make([]byte, MaxProgramSize)); err != nil {
		t.Errorf("Load: maximum size program rejected: %v", err)
	}
}

func TestLoadResetsEverything(t *testing.T) {
	vm := newTestVM(t)
	if err := vm.Load([]byte{0x00, 0xE0}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Dirty every part of the machine state.
	vm.V = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	vm.I = 0x123
	vm.PC = 0x456
	vm.SP = 3
	vm.Stack[0] = 0x333
	vm.DelayTimer = 9
	vm.SoundTimer = 9
	vm.Key = 0x7
	vm.display[0] = 1
	vm.Memory[0x400] = 0xAB

	if err := vm.Load([]byte{0x12, 0x00}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if vm.V != [16]byte{} {
		t.Error("registers not cleared")
	}
	if vm.I != 0 || vm.SP != 0 || vm.Stack[0] != 0 {
		t.Error("index register or stack not cleared")
	}
	if vm.PC != ProgramStart {
		t.Errorf("PC: expected 0x%03X, got 0x%03X", ProgramStart, vm.PC)
	}
	if vm.DelayTimer != 0 || vm.SoundTimer != 0 {
		t.Error("timers not cleared")
	}
	if vm.Key != NoKey {
		t.Error("input latch not cleared")
	}
	if vm.display[0] != 0 {
		t.Error("framebuffer not cleared")
	}
	if vm.Memory[0x400] != 0 {
		t.Error("old program memory not cleared")
	}
	if !bytes.Equal(vm.Memory[:len(fontset)], fontset[:]) {
		t.Error("glyph set lost after reload")
	}
}

func TestTickTimers(t *testing.T) {
	vm := newTestVM(t)
	vm.DelayTimer = 30
	vm.SoundTimer = 2

	for i := 0; i < 60; i++ {
		vm.TickTimers()
	}
	if vm.DelayTimer != 0 {
		t.Errorf("DelayTimer: expected 0, got %d", vm.DelayTimer)
	}
	if vm.SoundTimer != 0 {
		t.Errorf("SoundTimer: expected 0, got %d", vm.SoundTimer)
	}
}

func TestSetKey(t *testing.T) {
	vm := newTestVM(t)

	vm.SetKey(0xA)
	if vm.Key != 0xA {
		t.Errorf("Key: expected 0xA, got 0x%02X", vm.Key)
	}
	vm.SetKey(NoKey)
	if vm.Key != NoKey {
		t.Errorf("Key: expected NoKey, got 0x%02X", vm.Key)
	}
}

func TestPixelsIsACopy(t *testing.T) {
	vm := newTestVM(t)
	vm.display[5] = 1

	pixels := vm.Pixels()
	if pixels[5] != 1 {
		t.Error("Pixels: lit pixel missing")
	}
	pixels[5] = 0
	if vm.display[5] != 1 {
		t.Error("Pixels: mutating the returned slice changed the framebuffer")
	}
}
