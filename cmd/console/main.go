// Console front end: runs a ROM headless at the 60 Hz timer cadence and
// renders the final framebuffer as ASCII, or prints a disassembly listing
// with -list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"gochip8/pkg/chip8"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type options struct {
	list    bool
	trace   bool
	frames  int
	cycles  int
	shiftVY bool
	incI    bool
	debug   bool
}

func main() {
	opts := options{}
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.BoolVar(&opts.list, "list", false, "print a disassembly listing instead of running")
	flag.BoolVar(&opts.trace, "trace", false, "log every executed instruction")
	flag.IntVar(&opts.frames, "frames", 600, "number of 60 Hz frames to run")
	flag.IntVar(&opts.cycles, "cycles", 10, "interpreter steps per frame")
	flag.BoolVar(&opts.shiftVY, "shift-vy", false, "shift instructions use VY as source")
	flag.BoolVar(&opts.incI, "inc-i", false, "register block transfers advance I")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Version(version, commit, date))
		return
	}

	cfg := log.DefaultConfig()
	if opts.debug || opts.trace {
		cfg.Level = log.DebugLevel
	}
	logger := log.NewWithConfig(cfg)

	if flag.NArg() != 1 {
		logger.Fatal("Usage: console [flags] <rom.ch8>")
	}
	rom, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Fatal("Reading ROM failed", log.Err(err))
	}

	if opts.list {
		listing(rom)
		return
	}

	if err := run(app.Context(), logger, rom, opts); err != nil {
		logger.Fatal("Run failed", log.Err(err))
	}
}

// listing prints one line per instruction word: address, raw bytes and the
// decoded assembly. Words that do not decode are shown as data.
func listing(rom []byte) {
	for i := 0; i+1 < len(rom); i += 2 {
		word := uint16(rom[i])<<8 | uint16(rom[i+1])
		asm := chip8.Disassemble(word)
		if asm == "" {
			asm = fmt.Sprintf(".word $%04X", word)
		}
		fmt.Printf("$%03X: %02X %02X  %s\n", chip8.ProgramStart+i, rom[i], rom[i+1], asm)
	}
}

// run executes the ROM for the requested number of frames, ticking timers at
// 60 Hz, then prints the final framebuffer. Ctrl+C stops the run early.
func run(ctx context.Context, logger *log.Logger, rom []byte, opts options) error {
	vm := chip8.New(logger)
	vm.ShiftUsesVY = opts.shiftVY
	vm.IndexAutoIncrement = opts.incI

	if err := vm.Load(rom); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

loop:
	for frame := 0; frame < opts.frames; frame++ {
		select {
		case <-ctx.Done():
			logger.Info("Run cancelled")
			break loop
		case <-ticker.C:
		}

		for i := 0; i < opts.cycles; i++ {
			if opts.trace {
				word := uint16(vm.Memory[vm.PC&0xFFF])<<8 | uint16(vm.Memory[(vm.PC+1)&0xFFF])
				logger.Debug("Step",
					log.Hex("pc", vm.PC),
					log.Hex("opcode", word),
					log.String("asm", chip8.Disassemble(word)))
			}
			if err := vm.Step(); err != nil {
				return err
			}
		}
		vm.TickTimers()
	}

	fmt.Println(renderASCII(vm.Pixels()))
	return nil
}

// renderASCII draws the framebuffer with two characters per pixel so the
// aspect ratio roughly survives a terminal font.
func renderASCII(pixels []byte) string {
	var b strings.Builder
	for y := 0; y < chip8.DisplayHeight; y++ {
		for x := 0; x < chip8.DisplayWidth; x++ {
			if pixels[y*chip8.DisplayWidth+x] != 0 {
				b.WriteString("##")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
