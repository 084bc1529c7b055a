// Desktop front end: an ebiten window that displays the CHIP-8 framebuffer,
// forwards the keyboard to the input latch and paces the interpreter at
// 60 frames per second.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	text "github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/font/basicfont"

	"gochip8/pkg/chip8"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const hudHeight = 16

// keypad maps physical keys to the logical 0x0-0xF CHIP-8 keypad.
var keypad = [16]ebiten.Key{
	ebiten.KeyDigit0, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7,
	ebiten.KeyDigit8, ebiten.KeyDigit9, ebiten.KeyA, ebiten.KeyB,
	ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF,
}

type Game struct {
	vm     *chip8.VM
	logger *log.Logger

	roms     []string
	romIndex int

	cyclesPerFrame int
	scale          int
	paused         bool

	screenImg *ebiten.Image // reused 64x32 framebuffer texture
	face      text.Face
}

// pollKeypad latches the first pressed keypad key, or NoKey when none is
// held. The machine only tracks a single key.
func (g *Game) pollKeypad() {
	for k, key := range keypad {
		if ebiten.IsKeyPressed(key) {
			g.vm.SetKey(byte(k))
			return
		}
	}
	g.vm.SetKey(chip8.NoKey)
}

func (g *Game) loadROM(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		g.logger.Error("Reading ROM failed", log.Err(err))
		return
	}
	if err := g.vm.Load(data); err != nil {
		g.logger.Error("Loading ROM failed",
			log.String("rom", path), log.Err(err))
		return
	}
	g.logger.Info("ROM loaded", log.String("rom", filepath.Base(path)))
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		g.loadROM(g.roms[g.romIndex])
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) && len(g.roms) > 1 {
		g.romIndex = (g.romIndex + 1) % len(g.roms)
		g.loadROM(g.roms[g.romIndex])
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		name := fmt.Sprintf("chip8-%d.png", time.Now().Unix())
		if err := g.vm.SaveScreenshot(name); err != nil {
			g.logger.Error("Screenshot failed", log.Err(err))
		} else {
			g.logger.Info("Screenshot saved", log.String("file", name))
		}
	}

	g.pollKeypad()

	if g.paused {
		return nil
	}

	for i := 0; i < g.cyclesPerFrame; i++ {
		if err := g.vm.Step(); err != nil {
			// Stack faults leave the machine in an unusable state;
			// pause and wait for a reset (F2).
			g.logger.Error("Execution fault", log.Err(err))
			g.paused = true
			break
		}
	}

	// Update runs at ebiten's fixed 60 TPS, which is exactly the timer cadence.
	g.vm.TickTimers()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(chip8.DisplayWidth, chip8.DisplayHeight)
	}
	g.screenImg.WritePixels(g.vm.RGBA())

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.screenImg, op)

	hud := filepath.Base(g.roms[g.romIndex])
	if g.paused {
		hud += "  [PAUSED]"
	} else {
		hud += fmt.Sprintf("  %.0f tps", ebiten.ActualTPS())
	}
	top := &text.DrawOptions{}
	top.GeoM.Translate(2, float64(chip8.DisplayHeight*g.scale+2))
	top.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, hud, g.face, top)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return chip8.DisplayWidth * g.scale, chip8.DisplayHeight*g.scale + hudHeight
}

// findROMs lists the .ch8 files in dir, sorted by name.
func findROMs(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.ch8"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func main() {
	romPath := flag.String("rom", "", "ROM file to run (overrides -roms)")
	romDir := flag.String("roms", "roms", "directory to scan for .ch8 files")
	cycles := flag.Int("cycles", 10, "interpreter steps per frame")
	scale := flag.Int("scale", 8, "display scale factor")
	shiftVY := flag.Bool("shift-vy", false, "shift instructions use VY as source")
	incI := flag.Bool("inc-i", false, "register block transfers advance I")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Version(version, commit, date))
		return
	}

	cfg := log.DefaultConfig()
	if *debug {
		cfg.Level = log.DebugLevel
	}
	logger := log.NewWithConfig(cfg)

	var roms []string
	if *romPath != "" {
		roms = []string{*romPath}
	} else {
		var err error
		roms, err = findROMs(*romDir)
		if err != nil {
			logger.Fatal("Scanning ROM directory failed", log.Err(err))
		}
		if len(roms) == 0 {
			logger.Fatal("No .ch8 files found", log.String("dir", *romDir))
		}
	}

	vm := chip8.New(logger)
	vm.ShiftUsesVY = *shiftVY
	vm.IndexAutoIncrement = *incI

	game := &Game{
		vm:             vm,
		logger:         logger,
		roms:           roms,
		cyclesPerFrame: *cycles,
		scale:          *scale,
		face:           text.NewGoXFace(basicfont.Face7x13),
	}
	game.loadROM(roms[0])

	ebiten.SetWindowSize(chip8.DisplayWidth*game.scale, chip8.DisplayHeight*game.scale+hudHeight)
	ebiten.SetWindowTitle("gochip8")
	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("Running game failed", log.Err(err))
	}
}
