// Command nesgo runs the NES emulator, either as an ebiten GUI window or, in
// headless mode, stepping a fixed number of frames without a display.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"nesgo/internal/app"
	"nesgo/internal/console"
	"nesgo/internal/version"
)

func main() {
	romPath := flag.String("rom", "", "path to an iNES (.nes) ROM file")
	configPath := flag.String("config", "", "path to a JSON config file")
	headless := flag.Bool("nogui", false, "run without a window, stepping a fixed number of frames")
	frames := flag.Int("frames", 120, "frames to run in headless mode")
	debug := flag.Bool("debug", false, "enable debug overlay")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}

	if *romPath == "" {
		log.Fatal("a ROM file is required: -rom <file.nes>")
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = app.GetDefaultConfigPath()
	}
	cfg, err := app.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *debug {
		cfg.Debug.Enabled = true
		cfg.Debug.ShowOverlay = true
	}

	romFile, err := os.Open(*romPath)
	if err != nil {
		log.Fatalf("opening ROM: %v", err)
	}
	defer romFile.Close()

	nes := console.New()
	if err := nes.Load(romFile); err != nil {
		log.Fatalf("loading ROM: %v", err)
	}

	if *headless {
		runHeadless(nes, *frames)
		return
	}

	game := app.NewGame(nes, cfg)
	width, height := cfg.WindowResolution()
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle("nesgo")
	ebiten.SetVsyncEnabled(cfg.Window.VSync)
	ebiten.SetFullscreen(cfg.Window.Fullscreen)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatalf("running game: %v", err)
	}
}

func runHeadless(nes *console.Console, frames int) {
	for i := 0; i < frames; i++ {
		nes.StepFrame()
	}
	fmt.Printf("ran %d frames, %d CPU cycles\n", frames, nes.CPUCycles())
}
