package app

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"nesgo/internal/console"
	"nesgo/internal/input"
)

// Game adapts a Console to ebiten's Update/Draw/Layout contract.
type Game struct {
	console *console.Console
	config  *Config
	image   *ebiten.Image

	keyBindings map[input.Button]ebiten.Key
	frameCount  uint64
}

// NewGame builds a Game around an already-loaded Console.
func NewGame(c *console.Console, cfg *Config) *Game {
	return &Game{
		console:     c,
		config:      cfg,
		image:       ebiten.NewImage(baseWidth, baseHeight),
		keyBindings: resolveKeyBindings(cfg.Input),
	}
}

// Update runs exactly one emulated frame per ebiten tick.
func (g *Game) Update() error {
	g.console.SetButtons(g.pollButtons())
	g.console.StepFrame()
	g.frameCount++
	return nil
}

// Draw blits the console's completed frame buffer into the ebiten screen.
func (g *Game) Draw(screen *ebiten.Image) {
	buffer := g.console.FrameBuffer()
	pixels := make([]byte, baseWidth*baseHeight*4)
	for i, color := range buffer {
		pixels[i*4+0] = uint8(color >> 16)
		pixels[i*4+1] = uint8(color >> 8)
		pixels[i*4+2] = uint8(color)
		pixels[i*4+3] = 0xFF
	}
	g.image.WritePixels(pixels)

	width, height := g.config.WindowResolution()
	options := &ebiten.DrawImageOptions{}
	options.GeoM.Scale(float64(width)/baseWidth, float64(height)/baseHeight)
	screen.DrawImage(g.image, options)

	if g.config.Debug.ShowOverlay {
		ebiten.SetWindowTitle(fmt.Sprintf("nesgo - frame %d", g.frameCount))
	}
}

// Layout reports the fixed emulated resolution scaled per configuration.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.config.WindowResolution()
}

func (g *Game) pollButtons() uint8 {
	var mask uint8
	for button, key := range g.keyBindings {
		if ebiten.IsKeyPressed(key) {
			mask |= uint8(button)
		}
	}
	return mask
}

var keyNames = map[string]ebiten.Key{
	"Up": ebiten.KeyUp, "Down": ebiten.KeyDown, "Left": ebiten.KeyLeft, "Right": ebiten.KeyRight,
	"Enter": ebiten.KeyEnter, "ShiftLeft": ebiten.KeyShiftLeft, "Space": ebiten.KeySpace,
	"KeyZ": ebiten.KeyZ, "KeyX": ebiten.KeyX, "KeyA": ebiten.KeyA, "KeyS": ebiten.KeyS,
}

func resolveKeyBindings(cfg InputConfig) map[input.Button]ebiten.Key {
	lookup := func(name string) ebiten.Key {
		if key, ok := keyNames[name]; ok {
			return key
		}
		return ebiten.KeyUp // harmless default for an unrecognized binding
	}
	return map[input.Button]ebiten.Key{
		input.ButtonUp:     lookup(cfg.Up),
		input.ButtonDown:   lookup(cfg.Down),
		input.ButtonLeft:   lookup(cfg.Left),
		input.ButtonRight:  lookup(cfg.Right),
		input.ButtonA:      lookup(cfg.A),
		input.ButtonB:      lookup(cfg.B),
		input.ButtonStart:  lookup(cfg.Start),
		input.ButtonSelect: lookup(cfg.Select),
	}
}
