// Package ui is the ebiten front end: window, keyboard, audio player and a
// small overlay menu.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/joypad"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

// keymap binds host keys to console buttons.
var keymap = []struct {
	key ebiten.Key
	btn joypad.Button
}{
	{ebiten.KeyArrowRight, joypad.Right},
	{ebiten.KeyArrowLeft, joypad.Left},
	{ebiten.KeyArrowUp, joypad.Up},
	{ebiten.KeyArrowDown, joypad.Down},
	{ebiten.KeyZ, joypad.A},
	{ebiten.KeyX, joypad.B},
	{ebiten.KeyShiftRight, joypad.Select},
	{ebiten.KeyEnter, joypad.Start},
}

type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	paused bool
	fast   bool
	muted  atomic.Bool // read by the audio player goroutine

	curW, curH int

	// overlay/menu
	showMenu bool
	menuMode string // "main", "rom", "cheats", "keys"
	menuIdx  int
	romList  []string
	romSel   int
	romOff   int
	keysOff  int

	toastMsg   string
	toastUntil time.Time

	audioQ      *sampleQueue
	audioPlayer *audio.Player
}

func NewApp(cfg Config, m *emu.Machine) (*App, error) {
	cfg.Defaults()
	a := &App{cfg: cfg, m: m, menuMode: "main"}
	a.muted.Store(cfg.Muted)
	a.applyWindowSize()
	ebiten.SetWindowTitle(a.windowTitle())
	if m.APU != nil {
		if err := a.startAudio(m.APU.SampleRate()); err != nil {
			return nil, fmt.Errorf("ui: audio: %w", err)
		}
	}
	return a, nil
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) applyWindowSize() {
	ebiten.SetWindowSize(ppu.Width*a.cfg.Scale, ppu.Height*a.cfg.Scale)
}

func (a *App) windowTitle() string {
	if a.m.Cart != nil && a.m.Cart.Header.Title != "" {
		return a.cfg.Title + " - [" + a.m.Cart.Header.Title + "]"
	}
	return a.cfg.Title
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.showMenu = !a.showMenu
		a.menuMode, a.menuIdx = "main", 0
	}
	if a.showMenu {
		a.updateMenu()
		return nil
	}

	for _, k := range keymap {
		a.m.SetButton(k.btn, ebiten.IsKeyPressed(k.key))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		a.muted.Store(!a.muted.Load())
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.Reset()
		a.toast("Reset")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		a.cyclePalette(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if name, err := a.saveScreenshot(); err == nil {
			a.toast("Saved " + name)
		} else {
			a.toast("Screenshot failed: " + err.Error())
		}
	}

	switch {
	case a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN):
		a.runFrames(1)
	case a.paused:
	case a.fast:
		a.runFrames(5)
		if a.audioQ != nil {
			a.audioQ.clear()
		}
	default:
		a.runFrames(1)
	}
	return nil
}

// runFrames emulates n frames and pauses on a CPU fault so the state can be
// inspected.
func (a *App) runFrames(n int) {
	if a.m.Cart == nil {
		return
	}
	for i := 0; i < n; i++ {
		if err := a.m.StepFrame(); err != nil {
			a.paused = true
			a.toast(err.Error())
			break
		}
	}
	a.pumpAudio()
}

func (a *App) cyclePalette(dir int) {
	n := len(ppu.Palettes)
	id := ppu.PaletteID((int(a.m.Palette()) + dir + n) % n)
	a.m.SetPalette(id)
	a.toast("Palette: " + id.String())
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(ppu.Width, ppu.Height)
	}
	if f := a.m.Frame(); f != nil {
		a.tex.WritePixels(f.RGBA[:])
	}
	op := &ebiten.DrawImageOptions{}
	sx := float64(a.curW) / ppu.Width
	sy := float64(a.curH) / ppu.Height
	op.GeoM.Scale(sx, sy)
	screen.DrawImage(a.tex, op)

	if a.showMenu {
		vector.DrawFilledRect(screen, 0, 0, float32(a.curW), float32(a.curH), color.RGBA{0, 0, 0, 0xC0}, false)
		a.drawMenu(screen)
		return
	}
	if a.paused {
		ebitenutil.DebugPrintAt(screen, "PAUSED (N: step, P: resume)", 4, 4)
	}
	if time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.truncateText(a.toastMsg, a.maxCharsForText(4)), 4, a.curH-18)
	}
}

func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = outW, outH
	return outW, outH
}

func (a *App) saveScreenshot() (string, error) {
	f := a.m.Frame()
	if f == nil {
		return "", fmt.Errorf("no frame")
	}
	img := &image.RGBA{
		Pix:    append([]byte(nil), f.RGBA[:]...),
		Stride: 4 * ppu.Width,
		Rect:   image.Rect(0, 0, ppu.Width, ppu.Height),
	}
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	out, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer out.Close()
	return name, png.Encode(out, img)
}
