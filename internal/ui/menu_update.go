package ui

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var mainMenuItems = []string{"Resume", "Reset", "Palette", "Switch ROM", "Cheats", "Keybindings", "Mute"}

func (a *App) updateMenu() {
	switch a.menuMode {
	case "rom":
		a.updateRomMenu()
	case "cheats":
		a.updateCheatMenu()
	case "keys":
		a.updateKeysMenu()
	default:
		a.updateMainMenu()
	}
}

func back() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyBackspace)
}

func (a *App) updateMainMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < len(mainMenuItems)-1 {
		a.menuIdx++
	}
	left := inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft)
	right := inpututil.IsKeyJustPressed(ebiten.KeyArrowRight)
	enter := inpututil.IsKeyJustPressed(ebiten.KeyEnter)

	switch mainMenuItems[a.menuIdx] {
	case "Resume":
		if enter {
			a.showMenu = false
		}
	case "Reset":
		if enter {
			a.m.Reset()
			a.toast("Reset")
			a.showMenu = false
		}
	case "Palette":
		if left {
			a.cyclePalette(-1)
		}
		if right || enter {
			a.cyclePalette(1)
		}
	case "Switch ROM":
		if enter {
			a.romList = a.findROMs()
			a.romSel, a.romOff = 0, 0
			a.menuMode = "rom"
		}
	case "Cheats":
		if enter {
			a.menuMode, a.menuIdx = "cheats", 0
		}
	case "Keybindings":
		if enter {
			a.menuMode, a.keysOff = "keys", 0
		}
	case "Mute":
		if left || right || enter {
			a.muted.Store(!a.muted.Load())
		}
	}
	if back() {
		a.showMenu = false
	}
}

// findROMs lists .gb/.gbc files under the configured directory.
func (a *App) findROMs() []string {
	var out []string
	_ = filepath.WalkDir(a.cfg.ROMsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		low := strings.ToLower(d.Name())
		if strings.HasSuffix(low, ".gb") || strings.HasSuffix(low, ".gbc") {
			out = append(out, path)
		}
		return nil
	})
	slices.Sort(out)
	return out
}

// savPath is where battery RAM for rom lives.
func savPath(rom string) string {
	return strings.TrimSuffix(rom, filepath.Ext(rom)) + ".sav"
}

// persistBattery writes battery RAM of the running cartridge, if any.
func (a *App) persistBattery() {
	if !a.cfg.SaveRAM || a.m.ROMPath() == "" {
		return
	}
	if data, ok := a.m.SaveBattery(); ok {
		_ = os.WriteFile(savPath(a.m.ROMPath()), data, 0o644)
	}
}

func (a *App) menuRows(baseY int) int {
	return max(1, (a.curH-baseY)/14)
}

func (a *App) updateRomMenu() {
	n := len(a.romList)
	if n == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || back() {
			a.menuMode = "main"
		}
		return
	}
	maxRows := a.menuRows(40)
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.romSel > 0 {
		a.romSel--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.romSel < n-1 {
		a.romSel++
	}
	if a.romSel < a.romOff {
		a.romOff = a.romSel
	}
	if a.romSel >= a.romOff+maxRows {
		a.romOff = a.romSel - maxRows + 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.loadROM(a.romList[a.romSel])
		a.menuMode = "main"
	}
	if back() {
		a.menuMode = "main"
	}
}

func (a *App) loadROM(path string) {
	a.persistBattery()
	if err := a.m.LoadROMFromFile(path); err != nil {
		a.toast("ROM load failed: " + err.Error())
		return
	}
	if a.cfg.SaveRAM {
		if data, err := os.ReadFile(savPath(path)); err == nil {
			a.m.LoadBattery(data)
		}
	}
	if a.audioQ == nil {
		if err := a.startAudio(a.m.APU.SampleRate()); err != nil {
			a.toast("Audio failed: " + err.Error())
		}
	}
	a.paused = false
	ebiten.SetWindowTitle(a.windowTitle())
	a.toast("Loaded ROM: " + filepath.Base(path))
	a.showMenu = false
}

func (a *App) updateCheatMenu() {
	cheats := a.m.Cheats()
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < len(cheats)-1 {
		a.menuIdx++
	}
	if len(cheats) > 0 && inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		c := cheats[a.menuIdx]
		a.m.SetCheatEnabled(c.Name, !c.Enabled)
	}
	if back() {
		a.menuMode, a.menuIdx = "main", 0
	}
}

func (a *App) updateKeysMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.keysOff > 0 {
		a.keysOff--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		a.keysOff++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || back() {
		a.menuMode = "main"
	}
}
