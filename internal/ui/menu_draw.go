package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// debug font cell width in pixels
const charW = 6

func (a *App) maxCharsForText(x int) int {
	return max(1, (a.curW-x)/charW)
}

func (a *App) truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func (a *App) wrapText(s string, n int) []string {
	var lines []string
	var cur strings.Builder
	for _, w := range strings.Fields(s) {
		if cur.Len() > 0 && cur.Len()+1+len(w) > n {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func (a *App) drawMenu(screen *ebiten.Image) {
	switch a.menuMode {
	case "rom":
		a.drawRomMenu(screen)
	case "cheats":
		a.drawCheatMenu(screen)
	case "keys":
		a.drawKeysMenu(screen)
	default:
		a.drawMainMenu(screen)
	}
}

func (a *App) drawMainMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, "Menu:", 10, 10)
	for i, item := range mainMenuItems {
		switch item {
		case "Palette":
			item = "Palette: " + a.m.Palette().String() + "  (Left/Right)"
		case "Mute":
			item = fmt.Sprintf("Mute: %s", map[bool]string{true: "On", false: "Off"}[a.muted.Load()])
		}
		prefix := "  "
		if i == a.menuIdx {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, a.truncateText(prefix+item, a.maxCharsForText(10)), 10, 24+i*14)
	}
	hint := "Esc: close  Backspace: back  F12: screenshot"
	ebitenutil.DebugPrintAt(screen, a.truncateText(hint, a.maxCharsForText(10)), 10, 24+(len(mainMenuItems)+1)*14)
}

func (a *App) drawRomMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, "Select ROM (Enter to load, Backspace to return)", 10, 10)
	ebitenutil.DebugPrintAt(screen, a.truncateText("Dir: "+a.cfg.ROMsDir, a.maxCharsForText(10)), 10, 24)
	if len(a.romList) == 0 {
		ebitenutil.DebugPrintAt(screen, "No ROMs found", 10, 40)
		return
	}
	baseY := 40
	maxRows := a.menuRows(baseY)
	end := min(a.romOff+maxRows, len(a.romList))
	maxChars := max(1, a.maxCharsForText(10)-2)
	for i, p := range a.romList[a.romOff:end] {
		prefix := "  "
		if a.romOff+i == a.romSel {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+a.truncateText(filepath.Base(p), maxChars), 10, baseY+i*14)
	}
	if a.romOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(a.romList) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*14)
	}
}

func (a *App) drawCheatMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, "Cheats (Enter toggles, Backspace to return)", 10, 10)
	cheats := a.m.Cheats()
	if len(cheats) == 0 {
		ebitenutil.DebugPrintAt(screen, "No cheats loaded (-cheat NAME=CODE)", 10, 28)
		return
	}
	for i, c := range cheats {
		state := "off"
		if c.Enabled {
			state = "on"
		}
		prefix := "  "
		if i == a.menuIdx {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%-3s %s @%04X", prefix, state, c.Name, c.Addr)
		ebitenutil.DebugPrintAt(screen, a.truncateText(line, a.maxCharsForText(10)), 10, 28+i*14)
	}
}

func (a *App) drawKeysMenu(screen *ebiten.Image) {
	cursorY := 10
	for _, w := range a.wrapText("Keybindings (Up/Down to scroll, Backspace to return)", a.maxCharsForText(10)) {
		ebitenutil.DebugPrintAt(screen, w, 10, cursorY)
		cursorY += 14
	}
	var rows []string
	for _, k := range keymap {
		rows = append(rows, fmt.Sprintf("%s: %s", k.key, k.btn))
	}
	rows = append(rows,
		"P: Pause",
		"N: Step (when paused)",
		"Tab: Fast-forward",
		"R: Reset",
		"C: Cycle palette",
		"M: Mute",
		"F12: Screenshot",
		"Esc: Open/Close Menu",
	)
	baseY := cursorY + 4
	maxRows := a.menuRows(baseY)
	a.keysOff = max(0, min(a.keysOff, len(rows)-1))
	end := min(a.keysOff+maxRows, len(rows))
	for i := a.keysOff; i < end; i++ {
		ebitenutil.DebugPrintAt(screen, a.truncateText(rows[i], a.maxCharsForText(10)), 10, baseY+(i-a.keysOff)*14)
	}
	if a.keysOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(rows) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*14)
	}
}
