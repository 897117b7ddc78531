package emu

import (
	"strings"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

// compatTitleExact maps exact, normalized titles to a preferred palette.
var compatTitleExact = map[string]ppu.PaletteID{
	"TETRIS":              ppu.PaletteBlue,
	"TETRIS DX":           ppu.PaletteBlue,
	"SUPER MARIO LAND":    ppu.PaletteRed,
	"SUPER MARIO LAND 2":  ppu.PaletteRed,
	"DR. MARIO":           ppu.PalettePastel,
	"DONKEY KONG":         ppu.PaletteSepia,
	"THE LEGEND OF ZELDA": ppu.PaletteGreen,
	"ZELDA":               ppu.PaletteGreen,
	"METROID II":          ppu.PaletteRed,
	"KIRBY'S DREAM LAND":  ppu.PalettePastel,
	"MEGA MAN":            ppu.PaletteBlue,
	"MEGAMAN":             ppu.PaletteBlue,
	"WARIO LAND":          ppu.PaletteSepia,
	"POKEMON YELLOW":      ppu.PalettePastel,
	"POKEMON RED":         ppu.PalettePastel,
	"POKEMON BLUE":        ppu.PalettePastel,
	"POCKET MONSTERS":     ppu.PalettePastel,
}

type containsRule struct {
	substr string
	id     ppu.PaletteID
}

// compatTitleContains catches families the exact table misses.
var compatTitleContains = []containsRule{
	{"TETRIS", ppu.PaletteBlue},
	{"MARIO", ppu.PaletteRed},
	{"ZELDA", ppu.PaletteGreen},
	{"KIRBY", ppu.PalettePastel},
	{"DONKEY KONG", ppu.PaletteSepia},
	{"METROID", ppu.PaletteRed},
	{"MEGA MAN", ppu.PaletteBlue},
	{"MEGAMAN", ppu.PaletteBlue},
	{"WARIO", ppu.PaletteSepia},
	{"POKEMON", ppu.PalettePastel},
	{"POCKET MONSTERS", ppu.PalettePastel},
}

// paletteForHeader picks a palette from the title tables, falling back to a
// checksum-derived choice for Nintendo titles and grey otherwise.
func paletteForHeader(h *cart.Header) ppu.PaletteID {
	if h == nil {
		return ppu.PaletteGrey
	}
	t := strings.ToUpper(strings.TrimSpace(h.Title))
	if id, ok := compatTitleExact[t]; ok {
		return id
	}
	for _, r := range compatTitleContains {
		if strings.Contains(t, r.substr) {
			return r.id
		}
	}
	nintendo := h.OldLicensee == 0x01
	if h.OldLicensee == 0x33 {
		nintendo = h.NewLicensee == "01"
	}
	if nintendo {
		return ppu.PaletteID(int(h.HeaderChecksum) % len(ppu.Palettes))
	}
	return ppu.PaletteGrey
}
