package debug

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadCheatCode is returned for cheat codes that match neither format.
var ErrBadCheatCode = errors.New("unrecognised cheat code")

// CheatKind distinguishes read patches from periodic memory pokes.
type CheatKind int

const (
	// Patch replaces the value returned by reads of Addr (Game Genie style).
	Patch CheatKind = iota
	// Poke writes Replace to Addr once per frame (GameShark style).
	Poke
)

// Cheat is a value object: the core only ever sees its address and values.
type Cheat struct {
	Name       string
	Kind       CheatKind
	Addr       uint16
	Replace    byte
	Compare    byte
	HasCompare bool
	Enabled    bool
}

// ParseCheat accepts "ABC-DEF" / "ABC-DEF-GHI" (Game Genie) and "01VVLLHH"
// (GameShark). The returned cheat is enabled.
func ParseCheat(name, code string) (Cheat, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if strings.Contains(code, "-") {
		return parseGameGenie(name, code)
	}
	if len(code) == 8 {
		return parseGameShark(name, code)
	}
	return Cheat{}, fmt.Errorf("%w: %q", ErrBadCheatCode, code)
}

func hexDigits(s string) ([]byte, bool) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		v, err := strconv.ParseUint(s[i:i+1], 16, 8)
		if err != nil {
			return nil, false
		}
		out[i] = byte(v)
	}
	return out, true
}

func parseGameGenie(name, code string) (Cheat, error) {
	parts := strings.Split(code, "-")
	if (len(parts) != 2 && len(parts) != 3) || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return Cheat{}, fmt.Errorf("%w: %q", ErrBadCheatCode, code)
	}
	d, ok := hexDigits(strings.Join(parts, ""))
	if !ok || (len(parts) == 3 && len(parts[2]) != 3) {
		return Cheat{}, fmt.Errorf("%w: %q", ErrBadCheatCode, code)
	}
	c := Cheat{
		Name:    name,
		Kind:    Patch,
		Replace: d[0]<<4 | d[1],
		Addr:    uint16(d[5]^0x0F)<<12 | uint16(d[2])<<8 | uint16(d[3])<<4 | uint16(d[4]),
		Enabled: true,
	}
	if len(parts) == 3 {
		v := d[6]<<4 | d[8]
		c.Compare = (v>>2 | v<<6) ^ 0xBA
		c.HasCompare = true
	}
	return c, nil
}

func parseGameShark(name, code string) (Cheat, error) {
	raw, err := strconv.ParseUint(code, 16, 32)
	if err != nil {
		return Cheat{}, fmt.Errorf("%w: %q", ErrBadCheatCode, code)
	}
	return Cheat{
		Name:    name,
		Kind:    Poke,
		Replace: byte(raw >> 16),
		Addr:    uint16(raw&0xFF)<<8 | uint16(raw>>8&0xFF),
		Enabled: true,
	}, nil
}

// Cheats is an ordered cheat list. It serves as the bus read patcher and
// provides the per-frame poke list.
type Cheats struct {
	list []Cheat
}

func (cs *Cheats) Add(c Cheat) { cs.list = append(cs.list, c) }

// SetEnabled toggles every cheat with the given name.
func (cs *Cheats) SetEnabled(name string, on bool) {
	for i := range cs.list {
		if cs.list[i].Name == name {
			cs.list[i].Enabled = on
		}
	}
}

func (cs *Cheats) List() []Cheat { return append([]Cheat(nil), cs.list...) }

// Patch returns the value a read of addr should observe.
func (cs *Cheats) Patch(addr uint16, v byte) byte {
	for _, c := range cs.list {
		if !c.Enabled || c.Kind != Patch || c.Addr != addr {
			continue
		}
		if c.HasCompare && c.Compare != v {
			continue
		}
		return c.Replace
	}
	return v
}

// Pokes calls write for every enabled poke cheat.
func (cs *Cheats) Pokes(write func(addr uint16, v byte)) {
	for _, c := range cs.list {
		if c.Enabled && c.Kind == Poke {
			write(c.Addr, c.Replace)
		}
	}
}
