package main

import (
	"context"
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/statsview"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ui"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/wavwriter"
)

// cheatFlags collects repeated -cheat NAME=CODE values.
type cheatFlags []string

func (c *cheatFlags) String() string     { return strings.Join(*c, ",") }
func (c *cheatFlags) Set(v string) error { *c = append(*c, v); return nil }

type CLIFlags struct {
	ROMPath string
	BootROM string
	Scale   int
	Title   string
	Trace   bool
	SaveRAM bool // persist battery RAM next to ROM (.sav)
	Palette string
	Mute    bool
	Cheats  cheatFlags
	Stats   bool
	Verbose bool

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	WAVOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbemu", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "CPU trace log")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")
	flag.StringVar(&f.Palette, "palette", "auto", "monochrome palette: auto, grey, green, sepia, blue, red, pastel")
	flag.BoolVar(&f.Mute, "mute", false, "start with audio muted")
	flag.Var(&f.Cheats, "cheat", "NAME=CODE cheat (Game Genie or GameShark), repeatable")
	flag.BoolVar(&f.Stats, "statsview", false, "serve runtime statistics on "+statsview.DefaultAddress)
	flag.BoolVar(&f.Verbose, "v", false, "echo the machine log to stderr")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.WAVOut, "wav", "", "record audio to a WAV file (headless)")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(m *emu.Machine, f CLIFlags, rec *wavwriter.WavWriter) error {
	frames := max(f.Frames, 1)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	done := 0
	for ; done < frames; done++ {
		if err := m.Run(ctx, 1); err != nil {
			if ctx.Err() != nil {
				log.Printf("interrupted after %d frames", done)
				break
			}
			return err
		}
		if rec != nil {
			rec.Drain(m)
		}
	}
	dur := time.Since(start)

	fr := m.Frame()
	crc := crc32.ChecksumIEEE(fr.RGBA[:])
	fps := float64(done) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		done, dur.Truncate(time.Millisecond), fps, crc)

	if f.PNGOut != "" {
		if err := saveFramePNG(fr.RGBA[:], ppu.Width, ppu.Height, f.PNGOut); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s (%d frames of audio)", f.WAVOut, rec.Frames())
	}

	if f.Expect != "" {
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    append([]byte(nil), pix...),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func savPath(rom string) string {
	return strings.TrimSuffix(rom, filepath.Ext(rom)) + ".sav"
}

func saveBattery(m *emu.Machine) {
	if m.ROMPath() == "" {
		return
	}
	if data, ok := m.SaveBattery(); ok {
		out := savPath(m.ROMPath())
		if err := os.WriteFile(out, data, 0o644); err != nil {
			log.Printf("write %s: %v", out, err)
			return
		}
		log.Printf("wrote %s", out)
	}
}

func main() {
	f := parseFlags()

	central := logger.NewCentral(1024)
	if f.Verbose || f.Trace {
		central.SetEcho(os.Stderr)
	}
	cfg := emu.DefaultConfig()
	cfg.Trace = f.Trace
	cfg.BootROM = mustRead(f.BootROM)
	if f.Palette == "auto" {
		cfg.AutoPalette = true
	} else if id, ok := ppu.ParsePalette(f.Palette); ok {
		cfg.Palette = id
	} else {
		log.Fatalf("unknown palette %q", f.Palette)
	}
	m := emu.New(cfg, emu.WithLogger(central))

	for _, c := range f.Cheats {
		name, code, ok := strings.Cut(c, "=")
		if !ok {
			name, code = c, c
		}
		if err := m.AddCheat(name, code); err != nil {
			log.Fatalf("cheat %q: %v", c, err)
		}
	}
	if f.Stats {
		statsview.Launch(os.Stdout, statsview.DefaultAddress)
	}

	if f.ROMPath != "" {
		path := f.ROMPath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if err := m.LoadROMFromFile(path); err != nil {
			log.Fatalf("load cart: %v", err)
		}
		h := m.Cart.Header
		log.Printf("ROM: %q type=%s banks=%d ram=%dB palette=%s", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes, m.Palette())
		if f.SaveRAM {
			if data, err := os.ReadFile(savPath(path)); err == nil && m.LoadBattery(data) {
				log.Printf("loaded save RAM: %s (%d bytes)", savPath(path), len(data))
			}
		}
	}

	if f.Headless {
		if m.Cart == nil {
			log.Fatal("-headless needs -rom")
		}
		var rec *wavwriter.WavWriter
		if f.WAVOut != "" {
			var err error
			if rec, err = wavwriter.New(f.WAVOut, cfg.SampleRate, central); err != nil {
				log.Fatal(err)
			}
		}
		if err := runHeadless(m, f, rec); err != nil {
			log.Fatal(err)
		}
		if f.SaveRAM {
			saveBattery(m)
		}
		return
	}

	app, err := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale, Muted: f.Mute, SaveRAM: f.SaveRAM, AudioStereo: true}, m)
	if err != nil {
		log.Fatal(err)
	}
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
	if f.SaveRAM {
		saveBattery(m)
	}
}
