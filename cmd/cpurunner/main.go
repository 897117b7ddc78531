// Command cpurunner runs a ROM without video output and watches the link
// port for test ROM verdicts.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bradleyjkemp/memviz"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/debug"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/statsview"
)

var (
	failRe  = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
	stageRe = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
)

// ring keeps the last len(buf) values pushed.
type ring[T any] struct {
	buf  []T
	next int
	fill int
}

func newRing[T any](n int) *ring[T] { return &ring[T]{buf: make([]T, max(n, 1))} }

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	r.fill = min(r.fill+1, len(r.buf))
}

// items returns the retained values oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.fill)
	start := (r.next - r.fill + len(r.buf)) % len(r.buf)
	for i := 0; i < r.fill; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// ringWriter captures serial bytes into a ring.
type ringWriter struct{ r *ring[byte] }

func (w ringWriter) Write(p []byte) (int, error) {
	for _, ch := range p {
		w.r.push(ch)
	}
	return len(p), nil
}

// parseBreakpoints reads a comma separated list of [exec|read|write:]ADDR,
// addresses in hex.
func parseBreakpoints(s string) ([]debug.Breakpoint, error) {
	var out []debug.Breakpoint
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		kind := debug.Execute
		if k, a, ok := strings.Cut(f, ":"); ok {
			switch strings.ToLower(k) {
			case "exec", "x":
			case "read", "r":
				kind = debug.MemRead
			case "write", "w":
				kind = debug.MemWrite
			default:
				return nil, fmt.Errorf("breakpoint %q: unknown kind %q", f, k)
			}
			f = a
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(f), "0x"), 16, 16)
		if err != nil {
			return nil, fmt.Errorf("breakpoint %q: %w", f, err)
		}
		out = append(out, debug.Breakpoint{Addr: uint16(addr), Kind: kind})
	}
	return out, nil
}

type traceEntry struct {
	cpu.Registers
	pc    uint16
	op    byte
	cyc   int
	ime   bool
	ifreg byte
	ie    byte
}

func (te traceEntry) String() string {
	return fmt.Sprintf("PC=%04X OP=%02X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t IF=%02X IE=%02X",
		te.pc, te.op, te.cyc, te.A, te.F, te.B, te.C, te.D, te.E, te.H, te.L, te.SP, te.ime, te.ifreg, te.ie)
}

type runner struct {
	m         *emu.Machine
	ser       bytes.Buffer
	serRing   *ring[byte]
	traces    *ring[traceEntry]
	lastStage string
	start     time.Time
	steps     int
	cycles    uint64
	memvizOut string
}

func (r *runner) done() {
	fmt.Printf("\nDone: steps=%d cycles~=%d elapsed=%s\n", r.steps, r.cycles, time.Since(r.start).Truncate(time.Millisecond))
	if r.memvizOut == "" {
		return
	}
	f, err := os.Create(r.memvizOut)
	if err != nil {
		log.Printf("memviz: %v", err)
		return
	}
	defer f.Close()
	memviz.Map(f, r.m.Snapshot())
	fmt.Printf("Machine state graph written to %s\n", r.memvizOut)
}

func (r *runner) dumpFailure() {
	if r.lastStage != "" {
		fmt.Printf("Last stage seen: %s\n", r.lastStage)
	}
	if r.traces != nil && r.traces.fill > 0 {
		fmt.Printf("\n--- recent trace (last %d instructions) ---\n", r.traces.fill)
		for _, te := range r.traces.items() {
			fmt.Println(te)
		}
		fmt.Printf("--- end trace ---\n")
	}
	if r.serRing.fill > 0 {
		fmt.Printf("\n--- recent serial (last %d bytes) ---\n", r.serRing.fill)
		fmt.Printf("%s", r.serRing.items())
		fmt.Printf("\n--- end serial ---\n")
	}
}

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	bootPath := flag.String("bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	steps := flag.Int("steps", 5_000_000, "max CPU steps to run")
	startPC := flag.Int("pc", 0x0100, "initial PC value (without boot ROM)")
	trace := flag.Bool("trace", false, "print PC/opcodes")
	until := flag.String("until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	auto := flag.Bool("auto", false, "auto-detect 'Passed' or 'Failed N tests' in serial output and exit with code 0/1")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	traceOnFail := flag.Bool("traceOnFail", false, "when -auto detects failure, print a recent trace window (slows down)")
	traceWindow := flag.Int("traceWindow", 200, "number of recent instructions to include in 'traceOnFail' dump")
	serialWindow := flag.Int("serialWindow", 8192, "number of recent serial bytes to retain for diagnostics on fail")
	memvizOut := flag.String("memviz", "", "write a graphviz dot file of the final machine state")
	breaks := flag.String("break", "", "stop at breakpoints, e.g. 0150,write:C000,read:FF44")
	stats := flag.Bool("statsview", false, "serve runtime statistics on "+statsview.DefaultAddress)
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	cfg := emu.DefaultConfig()
	if *bootPath != "" {
		b, err := os.ReadFile(*bootPath)
		if err != nil {
			log.Fatalf("read bootrom: %v", err)
		}
		cfg.BootROM = b
	}
	if *stats {
		statsview.Launch(os.Stdout, statsview.DefaultAddress)
	}

	r := &runner{serRing: newRing[byte](max(*serialWindow, 256)), memvizOut: *memvizOut}
	w := io.Writer(os.Stdout)
	if *until != "" || *auto {
		w = io.MultiWriter(os.Stdout, &r.ser, ringWriter{r.serRing})
	}
	bplist, err := parseBreakpoints(*breaks)
	if err != nil {
		log.Fatal(err)
	}
	opts := []emu.Option{emu.WithSerial(w)}
	var bps *debug.Breakpoints
	if len(bplist) > 0 {
		bps = debug.NewBreakpoints(nil)
		for _, bp := range bplist {
			bps.Add(bp)
		}
		opts = append(opts, emu.WithHook(bps))
	}
	r.m = emu.New(cfg, opts...)
	if err := r.m.LoadROMFromFile(*romPath); err != nil {
		log.Fatalf("load rom: %v", err)
	}
	m := r.m
	if len(cfg.BootROM) == 0 {
		m.CPU.SetPC(uint16(*startPC))
	}
	if *traceOnFail {
		r.traces = newRing[traceEntry](*traceWindow)
	}

	r.start = time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = r.start.Add(*timeout)
	}
	keepTrace := *trace || r.traces != nil

	for r.steps = 0; r.steps < *steps; {
		var te traceEntry
		if keepTrace {
			te.pc = m.CPU.PC
			te.op = m.Bus.Peek(te.pc)
		}
		cyc, err := m.Step()
		r.steps++
		r.cycles += uint64(cyc)
		if keepTrace {
			te.cyc = cyc
			te.Registers = m.CPU.Registers
			te.ime = m.CPU.IME
			te.ifreg = m.Bus.Peek(bus.IF)
			te.ie = m.Bus.Peek(bus.IE)
			if *trace {
				fmt.Println(te)
			}
			if r.traces != nil {
				r.traces.push(te)
			}
		}
		if err != nil {
			var ill *cpu.IllegalOpcodeError
			if errors.As(err, &ill) {
				fmt.Printf("\nCPU stopped: illegal opcode %02X at %04X\n", ill.Opcode, ill.PC)
			} else {
				fmt.Printf("\nCPU stopped: %v\n", err)
			}
			r.dumpFailure()
			r.done()
			os.Exit(3)
		}
		if bps != nil {
			if bp, ok := bps.Hit(); ok {
				fmt.Printf("\nBreakpoint %s hit (count %d)\n%s\n", bp, bps.Count(bp), m.CPU.Registers)
				r.dumpFailure()
				r.done()
				os.Exit(4)
			}
		}

		switch {
		case *auto:
			s := r.ser.String()
			if mm := stageRe.FindAllString(s, -1); len(mm) > 0 {
				r.lastStage = mm[len(mm)-1]
			}
			if strings.Contains(strings.ToLower(s), "passed") {
				fmt.Printf("\nDetected PASS in serial output.\n")
				if r.lastStage != "" {
					fmt.Printf("Last stage seen: %s\n", r.lastStage)
				}
				r.done()
				os.Exit(0)
			}
			if fm := failRe.FindStringSubmatch(s); fm != nil {
				fmt.Printf("\nDetected %s in serial output.\n", fm[0])
				r.dumpFailure()
				r.done()
				os.Exit(1)
			}
		case *until != "":
			if strings.Contains(strings.ToLower(r.ser.String()), strings.ToLower(*until)) {
				fmt.Printf("\nDetected '%s' in serial output.\n", *until)
				r.done()
				return
			}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(r.start).Truncate(time.Millisecond))
			r.done()
			os.Exit(2)
		}
	}
	r.done()
}
