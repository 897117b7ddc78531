// Package debug holds the contract between the emulation core and a
// debugger: the core reports execute/read/write events at addresses through
// a Hook and never blocks on it. Breakpoints and cheat codes are plain value
// objects owned by the debugger side.
package debug

import (
	"fmt"
	"sort"
)

// Kind is the type of access that triggered a hook call.
type Kind int

const (
	Execute Kind = iota
	MemRead
	MemWrite
)

func (k Kind) String() string {
	switch k {
	case Execute:
		return "exec"
	case MemRead:
		return "read"
	case MemWrite:
		return "write"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Hook is invoked before an instruction at addr executes, and before the CPU
// reads or writes memory at addr.
type Hook interface {
	Trigger(addr uint16, kind Kind)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(addr uint16, kind Kind)

func (f HookFunc) Trigger(addr uint16, kind Kind) { f(addr, kind) }

// Breakpoint is an address together with the access kind it reacts to.
type Breakpoint struct {
	Addr uint16
	Kind Kind
}

func (b Breakpoint) String() string { return fmt.Sprintf("%s@%04X", b.Kind, b.Addr) }

// Breakpoints is a Hook that records the first breakpoint hit since the last
// call to Clear. The driver polls Hit after each step and decides whether to
// pause.
type Breakpoints struct {
	set    map[Breakpoint]struct{}
	hit    *Breakpoint
	onHit  func(Breakpoint)
	counts map[Breakpoint]int
}

// NewBreakpoints creates an empty breakpoint set. onHit may be nil.
func NewBreakpoints(onHit func(Breakpoint)) *Breakpoints {
	return &Breakpoints{
		set:    make(map[Breakpoint]struct{}),
		counts: make(map[Breakpoint]int),
		onHit:  onHit,
	}
}

func (b *Breakpoints) Add(bp Breakpoint)    { b.set[bp] = struct{}{} }
func (b *Breakpoints) Remove(bp Breakpoint) { delete(b.set, bp) }

func (b *Breakpoints) Has(bp Breakpoint) bool {
	_, ok := b.set[bp]
	return ok
}

// List returns the breakpoints sorted by address then kind.
func (b *Breakpoints) List() []Breakpoint {
	out := make([]Breakpoint, 0, len(b.set))
	for bp := range b.set {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Addr != out[j].Addr {
			return out[i].Addr < out[j].Addr
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (b *Breakpoints) Trigger(addr uint16, kind Kind) {
	if len(b.set) == 0 {
		return
	}
	bp := Breakpoint{Addr: addr, Kind: kind}
	if _, ok := b.set[bp]; !ok {
		return
	}
	b.counts[bp]++
	if b.hit == nil {
		b.hit = &bp
	}
	if b.onHit != nil {
		b.onHit(bp)
	}
}

// Hit returns the first breakpoint reached since the last Clear.
func (b *Breakpoints) Hit() (Breakpoint, bool) {
	if b.hit == nil {
		return Breakpoint{}, false
	}
	return *b.hit, true
}

// Count returns how many times bp has been reached.
func (b *Breakpoints) Count(bp Breakpoint) int { return b.counts[bp] }

// Clear forgets the last hit so the driver can resume.
func (b *Breakpoints) Clear() { b.hit = nil }
