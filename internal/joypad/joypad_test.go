package joypad

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

func newJoypad() (*Joypad, *bus.Bus) {
	b := bus.New(nil)
	j := New(b)
	b.Subscribe(j)
	return j, b
}

func joypIRQ(b *bus.Bus) bool { return b.Read(bus.IF)&(1<<bus.IntJoypad) != 0 }

func TestDefaultReadsReleased(t *testing.T) {
	_, b := newJoypad()
	b.Write(bus.P1, 0x30)
	if got := b.Read(bus.P1); got != 0xFF {
		t.Fatalf("P1 got %02x want FF", got)
	}
}

func TestGroupsAndInterrupt(t *testing.T) {
	j, b := newJoypad()
	// Select D-pad (bit 4 low), press Right+Up.
	b.Write(bus.P1, 0x20)
	j.SetButton(Right, true)
	j.SetButton(Up, true)
	j.SetButton(Start, true)
	if got := b.Read(bus.P1) & 0x0F; got != 0x0F {
		t.Fatalf("P1 changed before Clock: %02x", got)
	}
	j.Clock()
	if got := b.Read(bus.P1) & 0x0F; got != 0x0A {
		t.Fatalf("D-pad got %02x want 0A", got)
	}
	if !joypIRQ(b) {
		t.Fatalf("joypad interrupt not raised on press")
	}

	// Select buttons: Start shows, and the write alone re-evaluates.
	b.Write(bus.IF, 0)
	b.Write(bus.P1, 0x10)
	if got := b.Read(bus.P1) & 0x0F; got != 0x07 {
		t.Fatalf("buttons got %02x want 07", got)
	}
	if got := b.Read(bus.P1) & 0x30; got != 0x10 {
		t.Fatalf("select bits got %02x want 10", got)
	}
}

func TestReleaseDoesNotInterrupt(t *testing.T) {
	j, b := newJoypad()
	b.Write(bus.P1, 0x10)
	j.SetButton(A, true)
	j.Clock()
	b.Write(bus.IF, 0)
	j.SetButton(A, false)
	j.Clock()
	if joypIRQ(b) {
		t.Fatalf("interrupt raised on release")
	}
	if got := b.Read(bus.P1) & 0x0F; got != 0x0F {
		t.Fatalf("P1 got %02x want 0F", got)
	}
}

func TestUnselectedGroupIgnored(t *testing.T) {
	j, b := newJoypad()
	b.Write(bus.P1, 0x20) // D-pad only
	j.SetButton(B, true)
	j.Clock()
	if joypIRQ(b) || b.Read(bus.P1)&0x0F != 0x0F {
		t.Fatalf("unselected button visible: P1=%02x", b.Read(bus.P1))
	}
	// Both groups selected merge.
	j.SetButton(Left, true)
	b.Write(bus.P1, 0x00)
	if got := b.Read(bus.P1) & 0x0F; got != 0x0D {
		t.Fatalf("merged got %02x want 0D", got)
	}
}

func TestParseButton(t *testing.T) {
	b, ok := ParseButton("Select")
	if !ok || b != Select || b.String() != "select" {
		t.Fatalf("got %v,%v", b, ok)
	}
	if _, ok := ParseButton("turbo"); ok {
		t.Fatalf("unknown button accepted")
	}
}
