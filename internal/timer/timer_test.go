package timer

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

func newTimer() (*Timer, *bus.Bus) {
	b := bus.New(nil)
	t := New(b)
	b.Subscribe(t)
	return t, b
}

func TestDIVCountsAndResets(t *testing.T) {
	tm, b := newTimer()
	tm.Tick(256 * 3)
	if got := b.Read(bus.DIV); got != 3 {
		t.Fatalf("DIV got %02x want 03", got)
	}
	b.Write(bus.DIV, 0x12)
	if got := b.Read(bus.DIV); got != 0x00 {
		t.Fatalf("DIV got %02x want 00", got)
	}
	if tm.Divider() != 0 {
		t.Fatalf("internal divider got %04X want 0", tm.Divider())
	}
}

func TestTIMARates(t *testing.T) {
	cases := []struct {
		tac    byte
		period int
	}{
		{0x04, 1024},
		{0x05, 16},
		{0x06, 64},
		{0x07, 256},
	}
	for _, c := range cases {
		tm, b := newTimer()
		b.Write(bus.TAC, c.tac)
		tm.Tick(c.period*5 - 1)
		if got := b.Read(bus.TIMA); got != 4 {
			t.Fatalf("TAC %02X: TIMA got %d want 4", c.tac, got)
		}
		tm.Tick(1)
		if got := b.Read(bus.TIMA); got != 5 {
			t.Fatalf("TAC %02X: TIMA got %d want 5", c.tac, got)
		}
	}
}

func TestTimerDisabled(t *testing.T) {
	tm, b := newTimer()
	b.Write(bus.TAC, 0x01)
	tm.Tick(4096)
	if got := b.Read(bus.TIMA); got != 0 {
		t.Fatalf("TIMA got %d want 0", got)
	}
}

func TestTimerEdgeOnDIVAndTACWrites(t *testing.T) {
	tm, b := newTimer()
	b.Write(bus.TAC, 0x05) // enable, bit 3
	b.Write(bus.TIMA, 0x10)
	tm.Tick(8) // divider 0x0008: input high
	b.Write(bus.DIV, 0x00)
	if got := b.Read(bus.TIMA); got != 0x11 {
		t.Fatalf("TIMA not incremented on DIV falling edge: got %02X want 11", got)
	}

	b.Write(bus.TIMA, 0x20)
	tm.Tick(8)
	// Bit 5 is 0 with divider 0x0008.
	b.Write(bus.TAC, 0x06)
	if got := b.Read(bus.TIMA); got != 0x21 {
		t.Fatalf("TIMA not incremented on TAC falling edge: got %02X want 21", got)
	}
}

func TestOverflowReloadTiming(t *testing.T) {
	tm, b := newTimer()
	b.Write(bus.TAC, 0x05)
	b.Write(bus.TMA, 0xAB)
	b.Write(bus.TIMA, 0xFF)
	tm.Tick(16)
	if got := b.Read(bus.TIMA); got != 0x00 {
		t.Fatalf("after overflow, TIMA got %02X want 00", got)
	}
	for i := 0; i < 3; i++ {
		tm.Tick(1)
		if got := b.Read(bus.TIMA); got != 0x00 {
			t.Fatalf("during delay cycle %d, TIMA got %02X want 00", i, got)
		}
		if b.Read(bus.IF)&(1<<bus.IntTimer) != 0 {
			t.Fatalf("interrupt raised during delay cycle %d", i)
		}
	}
	tm.Tick(1)
	if got := b.Read(bus.TIMA); got != 0xAB {
		t.Fatalf("reload got %02X want AB", got)
	}
	if b.Read(bus.IF)&(1<<bus.IntTimer) == 0 {
		t.Fatalf("timer interrupt not raised")
	}
}

func TestTIMAWriteCancelsReload(t *testing.T) {
	tm, b := newTimer()
	b.Write(bus.TAC, 0x05)
	b.Write(bus.TMA, 0xAB)
	b.Write(bus.TIMA, 0xFF)
	tm.Tick(16)
	b.Write(bus.TIMA, 0x42)
	tm.Tick(4)
	if got := b.Read(bus.TIMA); got != 0x42 {
		t.Fatalf("TIMA got %02X want 42", got)
	}
	if b.Read(bus.IF)&(1<<bus.IntTimer) != 0 {
		t.Fatalf("cancelled reload raised the interrupt")
	}
}

func TestEdgesIgnoredDuringPendingReload(t *testing.T) {
	tm, b := newTimer()
	b.Write(bus.TAC, 0x05)
	b.Write(bus.TMA, 0x33)
	b.Write(bus.TIMA, 0xFF)
	tm.Tick(8) // divider 0x0008: bit 3 high, bit 5 low
	b.Write(bus.TAC, 0x06)
	if got := b.Read(bus.TIMA); got != 0x00 {
		t.Fatalf("TAC edge did not overflow: got %02X want 00", got)
	}
	b.Write(bus.TAC, 0x05)
	b.Write(bus.DIV, 0x00)
	if got := b.Read(bus.TIMA); got != 0x00 {
		t.Fatalf("TIMA incremented during pending reload: got %02X want 00", got)
	}
	tm.Tick(4)
	if got := b.Read(bus.TIMA); got != 0x33 {
		t.Fatalf("reload did not occur: got %02X want 33", got)
	}
}
