package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestCentral_RepeatCollapsing(t *testing.T) {
	l := NewCentral(10)
	l.Log("cart", "loaded")
	l.Log("cart", "loaded")
	l.Log("cpu", "halt")

	got := l.Tail(0)
	if len(got) != 2 {
		t.Fatalf("entries got %d want 2", len(got))
	}
	if got[0].Repeated != 1 {
		t.Fatalf("repeat count got %d want 1", got[0].Repeated)
	}
	if s := got[0].String(); s != "cart: loaded (repeat x2)" {
		t.Fatalf("entry string got %q", s)
	}
}

func TestCentral_MaxEntriesAndEcho(t *testing.T) {
	var echo bytes.Buffer
	l := NewCentral(3)
	l.SetEcho(&echo)
	for i := 0; i < 5; i++ {
		l.Logf("tag", "line %d", i)
	}
	got := l.Tail(0)
	if len(got) != 3 {
		t.Fatalf("entries got %d want 3", len(got))
	}
	if got[0].Detail != "line 2" {
		t.Fatalf("oldest entry got %q want %q", got[0].Detail, "line 2")
	}
	if n := strings.Count(echo.String(), "\n"); n != 5 {
		t.Fatalf("echoed lines got %d want 5", n)
	}

	var dump bytes.Buffer
	if err := l.Write(&dump); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasSuffix(dump.String(), "tag: line 4\n") {
		t.Fatalf("dump got %q", dump.String())
	}
}

func TestCentral_NewlinesStripped(t *testing.T) {
	l := NewCentral(4)
	l.Log("a\nb", "c\nd")
	e := l.Tail(1)[0]
	if e.Tag != "ab" || e.Detail != "cd" {
		t.Fatalf("got tag=%q detail=%q", e.Tag, e.Detail)
	}
}
