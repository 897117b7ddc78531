package cart

import (
	"errors"
	"testing"
)

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		rom  []byte
		want error
	}{
		{"header truncated", make([]byte, 0x100), ErrHeaderTruncated},
		{"shorter than declared", buildROM("SHORT", 0x01, 0x02, 0x00, 64*1024), ErrROMTooSmall},
		{"unknown controller", buildROM("ODD", 0xFC, 0x00, 0x00, 32*1024), ErrUnknownController},
		{"unknown size code", buildROM("ODD", 0x00, 0x77, 0x00, 32*1024), ErrBadROMSize},
	}
	for _, tc := range cases {
		_, err := Load(tc.rom)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err got %v want %v", tc.name, err, tc.want)
		}
		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("%s: err %T is not *LoadError", tc.name, err)
		}
	}
}

func TestLoadError_Message(t *testing.T) {
	_, err := Load(buildROM("SHORT", 0x01, 0x02, 0x00, 64*1024))
	want := "cart: rom shorter than its header declares (65536 < 131072 bytes)"
	if err == nil || err.Error() != want {
		t.Fatalf("message got %v want %q", err, want)
	}
}

func TestBattery_SaveLoadRAM(t *testing.T) {
	rom := buildROM("SAVE", 0x03, 0x01, 0x02, 64*1024)
	c := mustLoad(t, rom)
	if !c.HasBattery() {
		t.Fatalf("MBC1+RAM+BATTERY should report a battery")
	}
	c.Write(0x0000, 0x0A)
	c.Write(0xA123, 0x5A)

	n := mustLoad(t, rom)
	n.LoadRAM(c.SaveRAM())
	n.Write(0x0000, 0x0A)
	if got := n.Read(0xA123); got != 0x5A {
		t.Fatalf("restored RAM got %02X want 5A", got)
	}

	plain := mustLoad(t, buildROM("NOBAT", 0x02, 0x01, 0x02, 64*1024))
	if plain.HasBattery() {
		t.Fatalf("MBC1+RAM should not report a battery")
	}
}

func TestMBC3_RTC_LatchAndRead(t *testing.T) {
	c := mustLoad(t, buildROM("CLOCK", 0x10, 0x00, 0x02, 32*1024))
	r := c.Ctrl.RTC
	if r == nil {
		t.Fatalf("timer cart has no RTC")
	}

	c.Write(0x0000, 0x0A)
	r.Sec, r.Min, r.Hour, r.Day = 5, 6, 7, 0x101
	c.Write(0x6000, 0x00)
	c.Write(0x6000, 0x01)

	c.Write(0x4000, 0x08)
	if got := c.Read(0xA000); got != 5 {
		t.Fatalf("latched sec got %d want 5", got)
	}
	r.Sec = 30
	if got := c.Read(0xA000); got != 5 {
		t.Fatalf("latched sec changed unexpectedly: got %d", got)
	}

	c.Write(0x4000, 0x0B)
	if got := c.Read(0xA000); got != 0x01 {
		t.Fatalf("latched day low got %02X want 01", got)
	}
	c.Write(0x4000, 0x0C)
	got := c.Read(0xA000)
	if got&0x01 == 0 {
		t.Fatalf("latched day high bit not set")
	}
	if got&0x40 != 0 {
		t.Fatalf("halt bit set unexpectedly")
	}

	// Writing 0x01 again without returning to 0x00 does not relatch
	c.Write(0x6000, 0x01)
	c.Write(0x4000, 0x08)
	if got := c.Read(0xA000); got != 5 {
		t.Fatalf("relatch without 0 write: got %d want 5", got)
	}
}

func TestMBC3_RTC_TickRollover(t *testing.T) {
	r := &RTC{Sec: 30, Min: 59, Hour: 23, Day: 0x1FF}

	r.Tick(20)
	if r.Sec != 50 || r.Min != 59 {
		t.Fatalf("rtc advance 20s got sec=%d min=%d", r.Sec, r.Min)
	}
	r.Tick(60)
	if r.Sec != 50 || r.Min != 0 || r.Hour != 0 || r.Day != 0 || !r.Carry {
		t.Fatalf("rtc +60s rollover got %02d:%02d:%02d day=%03d carry=%v",
			r.Hour, r.Min, r.Sec, r.Day, r.Carry)
	}

	r.Halt = true
	r.Tick(10)
	if r.Sec != 50 {
		t.Fatalf("halted clock advanced to %d", r.Sec)
	}

	// out-of-range seconds wrap at 64 without carrying into minutes
	r = &RTC{Sec: 62}
	r.Tick(2)
	if r.Sec != 0 || r.Min != 0 {
		t.Fatalf("out-of-range wrap got sec=%d min=%d", r.Sec, r.Min)
	}
}

func TestMBC3_RTC_Persist(t *testing.T) {
	prevNow := nowUnix
	nowVal := int64(1000)
	nowUnix = func() int64 { return nowVal }
	defer func() { nowUnix = prevNow }()

	rom := buildROM("CLOCK", 0x10, 0x00, 0x02, 32*1024)
	c := mustLoad(t, rom)
	c.Ctrl.RTC.Sec, c.Ctrl.RTC.Min, c.Ctrl.RTC.Hour, c.Ctrl.RTC.Day = 10, 20, 3, 42
	data := c.SaveRAM()
	if len(data) != 8*1024+rtcSaveSize {
		t.Fatalf("save size got %d want %d", len(data), 8*1024+rtcSaveSize)
	}

	nowVal = 1005
	n := mustLoad(t, rom)
	n.LoadRAM(data)
	r := n.Ctrl.RTC
	if r.Sec != 15 || r.Min != 20 || r.Hour != 3 || r.Day != 42 {
		t.Fatalf("rtc persist got %02d:%02d:%02d day=%03d want 03:20:15 day=042",
			r.Hour, r.Min, r.Sec, r.Day)
	}

	c.TickRTC(1)
	if c.Ctrl.RTC.Sec != 11 {
		t.Fatalf("TickRTC got sec=%d want 11", c.Ctrl.RTC.Sec)
	}
}

func TestReset_KeepsRAM(t *testing.T) {
	c, err := Load(buildROM("RESET", 0x03, 0x01, 0x02, 64*1024))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c.Write(0x0000, 0x0A)
	c.Write(0x2000, 0x03)
	c.Write(0xA000, 0x5A)
	c.Reset()
	if c.Ctrl.ROMBank != 1 || c.Ctrl.RAMEnabled {
		t.Fatalf("controller not reset: bank %d enabled %v", c.Ctrl.ROMBank, c.Ctrl.RAMEnabled)
	}
	c.Write(0x0000, 0x0A)
	if got := c.Read(0xA000); got != 0x5A {
		t.Fatalf("RAM got %02X want 5A", got)
	}
}
