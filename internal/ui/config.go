package ui

// Config contains window/input/audio related settings.
type Config struct {
	Title         string // window title
	Scale         int    // integer upscaling factor
	AudioStereo   bool   // if false, fold to mono
	AudioBufferMs int    // player buffer in ms (approx)
	Muted         bool   // start with audio muted
	ROMsDir       string // directory to browse for ROMs
	SaveRAM       bool   // persist battery RAM next to ROMs loaded from the menu
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.AudioBufferMs <= 0 {
		c.AudioBufferMs = 60
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
}
