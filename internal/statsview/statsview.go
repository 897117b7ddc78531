// Package statsview serves live runtime statistics (heap, goroutines, GC)
// over HTTP while the emulator runs.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddress is used when Launch is given an empty address.
const DefaultAddress = "localhost:12600"

const url = "/debug/statsview"

// Launch starts the stats server on a new goroutine and reports where to
// find it.
func Launch(output io.Writer, addr string) {
	if addr == "" {
		addr = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()
	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, url)
}
