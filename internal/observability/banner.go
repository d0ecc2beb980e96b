package observability

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

var radarFrames = []string{"◜", "◝", "◞", "◟"}

// termMu serialises the status line with log writes on the same terminal.
var termMu sync.Mutex

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func termWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

type termWriter struct {
	out *os.File
}

func (tw termWriter) Write(p []byte) (int, error) {
	termMu.Lock()
	defer termMu.Unlock()
	if IsTerminal(tw.out) {
		// Clear the status line before the log line takes its place.
		_, _ = io.WriteString(tw.out, "\r\033[K")
	}
	return tw.out.Write(p)
}

func (tw termWriter) Sync() error {
	return nil
}

// NewTermWriter returns a writer for log output that never interleaves with
// PrintLiveStatus.
func NewTermWriter(out *os.File) termWriter {
	return termWriter{out: out}
}

// PrintBanner centres the CLI banner on out. Nothing is printed when out is
// not a terminal.
func PrintBanner(out *os.File) {
	if !IsTerminal(out) {
		return
	}
	banner := `
 _    __ ______ ___    ___
| |  / // ____//   |  /   |
| | / // /    / /| | / /| |
| |/ // /___ / ___ |/ ___ |
|___/ \____//_/  |_/_/  |_|

  >> VOICE COMMAND ACTION PLANNER <<
`
	width := termWidth(out)
	termMu.Lock()
	defer termMu.Unlock()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len([]rune(l))) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(out, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
	}
}

var radarIdx int

// PrintLiveStatus redraws a one-line pipeline status on out.
func PrintLiveStatus(out *os.File, sessions int) {
	if !IsTerminal(out) {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stage, trace, lastActivity := GetStatus()
	uptime := time.Since(startTime).Round(time.Second)
	memMB := float64(m.Alloc) / 1024 / 1024

	stageColor := colorNeonCyan
	radar := " "
	if stage != StageIdle {
		stageColor = colorNeonMag
		radar = radarFrames[radarIdx]
		radarIdx = (radarIdx + 1) % len(radarFrames)
	}

	displayTrace := trace
	if displayTrace == "" {
		displayTrace = "waiting..."
	}
	if len(displayTrace) > 13 {
		displayTrace = displayTrace[:13]
	}

	totalMB := float64(m.Sys) / 1024 / 1024
	barWidth := 20
	filled := 0
	if totalMB > 0 {
		filled = clamp(int(memMB/totalMB*float64(barWidth)), 0, barWidth)
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("▒", barWidth-filled)

	line := fmt.Sprintf("\r\033[K[%s] %s%-12s%s %s%s%s trace=%-13s sessions=%d up=%v [%s %.1fMB]",
		lastActivity.Format("15:04:05"),
		stageColor, stage, colorReset,
		colorPurple, radar, colorReset,
		displayTrace, sessions, uptime, bar, memMB,
	)

	termMu.Lock()
	_, _ = io.WriteString(out, line)
	termMu.Unlock()
}
