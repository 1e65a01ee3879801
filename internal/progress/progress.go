// Package progress parses FFmpeg's human-readable stderr output into
// structured progress snapshots.
package progress

import (
	"regexp"
	"strconv"
	"time"
)

var (
	durationRe = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2}\.\d{2})`)
	frameRe    = regexp.MustCompile(`frame=\s*(\d+)`)
	fpsRe      = regexp.MustCompile(`fps=\s*([0-9.]+)`)
	qRe        = regexp.MustCompile(`q=\s*([0-9.-]+)`)
	sizeRe     = regexp.MustCompile(`size=\s*(\d+)kB`)
	timeRe     = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d{2})`)
	bitrateRe  = regexp.MustCompile(`bitrate=\s*([0-9.]+)kbits/s`)
	speedRe    = regexp.MustCompile(`speed=\s*([0-9]+\.?[0-9]*|\.[0-9]+)x`)
)

// Snapshot holds the fields FFmpeg reports on a single progress line.
type Snapshot struct {
	Frame     int
	FPS       float64
	Q         float64
	SizeKB    int
	Time      time.Duration
	Bitrate   float64
	Speed     string
	HasSpeed  bool
	HasTime   bool
}

// ParseDuration extracts the total duration from an FFmpeg banner line such
// as "Duration: 00:12:34.50, start: 0.000000, bitrate: ...". Returns
// (duration, true) on match.
func ParseDuration(line string) (time.Duration, bool) {
	m := durationRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return hmsToDuration(m[1], m[2], m[3]), true
}

// ParseLine extracts a Snapshot from an FFmpeg progress line (one containing
// "time="). Returns (snapshot, true) on match, (zero, false) for lines that
// carry no progress data.
func ParseLine(line string) (Snapshot, bool) {
	tm := timeRe.FindStringSubmatch(line)
	if tm == nil {
		return Snapshot{}, false
	}

	var s Snapshot
	s.Time = hmsToDuration(tm[1], tm[2], tm[3])
	s.HasTime = true

	if m := frameRe.FindStringSubmatch(line); m != nil {
		s.Frame, _ = strconv.Atoi(m[1])
	}
	if m := fpsRe.FindStringSubmatch(line); m != nil {
		s.FPS, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := qRe.FindStringSubmatch(line); m != nil {
		s.Q, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := sizeRe.FindStringSubmatch(line); m != nil {
		s.SizeKB, _ = strconv.Atoi(m[1])
	}
	if m := bitrateRe.FindStringSubmatch(line); m != nil {
		s.Bitrate, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		s.Speed = m[1] + "x"
		s.HasSpeed = true
	}

	return s, true
}

// PercentComplete returns the completion percentage given a total video
// duration, clamped to [0, 100]. Returns 0 if totalDuration is zero.
func PercentComplete(current, total time.Duration) int {
	if total <= 0 {
		return 0
	}
	pct := int((current.Seconds() / total.Seconds()) * 100)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func hmsToDuration(h, m, s string) time.Duration {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.ParseFloat(s, 64)
	total := float64(hh)*3600 + float64(mm)*60 + ss
	return time.Duration(total * float64(time.Second))
}
