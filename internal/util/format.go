package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// videoExtensions lists file extensions treated as video sources.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".m4v": true, ".webm": true, ".wmv": true, ".ts": true,
	".m2ts": true, ".flv": true,
}

// IsVideoFile reports whether path has a recognized video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// FormatDurationFromSecs renders an integer number of seconds as H:MM:SS.
func FormatDurationFromSecs(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// SystemInfo holds ambient host information surfaced to the reporter.
type SystemInfo struct {
	Hostname string
}

// GetSystemInfo returns ambient information about the machine plexbif is running on.
func GetSystemInfo() SystemInfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return SystemInfo{Hostname: hostname}
}
