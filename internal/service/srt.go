package service

import (
	"strconv"
	"strings"
)

// extractSRTText flattens an SRT subtitle file into plain script text,
// dropping cue numbers, timing lines, and blank separators.
func extractSRTText(raw []byte) string {
	var parts []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		if strings.Contains(line, "-->") {
			continue
		}
		if _, err := strconv.Atoi(line); err == nil {
			// Cue sequence number.
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
