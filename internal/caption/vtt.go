package caption

import (
	"regexp"
	"strings"
)

var (
	cueNumberRe = regexp.MustCompile(`^\d+$`)
	timestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}`)
)

// VTTToText flattens WebVTT captions into plain prose. The header, cue
// numbers and timestamp lines are dropped; the remaining text is split into
// sentences and deduplicated case-insensitively, since rolling captions
// repeat the same sentence across cues.
func VTTToText(vtt string) string {
	var raw []string
	for _, line := range strings.Split(vtt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "WEBVTT" {
			continue
		}
		if cueNumberRe.MatchString(trimmed) || timestampRe.MatchString(trimmed) {
			continue
		}
		raw = append(raw, trimmed)
	}

	full := strings.Join(raw, " ")

	seen := make(map[string]struct{})
	var unique []string
	for _, piece := range strings.Split(full, ".") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		key := strings.ToLower(piece)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, piece+".")
	}

	return strings.Join(unique, "\n")
}
