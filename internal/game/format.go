package game

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders a timer delay the way announcements phrase it,
// e.g. "40 seconds" or "10 minutes".
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d >= time.Second:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// MentionAll renders every player with mention, joined by sep.
func MentionAll(players []string, mention MentionFunc, sep string) string {
	parts := make([]string, 0, len(players))
	for _, p := range players {
		parts = append(parts, mention(p))
	}
	return strings.Join(parts, sep)
}
