package dashboard

import (
	"fmt"
	"regexp"
	"strings"
)

// FormatDuration renders call lengths as "45s" or "2m 5s"
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

var nanpPhone = regexp.MustCompile(`^1?(\d{3})(\d{3})(\d{4})$`)

// FormatPhone turns +15551234567 into (555) 123-4567. Numbers that are not
// North American are returned unchanged.
func FormatPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	m := nanpPhone.FindStringSubmatch(digits)
	if m == nil {
		return phone
	}
	return fmt.Sprintf("(%s) %s-%s", m[1], m[2], m[3])
}

// StatusClass maps an appointment, call or health status to the CSS class
// the templates use for its badge.
func StatusClass(status string) string {
	switch strings.ToLower(status) {
	case "completed", "confirmed", "healthy", "ok":
		return "good"
	case "scheduled":
		return "info"
	case "callback", "degraded":
		return "warn"
	case "cancelled", "escalated", "failed", "critical", "offline":
		return "bad"
	}
	return "neutral"
}
