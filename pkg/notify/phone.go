// Package notify delivers customer notifications (SMS, WhatsApp, staff
// announcements) with a constant retry schedule. Delivery state is
// tracked on persisted notification records; errors never reach callers.
package notify

import "strings"

// DefaultCountryCode is prepended to national numbers without one.
const DefaultCountryCode = "55"

// FormatPhone normalizes a phone number to its digits with a leading "+".
// National numbers of 10-11 digits get the default country code.
// Idempotent: formatting an already formatted number is a no-op.
func FormatPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if n := len(digits); n >= 10 && n <= 11 {
		digits = DefaultCountryCode + digits
	}
	return "+" + digits
}
