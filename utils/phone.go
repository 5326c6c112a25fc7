package utils

import "strings"

// CountryCode is the dialing prefix every stored phone number carries.
const CountryCode = "91"

// NormalizePhone reduces a raw phone input to digits and pins it to the
// fixed country prefix. "+91 98765 43210", "098765 43210" and
// "9876543210" all normalize to "919876543210". Already-normalized
// input is returned unchanged.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	for strings.HasPrefix(digits, "0") {
		digits = strings.TrimPrefix(digits, "0")
	}

	if len(digits) == 10 {
		return CountryCode + digits
	}
	return digits
}
