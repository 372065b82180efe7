package session

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeInput folds compatibility characters (full-width digits and
// letters some handsets send) to ASCII, trims and upper-cases.
func normalizeInput(line string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(stripControl(line))))
}

// stripControl drops ANSI escape sequences and other control characters.
// A terminal sends ESC [ A for the up arrow; relays forward it verbatim.
func stripControl(line string) string {
	var b strings.Builder
	escaped, inSequence := false, false
	for _, r := range line {
		switch {
		case inSequence:
			// parameters run until the final letter (or ~ for function keys)
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '~' {
				inSequence = false
			}
		case escaped:
			escaped = false
			inSequence = r == '['
		case r == '\x1b':
			escaped = true
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseNumber accepts plain decimal digits only, so signs and spaces are
// rejected rather than interpreted.
func parseNumber(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isYes(s string) bool { return s == "Y" || s == "YES" }

func isNo(s string) bool { return s == "N" || s == "NO" }
