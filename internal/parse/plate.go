package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	plateSepRe = regexp.MustCompile(`[\s\-.·]+`)
	// 1234BCD (current national format) or M1234AB / GR1234B (provincial format).
	plateRe = regexp.MustCompile(`^(\d{4}[A-Z]{3}|[A-Z]{1,2}\d{4}[A-Z]{0,2})$`)
)

// NormalizePlate upper-cases a licence plate and strips separators.
func NormalizePlate(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return plateSepRe.ReplaceAllString(s, "")
}

// Plate normalizes raw and checks it against the Spanish plate formats.
func Plate(raw string) (string, error) {
	p := NormalizePlate(raw)
	if p == "" {
		return "", fmt.Errorf("empty plate")
	}
	if !plateRe.MatchString(p) {
		return "", fmt.Errorf("unrecognized plate format: %q", raw)
	}
	return p, nil
}
