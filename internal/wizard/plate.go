package wizard

import (
	"regexp"
	"strings"
)

var (
	legacyPlate   = regexp.MustCompile(`^[A-Z]{3}-?[0-9]{4}$`)
	mercosulPlate = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z][0-9]{2}$`)
)

// IsValidPlaca accepts the legacy Brazilian format (ABC1234 or ABC-1234)
// and the Mercosul format (ABC1D23), case-insensitively.
func IsValidPlaca(placa string) bool {
	p := strings.ToUpper(strings.TrimSpace(placa))
	if p == "" {
		return false
	}
	return legacyPlate.MatchString(p) || mercosulPlate.MatchString(p)
}

// FormatPlaca normalizes typed input: hyphens removed, upper case, at most
// seven characters.
func FormatPlaca(placa string) string {
	p := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(placa), "-", ""))
	if r := []rune(p); len(r) > 7 {
		p = string(r[:7])
	}
	return p
}
