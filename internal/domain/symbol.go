package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol trims and upper-cases a ticker symbol, then validates it.
// Lower-case input is accepted so that "aapl" and "AAPL" name the same stock.
func NormalizeSymbol(raw string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	if sym == "" {
		return "", &ValidationError{Message: "symbol is required"}
	}
	if !symbolRegex.MatchString(sym) {
		return "", &ValidationError{
			Message: fmt.Sprintf("invalid symbol %q: must be 1-10 characters of A-Z, 0-9, '.' or '-', starting with a letter", raw),
		}
	}
	return sym, nil
}

// ValidSymbol reports whether s is already in normalized form.
func ValidSymbol(s string) bool {
	return symbolRegex.MatchString(s)
}
