package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BaseMask clears the per-edition bits of a title ID, leaving the family ID.
const BaseMask uint64 = 0xFFFFFFFFFFFFE000

// ErrNoTitleID is returned when a document carries no recognizable title ID.
var ErrNoTitleID = errors.New("no title id found")

var titleIDPattern = regexp.MustCompile(`(?i)01[0-9a-fx]{12,}`)

var placeholderReplacer = strings.NewReplacer("X", "0", "x", "0")

// ParseTitleID returns the first title ID in text with placeholder digits zeroed.
func ParseTitleID(text string) (string, error) {
	match := titleIDPattern.FindString(text)
	if match == "" {
		return "", ErrNoTitleID
	}
	return placeholderReplacer.Replace(match), nil
}

// MaskTitleID derives the family title ID: raw & BaseMask as 16 uppercase hex digits.
// IDs longer than 16 digits are truncated to their low 64 bits first.
func MaskTitleID(raw string) (string, error) {
	digits := raw
	if len(digits) > 16 {
		digits = digits[len(digits)-16:]
	}
	value, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return "", fmt.Errorf("parse title id %q: %w", raw, err)
	}
	return fmt.Sprintf("%016X", value&BaseMask), nil
}
