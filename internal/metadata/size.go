package metadata

import (
	"strconv"
	"strings"
)

var sizeSuffixes = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// HumanSize formats a byte count with binary prefixes and at most two decimals.
func HumanSize(size int64) string {
	value := float64(size)
	index := 0
	for value >= 1024 && index < len(sizeSuffixes)-1 {
		value /= 1024
		index++
	}
	formatted := strconv.FormatFloat(value, 'f', 2, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimSuffix(formatted, ".")
	return formatted + " " + sizeSuffixes[index]
}
