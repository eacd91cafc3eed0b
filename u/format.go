package u

import (
	"fmt"
	"strings"
	"time"
)

// FormatSize formats a number in a human-readable form e.g. 1.24 kB
func FormatSize(n int64) string {
	sizes := []int64{1024 * 1024 * 1024, 1024 * 1024, 1024}
	suffixes := []string{"GB", "MB", "kB"}
	for i, size := range sizes {
		if n >= size {
			s := fmt.Sprintf("%.2f", float64(n)/float64(size))
			return strings.TrimSuffix(s, ".00") + " " + suffixes[i]
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

// Percent returns how many percent of total is sub, 0 if total is 0
func Percent(total, sub int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(sub) * 100 / float64(total)
}

// FormatDuration is time.Duration.String() without
// the long fractions of µs and ms
func FormatDuration(d time.Duration) string {
	s := d.String()
	for _, unit := range []string{"µs", "ms"} {
		if !strings.HasSuffix(s, unit) {
			continue
		}
		num := strings.TrimSuffix(s, unit)
		whole, frac, hasFrac := strings.Cut(num, ".")
		if !hasFrac || unit == "µs" {
			return whole + " " + unit
		}
		if len(frac) > 2 {
			frac = frac[:2]
		}
		return whole + "." + frac + " " + unit
	}
	return s
}
