package image

import (
	"strconv"
	"strings"
)

// sizeBase maps the neutral image size tiers to the pixel length of the
// longer side.
var sizeBase = map[string]int{
	"1K": 1024,
	"2K": 2048,
	"4K": 4096,
}

// Dimensions converts an aspect ratio and size tier into pixel dimensions.
// The longer side takes the tier's base length; unknown inputs fall back to
// a 1K square.
func Dimensions(aspect, size string) (int, int) {
	base := sizeBase[strings.ToUpper(strings.TrimSpace(size))]
	if base == 0 {
		base = 1024
	}
	a, b := parseAspect(aspect)
	if a >= b {
		return base, base * b / a
	}
	return base * a / b, base
}

func parseAspect(aspect string) (int, int) {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) != 2 {
		return 1, 1
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return 1, 1
	}
	return a, b
}

// roundTo64 snaps a dimension down to the nearest multiple of 64, the
// granularity diffusion backends require.
func roundTo64(v int) int {
	if v < 64 {
		return 64
	}
	return v - v%64
}
