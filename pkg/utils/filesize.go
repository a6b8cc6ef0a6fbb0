package utils

import "strconv"

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
)

// Display units for megabyte-normalized sizes
const (
	UnitMB = "MB"
	UnitGB = "GB"
)

// gbThreshold is where display switches from MB to GB
const gbThreshold = 1000

// ToMegabytes converts bytes to binary megabytes
func ToMegabytes(bytes int64) float64 {
	if bytes < 0 {
		return 0
	}
	return float64(bytes) / MB
}

// SplitMegabytes returns the one-decimal value and its unit for a size in
// megabytes. Sizes of 1000 MB and more are shown as GB by dividing by 1000.
func SplitMegabytes(mb float64) (string, string) {
	if mb < 0 {
		mb = 0
	}
	unit := UnitMB
	if mb >= gbThreshold {
		mb /= gbThreshold
		unit = UnitGB
	}
	return strconv.FormatFloat(mb, 'f', 1, 64), unit
}

// FormatMegabytes renders a size in megabytes as "12.3 MB" or "1.5 GB"
func FormatMegabytes(mb float64) string {
	value, unit := SplitMegabytes(mb)
	return value + " " + unit
}

// FormatSize renders a byte count the way the widget displays it
func FormatSize(bytes int64) string {
	return FormatMegabytes(ToMegabytes(bytes))
}
