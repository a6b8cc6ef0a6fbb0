package utils

import "testing"

func TestToMegabytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  float64
	}{
		{0, 0},
		{-5, 0},
		{MB, 1},
		{MB / 2, 0.5},
		{1536 * MB, 1536},
	}

	for _, tt := range tests {
		if got := ToMegabytes(tt.bytes); got != tt.want {
			t.Errorf("ToMegabytes(%d) = %v, want %v", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatMegabytes(t *testing.T) {
	tests := []struct {
		name string
		mb   float64
		want string
	}{
		{"zero", 0, "0.0 MB"},
		{"negative", -1, "0.0 MB"},
		{"fraction", 0.26, "0.3 MB"},
		{"below threshold", 999.9, "999.9 MB"},
		{"at threshold", 1000, "1.0 GB"},
		{"gigabytes", 2540, "2.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMegabytes(tt.mb); got != tt.want {
				t.Errorf("FormatMegabytes(%v) = %q, want %q", tt.mb, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(MB); got != "1.0 MB" {
		t.Errorf("FormatSize(1 MiB) = %q", got)
	}
	if got := FormatSize(1000 * MB); got != "1.0 GB" {
		t.Errorf("FormatSize(1000 MiB) = %q", got)
	}

	value, unit := SplitMegabytes(12.34)
	if value != "12.3" || unit != UnitMB {
		t.Errorf("SplitMegabytes = %q %q", value, unit)
	}
}
