package utils

import "testing"

func TestWindow(t *testing.T) {
	tests := []struct {
		name               string
		cursor, n, page    int
		wantStart, wantEnd int
	}{
		{"fits", 3, 4, 10, 0, 4},
		{"top", 0, 20, 5, 0, 5},
		{"middle", 10, 20, 5, 8, 13},
		{"bottom", 19, 20, 5, 15, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(tt.cursor, tt.n, tt.page)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Window = [%d,%d), want [%d,%d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPageSize(t *testing.T) {
	if got := PageSize(40); got != 31 {
		t.Errorf("PageSize(40) = %d", got)
	}
	if got := PageSize(3); got != 5 {
		t.Errorf("PageSize(3) = %d, want minimum 5", got)
	}
}

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Music", 10, "Music"},
		{"VeryLongFolderName", 9, "Very…Name"},
		{"Äpfelbäume", 5, "Äp…me"},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		if got := TruncateMiddle(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateMiddle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSizeWarningBanner(t *testing.T) {
	if SizeWarningBanner(120, 40) != "" {
		t.Error("large terminal should not warn")
	}
	if SizeWarningBanner(0, 0) != "" {
		t.Error("unknown size should not warn")
	}
	if SizeWarningBanner(40, 10) == "" {
		t.Error("small terminal should warn")
	}
}
