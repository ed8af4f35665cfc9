package image

import "testing"

func TestDimensions(t *testing.T) {
	tests := []struct {
		aspect string
		size   string
		wantW  int
		wantH  int
	}{
		{"1:1", "1K", 1024, 1024},
		{"16:9", "1K", 1024, 576},
		{"9:16", "1K", 576, 1024},
		{"16:9", "2K", 2048, 1152},
		{"4:3", "4K", 4096, 3072},
		{"", "", 1024, 1024},
		{"junk", "9K", 1024, 1024},
	}
	for _, tt := range tests {
		w, h := Dimensions(tt.aspect, tt.size)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Dimensions(%q, %q) = %dx%d, expected %dx%d", tt.aspect, tt.size, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestRoundTo64(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{10, 64},
		{64, 64},
		{576, 576},
		{1000, 960},
		{1025, 1024},
	}
	for _, tt := range tests {
		if got := roundTo64(tt.in); got != tt.want {
			t.Errorf("roundTo64(%d) = %d, expected %d", tt.in, got, tt.want)
		}
	}
}
