package util

import (
	"testing"
	"time"
)

func TestEstimatePairs(t *testing.T) {
	tests := []struct {
		n    int
		want int64
	}{
		{n: 0, want: 0},
		{n: 1, want: 0},
		{n: 2, want: 0},
		{n: 10, want: 40},
		{n: 100000, want: 4999900000},
	}
	for _, tt := range tests {
		if got := EstimatePairs(tt.n); got != tt.want {
			t.Errorf("EstimatePairs(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestNewPairProgress_DefaultEvery(t *testing.T) {
	p := NewPairProgress("[Connections] Scanning", 10, 0)
	if p.Every != DefaultProgressEvery {
		t.Fatalf("expected default interval, got %d", p.Every)
	}
	if p.Total != 40 {
		t.Fatalf("expected total 40, got %d", p.Total)
	}
}

func TestFormatDuration(t *testing.T) {
	d := 2*time.Hour + 3*time.Minute + 4*time.Second
	if got := FormatDuration(d); got != "02:03:04" {
		t.Fatalf("unexpected duration: %s", got)
	}
}
