package report

import (
	"testing"
	"time"
)

func TestHumanizeBytes(t *testing.T) {
	for _, tc := range [...]struct {
		input uint64
		want  string
	}{
		{0, `0 bytes`},
		{767, `767 bytes`},
		{768, `0.75 KiB`},
		{1024, `1.00 KiB`},
		{768*1024 - 1, `768.00 KiB`},
		{768 * 1024, `0.75 MiB`},
		{3 << 20, `3.00 MiB`},
		{768 << 20, `0.75 GiB`},
		{768 << 30, `0.75 TiB`},
		{768 << 40, `0.75 PiB`},
		{1 << 60, `1024.00 PiB`},
	} {
		if got := HumanizeBytes(tc.input); got != tc.want {
			t.Errorf(`%d: got %q want %q`, tc.input, got, tc.want)
		}
	}
}

func TestHumanizeOperations(t *testing.T) {
	for _, tc := range [...]struct {
		input uint64
		want  string
	}{
		{0, `0 operations`},
		{699, `699 operations`},
		{700, `0.70 Kop`},
		{1500, `1.50 Kop`},
		{700_000, `0.70 Mop`},
		{2_500_000, `2.50 Mop`},
		{700_000_000, `0.70 Gop`},
		{700_000_000_000, `0.70 Top`},
		{700_000_000_000_000, `0.70 Pop`},
		{7_000_000_000_000_000, `7.00 Pop`},
	} {
		if got := HumanizeOperations(tc.input); got != tc.want {
			t.Errorf(`%d: got %q want %q`, tc.input, got, tc.want)
		}
	}
}

func TestHumanizeDuration(t *testing.T) {
	for _, tc := range [...]struct {
		input time.Duration
		want  string
	}{
		{0, `00:00:00`},
		{499 * time.Millisecond, `00:00:00`},
		{500 * time.Millisecond, `00:00:01`},
		{59 * time.Second, `00:00:59`},
		{61 * time.Second, `00:01:01`},
		{time.Hour + 2*time.Minute + 3*time.Second, `01:02:03`},
		{100 * time.Hour, `100:00:00`},
		{-time.Second, `00:00:00`},
	} {
		if got := HumanizeDuration(tc.input); got != tc.want {
			t.Errorf(`%s: got %q want %q`, tc.input, got, tc.want)
		}
	}
}
