package text

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateASCII(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello" {
		t.Errorf("Truncate = %q, want %q", got, "hello")
	}
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("Truncate must not pad, got %q", got)
	}
}

func TestTruncateNeverSplitsRunes(t *testing.T) {
	// 2-, 3-, and 4-byte runes plus a mixed headline.
	cases := []string{
		strings.Repeat("ё", 80),
		strings.Repeat("₹", 100),
		strings.Repeat("📈", 50),
		"📈 Market Digest — 06 Feb 2026",
	}
	for i, s := range cases {
		for limit := 0; limit <= 20; limit++ {
			got := Truncate(s, limit)
			if len(got) > limit {
				t.Errorf("case %d limit %d: %d bytes", i, limit, len(got))
			}
			if !utf8.ValidString(got) {
				t.Errorf("case %d limit %d: invalid UTF-8 %q", i, limit, got)
			}
			if !strings.HasPrefix(s, got) {
				t.Errorf("case %d limit %d: not a prefix %q", i, limit, got)
			}
		}
	}
}

func TestBoundary(t *testing.T) {
	s := "a₹b" // bytes: a=1, ₹=3, b=1
	wants := map[int]int{0: 0, 1: 1, 2: 1, 3: 1, 4: 4, 5: 5, 9: 5}
	for max, want := range wants {
		if got := Boundary(s, max); got != want {
			t.Errorf("Boundary(%q, %d) = %d, want %d", s, max, got, want)
		}
	}
}
