package imagegen

import (
	"strings"
	"testing"
)

func TestFallbackURLIsDeterministic(t *testing.T) {
	prompts := []string{
		"A realistic high resolution photo of a harbor",
		"A realistic high resolution photo of a mountain trail",
		"",
		"ünïcödé prömpt 🌄",
	}
	for _, p := range prompts {
		first := FallbackURL(p)
		for i := 0; i < 10; i++ {
			if got := FallbackURL(p); got != first {
				t.Fatalf("FallbackURL(%q) changed between calls: %q vs %q", p, first, got)
			}
		}
		if !strings.HasPrefix(first, "https://") {
			t.Errorf("FallbackURL(%q) = %q, not a stock url", p, first)
		}
	}
}

func TestFallbackURLAlwaysInPool(t *testing.T) {
	pool := make(map[string]bool, len(fallbackPool))
	for _, url := range fallbackPool {
		pool[url] = true
	}

	// Long adversarial prompts drive the 32-bit hash through overflow; the
	// index must stay valid either way.
	for _, p := range []string{
		strings.Repeat("overflow ", 1000),
		strings.Repeat("￿", 500),
		"plain",
	} {
		if url := FallbackURL(p); !pool[url] {
			t.Errorf("FallbackURL(%q) = %q, not in the fixed pool", p, url)
		}
	}
}

func TestPromptHashNonNegative(t *testing.T) {
	for _, p := range []string{"", "a", "negative hash bait", strings.Repeat("z", 10000)} {
		if h := promptHash(p); h < 0 {
			t.Errorf("promptHash(%q) = %d, must be non-negative", p, h)
		}
	}
}
