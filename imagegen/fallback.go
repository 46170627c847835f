package imagegen

// Fixed pool of stock images substituted when the generation collaborator is
// unreachable. The prompt hash below is pinned so the same prompt always maps
// to the same pool entry, which keeps fallbacks reproducible in tests.
var fallbackPool = []string{
	"https://images.unsplash.com/photo-1519389950473-47ba0277781c?q=80&w=1024",
	"https://images.unsplash.com/photo-1504639725590-34d0984388bd?q=80&w=1024",
	"https://images.unsplash.com/photo-1551434678-e076c223a692?q=80&w=1024",
	"https://images.unsplash.com/photo-1573496130407-57329f01f769?q=80&w=1024",
	"https://images.unsplash.com/photo-1581291518857-4e27b48ff24e?q=80&w=1024",
}

// FallbackURL picks a deterministic placeholder for the prompt.
func FallbackURL(prompt string) string {
	return fallbackPool[promptHash(prompt)%len(fallbackPool)]
}

// promptHash is the 31-multiplier string hash truncated to 32 bits, absolute
// value. Not cryptographic; stability across versions matters, quality does
// not.
func promptHash(s string) int {
	var h int32
	for _, ch := range s {
		h = h*31 + int32(ch)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
