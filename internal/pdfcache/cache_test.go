package pdfcache

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(ttl time.Duration, maxEntries int) (*Cache, *time.Time) {
	cache := New(ttl, maxEntries)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return current })
	return cache, &current
}

func TestCache_SetThenGetWithinTTL(t *testing.T) {
	cache, _ := newTestCache(5*time.Minute, 50)

	key := MakeKey(1, "classic", map[string]any{"accent_color": "#fff"})
	cache.Set(key, Entry{Buffer: []byte("%PDF-1.4"), FileName: "Ada_Lovelace_Resume.pdf"})

	entry, ok := cache.Get(key)
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if string(entry.Buffer) != "%PDF-1.4" || entry.FileName != "Ada_Lovelace_Resume.pdf" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, clock := newTestCache(5*time.Minute, 50)

	key := MakeKey(1, "classic", nil)
	cache.Set(key, Entry{Buffer: []byte("x")})

	*clock = clock.Add(5*time.Minute + time.Second)
	cache.Prune()

	if _, ok := cache.Get(key); ok {
		t.Fatalf("expired entry must not be served")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry must be removed, len=%d", cache.Len())
	}
}

func TestCache_CapacityEvictsOldestFirst(t *testing.T) {
	const max = 5
	cache, clock := newTestCache(time.Hour, max)

	for i := 0; i < max+3; i++ {
		*clock = clock.Add(time.Second)
		cache.Set(fmt.Sprintf("key-%d", i), Entry{Buffer: []byte{byte(i)}})
	}

	if cache.Len() != max {
		t.Fatalf("len = %d, want %d", cache.Len(), max)
	}
	// 最旧的条目被驱逐，最新的全部幸存。
	for i := 0; i < 3; i++ {
		if _, ok := cache.Get(fmt.Sprintf("key-%d", i)); ok {
			t.Fatalf("key-%d should have been evicted", i)
		}
	}
	for i := 3; i < max+3; i++ {
		if _, ok := cache.Get(fmt.Sprintf("key-%d", i)); !ok {
			t.Fatalf("key-%d should have survived", i)
		}
	}
}

func TestCache_EvictionReasons(t *testing.T) {
	cache, clock := newTestCache(time.Minute, 2)

	var reasons []string
	cache.OnEvict(func(reason string) { reasons = append(reasons, reason) })

	cache.Set("a", Entry{Buffer: []byte("a")})
	*clock = clock.Add(time.Second)
	cache.Set("b", Entry{Buffer: []byte("b")})
	*clock = clock.Add(time.Second)
	cache.Set("c", Entry{Buffer: []byte("c")}) // 容量驱逐 a

	if len(reasons) != 1 || reasons[0] != "capacity" {
		t.Fatalf("reasons = %v, want [capacity]", reasons)
	}

	*clock = clock.Add(2 * time.Minute)
	cache.Prune() // b、c 过期
	if len(reasons) != 3 {
		t.Fatalf("expected 3 evictions total, got %v", reasons)
	}
}

func TestMakeKey_DeterministicAndDistinct(t *testing.T) {
	cust := map[string]any{"accent_color": "#123456"}
	a := MakeKey(1, "classic", cust)
	b := MakeKey(1, "classic", cust)
	if a != b {
		t.Fatalf("same inputs must hash identically: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("key length = %d, want 16", len(a))
	}
	if MakeKey(2, "classic", cust) == a {
		t.Fatalf("different resume ids must produce different keys")
	}
	if MakeKey(1, "modern", cust) == a {
		t.Fatalf("different template ids must produce different keys")
	}
}
