package cache

import (
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := New[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Update("k", func(string) string { return "v" })
	c.Update("k", func(cur string) string {
		if cur != "v" {
			t.Fatalf("cur = %q, want v", cur)
		}
		return cur
	})

	now = now.Add(2 * time.Minute)
	c.Update("k", func(cur string) string {
		if cur != "" {
			t.Fatalf("expired value leaked into Update: %q", cur)
		}
		return "fresh"
	})
	if v, ok := c.Take("k"); !ok || v != "fresh" {
		t.Fatalf("Take = (%q, %v), want (fresh, true)", v, ok)
	}

	c.Update("k", func(string) string { return "v" })
	now = now.Add(2 * time.Minute)
	if _, ok := c.Take("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestCacheUpdateAndTake(t *testing.T) {
	c := New[[]int](time.Minute)

	c.Update("k", func(cur []int) []int { return append(cur, 1) })
	c.Update("k", func(cur []int) []int { return append(cur, 2) })

	got, ok := c.Take("k")
	if !ok || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Take = (%v, %v)", got, ok)
	}

	if _, ok := c.Take("k"); ok {
		t.Fatal("Take should remove the entry")
	}
}

func TestCacheWritesPurgeAbandonedKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := New[int](time.Minute)
	c.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		c.Update(k, func(int) int { return 1 })
	}
	if n := len(c.m); n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}

	// within the sweep interval nothing is scanned
	now = now.Add(30 * time.Second)
	c.Update("d", func(int) int { return 1 })
	if n := len(c.m); n != 4 {
		t.Fatalf("Len = %d, want 4", n)
	}

	now = now.Add(45 * time.Second)
	c.Update("e", func(int) int { return 1 })
	if n := len(c.m); n != 2 {
		t.Fatalf("Len = %d, want 2 (d and e)", n)
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c := New[int](0)
	if c.ttl != 5*time.Second {
		t.Fatalf("ttl = %s, want 5s", c.ttl)
	}
}
