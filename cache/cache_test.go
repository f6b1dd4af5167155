package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU(4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %v, %v", got, ok)
	}
}

func TestLRU_Purge(t *testing.T) {
	c := NewLRU(4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry survived purge")
	}
}

func TestLRU_CapacityEvictsOldest(t *testing.T) {
	c := NewLRU(2, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if _, ok := c.Get("k0"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get("k2"); !ok {
		t.Fatal("newest entry missing")
	}
}

func TestLRU_TTLExpires(t *testing.T) {
	c := NewLRU(4, 20*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
}
