package lru

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	cache := New[string](100)
	if cache.capacity != 100 {
		t.Errorf("capacity = %d, want 100", cache.capacity)
	}
	if cache.Len() != 0 {
		t.Errorf("initial Len() = %d, want 0", cache.Len())
	}
}

func TestCache_Add(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		adds     []string
		wantLen  int
		wantNew  int
	}{
		{name: "within capacity", capacity: 5, adds: []string{"a", "b", "c"}, wantLen: 3, wantNew: 3},
		{name: "up to capacity", capacity: 3, adds: []string{"a", "b", "c"}, wantLen: 3, wantNew: 3},
		{name: "exceeds capacity", capacity: 3, adds: []string{"a", "b", "c", "d", "e"}, wantLen: 3, wantNew: 5},
		{name: "duplicates", capacity: 3, adds: []string{"a", "a", "b", "a"}, wantLen: 2, wantNew: 2},
		{name: "zero capacity", capacity: 0, adds: []string{"a", "b"}, wantLen: 0, wantNew: 0},
		{name: "negative capacity", capacity: -1, adds: []string{"a"}, wantLen: 0, wantNew: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := New[string](tt.capacity)
			added := 0
			for _, k := range tt.adds {
				if cache.Add(k) {
					added++
				}
			}
			if cache.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", cache.Len(), tt.wantLen)
			}
			if added != tt.wantNew {
				t.Errorf("Add() reported %d new keys, want %d", added, tt.wantNew)
			}
		})
	}
}

func TestCache_Eviction(t *testing.T) {
	cache := New[string](3)
	for _, k := range []string{"a", "b", "c", "d"} {
		cache.Add(k)
	}

	if cache.Contains("a") {
		t.Error("oldest key should have been evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !cache.Contains(k) {
			t.Errorf("Contains(%q) = false, want true", k)
		}
	}

	// Re-adding an evicted key counts as new.
	if !cache.Add("a") {
		t.Error("Add() of evicted key should report new")
	}
	if cache.Contains("b") {
		t.Error("b should be evicted after a is re-added")
	}
}

func TestCache_UUIDKeys(t *testing.T) {
	cache := New[uuid.UUID](2)
	id := uuid.New()
	if !cache.Add(id) {
		t.Fatal("first Add() should report new")
	}
	if cache.Add(id) {
		t.Error("second Add() of same id should not report new")
	}
}

func BenchmarkCache_Add(b *testing.B) {
	cache := New[string](10000)
	keys := make([]string, b.N)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Add(keys[i])
	}
}
