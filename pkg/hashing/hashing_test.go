package hashing

import (
	"sync"
	"testing"
)

func TestHash32(t *testing.T) {
	tests := []struct {
		input string
		want  int32
	}{
		{input: "", want: 0},
		{input: "a", want: 1867108634},
		{input: "ab", want: 374890698},
		{input: "hello world", want: 1689409188},
		{input: "template.activity2.12345", want: 91915111},
		{input: "caf\u00e9 \U0001F600", want: 1489355837},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Hash32(tt.input); got != tt.want {
				t.Errorf("Hash32(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestHasher_Memoizes(t *testing.T) {
	h := NewHasher()

	first := h.Hash32("template.activity2.12345")
	second := h.Hash32("template.activity2.12345")
	if first != second {
		t.Errorf("Hash32() not stable: %d != %d", first, second)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}

	h.Hash32("other")
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
}

func TestHasher_Independent(t *testing.T) {
	a := NewHasher()
	b := NewHasher()

	a.Hash32("x")
	if b.Len() != 0 {
		t.Errorf("second hasher shares cache: Len() = %d", b.Len())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache[string, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetOrCompute("k", func() int { return 42 })
		}()
	}
	wg.Wait()

	if v := c.GetOrCompute("k", func() int { return 0 }); v != 42 {
		t.Errorf("GetOrCompute() = %d, want cached 42", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMD5Hex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: "d41d8cd98f00b204e9800998ecf8427e"},
		{input: "abc", want: "900150983cd24fb0d6963f7d28e17f72"},
	}

	for _, tt := range tests {
		if got := MD5Hex(tt.input); got != tt.want {
			t.Errorf("MD5Hex(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
