package resultcache

import "testing"

func TestCache_PutThenTake(t *testing.T) {
	c := New(0, 0, nil)

	c.Put("job-a", []byte("result-a"))

	body, ok := c.Take("job-a")
	if !ok {
		t.Fatal("expected to find job-a")
	}
	if string(body) != "result-a" {
		t.Fatalf("got %q, want %q", body, "result-a")
	}

	if _, ok := c.Take("job-a"); ok {
		t.Fatal("expected job-a to be gone after Take")
	}
}

func TestCache_TakeMiss(t *testing.T) {
	c := New(0, 0, nil)
	if _, ok := c.Take("missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestCache_OutOfOrderResults(t *testing.T) {
	// Client awaiting job A sees job B's result first; it must stash B
	// and let a later consumer of A retrieve it.
	c := New(0, 0, nil)

	c.Put("job-b", []byte("result-b"))

	if _, ok := c.Take("job-a"); ok {
		t.Fatal("job-a should not be present yet")
	}

	bodyB, ok := c.Take("job-b")
	if !ok || string(bodyB) != "result-b" {
		t.Fatalf("expected to retrieve job-b's result, got %q ok=%v", bodyB, ok)
	}
}

func TestCache_EvictsOldestOnEntryCap(t *testing.T) {
	var evicted []string
	c := New(2, 0, func(id string) { evicted = append(evicted, id) })

	c.Put("1", []byte("a"))
	c.Put("2", []byte("b"))
	c.Put("3", []byte("c"))

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if len(evicted) != 1 || evicted[0] != "1" {
		t.Fatalf("expected entry 1 to be evicted first, got %v", evicted)
	}
	if _, ok := c.Take("1"); ok {
		t.Fatal("entry 1 should have been evicted")
	}
	if _, ok := c.Take("2"); !ok {
		t.Fatal("entry 2 should still be present")
	}
}

func TestCache_EvictsOnByteCap(t *testing.T) {
	var evicted []string
	c := New(0, 10, func(id string) { evicted = append(evicted, id) })

	c.Put("1", []byte("123456")) // 6 bytes
	c.Put("2", []byte("1234"))   // +4 = 10, still within bound
	if len(evicted) != 0 {
		t.Fatalf("expected no eviction yet, got %v", evicted)
	}

	c.Put("3", []byte("x")) // pushes total over 10, must evict oldest (1)
	if len(evicted) != 1 || evicted[0] != "1" {
		t.Fatalf("expected entry 1 evicted on byte cap, got %v", evicted)
	}
}
