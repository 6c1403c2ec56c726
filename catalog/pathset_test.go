package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPathSetInsertIfAbsent(t *testing.T) {
	s := newPathSet(1024)
	if !s.InsertIfAbsent("a") {
		t.Fatal("first insert should win")
	}
	if s.InsertIfAbsent("a") {
		t.Fatal("second insert should lose")
	}
	if s.Len() != 1 {
		t.Fatalf("got %d", s.Len())
	}
}

func TestPathSetConcurrent(t *testing.T) {
	s := newPathSet(1 << 16)
	const workers = 8
	const paths = 2000

	var wins int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < paths; i++ {
				if s.InsertIfAbsent(fmt.Sprintf("path-%d", i)) {
					atomic.AddInt64(&wins, 1)
				}
			}
		}()
	}
	wg.Wait()

	if wins != paths {
		t.Fatalf("expected exactly %d winning inserts, got %d", paths, wins)
	}
}

func TestPathSetEviction(t *testing.T) {
	s := newPathSet(16) // one slot per shard

	for i := 0; i < 1000; i++ {
		s.InsertIfAbsent(fmt.Sprintf("path-%d", i))
	}
	if s.Len() > 16 {
		t.Fatalf("capacity exceeded: %d", s.Len())
	}

	// an evicted path inserts as new again, callers must tolerate the
	// redundant delete that causes
	evictedSeen := false
	for i := 0; i < 1000; i++ {
		if s.InsertIfAbsent(fmt.Sprintf("path-%d", i)) {
			evictedSeen = true
			break
		}
	}
	if !evictedSeen {
		t.Fatal("expected at least one evicted path to re-insert")
	}
}
