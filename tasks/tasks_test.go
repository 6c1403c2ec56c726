package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestForeachRunsEverything(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var sum int64
	failed := Foreach(context.Background(), items, 8, nil, func(ctx context.Context, item int) error {
		atomic.AddInt64(&sum, int64(item))
		return nil
	})

	if failed != 0 {
		t.Fatalf("got %d failures", failed)
	}
	if sum != 4950 {
		t.Fatalf("got sum %d", sum)
	}
}

func TestForeachCountsAndSuppressesFailures(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	errBoom := errors.New("boom")

	var mu sync.Mutex
	seen := map[string]error{}
	var processed int64

	failed := Foreach(context.Background(), items, 2, func(item string, err error) {
		mu.Lock()
		seen[item] = err
		mu.Unlock()
	}, func(ctx context.Context, item string) error {
		atomic.AddInt64(&processed, 1)
		if item == "b" || item == "d" {
			return errBoom
		}
		return nil
	})

	if failed != 2 {
		t.Fatalf("got %d failures", failed)
	}
	// failures never stop the remaining items
	if processed != 4 {
		t.Fatalf("processed %d items", processed)
	}
	if !errors.Is(seen["b"], errBoom) || !errors.Is(seen["d"], errBoom) {
		t.Fatalf("got %v", seen)
	}
	if _, ok := seen["a"]; ok {
		t.Fatal("onFailure called for a successful item")
	}
}

func TestForeachCancelStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 1000)
	var processed int64
	Foreach(ctx, items, 1, nil, func(ctx context.Context, item int) error {
		if atomic.AddInt64(&processed, 1) == 10 {
			cancel()
		}
		return nil
	})

	if processed >= 1000 {
		t.Fatal("cancellation did not stop scheduling")
	}
	if processed < 10 {
		t.Fatalf("processed %d items", processed)
	}
}

func TestAllFailsFast(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	errBoom := errors.New("boom")

	err := All(context.Background(), items, 2, func(ctx context.Context, item int) error {
		if item == 3 {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v", err)
	}
}

func TestAllCollectsResults(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := make([]int, len(items))

	err := All(context.Background(), items, 3, func(ctx context.Context, item int) error {
		results[item-1] = item * item
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, item := range items {
		if results[i] != item*item {
			t.Fatalf("results[%d] = %d", i, results[i])
		}
	}
}
