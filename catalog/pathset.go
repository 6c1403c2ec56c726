package catalog

import (
	"hash/fnv"
	"sync"
)

const pathSetShards = 16

// pathSet is a fixed-capacity concurrent insert-if-absent set of file paths.
// When a shard fills up the oldest entry is evicted FIFO, so a previously
// inserted path can be reported absent again; callers must tolerate the
// resulting redundant delete.
type pathSet struct {
	shards      [pathSetShards]pathShard
	capPerShard int
}

type pathShard struct {
	mu    sync.Mutex
	items map[string]struct{}
	ring  []string
	next  int
}

func newPathSet(capacity int) *pathSet {
	if capacity < pathSetShards {
		capacity = pathSetShards
	}
	s := &pathSet{
		capPerShard: capacity / pathSetShards,
	}
	for i := range s.shards {
		s.shards[i].items = make(map[string]struct{})
		s.shards[i].ring = make([]string, s.capPerShard)
	}
	return s
}

// InsertIfAbsent atomically inserts the path, returning true when it was not
// already present. Two concurrent callers for the same path never both get
// true.
func (s *pathSet) InsertIfAbsent(path string) bool {
	h := fnv.New32a()
	h.Write([]byte(path))
	shard := &s.shards[h.Sum32()%pathSetShards]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.items[path]; ok {
		return false
	}

	if len(shard.items) >= s.capPerShard {
		delete(shard.items, shard.ring[shard.next])
	}
	shard.ring[shard.next] = path
	shard.next = (shard.next + 1) % s.capPerShard
	shard.items[path] = struct{}{}
	return true
}

func (s *pathSet) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		n += len(s.shards[i].items)
		s.shards[i].mu.Unlock()
	}
	return n
}
