// Package index implements the vertex identity index: for every vertex table
// the ids recorded while loading it, plus a reverse map from id to the table
// that owns it so edge endpoints resolve in constant time.
//
// The index is append-only. It is safe for concurrent use; the reverse map is
// split into shards selected by an xxh3 hash of the id so concurrent vertex
// groups rarely contend on the same lock.
package index

import (
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
)

const shardCount = 64

type shard struct {
	mu    sync.RWMutex
	owner map[string]string
}

// Index is the vertex identity index. The zero value is not usable; call New.
type Index struct {
	shards [shardCount]shard

	mu        sync.RWMutex
	tables    map[string][]string
	conflicts int
}

// New returns an empty Index.
func New() *Index {
	ix := &Index{tables: map[string][]string{}}
	for i := range ix.shards {
		ix.shards[i].owner = map[string]string{}
	}
	return ix
}

func (ix *Index) shardFor(id string) *shard {
	return &ix.shards[xxh3.HashString(id)%shardCount]
}

// Record notes that id was loaded into table. Empty ids are ignored.
//
// When the same id is recorded under several tables the owner is the table
// whose name sorts first, so the result does not depend on which vertex group
// happened to finish first.
func (ix *Index) Record(table, id string) {
	if id == "" {
		return
	}

	ix.mu.Lock()
	ix.tables[table] = append(ix.tables[table], id)
	ix.mu.Unlock()

	s := ix.shardFor(id)
	s.mu.Lock()
	prev, ok := s.owner[id]
	switch {
	case !ok:
		s.owner[id] = table
	case prev != table:
		if table < prev {
			s.owner[id] = table
		}
		s.mu.Unlock()
		ix.mu.Lock()
		ix.conflicts++
		ix.mu.Unlock()
		return
	}
	s.mu.Unlock()
}

// Ensure registers table with no ids so it shows up in Tables even when its
// group produced nothing.
func (ix *Index) Ensure(table string) {
	ix.mu.Lock()
	if _, ok := ix.tables[table]; !ok {
		ix.tables[table] = []string{}
	}
	ix.mu.Unlock()
}

// ResolveOwner returns the table that owns id.
func (ix *Index) ResolveOwner(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	s := ix.shardFor(id)
	s.mu.RLock()
	t, ok := s.owner[id]
	s.mu.RUnlock()
	return t, ok
}

// Tables returns the recorded table names sorted ascending.
func (ix *Index) Tables() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.tables))
	for t := range ix.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IDs returns a copy of the ids recorded for table, in record order.
func (ix *Index) IDs(table string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.tables[table]...)
}

// Counts returns the number of ids recorded per table.
func (ix *Index) Counts() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]int, len(ix.tables))
	for t, ids := range ix.tables {
		out[t] = len(ids)
	}
	return out
}

// Len returns the number of distinct ids with an owner.
func (ix *Index) Len() int {
	n := 0
	for i := range ix.shards {
		s := &ix.shards[i]
		s.mu.RLock()
		n += len(s.owner)
		s.mu.RUnlock()
	}
	return n
}

// Conflicts returns how many times an id was recorded under a table other
// than the one that already held it.
func (ix *Index) Conflicts() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.conflicts
}
