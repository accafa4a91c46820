package xml

import (
	"sync"
	"weak"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// contextShards bounds the lock contention of Context.Intern under
// concurrent multi-parser use: each URI hashes to one of these shards,
// and ReleaseTemporaries sweeps them concurrently.
const contextShards = 16

type contextShard struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[string]
}

// Context is the optional shared interning collaborator of spec §6.3: it
// deduplicates namespace URI storage across however many parsers are
// handed a reference to it. Entries are held by weak.Pointer so that a
// URI no longer referenced by any live event can be collected without an
// explicit unintern call; ReleaseTemporaries just sweeps out the dead
// map entries themselves.
type Context struct {
	id     uuid.UUID
	shards [contextShards]*contextShard
}

// NewContext returns an empty, ready-to-use Context. A Context is safe
// for concurrent use by multiple Lexer/RawParser/NSResolver instances.
func NewContext() *Context {
	c := &Context{id: uuid.New()}
	for i := range c.shards {
		c.shards[i] = &contextShard{entries: make(map[string]weak.Pointer[string])}
	}
	return c
}

// ID returns the identifier assigned to this Context when it was
// created. Errors reported by parsers using the Context do not include it.
func (c *Context) ID() uuid.UUID { return c.id }

func (c *Context) shardFor(s string) *contextShard {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return c.shards[h%contextShards]
}

// Intern returns a CData sharing backing storage with any other value
// previously interned with the same string content, allocating a new
// canonical copy only the first time a value is seen (or after the
// previous canonical copy has been collected).
func (c *Context) Intern(v CData) CData {
	s := string(v)
	shard := c.shardFor(s)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if wp, ok := shard.entries[s]; ok {
		if canonical := wp.Value(); canonical != nil {
			return CData(*canonical)
		}
	}
	canonical := new(string)
	*canonical = s
	shard.entries[s] = weak.Make(canonical)
	return CData(*canonical)
}

// ReleaseTemporaries sweeps every shard concurrently, dropping map
// entries whose weak pointer has already been collected. It never
// returns an error; errgroup is used purely for the fan-out.
func (c *Context) ReleaseTemporaries() {
	var g errgroup.Group
	for _, shard := range c.shards {
		shard := shard
		g.Go(func() error {
			shard.mu.Lock()
			defer shard.mu.Unlock()
			for k, wp := range shard.entries {
				if wp.Value() == nil {
					delete(shard.entries, k)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}
