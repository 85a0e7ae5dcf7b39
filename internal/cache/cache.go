// Package cache implements the content-addressed result store.
//
// A Cache maps context-hash digests to result maps. It is two-tiered: a
// primary in-memory map serves every read and write, and an optional
// secondary backing store (see internal/database) holds serialized copies.
// Backup flushes the primary into the secondary; Dump evicts the primary,
// losing anything not yet backed up. Reads consult the primary first.
//
// Caches follow the engine's single-threaded cooperative model: no
// synchronization is provided and concurrent use of one Cache is undefined.
package cache

import (
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/pluginrig/internal/anyfield"
	"github.com/vk/pluginrig/internal/database"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/fields"
)

// Cache is a content-addressed store of module results.
type Cache struct {
	primary   map[string]fields.ResultMap
	order     []string
	secondary database.Store
}

// New creates a purely in-memory cache.
func New() *Cache {
	return &Cache{primary: make(map[string]fields.ResultMap)}
}

// NewBacked creates a cache that spills to the given backing store.
func NewBacked(secondary database.Store) *Cache {
	c := New()
	c.secondary = secondary
	return c
}

// Count reports whether a result is stored under the key in either tier.
func (c *Cache) Count(key string) bool {
	if _, ok := c.primary[key]; ok {
		return true
	}
	if c.secondary == nil {
		return false
	}
	ok, err := c.secondary.Count(key)
	return err == nil && ok
}

// At returns the results stored under the key, consulting the primary tier
// first and falling back to the backing store.
func (c *Cache) At(key string) (fields.ResultMap, error) {
	if rm, ok := c.primary[key]; ok {
		return rm, nil
	}
	if c.secondary == nil {
		return nil, fault.New(fault.NotFound, "no cached result under %q", key)
	}
	raw, err := c.secondary.At(key)
	if err != nil {
		return nil, err
	}
	rm, err := decodeResults(raw)
	if err != nil {
		return nil, err
	}
	// Promote so repeated hits stay in memory.
	c.put(key, rm)
	return rm, nil
}

// Insert stores results under the key. With a backing store attached the
// write goes through to it as well; a backing failure is surfaced but the
// in-memory tier still reflects the write.
func (c *Cache) Insert(key string, rm fields.ResultMap) error {
	c.put(key, rm)
	if c.secondary == nil {
		return nil
	}
	raw, err := encodeResults(rm)
	if err != nil {
		return err
	}
	return c.secondary.Insert(key, raw)
}

// Free removes the key from both tiers.
func (c *Cache) Free(key string) error {
	if _, ok := c.primary[key]; ok {
		delete(c.primary, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	if c.secondary == nil {
		return nil
	}
	return c.secondary.Free(key)
}

// Backup serializes every primary entry into the backing store. Without a
// backing store it is a no-op.
func (c *Cache) Backup() error {
	if c.secondary == nil {
		return nil
	}
	for _, key := range c.order {
		raw, err := encodeResults(c.primary[key])
		if err != nil {
			return err
		}
		if err := c.secondary.Insert(key, raw); err != nil {
			return err
		}
	}
	return c.secondary.Backup()
}

// Dump evicts the primary tier. Keys never backed up are lost.
func (c *Cache) Dump() error {
	c.primary = make(map[string]fields.ResultMap)
	c.order = nil
	return nil
}

// Synchronize merges keys present in other but missing here into the
// primary tier. It is idempotent and never drops existing keys.
func (c *Cache) Synchronize(other *Cache) {
	for _, key := range other.order {
		if _, ok := c.primary[key]; !ok {
			c.put(key, other.primary[key])
		}
	}
}

// Keys returns every key visible through the cache, both tiers combined,
// in lexical order.
func (c *Cache) Keys() []string {
	set := make(map[string]struct{}, len(c.primary))
	for k := range c.primary {
		set[k] = struct{}{}
	}
	if c.secondary != nil {
		if backed, err := c.secondary.Keys(); err == nil {
			for _, k := range backed {
				set[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of visible keys.
func (c *Cache) Len() int { return len(c.Keys()) }

// Equal is key-set equality.
func (c *Cache) Equal(other *Cache) bool {
	a, b := c.Keys(), other.Keys()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Cache) put(key string, rm fields.ResultMap) {
	if _, ok := c.primary[key]; !ok {
		c.order = append(c.order, key)
	}
	c.primary[key] = rm
}

// storedResult is the wire form of one result descriptor.
type storedResult struct {
	Key   string `msgpack:"k"`
	Desc  string `msgpack:"d"`
	Value []byte `msgpack:"v"`
}

func encodeResults(rm fields.ResultMap) ([]byte, error) {
	entries := make([]storedResult, 0, rm.Len())
	var encodeErr error
	rm.Each(func(key string, r *fields.Result) bool {
		raw, err := r.Field().Serialize()
		if err != nil {
			encodeErr = err
			return false
		}
		entries = append(entries, storedResult{Key: key, Desc: r.Description(), Value: raw})
		return true
	})
	if encodeErr != nil {
		return nil, encodeErr
	}
	raw, err := msgpack.Marshal(entries)
	if err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "encoding result map")
	}
	return raw, nil
}

func decodeResults(raw []byte) (fields.ResultMap, error) {
	var entries []storedResult
	if err := msgpack.Unmarshal(raw, &entries); err != nil {
		return nil, fault.Wrap(fault.BackendIO, err, "decoding result map")
	}
	rm := fields.NewResultMap()
	for _, e := range entries {
		f, err := anyfield.Deserialize(e.Value)
		if err != nil {
			return nil, err
		}
		r := fields.NewResult().SetDescription(e.Desc)
		if !f.Empty() {
			r.SetType(f.Type())
			if err := r.Change(f.Value()); err != nil {
				return nil, err
			}
		}
		rm.Set(e.Key, r)
	}
	return rm, nil
}
