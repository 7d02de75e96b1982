package keyring

import (
	"sync"

	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/uid"
)

// entry is one key with its primitive instantiated. Building a primitive
// costs a key schedule, so entries are cached for the life of the index.
// An entry is immutable once another goroutine may hold it; a status change
// replaces the cached entry instead of writing to it, so callers can read
// entries without the lock.
type entry struct {
	id        uid.ID
	prefix    []byte
	status    models.KeyStatus
	kind      models.PrefixKind
	primitive primitives.Primitive
}

// primitiveIndex caches primitives for the keys a process has already seen.
// The cache fills lazily and incrementally: every fill excludes the ids
// already cached, so only rows the cache has never seen are read, and nothing
// is ever evicted. Which key is primary is never cached; rotation in another
// process must be visible immediately.
type primitiveIndex struct {
	family   primitives.Family
	keysetID uid.ID

	mu       sync.Mutex
	byID     map[uid.ID]*entry
	byPrefix map[string][]*entry
}

func newPrimitiveIndex(family primitives.Family, keysetID uid.ID) *primitiveIndex {
	return &primitiveIndex{
		family:   family,
		keysetID: keysetID,
		byID:     make(map[uid.ID]*entry),
		byPrefix: make(map[string][]*entry),
	}
}

// entriesForPrefix returns the entries whose output prefix matches. A keyed
// prefix encodes exactly one key id, so a cache hit is complete and skips the
// database. The empty prefix is shared by every raw key, so raw lookups
// always run the exclusion query to pick up keys created since the last fill.
func (idx *primitiveIndex) entriesForPrefix(db *gorm.DB, prefix []byte) ([]*entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(prefix) == primitives.KeyedPrefixSize {
		if cached := idx.byPrefix[string(prefix)]; len(cached) > 0 {
			return snapshot(cached), nil
		}
	}

	if err := idx.fill(db, data.ByOutputPrefix(prefix)); err != nil {
		return nil, err
	}
	return snapshot(idx.byPrefix[string(prefix)]), nil
}

// snapshot copies a slice out of the cache so callers can iterate it after
// the lock is released. Later fills and replacements only touch the cache's
// own slices and maps.
func snapshot(entries []*entry) []*entry {
	out := make([]*entry, len(entries))
	copy(out, entries)
	return out
}

// all returns every live entry, filling the cache with any keys it has not
// seen yet.
func (idx *primitiveIndex) all(db *gorm.DB) ([]*entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.fill(db); err != nil {
		return nil, err
	}

	entries := make([]*entry, 0, len(idx.byID))
	for _, e := range idx.byID {
		entries = append(entries, e)
	}
	return entries, nil
}

// primary returns the entry for the keyset's current primary key. The primary
// flag is re-read on every call so a promotion in another process takes
// effect without restarting; only the primitive itself is cached.
func (idx *primitiveIndex) primary(db *gorm.DB) (*entry, error) {
	key, err := data.GetPrimaryKey(db, idx.keysetID)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.byID[key.ID]; ok {
		if e.status != key.Status {
			e = idx.replace(e, key.Status)
		}
		return e, nil
	}
	return idx.add(key)
}

// insert caches a key created through this index's keyring, so the next
// operation does not need a database read to find it.
func (idx *primitiveIndex) insert(key *models.Key) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.byID[key.ID]; ok {
		return nil
	}
	_, err := idx.add(key)
	return err
}

// setStatus updates a cached entry after a status change made through this
// process. Changes made elsewhere are only seen for keys not yet cached.
func (idx *primitiveIndex) setStatus(keyID uid.ID, status models.KeyStatus) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.byID[keyID]; ok && e.status != status {
		idx.replace(e, status)
	}
}

// replace swaps a cached entry for a copy with a new status. Snapshots taken
// before the swap keep the old entry, so a caller mid-operation sees the old
// status for at most the rest of that call. Callers must hold mu.
func (idx *primitiveIndex) replace(old *entry, status models.KeyStatus) *entry {
	e := *old
	e.status = status
	idx.byID[e.id] = &e

	entries := idx.byPrefix[string(e.prefix)]
	for i := range entries {
		if entries[i] == old {
			entries[i] = &e
			break
		}
	}
	return &e
}

// fill loads keys matching the selectors that are not yet cached. Callers
// must hold mu.
func (idx *primitiveIndex) fill(db *gorm.DB, selectors ...data.SelectorFunc) error {
	cached := make([]uid.ID, 0, len(idx.byID))
	for id := range idx.byID {
		cached = append(cached, id)
	}

	selectors = append(selectors, data.NotDestroyed(), data.ExcludeKeyIDs(cached))
	keys, err := data.ListKeys(db, idx.keysetID, selectors...)
	if err != nil {
		return err
	}

	for i := range keys {
		if _, err := idx.add(&keys[i]); err != nil {
			return err
		}
	}
	return nil
}

func (idx *primitiveIndex) add(key *models.Key) (*entry, error) {
	primitive, err := idx.family.Primitive([]byte(key.Material))
	if err != nil {
		return nil, err
	}

	e := &entry{
		id:        key.ID,
		prefix:    key.OutputPrefix,
		status:    key.Status,
		kind:      key.Kind,
		primitive: primitive,
	}
	idx.byID[e.id] = e
	idx.byPrefix[string(e.prefix)] = append(idx.byPrefix[string(e.prefix)], e)
	return e, nil
}
