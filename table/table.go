// Package table is a keyed collection of value records that tells its records
// about every committed change.
//
// A Table is guarded by one RW lock. Reads run concurrently; Insert, Replace,
// Update and Remove hold the write lock for the whole read-mutate-notify cycle,
// so listeners must not call back into the same table. Listeners are expected
// to hand events off without blocking (see broadcast).
package table

import (
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Update when the key is absent.
	ErrNotFound = errors.New("record not found")
	// ErrRemove may be returned by an Update mutator to delete the record
	// instead of replacing it.
	ErrRemove = errors.New("remove record")
	// ErrKeyChanged is returned when a mutator rewrites the record's key.
	ErrKeyChanged = errors.New("mutator changed the record key")
)

// Entity is a record identified by Key. Only the key takes part in identity;
// the rest of the record is payload.
//
// The On* hooks receive the changed record. In ModeTable the changed record is
// the receiver itself; in ModeShared every record in the table is a receiver.
type Entity[K comparable, V any] interface {
	Key() K
	OnInsert(changed V)
	OnUpdate(changed V)
	OnDelete(changed V)
}

// Mode selects who is told about a committed change.
type Mode int

const (
	// ModeTable notifies only the committed record.
	ModeTable Mode = iota
	// ModeShared notifies every record currently in the table. Deletes are
	// told to the records that remain.
	ModeShared
)

type event int

const (
	eventInsert event = iota
	eventUpdate
	eventDelete
)

// Table holds at most one record per key and keeps insertion order.
type Table[K comparable, V Entity[K, V]] struct {
	mode    Mode
	records map[K]V
	order   []K
	mutex   sync.RWMutex
}

// New creates an empty table.
func New[K comparable, V Entity[K, V]](mode Mode) *Table[K, V] {
	return &Table[K, V]{
		mode:    mode,
		records: make(map[K]V),
	}
}

// Insert adds v if its key is free. Nothing is notified when the key is taken.
func (t *Table[K, V]) Insert(v V) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	key := v.Key()
	if _, exists := t.records[key]; exists {
		return false
	}
	t.records[key] = v
	t.order = append(t.order, key)
	t.notify(eventInsert, v)
	return true
}

// Replace stores v and returns the record it displaced, if any. The
// notification is an update when a prior record existed, an insert otherwise.
func (t *Table[K, V]) Replace(v V) (V, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.replace(v)
}

// Update applies fn to a copy of the record under key and commits the copy.
// A mutator error leaves the table untouched, except ErrRemove which deletes
// the record. The returned value is the record as it was before the commit.
func (t *Table[K, V]) Update(key K, fn func(v *V) error) (V, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var zero V
	current, exists := t.records[key]
	if !exists {
		return zero, ErrNotFound
	}

	next := current
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrRemove) {
			t.remove(key)
			return current, nil
		}
		return zero, err
	}
	if next.Key() != key {
		return zero, ErrKeyChanged
	}

	prior, _ := t.replace(next)
	return prior, nil
}

// Remove deletes the record under key and returns it.
func (t *Table[K, V]) Remove(key K) (V, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.remove(key)
}

// Get returns a copy of the record under key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	v, exists := t.records[key]
	return v, exists
}

// Has reports whether key is present.
func (t *Table[K, V]) Has(key K) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	_, exists := t.records[key]
	return exists
}

// Len returns the number of records.
func (t *Table[K, V]) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.records)
}

// Values returns a snapshot of every record in insertion order.
func (t *Table[K, V]) Values() []V {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	values := make([]V, 0, len(t.order))
	for _, key := range t.order {
		values = append(values, t.records[key])
	}
	return values
}

// Keys returns a snapshot of every key in insertion order.
func (t *Table[K, V]) Keys() []K {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	keys := make([]K, len(t.order))
	copy(keys, t.order)
	return keys
}

func (t *Table[K, V]) replace(v V) (V, bool) {
	key := v.Key()
	prior, existed := t.records[key]
	t.records[key] = v
	if existed {
		t.notify(eventUpdate, v)
	} else {
		t.order = append(t.order, key)
		t.notify(eventInsert, v)
	}
	return prior, existed
}

func (t *Table[K, V]) remove(key K) (V, bool) {
	removed, exists := t.records[key]
	if !exists {
		return removed, false
	}
	delete(t.records, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.notify(eventDelete, removed)
	return removed, true
}

// notify runs with the write lock held.
func (t *Table[K, V]) notify(ev event, changed V) {
	if t.mode == ModeTable {
		t.deliver(ev, changed, changed)
		return
	}
	for _, key := range t.order {
		t.deliver(ev, t.records[key], changed)
	}
}

func (t *Table[K, V]) deliver(ev event, receiver, changed V) {
	switch ev {
	case eventInsert:
		receiver.OnInsert(changed)
	case eventUpdate:
		receiver.OnUpdate(changed)
	case eventDelete:
		receiver.OnDelete(changed)
	}
}
