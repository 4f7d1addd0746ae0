package storage

import (
	"errors"
	"sort"
	"sync"
)

type Storage[K comparable, V any] interface {
	Get(key K) (V, error)
	Has(key K) bool
	Keys() []K
	Len() int

	// GetOrCreate returns the value stored under key, building it with create
	// when absent. created reports whether create was called.
	GetOrCreate(key K, create func() V) (value V, created bool)
}

type StorageType uint8

const (
	StorageType_Memory StorageType = iota
)

func NewStorage[K comparable, V any](stype StorageType) (Storage[K, V], error) {
	switch stype {
	case StorageType_Memory:
		return NewMemoryStorage[K, V](), nil
	default:
		return nil, errors.New("storage not supported")
	}
}

// MemoryStorage is a map guarded by a RWMutex. Lookups share the read lock;
// inserts take the write lock, so creation of any key serializes against
// creation of every other key.
type MemoryStorage[K comparable, V any] struct {
	mux  sync.RWMutex
	data map[K]V
}

var ErrNotFound = errors.New("data not found")

func NewMemoryStorage[K comparable, V any]() *MemoryStorage[K, V] {
	return &MemoryStorage[K, V]{
		data: make(map[K]V),
	}
}

func (ms *MemoryStorage[K, V]) Get(key K) (V, error) {
	ms.mux.RLock()
	defer ms.mux.RUnlock()
	data, ok := ms.data[key]
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	return data, nil
}

func (ms *MemoryStorage[K, V]) Has(key K) bool {
	ms.mux.RLock()
	defer ms.mux.RUnlock()
	_, ok := ms.data[key]
	return ok
}

func (ms *MemoryStorage[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	ms.mux.RLock()
	data, ok := ms.data[key]
	ms.mux.RUnlock()
	if ok {
		return data, false
	}

	ms.mux.Lock()
	defer ms.mux.Unlock()

	// Somebody may have won the race between the two locks.
	if data, ok := ms.data[key]; ok {
		return data, false
	}

	data = create()
	ms.data[key] = data

	return data, true
}

func (ms *MemoryStorage[K, V]) Keys() []K {
	ms.mux.RLock()
	defer ms.mux.RUnlock()

	keys := make([]K, 0, len(ms.data))
	for k := range ms.data {
		keys = append(keys, k)
	}
	return keys
}

func (ms *MemoryStorage[K, V]) Len() int {
	ms.mux.RLock()
	defer ms.mux.RUnlock()
	return len(ms.data)
}

// SortedKeys returns the keys of s ordered with less.
func SortedKeys[K comparable, V any](s Storage[K, V], less func(a, b K) bool) []K {
	keys := s.Keys()
	sort.Slice(keys, func(i, j int) bool {
		return less(keys[i], keys[j])
	})
	return keys
}
