// Package cache holds rendered listings for a short time so that repeated
// requests for the same page skip the database.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"yatube/metrics"
)

// Store is a key-value store whose entries expire after a fixed time.
// *expirable.LRU satisfies it.
type Store[V any] interface {
	Get(key string) (V, bool)
	Add(key string, value V) bool
	Purge()
}

// DefaultSize is the number of entries a store keeps unless told otherwise.
const DefaultSize = 300

// NewMemory returns an in-process store holding at most size entries, each
// expiring ttl after it was added. The least recently used entry is evicted
// when the store is full. A size below 1 means DefaultSize.
func NewMemory[V any](size int, ttl time.Duration) *expirable.LRU[string, V] {
	if size < 1 {
		size = DefaultSize
	}
	return expirable.NewLRU[string, V](size, nil, ttl)
}

// Instrumented counts hits and misses of the wrapped store.
type Instrumented[V any] struct {
	Store[V]
	name string
}

// NewInstrumented wraps s, reporting lookups under name.
func NewInstrumented[V any](name string, s Store[V]) *Instrumented[V] {
	return &Instrumented[V]{Store: s, name: name}
}

func (i *Instrumented[V]) Get(key string) (V, bool) {
	v, ok := i.Store.Get(key)
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheRequestsTotal.WithLabelValues(i.name, result).Inc()
	return v, ok
}

var _ Store[int] = &Instrumented[int]{}
var _ Store[int] = NewMemory[int](DefaultSize, time.Second)
