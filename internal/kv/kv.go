// Package kv provides the persisted key-value store used for conversation
// logs, summaries, counters, and settings.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// Store is an asynchronous string-keyed, string-valued store. Every operation
// is independently fallible.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type namespacedStore struct {
	inner  Store
	prefix string
}

// Namespaced wraps a store so every key is scoped under the given namespace.
// Each device sees its own logical store this way.
func Namespaced(s Store, namespace string) Store {
	return &namespacedStore{inner: s, prefix: namespace + "."}
}

func (n *namespacedStore) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespacedStore) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespacedStore) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}
