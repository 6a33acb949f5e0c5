// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store is the concrete stand-in for the "general KV store"
// that spec.md §9 says the fixed-size-account constraint relaxes
// into. It is modeled 1:1 on the consensus engine's own local
// crypto/database.Database interface.
package store

import (
	"sync"
)

// Batch is a write batch applied atomically by Write.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Size() int
	Write() error
	Reset()
}

// Reader reads from a KV store.
type Reader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// Writer writes to a KV store.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// KV is a key-value store interface with an in-memory implementation.
// No other package in this module uses it: bridge, buffer, custodian
// and merkle state is held in plain Go fields.
type KV interface {
	Reader
	Writer
	NewBatch() Batch
	Close() error
}

// memKV is an in-memory KV used by tests and by cmd/bridgesim.
type memKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an in-memory KV store.
func NewMemory() KV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memKV) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *memKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memKV) Close() error { return nil }

func (m *memKV) NewBatch() Batch {
	return &memBatch{kv: m}
}

type memOp struct {
	del   bool
	key   []byte
	value []byte
}

type memBatch struct {
	kv  *memKV
	ops []memOp
}

func (b *memBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, memOp{key: key, value: value})
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops = append(b.ops, memOp{del: true, key: key})
	return nil
}

func (b *memBatch) Size() int {
	return len(b.ops)
}

func (b *memBatch) Reset() {
	b.ops = nil
}

func (b *memBatch) Write() error {
	b.kv.mu.Lock()
	defer b.kv.mu.Unlock()
	for _, op := range b.ops {
		if op.del {
			delete(b.kv.data, string(op.key))
			continue
		}
		v := make([]byte, len(op.value))
		copy(v, op.value)
		b.kv.data[string(op.key)] = v
	}
	return nil
}
