// Package store provides Persister implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/textile-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory persists the ledger in memory. Saves go through the record
// encoding so tests exercise the same shape the file backends write.
type Memory struct {
	mu      sync.RWMutex
	records []ledger.Record
	saves   int

	// SaveErr, when set, is returned by every Save and nothing is stored.
	SaveErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewFromRecords returns a Memory holding raw records, legacy shapes
// included.
func NewFromRecords(records ...ledger.Record) *Memory {
	return &Memory{records: append([]ledger.Record(nil), records...)}
}

func (m *Memory) Load(_ context.Context) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return ledger.DecodeRecords(m.records)
}

func (m *Memory) Save(_ context.Context, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records = ledger.EncodeRecords(txs)
	m.saves++
	return nil
}

// Records returns a copy of what was last saved.
func (m *Memory) Records() []ledger.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Record(nil), m.records...)
}

// Saves counts successful saves.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// FailSaves makes subsequent saves fail with err (nil clears it).
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveErr = err
}
