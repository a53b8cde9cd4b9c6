package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryChain is an in-memory, thread-safe Chain implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require durable persistence across restarts.
type MemoryChain struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New creates a MemoryChain initialised with the canonical genesis entry.
// The genesis entry is at index 0 and its hash is GenesisHash.
func New() *MemoryChain {
	c := &MemoryChain{}
	genesis := &Entry{
		Index:     0,
		Timestamp: time.Now().UTC(),
		Action:    "genesis",
		Actor:     SystemActor,
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash, // genesis hash is the well-known constant, not computed
	}
	c.entries = append(c.entries, genesis)
	return c
}

// Append implements Chain.
func (c *MemoryChain) Append(_ context.Context, subject, action, actor string, payload any) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	dataHash := sha256Sum(payloadJSON)
	prev := c.entries[len(c.entries)-1]

	entry := &Entry{
		Index:     len(c.entries),
		Timestamp: time.Now().UTC(),
		Subject:   subject,
		Action:    action,
		Actor:     actor,
		DataHash:  dataHash,
		PrevHash:  prev.Hash,
	}
	entry.Hash = hashEntry(entry)
	c.entries = append(c.entries, entry)
	return entry, nil
}

// Get implements Chain.
func (c *MemoryChain) Get(_ context.Context, index int) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.entries) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return c.entries[index], nil
}

// List implements Chain.
func (c *MemoryChain) List(_ context.Context, limit int) ([]*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit <= 0 || limit > len(c.entries) {
		limit = len(c.entries)
	}
	out := make([]*Entry, 0, limit)
	for i := len(c.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.entries[i])
	}
	return out, nil
}

// Len implements Chain.
func (c *MemoryChain) Len(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Verify implements Chain. It walks the chain and checks that all hashes
// are consistent. The genesis entry (index 0) is validated against GenesisHash.
func (c *MemoryChain) Verify(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, curr := range c.entries {
		if i == 0 {
			// Genesis: must equal the well-known constant.
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
			continue
		}

		prev := c.entries[i-1]
		if curr.PrevHash != prev.Hash {
			return fmt.Errorf("hash chain broken at index %d", curr.Index)
		}
		if curr.Hash != hashEntry(curr) {
			return fmt.Errorf("entry %d has invalid hash", curr.Index)
		}
	}
	return nil
}

// Root implements Chain.
func (c *MemoryChain) Root(_ context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[len(c.entries)-1].Hash, nil
}
