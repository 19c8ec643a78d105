// Package history keeps the bounded list of past builds, newest first.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"twaforge/internal/domain"
)

const (
	// StorageKey names the durable slot holding the serialized list.
	StorageKey = "pwa_build_history"
	// Limit is the maximum number of builds kept.
	Limit = 10
)

// Slot is a single named durable value.
type Slot interface {
	GetSlot(ctx context.Context, key string) ([]byte, bool, error)
	PutSlot(ctx context.Context, key string, value []byte) error
	DeleteSlot(ctx context.Context, key string) error
}

// Cache holds the history in memory after Load and writes through on Insert.
type Cache struct {
	slot   Slot
	logger *slog.Logger

	mu      sync.Mutex
	entries []domain.BuildResult
}

func New(slot Slot, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{slot: slot, logger: logger}
}

// Load reads the slot. Absent or malformed content yields an empty list.
func (c *Cache) Load(ctx context.Context) ([]domain.BuildResult, error) {
	raw, ok, err := c.slot.GetSlot(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var entries []domain.BuildResult
	if ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			c.logger.Warn("discarding malformed build history", "key", StorageKey, "error", err)
			entries = nil
		}
	}
	if len(entries) > Limit {
		entries = entries[:Limit]
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return c.List(), nil
}

// Insert prepends r, trims to Limit and persists the result.
func (c *Cache) Insert(ctx context.Context, r domain.BuildResult) ([]domain.BuildResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := Prepend(c.entries, r, Limit)
	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	if err := c.slot.PutSlot(ctx, StorageKey, data); err != nil {
		return nil, fmt.Errorf("persist history: %w", err)
	}
	c.entries = next
	return clone(next), nil
}

// List returns a copy of the in-memory history.
func (c *Cache) List() []domain.BuildResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.entries)
}

// Clear empties the history and removes the slot.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.slot.DeleteSlot(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	c.entries = nil
	return nil
}

// Prepend returns a new list with r first and at most limit entries.
func Prepend(list []domain.BuildResult, r domain.BuildResult, limit int) []domain.BuildResult {
	n := len(list) + 1
	if n > limit {
		n = limit
	}
	out := make([]domain.BuildResult, 0, n)
	out = append(out, r)
	for _, e := range list {
		if len(out) == n {
			break
		}
		out = append(out, e)
	}
	return out
}

func clone(in []domain.BuildResult) []domain.BuildResult {
	out := make([]domain.BuildResult, len(in))
	copy(out, in)
	return out
}
