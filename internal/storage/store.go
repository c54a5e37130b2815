// Package storage provides abstractions for persisting bot state snapshots.
package storage

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by Load when nothing has ever been saved.
// Callers treat it as a fresh start, not a failure.
var ErrNoSnapshot = errors.New("no snapshot")

// Store persists whole-state snapshots. A snapshot is an opaque blob
// written and read wholesale; the engine owns the encoding. The abstraction
// allows swapping backends (flat file, SQLite) without changing the bot.
type Store interface {
	// Save persists one complete snapshot.
	Save(ctx context.Context, payload []byte) error

	// Load returns the most recent snapshot, or ErrNoSnapshot if none
	// exists.
	Load(ctx context.Context) ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}
