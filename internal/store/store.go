// Package store persists game sessions as whole JSON documents, one per game
// type, keyed by chat id.
package store

import (
	"context"
	"errors"

	"chat-game-bot/internal/model"
)

// Sessions maps chat id to its live session.
type Sessions map[string]*model.Session

// ErrCorrupt is returned when the backing document exists but cannot be decoded.
var ErrCorrupt = errors.New("session document is corrupt")

// Store is the durable chat id → session mapping.
// Reads and writes always cover the whole document.
type Store interface {
	// Load returns the full mapping. A missing document is an empty mapping.
	Load(ctx context.Context) (Sessions, error)

	// Save overwrites the full mapping. Readers never observe a partial write.
	Save(ctx context.Context, sessions Sessions) error

	// Update runs fn against a freshly loaded mapping and saves the result.
	// If fn returns an error nothing is written and the error is returned.
	Update(ctx context.Context, fn func(Sessions) error) error
}
