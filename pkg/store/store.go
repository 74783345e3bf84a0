// Package store persists encoded diagrams under generated identifiers.
//
// The HTTP server lets clients save a diagram in compact form and fetch it
// later by id, which is how share links survive beyond the URL length
// limits of the "#q=" fragment. Diagrams may carry an expiry.
//
// Implementations:
//   - [MemoryStore]: in-process map, for development and testing
//   - [FileStore]: one JSON file per diagram
//   - [MongoStore]: MongoDB collection for multi-instance deployments
//
// # Usage
//
//	d := store.New(encoded, "Pullback square", store.DefaultTTL)
//	if err := s.Save(ctx, d); err != nil {
//	    return err
//	}
//
//	d, err := s.Get(ctx, id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Unknown or expired
//	}
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/quiverkit/pkg/errors"
)

// DefaultTTL is how long a saved diagram is kept unless configured otherwise.
const DefaultTTL = 30 * 24 * time.Hour

// Diagram is a saved diagram in compact form.
type Diagram struct {
	ID        string          `json:"id"`
	Title     string          `json:"title,omitempty"`
	Data      json.RawMessage `json:"diagram"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at,omitzero"` // Zero means never
}

// IsExpired returns true if the diagram has expired.
func (d *Diagram) IsExpired() bool {
	return !d.ExpiresAt.IsZero() && time.Now().After(d.ExpiresAt)
}

// Store is the interface for diagram storage backends.
type Store interface {
	// Save stores a diagram, replacing any diagram with the same id.
	Save(ctx context.Context, d *Diagram) error

	// Get retrieves a diagram by id. Unknown and expired diagrams give an
	// error with code NOT_FOUND; malformed ids give INVALID_ID.
	Get(ctx context.Context, id string) (*Diagram, error)

	// Delete removes a diagram. Deleting an unknown diagram is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired diagrams (may be a no-op where the backend
	// expires them itself).
	Cleanup(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// New creates a diagram with a fresh id. A ttl of zero never expires.
func New(data json.RawMessage, title string, ttl time.Duration) *Diagram {
	now := time.Now().UTC()
	d := &Diagram{
		ID:        uuid.NewString(),
		Title:     title,
		Data:      data,
		CreatedAt: now,
	}
	if ttl > 0 {
		d.ExpiresAt = now.Add(ttl)
	}
	return d
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "diagram %s not found", id)
}
