// Package cache stores import and export results keyed by their inputs.
//
// Parsing a large diagram and converting its shortenings is cheap compared
// to a network round trip, but the HTTP server and the CLI both see the
// same sources over and over. A [Cache] holds the serialized result of each
// pipeline stage under a key derived by a [Keyer] from everything that
// influences that result.
//
// Three implementations are provided:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared storage for server deployments
//   - [NullCache]: never stores anything, for tests and --no-cache
package cache

import (
	"context"
	"time"
)

// Default time-to-live for each kind of entry.
const (
	ImportTTL = 7 * 24 * time.Hour
	ExportTTL = 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for storage
// failures. A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys for pipeline stages.
type Keyer interface {
	// ImportKey identifies the result of parsing source.
	ImportKey(source string, opts ImportKeyOpts) string
	// ExportKey identifies the tikz-cd export of an encoded diagram.
	ExportKey(encoded string, opts ExportKeyOpts) string
}

// ImportKeyOpts holds the import settings that change the result.
type ImportKeyOpts struct {
	CellSize float64 `json:"cell_size"`
}

// ExportKeyOpts holds the export settings that change the result.
type ExportKeyOpts struct {
	Formats              []string `json:"formats"`
	AmpersandReplacement bool     `json:"ampersand_replacement"`
	Centre               bool     `json:"centre"`
	Cramped              bool     `json:"cramped"`
	Sep                  string   `json:"sep"`
	CellSize             float64  `json:"cell_size"`
	BaseURL              string   `json:"base_url"`
	Detailed             bool     `json:"detailed"`
}

// NullCache never stores anything. It backs --no-cache, [cache] disabled
// and servers without Redis.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error { return nil }
func (*NullCache) Close() error { return nil }

// Disabled reports whether c can never return a hit, so that callers may
// skip deriving keys and serializing results.
func Disabled(c Cache) bool {
	if c == nil {
		return true
	}
	_, ok := c.(*NullCache)
	return ok
}
