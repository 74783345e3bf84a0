package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments, or
// several format versions, can share one cache without colliding.
//
// Example usage:
//
//	// Keys written by the server
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "quiverkit:v0:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ImportKey generates a prefixed key for import results.
func (k *ScopedKeyer) ImportKey(source string, opts ImportKeyOpts) string {
	return k.prefix + k.inner.ImportKey(source, opts)
}

// ExportKey generates a prefixed key for export results.
func (k *ScopedKeyer) ExportKey(encoded string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(encoded, opts)
}
