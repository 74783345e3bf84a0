package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
)

// DefaultKeyer derives keys as "<stage>:<sha256>" over the stage input and
// its key options.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ImportKey keys a tikz-cd source parsed with opts.
func (DefaultKeyer) ImportKey(source string, opts ImportKeyOpts) string {
	return stageKey("import", source, opts)
}

// ExportKey keys a compact diagram exported with opts.
func (DefaultKeyer) ExportKey(encoded string, opts ExportKeyOpts) string {
	return stageKey("export", encoded, opts)
}

// stageKey hashes input and the JSON form of opts in one pass. The two are
// separated by a NUL byte, which neither tikz-cd sources nor compact
// diagrams contain unescaped.
func stageKey(stage, input string, opts any) string {
	h := sha256.New()
	h.Write([]byte(input))
	h.Write([]byte{0})
	writeJSON(h, opts)
	return stage + ":" + hex.EncodeToString(h.Sum(nil))
}

// writeJSON feeds the encoding of v to h. Key options are plain structs,
// so encoding cannot fail.
func writeJSON(h hash.Hash, v any) {
	_ = json.NewEncoder(h).Encode(v)
}

// Hash returns the hex SHA-256 of data. FileCache uses it to name entries.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
