package io

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// ShareFragment introduces the compact form in a share URL.
const ShareFragment = "#q="

// WriteJSON writes the compact form of q to w as a single line of JSON.
// The output can be re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(q *quiver.Quiver, w io.Writer) error {
	if err := json.NewEncoder(w).Encode(Encode(q)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the compact form of q to a file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(q *quiver.Quiver, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(q, f)
}

// EncodeURL returns the compact form of q as unpadded URL-safe base64,
// suitable for the fragment of a share URL.
func EncodeURL(q *quiver.Quiver) (string, error) {
	data, err := Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ShareURL appends the encoded form of q to base as a "#q=" fragment. An
// empty quiver yields base unchanged.
func ShareURL(base string, q *quiver.Quiver) (string, error) {
	if q.IsEmpty() {
		return base, nil
	}
	payload, err := EncodeURL(q)
	if err != nil {
		return "", err
	}
	return base + ShareFragment + payload, nil
}
