package io

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// ReadJSON decodes the compact form of a diagram from r.
//
// The input must be a JSON array whose first two entries are the format
// version and the number of vertices:
//
//	[0, 2, [0, 0, "A"], [1, 0, "B"], [0, 1, "f"]]
//
// ReadJSON returns an error if:
//   - The JSON is malformed or not an array
//   - The version is not [Version]
//   - The vertex count exceeds the number of cells
//   - Any cell fails validation
//
// Only the last of these yields a non-nil quiver: malformed cells are
// skipped and the rest of the diagram is returned alongside the first
// [errors.CellError]. Callers that want all-or-nothing behaviour can
// discard the quiver whenever the error is non-nil.
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*quiver.Quiver, error) {
	var raw []any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	return DecodeValue(raw)
}

// ImportJSON reads the compact form of a diagram from the file at path.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. If the file cannot be opened, the error wraps the underlying cause
// with the file path for context. Decoding errors are those of [ReadJSON].
func ImportJSON(path string) (*quiver.Quiver, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// DecodeURL decodes a diagram from a share URL or from its bare base64
// payload. Anything up to and including "#q=" is ignored, as is any
// "&"-separated parameter after the payload. Padding and the standard
// base64 alphabet are tolerated.
func DecodeURL(s string) (*quiver.Quiver, error) {
	if i := strings.Index(s, ShareFragment); i >= 0 {
		s = s[i+len(ShareFragment):]
	}
	s, _, _ = strings.Cut(s, "&")
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	if s == "" {
		return quiver.New(), nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed base64 payload")
	}
	return Decode(data)
}
