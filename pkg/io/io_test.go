package io

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

func TestWriteReadJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(rich(), &buf))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	q, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, marshal(t, rich()), marshal(t, q))
}

func TestReadJSONMalformed(t *testing.T) {
	_, err := ReadJSON(strings.NewReader("not json"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestExportImportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.json")
	require.NoError(t, ExportJSON(rich(), path))

	q, err := ImportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 9, q.Len())
}

func TestImportJSONMissingFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}

func TestURLRoundTrip(t *testing.T) {
	payload, err := EncodeURL(rich())
	require.NoError(t, err)
	assert.NotContains(t, payload, "=")
	assert.NotContains(t, payload, "+")
	assert.NotContains(t, payload, "/")

	q, err := DecodeURL(payload)
	require.NoError(t, err)
	assert.Equal(t, marshal(t, rich()), marshal(t, q))
}

func TestDecodeURLForms(t *testing.T) {
	data := []byte(`[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]]`)
	tests := []struct {
		name  string
		input string
	}{
		{"raw url alphabet", base64.RawURLEncoding.EncodeToString(data)},
		{"padded standard alphabet", base64.StdEncoding.EncodeToString(data)},
		{"share url", "https://q.uiver.app/#q=" + base64.RawURLEncoding.EncodeToString(data)},
		{"trailing parameters", "https://q.uiver.app/#q=" + base64.URLEncoding.EncodeToString(data) + "&embed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := DecodeURL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, 3, q.Len())
		})
	}
}

func TestDecodeURLErrors(t *testing.T) {
	_, err := DecodeURL("#q=***")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	q, err := DecodeURL("https://q.uiver.app/")
	require.Error(t, err, "a url without a fragment is decoded as a payload")
	assert.Nil(t, q)

	q, err = DecodeURL("https://q.uiver.app/#q=")
	require.NoError(t, err)
	assert.True(t, q.IsEmpty())
}

func TestShareURL(t *testing.T) {
	link, err := ShareURL("https://q.uiver.app/", rich())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://q.uiver.app/#q="))

	q, err := DecodeURL(link)
	require.NoError(t, err)
	assert.Equal(t, 9, q.Len())

	link, err = ShareURL("https://q.uiver.app/", quiver.New())
	require.NoError(t, err)
	assert.Equal(t, "https://q.uiver.app/", link)
}
