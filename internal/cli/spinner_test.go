package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerSilentOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	restore := statusOut
	statusOut = &buf
	t.Cleanup(func() { statusOut = restore })

	s := startSpinner(context.Background(), "Importing...")
	s.stop()
	s.stop() // idempotent

	assert.Empty(t, buf.String())
	assert.True(t, s.cancelled(), "stop cancels the spinner context")
}

func TestSpinnerFollowsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := startSpinner(ctx, "Waiting...")
	cancel()
	s.stop()
	assert.True(t, s.cancelled())
}

func TestSpin(t *testing.T) {
	var buf bytes.Buffer
	restore := statusOut
	statusOut = &buf
	t.Cleanup(func() { statusOut = restore })

	v, err := spin(context.Background(), "Working...", "Work failed", func() (int, error) { return 42, nil })
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Empty(t, buf.String())

	boom := errors.New("boom")
	_, err = spin(context.Background(), "Working...", "Work failed", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "Work failed")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	assert.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "regular files are not terminals")
}
