package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *TempStore {
	t.Helper()
	return New("mem://localhost/nashville-" + uuid.NewString())
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	loc, err := s.Put(ctx, "run-1", "input.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, s.BaseURL()+"/run-1/"))
	assert.True(t, strings.HasSuffix(loc, "/input.pdf"))

	data, err := s.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, loc))
	_, err = s.Get(ctx, loc)
	assert.Error(t, err)

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, loc))
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	a, err := s.Put(ctx, "run-a", "input.pdf", []byte("a"))
	require.NoError(t, err)
	b, err := s.Put(ctx, "run-b", "input.pdf", []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, s.Purge(ctx, "run-a"))

	_, err = s.Get(ctx, a)
	assert.Error(t, err)
	data, err := s.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	assert.NoError(t, s.Purge(ctx, "run-a"), "purge is idempotent")
}

func TestInvalidIDs(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	for _, id := range []string{"", "..", "../etc", "a/b", ".hidden", "run 1", strings.Repeat("x", 129)} {
		_, err := s.Put(ctx, id, "input.pdf", nil)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
	_, err := s.Put(ctx, "run-1", "../escape.pdf", nil)
	assert.ErrorIs(t, err, ErrInvalidID)

	assert.ErrorIs(t, s.Purge(ctx, "../"), ErrInvalidID)
}

func TestOutsideBase(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	_, err := s.Get(ctx, "mem://localhost/elsewhere/file.pdf")
	assert.ErrorIs(t, err, ErrOutsideBase)
	assert.ErrorIs(t, s.Delete(ctx, s.BaseURL()+"/../x"), ErrOutsideBase)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	_, err := s.Put(ctx, "old-run", "input.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "new-run", "input.pdf", []byte("new"))
	require.NoError(t, err)

	// Nothing is stale yet.
	n, err := s.Sweep(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	// An hour later both namespaces are past a 15 minute TTL.
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = s.Sweep(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Sweep(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweep_MissingBase(t *testing.T) {
	s := newMemStore(t)
	n, err := s.Sweep(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").BaseURL())
	assert.Equal(t, "mem://localhost/x", New("mem://localhost/x/").BaseURL())
}
