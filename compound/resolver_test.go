package compound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5compound/internal/container"
)

func TestResolver(t *testing.T) {
	path := newFixture(t)
	f, err := container.OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.CreateSoftLink("/acq/link", "/tsC"))

	r := NewResolver(f)
	for _, p := range []string{"/tsA", "/tsB", "/tsC", "/acq", "/"} {
		ref, err := r.Construct(p)
		require.NoError(t, err, p)
		got, err := r.Resolve(ref)
		require.NoError(t, err, p)
		assert.Equal(t, p, got)
	}

	viaLink, err := r.Construct("/acq/link")
	require.NoError(t, err)
	direct, err := r.Construct("/tsC")
	require.NoError(t, err)
	assert.Equal(t, direct, viaLink)

	// Resolving the same reference twice gives the same answer.
	for i := 0; i < 2; i++ {
		got, err := r.Resolve(direct)
		require.NoError(t, err)
		assert.Equal(t, "/tsC", got)
	}
}

func TestResolverErrors(t *testing.T) {
	path := newFixture(t)
	f, err := container.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := NewResolver(f)

	for _, p := range []string{"/missing", "", "/tsA/child"} {
		_, err := r.Construct(p)
		require.ErrorIs(t, err, ErrResolution, p)
	}
	for _, ref := range []Reference{0, 1 << 40, Reference(^uint64(0))} {
		_, err := r.Resolve(ref)
		require.ErrorIs(t, err, ErrResolution)
	}
}
