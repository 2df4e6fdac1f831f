package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/pdfqa/ai/mock"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeUpload creates a PDF placeholder and, when withIndex is set, a valid
// index artifact at its derived location.
func writeUpload(t *testing.T, dir, name string, withIndex bool) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 placeholder"), 0o644))
	if withIndex {
		idx, err := vectorindex.Build(context.Background(),
			[]core.Chunk{{Text: "recovered text"}}, mock.NewMockEmbedder(),
			vectorindex.WithMetadata(map[string]string{vectorindex.MetaPageCount: "7"}))
		require.NoError(t, err)
		require.NoError(t, vectorindex.Save(idx, vectorindex.LocationFor(path)))
	}
	return path
}

func TestRecoverByScan_SingleCandidate(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	path := writeUpload(t, r.Dir(), "1700000000000-manual.pdf", true)
	writeUpload(t, r.Dir(), "1700000000001-noindex.pdf", false)

	doc, err := r.RecoverByScan(ctx, "lost-id")
	require.NoError(t, err)
	assert.Equal(t, "lost-id", doc.ID)
	assert.Equal(t, path, doc.SourcePath)
	assert.Equal(t, vectorindex.LocationFor(path), doc.IndexPath)
	assert.Equal(t, "1700000000000-manual.pdf", doc.Filename)
	assert.Equal(t, 7, doc.PageCount)
	assert.WithinDuration(t, time.Now(), doc.UploadedAt, time.Minute)

	// The recovered entry is persisted.
	got, err := r.Get(ctx, "lost-id")
	require.NoError(t, err)
	assert.Equal(t, doc.SourcePath, got.SourcePath)

	_, err = vectorindex.Load(got.IndexPath, nil)
	assert.NoError(t, err)
}

func TestRecoverByScan_NoCandidates(t *testing.T) {
	r := newRegistry(t)
	writeUpload(t, r.Dir(), "1-noindex.pdf", false)

	_, err := r.RecoverByScan(context.Background(), "lost-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)

	ids, err := r.IDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecoverByScan_Ambiguous(t *testing.T) {
	r := newRegistry(t)
	writeUpload(t, r.Dir(), "1-a.pdf", true)
	writeUpload(t, r.Dir(), "2-b.pdf", true)

	_, err := r.RecoverByScan(context.Background(), "lost-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRecoverByScan_IgnoresReferencedFiles(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	known := writeUpload(t, r.Dir(), "1-known.pdf", true)
	orphan := writeUpload(t, r.Dir(), "2-orphan.pdf", true)

	require.NoError(t, r.Register(ctx, &core.Document{
		ID:         "known",
		SourcePath: known,
		IndexPath:  vectorindex.LocationFor(known),
		Filename:   "1-known.pdf",
		UploadedAt: time.Now(),
	}))

	doc, err := r.RecoverByScan(ctx, "lost")
	require.NoError(t, err)
	assert.Equal(t, orphan, doc.SourcePath)

	// Once the orphan is claimed nothing is left to recover.
	_, err = r.RecoverByScan(ctx, "another")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRecoverByScan_IgnoresCorruptIndex(t *testing.T) {
	r := newRegistry(t)
	path := writeUpload(t, r.Dir(), "1-broken.pdf", false)
	location := vectorindex.LocationFor(path)
	require.NoError(t, os.MkdirAll(location, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(location, vectorindex.FileName), []byte("junk"), 0o644))

	_, err := r.RecoverByScan(context.Background(), "lost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	t.Run("registered", func(t *testing.T) {
		doc := testDocument(r.Dir(), "present", time.Now())
		require.NoError(t, r.Register(ctx, doc))

		got, err := r.Lookup(ctx, "present")
		require.NoError(t, err)
		assert.Equal(t, doc.SourcePath, got.SourcePath)
	})

	t.Run("recovered", func(t *testing.T) {
		writeUpload(t, r.Dir(), "9-orphan.pdf", true)

		got, err := r.Lookup(ctx, "lost")
		require.NoError(t, err)
		assert.Equal(t, "9-orphan.pdf", got.Filename)
	})

	t.Run("unknown lists known ids", func(t *testing.T) {
		_, err := r.Lookup(ctx, "nope")
		var nf *core.DocumentNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"lost", "present"}, nf.KnownIDs)
	})
}
