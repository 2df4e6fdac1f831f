package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/pdfqa/ai/mock"
	"github.com/poiesic/pdfqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, texts ...string) *Index {
	t.Helper()
	idx, err := Build(context.Background(), chunksOf(texts...), mock.NewMockEmbedder(),
		WithMetadata(map[string]string{MetaPageCount: "2", MetaSourceFile: "doc.pdf"}))
	require.NoError(t, err)
	return idx
}

func TestLocationFor(t *testing.T) {
	assert.Equal(t, "uploads/123-report", LocationFor("uploads/123-report.pdf"))
	assert.Equal(t, "uploads/a.b", LocationFor("uploads/a.b.pdf"))
	assert.Equal(t, "noext", LocationFor("noext"))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	location := filepath.Join(t.TempDir(), "123-report")
	original := buildIndex(t, "first chunk", "second chunk", "third chunk")

	require.NoError(t, Save(original, location))
	assert.FileExists(t, filepath.Join(location, FileName))

	embedder := mock.NewMockEmbedder()
	loaded, err := Load(location, embedder)
	require.NoError(t, err)
	assert.Zero(t, embedder.CallCount(), "load must not embed")

	assert.Equal(t, original.Len(), loaded.Len())
	assert.Equal(t, original.Dimension(), loaded.Dimension())
	assert.Equal(t, original.Texts(), loaded.Texts())
	assert.Equal(t, original.Metadata(), loaded.Metadata())

	query, err := mock.NewMockEmbedder().EmbedText(context.Background(), "second")
	require.NoError(t, err)
	for k := 1; k <= 3; k++ {
		assert.Equal(t, original.Search(query, k), loaded.Search(query, k))
	}
}

func TestSave_Overwrite(t *testing.T) {
	location := filepath.Join(t.TempDir(), "doc")
	require.NoError(t, Save(buildIndex(t, "old"), location))
	require.NoError(t, Save(buildIndex(t, "new one", "new two"), location))

	loaded, err := Load(location, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"new one", "new two"}, loaded.Texts())

	// No temp files are left behind.
	entries, err := os.ReadDir(location)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestSave_Empty(t *testing.T) {
	location := filepath.Join(t.TempDir(), "doc")
	assert.ErrorIs(t, Save(&Index{}, location), ErrEmptyDocument)
	assert.NoDirExists(t, location)
}

func TestLoad_Probes(t *testing.T) {
	data := encode(buildIndex(t, "probe"))

	t.Run("bare location file", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "doc")
		require.NoError(t, os.WriteFile(location, data, 0o644))

		idx, err := Load(location, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"probe"}, idx.Texts())

		p, ok := Resolve(location)
		assert.True(t, ok)
		assert.Equal(t, location, p)
	})

	t.Run("faiss suffix", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "doc")
		require.NoError(t, os.WriteFile(location+".faiss", data, 0o644))

		_, err := Load(location, nil)
		require.NoError(t, err)

		p, ok := Resolve(location)
		assert.True(t, ok)
		assert.Equal(t, location+".faiss", p)
	})

	t.Run("directory artifact", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "doc")
		require.NoError(t, os.MkdirAll(location, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(location, FileName), data, 0o644))

		_, err := Load(location, nil)
		require.NoError(t, err)
	})

	t.Run("invalid probe falls through", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "doc")
		require.NoError(t, os.WriteFile(location+".faiss", []byte("garbage"), 0o644))
		require.NoError(t, os.MkdirAll(location, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(location, FileName), data, 0o644))

		idx, err := Load(location, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, idx.Len())
	})
}

func TestLoad_NotFound(t *testing.T) {
	location := filepath.Join(t.TempDir(), "missing")

	_, err := Load(location, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, ok := Resolve(location)
	assert.False(t, ok)
}

func TestLoad_CorruptArtifact(t *testing.T) {
	data := encode(buildIndex(t, "alpha", "beta"))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", data[:len(data)/2]},
		{"flipped byte", func() []byte {
			c := append([]byte(nil), data...)
			c[len(magic)+3] ^= 0xff
			return c
		}()},
		{"bad checksum", func() []byte {
			c := append([]byte(nil), data...)
			c[len(c)-1] ^= 0x01
			return c
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location := filepath.Join(t.TempDir(), "doc")
			require.NoError(t, os.MkdirAll(location, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(location, FileName), tt.data, 0o644))

			_, err := Load(location, nil)
			assert.ErrorIs(t, err, ErrIndexNotFound)
		})
	}
}

func TestDecode_RejectsWrongMagic(t *testing.T) {
	data := encode(buildIndex(t, "alpha"))
	_, err := decode(data)
	require.NoError(t, err)

	_, err = decode([]byte("not an index but long enough to pass the length check ok"))
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestReadMetadata(t *testing.T) {
	location := filepath.Join(t.TempDir(), "doc")
	require.NoError(t, Save(buildIndex(t, "a"), location))

	meta, err := ReadMetadata(location)
	require.NoError(t, err)
	assert.Equal(t, "2", meta[MetaPageCount])
	assert.Equal(t, "doc.pdf", meta[MetaSourceFile])
}

func TestRemove(t *testing.T) {
	location := filepath.Join(t.TempDir(), "doc")
	require.NoError(t, Save(buildIndex(t, "a"), location))

	require.NoError(t, Remove(location))
	assert.NoDirExists(t, location)
	require.NoError(t, Remove(location))
}
