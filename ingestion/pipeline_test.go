package ingestion

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/pdfqa/ai/mock"
	"github.com/poiesic/pdfqa/chunker"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/registry"
	"github.com/poiesic/pdfqa/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor returns fixed pages for any existing file.
type fakeExtractor struct {
	pages []string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractFile(_ context.Context, path string) ([]string, error) {
	f.calls++
	if _, err := os.Stat(path); err != nil {
		return nil, &core.StorageError{Op: "open", Path: path, Err: err}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

// failingRegistrar rejects every registration.
type failingRegistrar struct{}

func (failingRegistrar) Register(context.Context, *core.Document) error {
	return &core.StorageError{Op: "write", Path: "pdf_metadata.json", Err: errors.New("disk full")}
}

// flakyRegistrar accepts the first n registrations and rejects the rest.
type flakyRegistrar struct {
	next  Registrar
	n     int
	calls int
}

func (f *flakyRegistrar) Register(ctx context.Context, doc *core.Document) error {
	f.calls++
	if f.calls > f.n {
		return &core.StorageError{Op: "write", Path: "pdf_metadata.json", Err: errors.New("disk full")}
	}
	return f.next.Register(ctx, doc)
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func setupPipeline(t *testing.T, extractor Extractor, opts ...Option) (*Pipeline, *registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg, err := registry.New(dir)
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	p, err := NewPipeline(dir, extractor, mock.NewMockEmbedder(), reg, opts...)
	require.NoError(t, err)
	return p, reg, dir
}

// fill repeats word followed by a space and truncates to exactly n runes.
func fill(prefix, word string, n int) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for sb.Len() < n {
		sb.WriteString(word)
		sb.WriteString(" ")
	}
	return sb.String()[:n]
}

func TestNewPipeline_RequiredCollaborators(t *testing.T) {
	dir := t.TempDir()
	reg, err := registry.New(dir)
	require.NoError(t, err)
	ext := &fakeExtractor{}
	emb := mock.NewMockEmbedder()

	_, err = NewPipeline("", ext, emb, reg)
	assert.ErrorIs(t, err, ErrUploadDirRequired)
	_, err = NewPipeline(dir, nil, emb, reg)
	assert.ErrorIs(t, err, ErrExtractorRequired)
	_, err = NewPipeline(dir, ext, nil, reg)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(dir, ext, emb, nil)
	assert.ErrorIs(t, err, ErrRegistryRequired)
	_, err = NewPipeline(dir, ext, emb, reg, WithBatchSize(0))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestIngest_EndToEnd(t *testing.T) {
	pages := []string{
		fill("", "alpha", 799),
		fill("page 2 content ", "beta", 799),
		fill("", "gamma", 800),
	}
	require.Equal(t, 2400, len(strings.Join(pages, "\n")))

	ext := &fakeExtractor{pages: pages}
	dir := t.TempDir()
	reg, err := registry.New(dir)
	require.NoError(t, err)

	embedder := mock.NewKeywordEmbedder("alpha", "beta", "gamma", "page", "2", "content")
	c, err := chunker.New(chunker.WithChunkSize(1000), chunker.WithChunkOverlap(200))
	require.NoError(t, err)

	p, err := NewPipeline(dir, ext, embedder, reg,
		WithChunker(c),
		WithBatchSize(1),
		WithPoolSize(2),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	res, err := p.Ingest(ctx, "three-pages.pdf", bytes.NewReader([]byte("%PDF-1.4 fake")))
	require.NoError(t, err)

	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, "1748772000000-three-pages.pdf", res.Document.Filename)
	assert.Equal(t, filepath.Join(dir, "1748772000000-three-pages.pdf"), res.Document.SourcePath)
	assert.Equal(t, filepath.Join(dir, "1748772000000-three-pages"), res.Document.IndexPath)
	assert.FileExists(t, res.Document.SourcePath)

	// Chunk offsets follow the window step.
	chunks, err := c.Split(pages)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{0, 800, 1600}, []int{chunks[0].Start, chunks[1].Start, chunks[2].Start})

	// The persisted index reloads and ranks the page 2 chunks first.
	doc, err := reg.Get(ctx, res.Document.ID)
	require.NoError(t, err)
	idx, err := vectorindex.Load(doc.IndexPath, embedder)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	query, err := embedder.EmbedText(ctx, "page 2 content")
	require.NoError(t, err)
	hits := idx.Search(query, 2)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, h.Text, "page 2 content")
		assert.Greater(t, h.Score, float32(0))
	}
	assert.NotContains(t, idx.Texts()[2], "page 2 content")

	meta := idx.Metadata()
	assert.Equal(t, "3", meta[vectorindex.MetaPageCount])
	assert.Equal(t, res.Document.ID, meta[vectorindex.MetaDocumentID])
}

func TestIngest_EmptyDocument(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"", "   "}}
	p, reg, dir := setupPipeline(t, ext)

	_, err := p.Ingest(context.Background(), "blank.pdf", strings.NewReader("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, vectorindex.ErrEmptyDocument)
	assert.ErrorIs(t, err, core.ErrValidation)

	ids, err := reg.IDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Neither the upload nor an index remain.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_ParseFailureCleansUp(t *testing.T) {
	ext := &fakeExtractor{err: &core.ParseError{Err: errors.New("bad xref")}}
	p, _, dir := setupPipeline(t, ext)

	_, err := p.Ingest(context.Background(), "broken.pdf", strings.NewReader("garbage"))
	assert.ErrorIs(t, err, core.ErrParse)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_EmbeddingFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	reg, err := registry.New(dir)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	p, err := NewPipeline(dir, &fakeExtractor{pages: []string{"some text"}}, embedder, reg)
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, core.ErrProvider)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_RegistrationFailureRemovesIndex(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPipeline(dir, &fakeExtractor{pages: []string{"some text"}}, mock.NewMockEmbedder(), failingRegistrar{},
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, core.ErrStorage)

	assert.NoDirExists(t, filepath.Join(dir, "1748772000000-doc"))
	assert.NoFileExists(t, filepath.Join(dir, "1748772000000-doc.pdf"))
}

func TestIngestFile_KeepsSourceOnFailure(t *testing.T) {
	ext := &fakeExtractor{err: &core.ParseError{Err: errors.New("bad")}}
	p, _, dir := setupPipeline(t, ext)

	path := filepath.Join(dir, "existing.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	_, err := p.IngestFile(context.Background(), path, "")
	assert.ErrorIs(t, err, core.ErrParse)
	assert.FileExists(t, path)
}

func TestIngestFile_Success(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"hello world", "second page"}}
	p, reg, dir := setupPipeline(t, ext)

	path := filepath.Join(dir, "existing.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	res, err := p.IngestFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "existing.pdf", res.Document.Filename)
	assert.Equal(t, fixedNow, res.Document.UploadedAt)
	assert.Equal(t, 1, res.ChunkCount)

	_, err = reg.Get(context.Background(), res.Document.ID)
	assert.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "existing", vectorindex.FileName))
}

func TestIngest_CancelledContext(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"text"}}
	p, _, dir := setupPipeline(t, ext)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ingest(ctx, "doc.pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ext.calls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_UniqueIDs(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"text"}}
	p, reg, _ := setupPipeline(t, ext)
	tick := fixedNow
	p.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := p.Ingest(context.Background(), "same.pdf", strings.NewReader("%PDF-1.4"))
		require.NoError(t, err)
		assert.False(t, seen[res.Document.ID])
		seen[res.Document.ID] = true
	}

	ids, err := reg.IDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func TestRebuild(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"first version"}}
	p, reg, _ := setupPipeline(t, ext)
	ctx := context.Background()

	res, err := p.Ingest(ctx, "doc.pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)
	doc := res.Document

	ext.pages = []string{"second version", "with another page"}
	rebuilt, err := p.Rebuild(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, rebuilt.Document.ID)
	assert.Equal(t, doc.UploadedAt, rebuilt.Document.UploadedAt)
	assert.Equal(t, 2, rebuilt.PageCount)

	idx, err := vectorindex.Load(doc.IndexPath, mock.NewMockEmbedder())
	require.NoError(t, err)
	assert.Equal(t, []string{"second version\nwith another page"}, idx.Texts())
	assert.Equal(t, doc.ID, idx.Metadata()[vectorindex.MetaDocumentID])

	stored, err := reg.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.PageCount)
}

func TestRebuild_FailureKeepsIndex(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"original text"}}
	p, _, _ := setupPipeline(t, ext)
	ctx := context.Background()

	res, err := p.Ingest(ctx, "doc.pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)

	ext.err = &core.ParseError{Err: errors.New("corrupt xref")}
	_, err = p.Rebuild(ctx, res.Document)
	assert.ErrorIs(t, err, core.ErrParse)

	idx, err := vectorindex.Load(res.Document.IndexPath, mock.NewMockEmbedder())
	require.NoError(t, err)
	assert.Equal(t, []string{"original text"}, idx.Texts())

	_, err = p.Rebuild(ctx, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd.pdf"},
		{`C:\Users\me\file.PDF`, "file.PDF"},
		{"what?.pdf", "what_.pdf"},
		{"  spaced name.pdf  ", "spaced name.pdf"},
	}
	for _, tt := range tests {
		got, err := SanitizeFilename(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "   ", "..", "/"} {
		_, err := SanitizeFilename(bad)
		assert.ErrorIs(t, err, core.ErrValidation, bad)
	}
}

func TestIngestFile_SameSourceTwiceKeepsFirstIndex(t *testing.T) {
	dir := t.TempDir()
	reg, err := registry.New(dir)
	require.NoError(t, err)
	registrar := &flakyRegistrar{next: reg, n: 1}
	ext := &fakeExtractor{pages: []string{"quarterly report text"}}
	embedder := mock.NewMockEmbedder()
	p, err := NewPipeline(dir, ext, embedder, registrar)
	require.NoError(t, err)

	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	first, err := p.IngestFile(context.Background(), path, "")
	require.NoError(t, err)

	_, err = p.IngestFile(context.Background(), path, "")
	assert.ErrorIs(t, err, ErrAlreadyIndexed)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 1, registrar.calls)
	assert.Equal(t, 1, ext.calls)

	idx, err := vectorindex.Load(first.Document.IndexPath, embedder)
	require.NoError(t, err)
	assert.Equal(t, first.Document.ID, idx.Metadata()[vectorindex.MetaDocumentID])

	docs, err := reg.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, first.Document.ID, docs[0].ID)
	assert.FileExists(t, path)
}
