package repositories

import (
	"context"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewSearchIndex(writer)
}

func TestSearchIndex_IndexAndSearch(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	req.NoError(index.Index("m1", 42, "my invoice arrived twice this month"))
	req.NoError(index.Index("m2", 42, "the weather is lovely today"))
	req.NoError(index.Index("m3", 99, "another invoice question"))

	hits, err := index.Search(context.Background(), "invoice", 10)
	req.NoError(err)
	req.Len(hits, 2)
	for _, hit := range hits {
		req.Contains(hit.Content, "invoice")
		req.NotEmpty(hit.ID)
	}
}

func TestSearchIndex_NoResults(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	req.NoError(index.Index("m1", 42, "hello there"))

	hits, err := index.Search(context.Background(), "nonexistent", 10)
	req.NoError(err)
	req.Empty(hits)
}

func TestSearchIndex_UpdateReplacesDocument(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	req.NoError(index.Index("m1", 42, "draft wording"))
	req.NoError(index.Index("m1", 42, "final wording"))

	hits, err := index.Search(context.Background(), "wording", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("final wording", hits[0].Content)
}
