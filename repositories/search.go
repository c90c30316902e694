package repositories

import (
	"context"
	"strconv"

	"github.com/blugelabs/bluge"
)

type ISearchIndex interface {
	Index(id string, userID int64, content string) error
	Search(ctx context.Context, term string, limit int) ([]SearchHit, error)
}

// SearchHit is one full-text match over the conversation log.
type SearchHit struct {
	ID      string
	UserID  int64
	Content string
}

// SearchIndex is the full-text side of the message log, backed by a
// single shared bluge writer.
type SearchIndex struct {
	writer *bluge.Writer
}

func NewSearchIndex(writer *bluge.Writer) *SearchIndex {
	return &SearchIndex{writer: writer}
}

func (s *SearchIndex) Index(id string, userID int64, content string) error {
	doc := bluge.NewDocument(id).
		AddField(bluge.NewTextField("content", content).StoreValue()).
		AddField(bluge.NewKeywordField("user", strconv.FormatInt(userID, 10)).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message contents. Results carry the
// stored fields, newest-to-oldest ordering is not guaranteed.
func (s *SearchIndex) Search(ctx context.Context, term string, limit int) ([]SearchHit, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(term).SetField("content")
	request := bluge.NewTopNSearch(limit, query)
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit SearchHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "content":
				hit.Content = string(value)
			case "user":
				hit.UserID, _ = strconv.ParseInt(string(value), 10, 64)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
