package repositories

import (
	"chat-assist/domain"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type ITokenRepository interface {
	Add(usage domain.TokenUsage) error
	GlobalStats(since time.Time) (domain.TokenStats, error)
	TopUsers(n int, since time.Time) ([]domain.TokenRank, error)
}

// TokenRepository keeps one record per model call so usage can be
// aggregated per user and globally.
type TokenRepository struct {
	db *badger.DB
}

func NewTokenRepository(db *badger.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

type diskTokenUsage struct {
	UserID           int64  `cbor:"1,keyasint"`
	Model            string `cbor:"2,keyasint"`
	PromptTokens     int    `cbor:"3,keyasint"`
	CompletionTokens int    `cbor:"4,keyasint"`
	TotalTokens      int    `cbor:"5,keyasint"`
	At               int64  `cbor:"6,keyasint"`
}

// Padded timestamps keep records chronological per user, same layout
// as the message log.
func tokenKey(userID int64, at time.Time) []byte {
	return []byte(fmt.Sprintf("tok:%d:%019d", userID, at.UnixNano()))
}

func (t TokenRepository) Add(usage domain.TokenUsage) error {
	data, err := cbor.Marshal(diskTokenUsage{
		UserID:           usage.UserID,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		At:               usage.At.UnixNano(),
	})
	if err != nil {
		return err
	}
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tokenKey(usage.UserID, usage.At), data)
	})
}

// GlobalStats aggregates usage recorded at or after since; the zero
// time covers everything.
func (t TokenRepository) GlobalStats(since time.Time) (domain.TokenStats, error) {
	var stats domain.TokenStats
	users := make(map[int64]struct{})
	err := t.scan(since, func(disk diskTokenUsage) {
		stats.TotalTokens += disk.TotalTokens
		stats.PromptTokens += disk.PromptTokens
		stats.CompletionTokens += disk.CompletionTokens
		stats.Requests++
		users[disk.UserID] = struct{}{}
	})
	if err != nil {
		return domain.TokenStats{}, err
	}
	stats.UniqueUsers = len(users)
	return stats, nil
}

// TopUsers aggregates per user and returns the n heaviest consumers
// since the given instant; the zero time covers everything.
func (t TokenRepository) TopUsers(n int, since time.Time) ([]domain.TokenRank, error) {
	totals := make(map[int64]*domain.TokenRank)
	err := t.scan(since, func(disk diskTokenUsage) {
		rank, ok := totals[disk.UserID]
		if !ok {
			rank = &domain.TokenRank{UserID: disk.UserID}
			totals[disk.UserID] = rank
		}
		rank.TotalTokens += disk.TotalTokens
		rank.Requests++
	})
	if err != nil {
		return nil, err
	}

	ranks := make([]domain.TokenRank, 0, len(totals))
	for _, rank := range totals {
		ranks = append(ranks, *rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		return ranks[i].TotalTokens > ranks[j].TotalTokens
	})
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks, nil
}

func (t TokenRepository) scan(since time.Time, visit func(diskTokenUsage)) error {
	cutoff := int64(0)
	if !since.IsZero() {
		cutoff = since.UnixNano()
	}
	return t.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("tok:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskTokenUsage
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			if disk.At < cutoff {
				continue
			}
			visit(disk)
		}
		return nil
	})
}
