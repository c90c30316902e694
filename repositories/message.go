package repositories

import (
	"chat-assist/domain"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Store(message domain.Message) error
	Recent(userID int64, limit int) ([]domain.Message, error)
	CountAll() (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID       string `cbor:"1,keyasint"`
	UserID   int64  `cbor:"2,keyasint"`
	Role     string `cbor:"3,keyasint"`
	Content  string `cbor:"4,keyasint"`
	Language string `cbor:"5,keyasint"`
	At       int64  `cbor:"6,keyasint"`
}

// Store persists one conversation line.
// The key is formatted as "msg:{user_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if
//     two messages arrive at the same nanosecond.
func (m MessageRepository) Store(message domain.Message) error {
	key := fmt.Sprintf("msg:%d:%019d:%s",
		message.UserID,
		message.At.UnixNano(),
		message.ID,
	)
	data, err := cbor.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Recent returns the user's last messages in chronological order.
// The reverse prefix scan reads the newest keys first; the slice is
// flipped before returning so callers can replay the conversation.
func (m MessageRepository) Recent(userID int64, limit int) ([]domain.Message, error) {
	var collected []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", userID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible timestamp for this user.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(collected) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			var disk diskMessage
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(disk)
			if err != nil {
				return err
			}
			collected = append(collected, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, nil
}

// CountAll counts stored messages across all users. Keys only, no
// value prefetch.
func (m MessageRepository) CountAll() (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:       message.ID.String(),
		UserID:   message.UserID,
		Role:     string(message.Role),
		Content:  message.Content,
		Language: message.Language,
		At:       message.At.UnixNano(),
	}
}

func toMessage(disk diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:       id,
		UserID:   disk.UserID,
		Role:     domain.Role(disk.Role),
		Content:  disk.Content,
		Language: disk.Language,
		At:       time.Unix(0, disk.At).UTC(),
	}, nil
}
