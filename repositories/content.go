package repositories

import (
	"chat-assist/domain"
	"chat-assist/errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"
)

type IContentRepository interface {
	Buttons() ([]domain.Button, error)
	ButtonByID(id int) (domain.Button, error)
	Topics() ([]domain.SupportTopic, error)
	TopicByID(id int) (domain.SupportTopic, error)
	SeedDefaults() error
}

// ContentRepository holds the curated pieces shown on keyboards: the
// /more prompt buttons and the support topic list.
type ContentRepository struct {
	db *badger.DB
}

func NewContentRepository(db *badger.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

type diskButton struct {
	ID      int    `cbor:"1,keyasint"`
	Key     string `cbor:"2,keyasint"`
	Text    string `cbor:"3,keyasint"`
	Content string `cbor:"4,keyasint"`
	Active  bool   `cbor:"5,keyasint"`
}

type diskTopic struct {
	ID    int    `cbor:"1,keyasint"`
	Emoji string `cbor:"2,keyasint"`
	Text  string `cbor:"3,keyasint"`
}

// Zero padding keeps keyboard order stable under the prefix scan.
func buttonKey(id int) []byte {
	return []byte(fmt.Sprintf("btn:%03d", id))
}

func topicKey(id int) []byte {
	return []byte(fmt.Sprintf("topic:%03d", id))
}

func (c ContentRepository) Buttons() ([]domain.Button, error) {
	var buttons []domain.Button
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("btn:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskButton
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			buttons = append(buttons, toButton(disk))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(buttons, func(b domain.Button, _ int) bool {
		return b.Active
	}), nil
}

func (c ContentRepository) ButtonByID(id int) (domain.Button, error) {
	var disk diskButton
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(buttonKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Button{}, errors.ErrButtonNotFound
	}
	if err != nil {
		return domain.Button{}, err
	}
	return toButton(disk), nil
}

func (c ContentRepository) Topics() ([]domain.SupportTopic, error) {
	var topics []domain.SupportTopic
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("topic:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskTopic
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			topics = append(topics, domain.SupportTopic(disk))
		}
		return nil
	})
	return topics, err
}

func (c ContentRepository) TopicByID(id int) (domain.SupportTopic, error) {
	var disk diskTopic
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(topicKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.SupportTopic{}, errors.ErrTopicNotFound
	}
	if err != nil {
		return domain.SupportTopic{}, err
	}
	return domain.SupportTopic(disk), nil
}

// SeedDefaults writes the built-in buttons and topics on first start.
// Existing entries are left untouched so edits survive restarts.
func (c ContentRepository) SeedDefaults() error {
	return c.db.Update(func(txn *badger.Txn) error {
		for _, button := range defaultButtons {
			if _, err := txn.Get(buttonKey(button.ID)); err == nil {
				continue
			}
			data, err := cbor.Marshal(fromButton(button))
			if err != nil {
				return err
			}
			if err := txn.Set(buttonKey(button.ID), data); err != nil {
				return err
			}
		}
		for _, topic := range defaultTopics {
			if _, err := txn.Get(topicKey(topic.ID)); err == nil {
				continue
			}
			data, err := cbor.Marshal(diskTopic(topic))
			if err != nil {
				return err
			}
			if err := txn.Set(topicKey(topic.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

var defaultButtons = []domain.Button{
	{ID: 1, Key: "daily_plan", Text: "🗓 Plan my day", Content: "Help me build a realistic plan for the rest of my day.", Active: true},
	{ID: 2, Key: "summarize", Text: "📝 Summarize a text", Content: "I will paste a text, summarize it in a few bullet points.", Active: true},
	{ID: 3, Key: "translate", Text: "🌍 Translate", Content: "Translate my next message and explain any idioms in it.", Active: true},
	{ID: 4, Key: "brainstorm", Text: "💡 Brainstorm ideas", Content: "Brainstorm with me: ask three questions, then propose ideas.", Active: true},
	{ID: 5, Key: "explain", Text: "🎓 Explain simply", Content: "Explain the next topic I send like I'm a beginner.", Active: true},
	{ID: 6, Key: "proofread", Text: "🔎 Proofread", Content: "Proofread my next message and list the corrections.", Active: true},
}

var defaultTopics = []domain.SupportTopic{
	{ID: 1, Emoji: "💳", Text: "Billing"},
	{ID: 2, Emoji: "🐞", Text: "Bug report"},
	{ID: 3, Emoji: "🤖", Text: "Assistant quality"},
	{ID: 4, Emoji: "🔐", Text: "Account access"},
	{ID: 5, Emoji: "❓", Text: "Other"},
}

func fromButton(button domain.Button) diskButton {
	return diskButton(button)
}

func toButton(disk diskButton) domain.Button {
	return domain.Button(disk)
}
