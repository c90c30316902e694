package repositories

import (
	"chat-assist/domain"
	"chat-assist/errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type IUserRepository interface {
	Save(user domain.User) error
	Get(userID int64) (domain.User, error)
	Touch(userID int64, at time.Time) error
	All() ([]domain.User, error)
	CountActiveSince(since time.Time) (int, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// diskUser is the stored representation, decoupled from the domain
// struct so the schema can evolve independently.
type diskUser struct {
	ID           int64  `cbor:"1,keyasint"`
	Username     string `cbor:"2,keyasint"`
	FirstName    string `cbor:"3,keyasint"`
	LastName     string `cbor:"4,keyasint"`
	Language     string `cbor:"5,keyasint"`
	CreatedAt    int64  `cbor:"6,keyasint"`
	LastActiveAt int64  `cbor:"7,keyasint"`
}

func userKey(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d", userID))
}

// Save upserts the user profile. The original CreatedAt survives
// repeated /start commands; everything else is refreshed.
func (u UserRepository) Save(user domain.User) error {
	return u.db.Update(func(txn *badger.Txn) error {
		if item, err := txn.Get(userKey(user.ID)); err == nil {
			var existing diskUser
			err = item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &existing)
			})
			if err != nil {
				return err
			}
			user.CreatedAt = time.Unix(existing.CreatedAt, 0).UTC()
		}
		data, err := cbor.Marshal(fromUser(user))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(userKey(user.ID), data)
	})
}

func (u UserRepository) Get(userID int64) (domain.User, error) {
	var disk diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

// Touch bumps LastActiveAt without rewriting the rest of the profile.
// A user who messages before ever running /start gets a minimal record
// so their activity still counts.
func (u UserRepository) Touch(userID int64, at time.Time) error {
	return u.db.Update(func(txn *badger.Txn) error {
		disk := diskUser{ID: userID, CreatedAt: at.Unix()}
		item, err := txn.Get(userKey(userID))
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
		}
		disk.LastActiveAt = at.Unix()
		data, err := cbor.Marshal(disk)
		if err != nil {
			return err
		}
		return txn.Set(userKey(userID), data)
	})
}

func (u UserRepository) All() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("user:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskUser
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			users = append(users, toUser(disk))
		}
		return nil
	})
	return users, err
}

// CountActiveSince counts users whose last activity is at or after the
// given instant. Used by the stats surface, so a full scan is fine.
func (u UserRepository) CountActiveSince(since time.Time) (int, error) {
	users, err := u.All()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, user := range users {
		if !user.LastActiveAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Language:     user.Language,
		CreatedAt:    user.CreatedAt.Unix(),
		LastActiveAt: user.LastActiveAt.Unix(),
	}
}

func toUser(disk diskUser) domain.User {
	return domain.User{
		ID:           disk.ID,
		Username:     disk.Username,
		FirstName:    disk.FirstName,
		LastName:     disk.LastName,
		Language:     disk.Language,
		CreatedAt:    time.Unix(disk.CreatedAt, 0).UTC(),
		LastActiveAt: time.Unix(disk.LastActiveAt, 0).UTC(),
	}
}
