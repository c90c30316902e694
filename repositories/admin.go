package repositories

import (
	"chat-assist/domain"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type IAdminRepository interface {
	Add(admin domain.Admin) error
	Remove(userID int64) error
	IsAdmin(userID int64) (bool, error)
	All() ([]domain.Admin, error)
}

// AdminRepository stores the support staff roster. The super admin is
// configured, not stored, and is always authorized on top of this set.
type AdminRepository struct {
	db *badger.DB
}

func NewAdminRepository(db *badger.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

type diskAdmin struct {
	UserID    int64  `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	FirstName string `cbor:"3,keyasint"`
	AddedBy   int64  `cbor:"4,keyasint"`
	AddedAt   int64  `cbor:"5,keyasint"`
}

func adminKey(userID int64) []byte {
	return []byte(fmt.Sprintf("adm:%d", userID))
}

func (a AdminRepository) Add(admin domain.Admin) error {
	data, err := cbor.Marshal(diskAdmin{
		UserID:    admin.UserID,
		Username:  admin.Username,
		FirstName: admin.FirstName,
		AddedBy:   admin.AddedBy,
		AddedAt:   admin.AddedAt.Unix(),
	})
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(adminKey(admin.UserID), data)
	})
}

func (a AdminRepository) Remove(userID int64) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(adminKey(userID))
	})
}

func (a AdminRepository) IsAdmin(userID int64) (bool, error) {
	err := a.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(adminKey(userID))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a AdminRepository) All() ([]domain.Admin, error) {
	var admins []domain.Admin
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("adm:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskAdmin
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			admins = append(admins, domain.Admin{
				UserID:    disk.UserID,
				Username:  disk.Username,
				FirstName: disk.FirstName,
				AddedBy:   disk.AddedBy,
				AddedAt:   time.Unix(disk.AddedAt, 0).UTC(),
			})
		}
		return nil
	})
	return admins, err
}
