package repositories

import (
	"chat-assist/domain"
	"chat-assist/errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type IReferralRepository interface {
	Add(referral domain.Referral) error
	CountByReferrer(referrerID int64) (int, error)
	ReferrerOf(referralID int64) (int64, error)
}

// ReferralRepository tracks who invited whom. A user can be referred
// at most once, and never by themselves.
type ReferralRepository struct {
	db *badger.DB
}

func NewReferralRepository(db *badger.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

type diskReferral struct {
	ReferrerID int64  `cbor:"1,keyasint"`
	ReferralID int64  `cbor:"2,keyasint"`
	Code       string `cbor:"3,keyasint"`
	At         int64  `cbor:"4,keyasint"`
}

func referralKey(referralID int64) []byte {
	return []byte(fmt.Sprintf("ref:%d", referralID))
}

// referrerIndexKey lets CountByReferrer run as a cheap prefix scan.
func referrerIndexKey(referrerID, referralID int64) []byte {
	return []byte(fmt.Sprintf("refi:%d:%d", referrerID, referralID))
}

// Add records the referral once. A repeat /start with the same or a
// different code is rejected, so is a user opening their own link.
func (r ReferralRepository) Add(referral domain.Referral) error {
	if referral.ReferrerID == referral.ReferralID {
		return errors.ErrSelfReferral
	}
	data, err := cbor.Marshal(diskReferral{
		ReferrerID: referral.ReferrerID,
		ReferralID: referral.ReferralID,
		Code:       referral.Code,
		At:         referral.At.Unix(),
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(referralKey(referral.ReferralID)); err == nil {
			return errors.ErrAlreadyReferred
		}
		if err := txn.Set(referralKey(referral.ReferralID), data); err != nil {
			return err
		}
		return txn.Set(referrerIndexKey(referral.ReferrerID, referral.ReferralID), nil)
	})
}

func (r ReferralRepository) CountByReferrer(referrerID int64) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("refi:%d:", referrerID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (r ReferralRepository) ReferrerOf(referralID int64) (int64, error) {
	var disk diskReferral
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(referralKey(referralID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return 0, errors.ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return disk.ReferrerID, nil
}
