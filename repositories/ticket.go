package repositories

import (
	"chat-assist/domain"
	"chat-assist/errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type ITicketRepository interface {
	Create(userID int64, topic, message string) (domain.Ticket, error)
	Get(number string) (domain.Ticket, error)
	ByUser(userID int64) ([]domain.Ticket, error)
	ByAdmin(adminID int64) ([]domain.Ticket, error)
	Open() ([]domain.Ticket, error)
	Active() ([]domain.Ticket, error)
	Assign(number string, adminID int64) (domain.Ticket, error)
	AddReply(number string, adminID int64, response string) (domain.Ticket, error)
	Close(number string) (domain.Ticket, error)
	SetChannelMessage(number string, messageID int) error
}

type TicketRepository struct {
	db *badger.DB
}

func NewTicketRepository(db *badger.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

type diskTicket struct {
	Number           string `cbor:"1,keyasint"`
	UserID           int64  `cbor:"2,keyasint"`
	Topic            string `cbor:"3,keyasint"`
	UserMessage      string `cbor:"4,keyasint"`
	Status           string `cbor:"5,keyasint"`
	AdminID          int64  `cbor:"6,keyasint"`
	AdminResponse    string `cbor:"7,keyasint"`
	ChannelMessageID int    `cbor:"8,keyasint"`
	CreatedAt        int64  `cbor:"9,keyasint"`
	TakenAt          int64  `cbor:"10,keyasint"`
	RepliedAt        int64  `cbor:"11,keyasint"`
	UpdatedAt        int64  `cbor:"12,keyasint"`
}

func ticketKey(number string) []byte {
	return []byte("tkt:" + number)
}

// userTicketKey is a secondary index entry so a user's tickets can be
// listed without scanning every ticket.
func userTicketKey(userID int64, number string) []byte {
	return []byte(fmt.Sprintf("tktu:%d:%s", userID, number))
}

// newTicketNumber derives a short human-readable number from a UUID.
func newTicketNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TKT" + strings.ToUpper(raw[:8])
}

// Create opens a new ticket and writes both the primary record and the
// per-user index entry in one transaction.
func (t TicketRepository) Create(userID int64, topic, message string) (domain.Ticket, error) {
	ticket := domain.Ticket{
		Number:      newTicketNumber(),
		UserID:      userID,
		Topic:       topic,
		UserMessage: message,
		Status:      domain.TicketOpen,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	data, err := cbor.Marshal(fromTicket(ticket))
	if err != nil {
		return domain.Ticket{}, err
	}
	err = t.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(ticketKey(ticket.Number), data); err != nil {
			return err
		}
		return txn.Set(userTicketKey(userID, ticket.Number), []byte(ticket.Number))
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

func (t TicketRepository) Get(number string) (domain.Ticket, error) {
	var disk diskTicket
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ticketKey(number))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Ticket{}, errors.ErrTicketNotFound
	}
	if err != nil {
		return domain.Ticket{}, err
	}
	return toTicket(disk), nil
}

func (t TicketRepository) ByUser(userID int64) ([]domain.Ticket, error) {
	var numbers []string
	err := t.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("tktu:%d:", userID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			numbers = append(numbers, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(numbers))
	for _, number := range numbers {
		ticket, err := t.Get(number)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (t TicketRepository) ByAdmin(adminID int64) ([]domain.Ticket, error) {
	return t.filter(func(ticket domain.Ticket) bool {
		return ticket.AdminID == adminID && ticket.Status == domain.TicketInProgress
	})
}

func (t TicketRepository) Open() ([]domain.Ticket, error) {
	return t.filter(func(ticket domain.Ticket) bool {
		return ticket.Status == domain.TicketOpen
	})
}

// Active lists everything still awaiting a resolution, taken or not.
func (t TicketRepository) Active() ([]domain.Ticket, error) {
	return t.filter(func(ticket domain.Ticket) bool {
		return ticket.Status == domain.TicketOpen || ticket.Status == domain.TicketInProgress
	})
}

func (t TicketRepository) filter(keep func(domain.Ticket) bool) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := t.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("tkt:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskTicket
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			if ticket := toTicket(disk); keep(ticket) {
				tickets = append(tickets, ticket)
			}
		}
		return nil
	})
	return tickets, err
}

// Assign moves an open ticket to in_progress under the given admin.
// Only open tickets can be taken; a second taker gets ErrTicketNotTakable.
func (t TicketRepository) Assign(number string, adminID int64) (domain.Ticket, error) {
	return t.mutate(number, func(ticket *domain.Ticket) error {
		if ticket.Status != domain.TicketOpen {
			return errors.ErrTicketNotTakable
		}
		ticket.Status = domain.TicketInProgress
		ticket.AdminID = adminID
		ticket.TakenAt = time.Now().UTC()
		return nil
	})
}

// AddReply records the admin's answer and resolves the ticket.
func (t TicketRepository) AddReply(number string, adminID int64, response string) (domain.Ticket, error) {
	return t.mutate(number, func(ticket *domain.Ticket) error {
		ticket.Status = domain.TicketResolved
		ticket.AdminID = adminID
		ticket.AdminResponse = response
		ticket.RepliedAt = time.Now().UTC()
		return nil
	})
}

func (t TicketRepository) Close(number string) (domain.Ticket, error) {
	return t.mutate(number, func(ticket *domain.Ticket) error {
		ticket.Status = domain.TicketClosed
		return nil
	})
}

func (t TicketRepository) SetChannelMessage(number string, messageID int) error {
	_, err := t.mutate(number, func(ticket *domain.Ticket) error {
		ticket.ChannelMessageID = messageID
		return nil
	})
	return err
}

// mutate applies one change to a ticket inside a single read-modify-write
// transaction, so two admins racing on the same ticket cannot both win.
func (t TicketRepository) mutate(number string, change func(*domain.Ticket) error) (domain.Ticket, error) {
	var ticket domain.Ticket
	err := t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(ticketKey(number))
		if err == badger.ErrKeyNotFound {
			return errors.ErrTicketNotFound
		}
		if err != nil {
			return err
		}
		var disk diskTicket
		if err := item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		}); err != nil {
			return err
		}
		ticket = toTicket(disk)
		if err := change(&ticket); err != nil {
			return err
		}
		ticket.UpdatedAt = time.Now().UTC()
		data, err := cbor.Marshal(fromTicket(ticket))
		if err != nil {
			return err
		}
		return txn.Set(ticketKey(number), data)
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

func fromTicket(ticket domain.Ticket) diskTicket {
	return diskTicket{
		Number:           ticket.Number,
		UserID:           ticket.UserID,
		Topic:            ticket.Topic,
		UserMessage:      ticket.UserMessage,
		Status:           string(ticket.Status),
		AdminID:          ticket.AdminID,
		AdminResponse:    ticket.AdminResponse,
		ChannelMessageID: ticket.ChannelMessageID,
		CreatedAt:        ticket.CreatedAt.Unix(),
		TakenAt:          ticket.TakenAt.Unix(),
		RepliedAt:        ticket.RepliedAt.Unix(),
		UpdatedAt:        ticket.UpdatedAt.Unix(),
	}
}

func toTicket(disk diskTicket) domain.Ticket {
	return domain.Ticket{
		Number:           disk.Number,
		UserID:           disk.UserID,
		Topic:            disk.Topic,
		UserMessage:      disk.UserMessage,
		Status:           domain.TicketStatus(disk.Status),
		AdminID:          disk.AdminID,
		AdminResponse:    disk.AdminResponse,
		ChannelMessageID: disk.ChannelMessageID,
		CreatedAt:        time.Unix(disk.CreatedAt, 0).UTC(),
		TakenAt:          time.Unix(disk.TakenAt, 0).UTC(),
		RepliedAt:        time.Unix(disk.RepliedAt, 0).UTC(),
		UpdatedAt:        time.Unix(disk.UpdatedAt, 0).UTC(),
	}
}
