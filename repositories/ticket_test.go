package repositories

import (
	"strings"
	"testing"

	"chat-assist/domain"
	apperrors "chat-assist/errors"

	"github.com/stretchr/testify/require"
)

func TestTicketRepository_Lifecycle(t *testing.T) {
	req := require.New(t)
	repo := NewTicketRepository(newTestDB(t))

	// Given a freshly opened ticket
	ticket, err := repo.Create(42, "💳 Billing", "I was charged twice")
	req.NoError(err)
	req.True(strings.HasPrefix(ticket.Number, "TKT"))
	req.Len(ticket.Number, 11)
	req.Equal(domain.TicketOpen, ticket.Status)

	// When an admin takes it
	taken, err := repo.Assign(ticket.Number, 7)
	req.NoError(err)
	req.Equal(domain.TicketInProgress, taken.Status)
	req.Equal(int64(7), taken.AdminID)
	req.False(taken.TakenAt.IsZero())

	// Then a second taker is rejected
	_, err = repo.Assign(ticket.Number, 8)
	req.ErrorIs(err, apperrors.ErrTicketNotTakable)

	// When the admin replies
	replied, err := repo.AddReply(ticket.Number, 7, "Refund issued, sorry!")
	req.NoError(err)
	req.Equal(domain.TicketResolved, replied.Status)
	req.Equal("Refund issued, sorry!", replied.AdminResponse)

	// And finally closes it
	closed, err := repo.Close(ticket.Number)
	req.NoError(err)
	req.Equal(domain.TicketClosed, closed.Status)
}

func TestTicketRepository_GetUnknown(t *testing.T) {
	req := require.New(t)
	repo := NewTicketRepository(newTestDB(t))

	_, err := repo.Get("TKT00000000")
	req.ErrorIs(err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_Listings(t *testing.T) {
	req := require.New(t)
	repo := NewTicketRepository(newTestDB(t))

	first, err := repo.Create(42, "🐞 Bug report", "the button does nothing")
	req.NoError(err)
	second, err := repo.Create(42, "❓ Other", "just saying hi")
	req.NoError(err)
	third, err := repo.Create(99, "💳 Billing", "invoice missing")
	req.NoError(err)

	// Then ByUser sees only that user's tickets
	mine, err := repo.ByUser(42)
	req.NoError(err)
	req.Len(mine, 2)

	// When one ticket is taken, Open shrinks and ByAdmin grows
	_, err = repo.Assign(first.Number, 7)
	req.NoError(err)

	open, err := repo.Open()
	req.NoError(err)
	req.Len(open, 2)
	numbers := []string{open[0].Number, open[1].Number}
	req.Contains(numbers, second.Number)
	req.Contains(numbers, third.Number)

	assigned, err := repo.ByAdmin(7)
	req.NoError(err)
	req.Len(assigned, 1)
	req.Equal(first.Number, assigned[0].Number)

	// And Active keeps the taken ticket alongside the open ones
	active, err := repo.Active()
	req.NoError(err)
	req.Len(active, 3)
}

func TestTicketRepository_ChannelMessage(t *testing.T) {
	req := require.New(t)
	repo := NewTicketRepository(newTestDB(t))

	ticket, err := repo.Create(42, "❓ Other", "hello")
	req.NoError(err)

	req.NoError(repo.SetChannelMessage(ticket.Number, 12345))

	fetched, err := repo.Get(ticket.Number)
	req.NoError(err)
	req.Equal(12345, fetched.ChannelMessageID)
}
