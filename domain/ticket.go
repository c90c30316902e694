package domain

import "time"

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Emoji returns the marker shown next to a status in lists.
func (s TicketStatus) Emoji() string {
	switch s {
	case TicketOpen:
		return "🔴"
	case TicketInProgress:
		return "🟡"
	case TicketResolved:
		return "🟢"
	case TicketClosed:
		return "⚫"
	default:
		return "⚪"
	}
}

// Ticket is one support request created by a user and handled by an admin.
type Ticket struct {
	Number           string
	UserID           int64
	Topic            string
	UserMessage      string
	Status           TicketStatus
	AdminID          int64
	AdminResponse    string
	ChannelMessageID int
	CreatedAt        time.Time
	TakenAt          time.Time
	RepliedAt        time.Time
	UpdatedAt        time.Time
}
