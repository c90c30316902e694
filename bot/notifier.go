package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chat-assist/domain"
	"chat-assist/repositories"

	tele "gopkg.in/telebot.v3"
)

// TicketNotifier posts every new ticket to the staff channel and keeps
// that card in sync as the ticket advances.
type TicketNotifier struct {
	bot       *tele.Bot
	tickets   repositories.ITicketRepository
	log       *slog.Logger
	channelID int64
	botName   string
}

func NewTicketNotifier(bot *tele.Bot, tickets repositories.ITicketRepository,
	log *slog.Logger, channelID int64) *TicketNotifier {
	return &TicketNotifier{
		bot:       bot,
		tickets:   tickets,
		log:       log,
		channelID: channelID,
		botName:   bot.Me.Username,
	}
}

// Announce posts the ticket card with a deep link that opens the
// ticket inside the admin bot. The channel message ID is stored so the
// card can be edited later.
func (n *TicketNotifier) Announce(ticket domain.Ticket, user domain.User) error {
	message, err := n.bot.Send(tele.ChatID(n.channelID), n.card(ticket, &user), tele.ModeMarkdown)
	if err != nil {
		return err
	}
	if err := n.tickets.SetChannelMessage(ticket.Number, message.ID); err != nil {
		n.log.Warn("Could not remember channel message for ticket", "ticket", ticket.Number, "error", err)
	}
	return nil
}

// Refresh rewrites the channel card after a status change. A missing
// card is not an error; the ticket may predate the channel.
func (n *TicketNotifier) Refresh(ticket domain.Ticket) {
	if ticket.ChannelMessageID == 0 {
		return
	}
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(ticket.ChannelMessageID),
		ChatID:    n.channelID,
	}
	if _, err := n.bot.Edit(stored, n.card(ticket, nil), tele.ModeMarkdown); err != nil {
		n.log.Warn("Channel card refresh failed", "ticket", ticket.Number, "error", err)
	}
}

// Remove deletes the channel card once the ticket is closed.
func (n *TicketNotifier) Remove(ticket domain.Ticket) {
	if ticket.ChannelMessageID == 0 {
		return
	}
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(ticket.ChannelMessageID),
		ChatID:    n.channelID,
	}
	if err := n.bot.Delete(stored); err != nil {
		n.log.Warn("Channel card removal failed", "ticket", ticket.Number, "error", err)
	}
}

func (n *TicketNotifier) card(ticket domain.Ticket, user *domain.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 *Ticket %s* %s %s\n", ticket.Number, ticket.Status.Emoji(), ticket.Status)
	if user != nil {
		name := user.FirstName
		if user.Username != "" {
			name += " (@" + user.Username + ")"
		}
		fmt.Fprintf(&b, "👤 %s, id %d\n", name, user.ID)
	} else {
		fmt.Fprintf(&b, "👤 id %d\n", ticket.UserID)
	}
	fmt.Fprintf(&b, "🗂 %s\n\n%s\n\n", ticket.Topic, ticket.UserMessage)
	fmt.Fprintf(&b, "[Open in admin bot](https://t.me/%s?start=ticket_%s)", n.botName, ticket.Number)
	return b.String()
}
