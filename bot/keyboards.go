package bot

import (
	"strconv"

	"chat-assist/domain"

	tele "gopkg.in/telebot.v3"
)

// Callback uniques shared between keyboard builders and handlers.
const (
	uniqueMoreContent   = "more_content"
	uniqueSupportTopic  = "support_topic"
	uniqueSupportCancel = "support_cancel"
	uniqueTicketTake    = "ticket_take"
	uniqueTicketReply   = "ticket_reply"
	uniqueTicketClose   = "ticket_close"
	uniqueTicketsReload = "my_tickets_reload"
	uniqueTicketsNew    = "my_tickets_new"
)

// moreKeyboard lays the curated prompt buttons out two per row.
func moreKeyboard(buttons []domain.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	var current []tele.Btn
	for _, button := range buttons {
		current = append(current, markup.Data(button.Text, uniqueMoreContent, strconv.Itoa(button.ID)))
		if len(current) == 2 {
			rows = append(rows, markup.Row(current...))
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, markup.Row(current...))
	}
	markup.Inline(rows...)
	return markup
}

// topicsKeyboard lists the support topics, one per row, with a cancel
// row at the bottom.
func topicsKeyboard(topics []domain.SupportTopic) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, topic := range topics {
		rows = append(rows, markup.Row(markup.Data(topic.Label(), uniqueSupportTopic, strconv.Itoa(topic.ID))))
	}
	rows = append(rows, markup.Row(markup.Data("✖️ Cancel", uniqueSupportCancel)))
	markup.Inline(rows...)
	return markup
}

// myTicketsKeyboard sits under the user's ticket list.
func myTicketsKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("🔄 Refresh", uniqueTicketsReload),
		markup.Data("🆕 New ticket", uniqueTicketsNew),
	))
	return markup
}

// ticketActionsKeyboard is attached to a ticket card in the admin bot.
// Actions shrink as the ticket advances through its lifecycle.
func ticketActionsKeyboard(ticket domain.Ticket) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var row []tele.Btn
	switch ticket.Status {
	case domain.TicketOpen:
		row = append(row, markup.Data("🙋 Take", uniqueTicketTake, ticket.Number))
	case domain.TicketInProgress:
		row = append(row, markup.Data("💬 Reply", uniqueTicketReply, ticket.Number))
	}
	if ticket.Status != domain.TicketClosed {
		row = append(row, markup.Data("🔒 Close", uniqueTicketClose, ticket.Number))
	}
	if len(row) > 0 {
		markup.Inline(markup.Row(row...))
	}
	return markup
}
