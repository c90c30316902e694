package bot

import (
	"strings"
	"testing"

	"chat-assist/domain"

	"github.com/stretchr/testify/require"
)

func TestMoreKeyboard_TwoButtonsPerRow(t *testing.T) {
	req := require.New(t)
	buttons := []domain.Button{
		{ID: 1, Text: "A"}, {ID: 2, Text: "B"}, {ID: 3, Text: "C"},
		{ID: 4, Text: "D"}, {ID: 5, Text: "E"},
	}

	markup := moreKeyboard(buttons)

	req.Len(markup.InlineKeyboard, 3)
	req.Len(markup.InlineKeyboard[0], 2)
	req.Len(markup.InlineKeyboard[1], 2)
	req.Len(markup.InlineKeyboard[2], 1)
	req.Equal("A", markup.InlineKeyboard[0][0].Text)
	req.Equal("E", markup.InlineKeyboard[2][0].Text)
}

func TestTopicsKeyboard_EndsWithCancel(t *testing.T) {
	req := require.New(t)
	topics := []domain.SupportTopic{
		{ID: 1, Emoji: "💳", Text: "Billing"},
		{ID: 2, Emoji: "🐞", Text: "Bug report"},
	}

	markup := topicsKeyboard(topics)

	req.Len(markup.InlineKeyboard, 3)
	req.Equal("💳 Billing", markup.InlineKeyboard[0][0].Text)
	req.Equal("✖️ Cancel", markup.InlineKeyboard[2][0].Text)
}

func TestMyTicketsKeyboard(t *testing.T) {
	req := require.New(t)

	markup := myTicketsKeyboard()

	req.Len(markup.InlineKeyboard, 1)
	req.Len(markup.InlineKeyboard[0], 2)
	req.Equal("🔄 Refresh", markup.InlineKeyboard[0][0].Text)
	req.Equal("🆕 New ticket", markup.InlineKeyboard[0][1].Text)
}

func TestTicketActionsKeyboard_FollowsLifecycle(t *testing.T) {
	req := require.New(t)

	open := ticketActionsKeyboard(domain.Ticket{Number: "TKT1", Status: domain.TicketOpen})
	req.Len(open.InlineKeyboard, 1)
	req.Len(open.InlineKeyboard[0], 2) // take + close

	inProgress := ticketActionsKeyboard(domain.Ticket{Number: "TKT1", Status: domain.TicketInProgress})
	req.Len(inProgress.InlineKeyboard[0], 2) // reply + close

	resolved := ticketActionsKeyboard(domain.Ticket{Number: "TKT1", Status: domain.TicketResolved})
	req.Len(resolved.InlineKeyboard[0], 1) // close only

	closed := ticketActionsKeyboard(domain.Ticket{Number: "TKT1", Status: domain.TicketClosed})
	req.Empty(closed.InlineKeyboard)
}

func TestRenderTable(t *testing.T) {
	req := require.New(t)

	out := renderTable([]string{"Metric", "Value"}, [][]string{{"Users", "12"}})

	req.True(strings.HasPrefix(out, "```\n"))
	req.True(strings.HasSuffix(out, "```"))
	req.Contains(out, "METRIC")
	req.Contains(out, "Users")
	req.Contains(out, "12")
}
