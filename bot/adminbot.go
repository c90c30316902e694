package bot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-assist/contract"
	"chat-assist/domain"
	"chat-assist/repositories"

	"github.com/olekukonko/tablewriter"
	tele "gopkg.in/telebot.v3"
)

// AdminBot is the staff-facing bot: ticket handling, user statistics,
// token accounting and roster management. Every update is gated on the
// admin roster; the super admin is always allowed.
type AdminBot struct {
	bot           *tele.Bot
	log           *slog.Logger
	superAdminID  int64
	admins        repositories.IAdminRepository
	tickets       repositories.ITicketRepository
	users         repositories.IUserRepository
	messages      repositories.IMessageRepository
	tokens        repositories.ITokenRepository
	index         repositories.ISearchIndex
	userTransport contract.Transport
	notifier      *TicketNotifier

	mu      sync.Mutex
	pending map[int64]string // adminID -> ticket awaiting a reply text
}

func NewAdminBot(bot *tele.Bot, log *slog.Logger, superAdminID int64,
	admins repositories.IAdminRepository, tickets repositories.ITicketRepository,
	users repositories.IUserRepository, messages repositories.IMessageRepository,
	tokens repositories.ITokenRepository, index repositories.ISearchIndex,
	userTransport contract.Transport, notifier *TicketNotifier) *AdminBot {
	a := &AdminBot{
		bot:           bot,
		log:           log,
		superAdminID:  superAdminID,
		admins:        admins,
		tickets:       tickets,
		users:         users,
		messages:      messages,
		tokens:        tokens,
		index:         index,
		userTransport: userTransport,
		notifier:      notifier,
		pending:       make(map[int64]string),
	}
	a.register()
	return a
}

func (a *AdminBot) register() {
	a.bot.Use(a.guard)
	a.bot.Handle("/start", a.onStart)
	a.bot.Handle("/tickets", a.onTickets)
	a.bot.Handle("/my_tickets", a.onMyTickets)
	a.bot.Handle("/view", a.onView)
	a.bot.Handle("/stats", a.onStats)
	a.bot.Handle("/token_stats", a.onTokenStats)
	a.bot.Handle("/token_leaderboard", a.onTokenLeaderboard)
	a.bot.Handle("/search", a.onSearch)
	a.bot.Handle("/add_admin", a.onAddAdmin)
	a.bot.Handle("/remove_admin", a.onRemoveAdmin)
	a.bot.Handle("/list_admins", a.onListAdmins)
	a.bot.Handle(tele.OnText, a.onText)
	a.bot.Handle(&tele.Btn{Unique: uniqueTicketTake}, a.onTake)
	a.bot.Handle(&tele.Btn{Unique: uniqueTicketReply}, a.onReply)
	a.bot.Handle(&tele.Btn{Unique: uniqueTicketClose}, a.onClose)
}

// Run blocks on long polling until the context is cancelled.
func (a *AdminBot) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	a.log.Info("Admin bot started", "username", a.bot.Me.Username)
	a.bot.Start()
	return nil
}

// guard rejects everyone who is neither the super admin nor on the
// roster. Channel posts carry no sender and are dropped.
func (a *AdminBot) guard(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		if !a.authorized(sender.ID) {
			a.log.Info("Unauthorized admin bot access", "user", sender.ID)
			return c.Send("⛔ This bot is for the support staff only.")
		}
		return next(c)
	}
}

func (a *AdminBot) authorized(userID int64) bool {
	if userID == a.superAdminID {
		return true
	}
	ok, err := a.admins.IsAdmin(userID)
	if err != nil {
		a.log.Error("Admin roster lookup failed", "user", userID, "error", err)
		return false
	}
	return ok
}

func (a *AdminBot) onStart(c tele.Context) error {
	payload := c.Message().Payload
	if strings.HasPrefix(payload, "ticket_") {
		return a.showTicket(c, strings.TrimPrefix(payload, "ticket_"))
	}
	return c.Send("🛠 Support console.\n\n" +
		"/tickets — open tickets\n" +
		"/my_tickets — tickets you took\n" +
		"/view <number> — one ticket\n" +
		"/stats — user and message stats\n" +
		"/token_stats [days] — model usage\n" +
		"/token_leaderboard [days] — heaviest users\n" +
		"/search <term> — full-text message search\n" +
		"/list_admins — the roster")
}

func (a *AdminBot) showTicket(c tele.Context, number string) error {
	ticket, err := a.tickets.Get(number)
	if err != nil {
		return c.Send(fmt.Sprintf("Ticket %s was not found.", number))
	}
	return c.Send(a.ticketCard(ticket), ticketActionsKeyboard(ticket), tele.ModeMarkdown)
}

func (a *AdminBot) ticketCard(ticket domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 *%s* %s %s\n", ticket.Number, ticket.Status.Emoji(), ticket.Status)
	fmt.Fprintf(&b, "🗂 %s\n", ticket.Topic)
	if user, err := a.users.Get(ticket.UserID); err == nil {
		fmt.Fprintf(&b, "👤 %s (@%s, id %d)\n", user.FirstName, user.Username, user.ID)
	} else {
		fmt.Fprintf(&b, "👤 id %d\n", ticket.UserID)
	}
	fmt.Fprintf(&b, "🕐 %s\n\n%s\n", ticket.CreatedAt.Format("2006-01-02 15:04"), ticket.UserMessage)
	if ticket.AdminResponse != "" {
		fmt.Fprintf(&b, "\n💬 %s\n", ticket.AdminResponse)
	}
	return b.String()
}

func (a *AdminBot) onTickets(c tele.Context) error {
	tickets, err := a.tickets.Active()
	if err != nil {
		a.log.Error("Active tickets listing failed", "error", err)
		return c.Send("⚠️ Could not load tickets.")
	}
	return a.sendTicketList(c, "🔴 *Tickets awaiting resolution:*", tickets)
}

func (a *AdminBot) onMyTickets(c tele.Context) error {
	tickets, err := a.tickets.ByAdmin(c.Sender().ID)
	if err != nil {
		a.log.Error("Assigned tickets listing failed", "error", err)
		return c.Send("⚠️ Could not load tickets.")
	}
	return a.sendTicketList(c, "🟡 *Your tickets in progress:*", tickets)
}

func (a *AdminBot) sendTicketList(c tele.Context, title string, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return c.Send("Nothing here. 🎉")
	}
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for _, ticket := range tickets {
		fmt.Fprintf(&b, "%s `%s` — %s (user %d)\n",
			ticket.Status.Emoji(), ticket.Number, ticket.Topic, ticket.UserID)
	}
	b.WriteString("\nOpen one with /view <number>.")
	return c.Send(b.String(), tele.ModeMarkdown)
}

func (a *AdminBot) onView(c tele.Context) error {
	number := strings.TrimSpace(c.Message().Payload)
	if number == "" {
		return c.Send("Usage: /view TKT12345678")
	}
	return a.showTicket(c, number)
}

func (a *AdminBot) onTake(c tele.Context) error {
	number := c.Data()
	ticket, err := a.tickets.Assign(number, c.Sender().ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Someone else already took this ticket."})
	}
	a.notifier.Refresh(ticket)
	if _, err := a.userTransport.Send(ticket.UserID,
		"👀 A support agent is now looking at your ticket "+ticket.Number+"."); err != nil {
		a.log.Warn("Could not notify user about takeover", "ticket", number, "error", err)
	}
	if err := c.Respond(&tele.CallbackResponse{Text: "Ticket is yours."}); err != nil {
		a.log.Debug("Callback ack failed", "error", err)
	}
	return c.Edit(a.ticketCard(ticket), ticketActionsKeyboard(ticket), tele.ModeMarkdown)
}

func (a *AdminBot) onReply(c tele.Context) error {
	number := c.Data()
	if _, err := a.tickets.Get(number); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Ticket not found."})
	}
	a.mu.Lock()
	a.pending[c.Sender().ID] = number
	a.mu.Unlock()
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		a.log.Debug("Callback ack failed", "error", err)
	}
	return c.Send(fmt.Sprintf("✍️ Send the reply for *%s* as your next message.", number), tele.ModeMarkdown)
}

func (a *AdminBot) onClose(c tele.Context) error {
	number := c.Data()
	ticket, err := a.tickets.Close(number)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Ticket not found."})
	}
	a.notifier.Remove(ticket)
	if _, err := a.userTransport.Send(ticket.UserID,
		"🔒 Your ticket "+ticket.Number+" has been closed."); err != nil {
		a.log.Warn("Could not notify user about closing", "ticket", number, "error", err)
	}
	if err := c.Respond(&tele.CallbackResponse{Text: "Closed."}); err != nil {
		a.log.Debug("Callback ack failed", "error", err)
	}
	return c.Edit(a.ticketCard(ticket), ticketActionsKeyboard(ticket), tele.ModeMarkdown)
}

// onText consumes a pending ticket reply; any other chatter gets a
// pointer to /start.
func (a *AdminBot) onText(c tele.Context) error {
	adminID := c.Sender().ID
	a.mu.Lock()
	number, ok := a.pending[adminID]
	if ok {
		delete(a.pending, adminID)
	}
	a.mu.Unlock()
	if !ok {
		return c.Send("I didn't catch that. See /start for the commands.")
	}

	ticket, err := a.tickets.AddReply(number, adminID, c.Text())
	if err != nil {
		a.log.Error("Storing ticket reply failed", "ticket", number, "error", err)
		return c.Send("⚠️ Could not store the reply, press Reply again.")
	}
	a.notifier.Refresh(ticket)

	_, err = a.userTransport.Send(ticket.UserID, fmt.Sprintf(
		"💬 *Support reply on %s:*\n\n%s", ticket.Number, ticket.AdminResponse))
	if err != nil {
		a.log.Error("Reply delivery to user failed", "ticket", number, "error", err)
		return c.Send("⚠️ Reply stored but the user could not be reached.")
	}
	return c.Send(fmt.Sprintf("✅ Reply on *%s* delivered.", ticket.Number), tele.ModeMarkdown)
}

func (a *AdminBot) onStats(c tele.Context) error {
	allUsers, err := a.users.All()
	if err != nil {
		a.log.Error("Stats collection failed", "error", err)
		return c.Send("⚠️ Could not collect stats.")
	}
	activeDay, err := a.users.CountActiveSince(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		activeDay = 0
	}
	totalMessages, err := a.messages.CountAll()
	if err != nil {
		totalMessages = 0
	}
	open, err := a.tickets.Open()
	if err != nil {
		open = nil
	}

	return c.Send(renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Users", strconv.Itoa(len(allUsers))},
			{"Active 24h", strconv.Itoa(activeDay)},
			{"Messages", strconv.Itoa(totalMessages)},
			{"Open tickets", strconv.Itoa(len(open))},
		}), tele.ModeMarkdown)
}

// sinceArg turns an optional "<days>" argument into a cutoff; no
// argument means all time.
func sinceArg(args []string) time.Time {
	if len(args) == 0 {
		return time.Time{}
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// truncate shortens to at most n runes, marking the cut. Slicing on
// bytes would split multi-byte characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func (a *AdminBot) onTokenStats(c tele.Context) error {
	stats, err := a.tokens.GlobalStats(sinceArg(c.Args()))
	if err != nil {
		a.log.Error("Token stats failed", "error", err)
		return c.Send("⚠️ Could not collect token stats.")
	}
	return c.Send(renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Total tokens", strconv.Itoa(stats.TotalTokens)},
			{"Prompt tokens", strconv.Itoa(stats.PromptTokens)},
			{"Completion tokens", strconv.Itoa(stats.CompletionTokens)},
			{"Requests", strconv.Itoa(stats.Requests)},
			{"Unique users", strconv.Itoa(stats.UniqueUsers)},
		}), tele.ModeMarkdown)
}

func (a *AdminBot) onTokenLeaderboard(c tele.Context) error {
	ranks, err := a.tokens.TopUsers(10, sinceArg(c.Args()))
	if err != nil {
		a.log.Error("Token leaderboard failed", "error", err)
		return c.Send("⚠️ Could not build the leaderboard.")
	}
	if len(ranks) == 0 {
		return c.Send("No model usage recorded yet.")
	}
	rows := make([][]string, 0, len(ranks))
	for i, rank := range ranks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(rank.UserID, 10),
			strconv.Itoa(rank.TotalTokens),
			strconv.Itoa(rank.Requests),
		})
	}
	return c.Send(renderTable([]string{"#", "User", "Tokens", "Requests"}, rows), tele.ModeMarkdown)
}

func (a *AdminBot) onSearch(c tele.Context) error {
	term := strings.TrimSpace(c.Message().Payload)
	if term == "" {
		return c.Send("Usage: /search <term>")
	}
	hits, err := a.index.Search(context.Background(), term, 10)
	if err != nil {
		a.log.Error("Message search failed", "term", term, "error", err)
		return c.Send("⚠️ Search is unavailable right now.")
	}
	if len(hits) == 0 {
		return c.Send("No messages match that term.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 *%d matches:*\n\n", len(hits))
	for _, hit := range hits {
		fmt.Fprintf(&b, "• user %d: %s\n", hit.UserID, truncate(hit.Content, 120))
	}
	return c.Send(b.String(), tele.ModeMarkdown)
}

func (a *AdminBot) onAddAdmin(c tele.Context) error {
	if c.Sender().ID != a.superAdminID {
		return c.Send("⛔ Only the super admin can change the roster.")
	}
	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /add_admin <user_id> [name]")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("The user id must be a number.")
	}
	name := ""
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}
	err = a.admins.Add(domain.Admin{
		UserID:    userID,
		FirstName: name,
		AddedBy:   c.Sender().ID,
		AddedAt:   time.Now().UTC(),
	})
	if err != nil {
		a.log.Error("Adding admin failed", "user", userID, "error", err)
		return c.Send("⚠️ Could not add the admin.")
	}
	return c.Send(fmt.Sprintf("✅ %d is now on the roster.", userID))
}

func (a *AdminBot) onRemoveAdmin(c tele.Context) error {
	if c.Sender().ID != a.superAdminID {
		return c.Send("⛔ Only the super admin can change the roster.")
	}
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /remove_admin <user_id>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("The user id must be a number.")
	}
	if err := a.admins.Remove(userID); err != nil {
		a.log.Error("Removing admin failed", "user", userID, "error", err)
		return c.Send("⚠️ Could not remove the admin.")
	}
	return c.Send(fmt.Sprintf("✅ %d was removed from the roster.", userID))
}

func (a *AdminBot) onListAdmins(c tele.Context) error {
	admins, err := a.admins.All()
	if err != nil {
		a.log.Error("Roster listing failed", "error", err)
		return c.Send("⚠️ Could not load the roster.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👑 Super admin: %d\n", a.superAdminID)
	for _, admin := range admins {
		fmt.Fprintf(&b, "🛠 %d", admin.UserID)
		if admin.FirstName != "" {
			fmt.Fprintf(&b, " (%s)", admin.FirstName)
		}
		b.WriteString("\n")
	}
	return c.Send(b.String())
}

// renderTable draws an ASCII table inside a Markdown code block, the
// only way Telegram keeps the columns aligned.
func renderTable(header []string, rows [][]string) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
	return "```\n" + buf.String() + "```"
}
