package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"chat-assist/dispatch"
	"chat-assist/domain"
	apperrors "chat-assist/errors"
	"chat-assist/moderation"
	"chat-assist/repositories"

	tele "gopkg.in/telebot.v3"
)

// UserBot is the assistant-facing bot. It owns the user commands, the
// moderation gate in front of the dispatcher and the support flow.
type UserBot struct {
	bot        *tele.Bot
	log        *slog.Logger
	dispatcher *dispatch.Dispatcher
	moderator  *moderation.Moderator
	users      repositories.IUserRepository
	referrals  repositories.IReferralRepository
	tickets    repositories.ITicketRepository
	content    repositories.IContentRepository
	flow       *SupportFlow
	notifier   *TicketNotifier

	ctx context.Context
}

func NewUserBot(bot *tele.Bot, log *slog.Logger, dispatcher *dispatch.Dispatcher,
	moderator *moderation.Moderator, users repositories.IUserRepository,
	referrals repositories.IReferralRepository, tickets repositories.ITicketRepository,
	content repositories.IContentRepository, notifier *TicketNotifier) *UserBot {
	u := &UserBot{
		bot:        bot,
		log:        log,
		dispatcher: dispatcher,
		moderator:  moderator,
		users:      users,
		referrals:  referrals,
		tickets:    tickets,
		content:    content,
		flow:       NewSupportFlow(),
		notifier:   notifier,
	}
	u.register()
	return u
}

func (u *UserBot) register() {
	u.bot.Handle("/start", u.onStart)
	u.bot.Handle("/more", u.onMore)
	u.bot.Handle("/support", u.onSupport)
	u.bot.Handle("/mytickets", u.onMyTickets)
	u.bot.Handle("/affiliate", u.onAffiliate)
	u.bot.Handle(tele.OnText, u.onText)
	u.bot.Handle(&tele.Btn{Unique: uniqueMoreContent}, u.onMoreContent)
	u.bot.Handle(&tele.Btn{Unique: uniqueSupportTopic}, u.onSupportTopic)
	u.bot.Handle(&tele.Btn{Unique: uniqueSupportCancel}, u.onSupportCancel)
	u.bot.Handle(&tele.Btn{Unique: uniqueTicketsReload}, u.onMyTicketsReload)
	u.bot.Handle(&tele.Btn{Unique: uniqueTicketsNew}, u.onMyTicketsNew)
}

// Run blocks on long polling until the context is cancelled.
func (u *UserBot) Run(ctx context.Context) error {
	u.ctx = ctx
	go func() {
		<-ctx.Done()
		u.bot.Stop()
	}()
	u.log.Info("User bot started", "username", u.bot.Me.Username)
	u.bot.Start()
	return nil
}

func (u *UserBot) onStart(c tele.Context) error {
	sender := c.Sender()
	now := time.Now().UTC()
	err := u.users.Save(domain.User{
		ID:           sender.ID,
		Username:     sender.Username,
		FirstName:    sender.FirstName,
		LastName:     sender.LastName,
		Language:     sender.LanguageCode,
		CreatedAt:    now,
		LastActiveAt: now,
	})
	if err != nil {
		u.log.Error("Could not save user profile", "user", sender.ID, "error", err)
	}

	u.registerReferral(sender.ID, c.Message().Payload)

	return c.Send(fmt.Sprintf(
		"👋 Hi %s! I'm your personal assistant.\n\n"+
			"Just write me anything, or try:\n"+
			"/more — ready-made prompts\n"+
			"/support — contact a human\n"+
			"/mytickets — your support requests\n"+
			"/affiliate — invite friends", sender.FirstName))
}

// registerReferral handles the "ref_<id>" deep link payload. Repeat
// and self referrals are silently ignored.
func (u *UserBot) registerReferral(userID int64, payload string) {
	if !strings.HasPrefix(payload, "ref_") {
		return
	}
	referrerID, err := strconv.ParseInt(strings.TrimPrefix(payload, "ref_"), 10, 64)
	if err != nil {
		u.log.Debug("Malformed referral payload", "payload", payload)
		return
	}
	err = u.referrals.Add(domain.Referral{
		ReferrerID: referrerID,
		ReferralID: userID,
		Code:       payload,
		At:         time.Now().UTC(),
	})
	switch err {
	case nil:
		u.log.Info("Referral registered", "referrer", referrerID, "referral", userID)
		_, err = u.bot.Send(tele.ChatID(referrerID), "🎉 Someone just joined through your link!")
		if err != nil {
			u.log.Debug("Referrer notification failed", "referrer", referrerID, "error", err)
		}
	case apperrors.ErrAlreadyReferred, apperrors.ErrSelfReferral:
	default:
		u.log.Warn("Referral registration failed", "referrer", referrerID, "error", err)
	}
}

func (u *UserBot) onText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return nil
	}

	if u.flow.Active(userID) {
		return u.continueSupport(c, userID, text)
	}

	censored, matched := u.moderator.Censor(text)
	if len(matched) > 0 {
		u.log.Info("Message rejected by moderation", "user", userID, "words", len(matched))
		return c.Send("🚫 Your message contains words I can't pass along:\n\n" + censored)
	}

	u.dispatcher.Enqueue(u.ctx, domain.Inbound{
		UserID: userID,
		Ref:    domain.MessageRef{ChatID: c.Chat().ID, MessageID: c.Message().ID},
		Text:   text,
		At:     time.Now().UTC(),
	})
	return nil
}

func (u *UserBot) onMore(c tele.Context) error {
	// Switching to prompts abandons any half-finished support request.
	u.flow.Cancel(c.Sender().ID)
	buttons, err := u.content.Buttons()
	if err != nil {
		u.log.Error("Could not load prompt buttons", "error", err)
		return c.Send("⚠️ Prompts are unavailable right now.")
	}
	if len(buttons) == 0 {
		return c.Send("No extra prompts are configured yet.")
	}
	return c.Send("✨ Pick a prompt:", moreKeyboard(buttons))
}

// onMoreContent turns a pressed prompt button into an immediate
// assistant exchange, outside the user's text queue.
func (u *UserBot) onMoreContent(c tele.Context) error {
	id, err := strconv.Atoi(c.Data())
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "This button is broken."})
	}
	button, err := u.content.ButtonByID(id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "This prompt no longer exists."})
	}
	if err := c.Respond(&tele.CallbackResponse{Text: button.Text}); err != nil {
		u.log.Debug("Callback ack failed", "error", err)
	}
	u.flow.Cancel(c.Sender().ID)
	u.log.Info("Prompt button pressed", "user", c.Sender().ID, "button", button.Key)

	go u.dispatcher.Answer(u.ctx, domain.Inbound{
		UserID: c.Sender().ID,
		Ref:    domain.MessageRef{ChatID: c.Chat().ID, MessageID: c.Message().ID},
		Text:   button.Content,
		At:     time.Now().UTC(),
	})
	return nil
}

func (u *UserBot) onSupport(c tele.Context) error {
	topics, err := u.content.Topics()
	if err != nil || len(topics) == 0 {
		u.log.Error("Could not load support topics", "error", err)
		return c.Send("⚠️ Support is unavailable right now.")
	}
	u.flow.Begin(c.Sender().ID)
	return c.Send("🛟 What is your request about?", topicsKeyboard(topics))
}

func (u *UserBot) onSupportTopic(c tele.Context) error {
	userID := c.Sender().ID
	topicID, err := strconv.Atoi(c.Data())
	if err != nil || !u.flow.ChooseTopic(userID, topicID) {
		return c.Respond(&tele.CallbackResponse{Text: "This menu has expired, run /support again."})
	}
	topic, err := u.content.TopicByID(topicID)
	if err != nil {
		u.flow.Cancel(userID)
		return c.Respond(&tele.CallbackResponse{Text: "This topic no longer exists."})
	}
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		u.log.Debug("Callback ack failed", "error", err)
	}
	return c.Edit(fmt.Sprintf("🛟 %s\n\nNow describe your problem in one message.", topic.Label()))
}

func (u *UserBot) onSupportCancel(c tele.Context) error {
	u.flow.Cancel(c.Sender().ID)
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		u.log.Debug("Callback ack failed", "error", err)
	}
	return c.Edit("Support request cancelled.")
}

// continueSupport consumes the user's next text while the support flow
// is active.
func (u *UserBot) continueSupport(c tele.Context, userID int64, text string) error {
	if u.flow.AwaitingTopic(userID) {
		return c.Send("☝️ Please pick a topic with the buttons above, or press Cancel.")
	}
	topicID, ok := u.flow.Describe(userID)
	if !ok {
		return nil
	}
	topic, err := u.content.TopicByID(topicID)
	if err != nil {
		u.log.Error("Support topic vanished mid-flow", "topic", topicID, "error", err)
		return c.Send("⚠️ Something went wrong, please run /support again.")
	}

	ticket, err := u.tickets.Create(userID, topic.Label(), text)
	if err != nil {
		u.log.Error("Ticket creation failed", "user", userID, "error", err)
		return c.Send("⚠️ Could not create your ticket, please try again.")
	}

	user, err := u.users.Get(userID)
	if err != nil {
		user = domain.User{ID: userID, FirstName: c.Sender().FirstName, Username: c.Sender().Username}
	}
	if err := u.notifier.Announce(ticket, user); err != nil {
		u.log.Error("Ticket announcement failed", "ticket", ticket.Number, "error", err)
	}

	return c.Send(fmt.Sprintf(
		"✅ Ticket *%s* created. Our team will get back to you here.\n"+
			"Track it anytime with /mytickets.", ticket.Number), tele.ModeMarkdown)
}

func (u *UserBot) onMyTickets(c tele.Context) error {
	text, err := u.renderMyTickets(c.Sender().ID)
	if err != nil {
		u.log.Error("Could not list tickets", "user", c.Sender().ID, "error", err)
		return c.Send("⚠️ Could not load your tickets.")
	}
	return c.Send(text, myTicketsKeyboard(), tele.ModeMarkdown)
}

func (u *UserBot) onMyTicketsReload(c tele.Context) error {
	text, err := u.renderMyTickets(c.Sender().ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Could not refresh, try again."})
	}
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		u.log.Debug("Callback ack failed", "error", err)
	}
	return c.Edit(text, myTicketsKeyboard(), tele.ModeMarkdown)
}

func (u *UserBot) onMyTicketsNew(c tele.Context) error {
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		u.log.Debug("Callback ack failed", "error", err)
	}
	return u.onSupport(c)
}

// renderMyTickets shows the user's five most recent tickets.
func (u *UserBot) renderMyTickets(userID int64) (string, error) {
	tickets, err := u.tickets.ByUser(userID)
	if err != nil {
		return "", err
	}
	if len(tickets) == 0 {
		return "You have no support tickets. Open one with /support.", nil
	}

	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
	if len(tickets) > 5 {
		tickets = tickets[:5]
	}

	var b strings.Builder
	b.WriteString("🎫 *Your tickets:*\n\n")
	for _, ticket := range tickets {
		fmt.Fprintf(&b, "%s *%s* — %s (%s)\n", ticket.Status.Emoji(), ticket.Number, ticket.Topic, ticket.Status)
		if ticket.AdminResponse != "" {
			fmt.Fprintf(&b, "   💬 %s\n", ticket.AdminResponse)
		}
	}
	return b.String(), nil
}

func (u *UserBot) onAffiliate(c tele.Context) error {
	userID := c.Sender().ID
	count, err := u.referrals.CountByReferrer(userID)
	if err != nil {
		u.log.Error("Could not count referrals", "user", userID, "error", err)
		count = 0
	}
	link := fmt.Sprintf("https://t.me/%s?start=ref_%d", u.bot.Me.Username, userID)
	return c.Send(fmt.Sprintf(
		"🤝 Share your personal link:\n%s\n\nFriends joined so far: *%d*", link, count),
		tele.ModeMarkdown)
}
