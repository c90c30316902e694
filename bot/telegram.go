// Package bot carries the Telegram-facing side: the transport
// adapter, both bot workers and their keyboards.
package bot

import (
	"log/slog"
	"strconv"

	"chat-assist/domain"

	tele "gopkg.in/telebot.v3"
)

// Telegram adapts a telebot instance to contract.Transport.
type Telegram struct {
	bot *tele.Bot
	log *slog.Logger
}

func NewTelegram(bot *tele.Bot, log *slog.Logger) *Telegram {
	return &Telegram{bot: bot, log: log}
}

func (t *Telegram) Send(chat int64, text string) (domain.MessageRef, error) {
	message, err := t.bot.Send(tele.ChatID(chat), text, tele.ModeMarkdown)
	if err != nil {
		return domain.MessageRef{}, err
	}
	return refOf(message), nil
}

func (t *Telegram) Reply(to domain.MessageRef, text string) (domain.MessageRef, error) {
	message, err := t.bot.Send(tele.ChatID(to.ChatID), text, &tele.SendOptions{
		ReplyTo:   &tele.Message{ID: to.MessageID, Chat: &tele.Chat{ID: to.ChatID}},
		ParseMode: tele.ModeMarkdown,
	})
	if err != nil {
		return domain.MessageRef{}, err
	}
	return refOf(message), nil
}

// Edit rewrites a previously sent message in place. Telegram rejects
// edits with unchanged text; callers treat that as non-fatal.
func (t *Telegram) Edit(ref domain.MessageRef, text string) error {
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
	_, err := t.bot.Edit(stored, text, tele.ModeMarkdown)
	return err
}

func (t *Telegram) Typing(chat int64) error {
	return t.bot.Notify(tele.ChatID(chat), tele.Typing)
}

func refOf(message *tele.Message) domain.MessageRef {
	return domain.MessageRef{ChatID: message.Chat.ID, MessageID: message.ID}
}
