package repositories

import (
	"chat-assist/domain"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// ConversationRecorder persists the side effects of one exchange: the
// durable message log, the full-text index and the user's activity
// marker. It implements contract.Recorder.
type ConversationRecorder struct {
	messages IMessageRepository
	users    IUserRepository
	index    ISearchIndex
	log      *slog.Logger
}

func NewConversationRecorder(messages IMessageRepository, users IUserRepository,
	index ISearchIndex, log *slog.Logger) *ConversationRecorder {
	return &ConversationRecorder{messages: messages, users: users, index: index, log: log}
}

func (r *ConversationRecorder) LogMessage(userID int64, text string, role domain.Role) error {
	message := domain.Message{
		ID:       uuid.New(),
		UserID:   userID,
		Role:     role,
		Content:  text,
		Language: detectLanguage(text),
		At:       time.Now().UTC(),
	}
	if err := r.messages.Store(message); err != nil {
		return err
	}
	// Index failures must not lose the durable record; search is a
	// best-effort surface.
	if err := r.index.Index(message.ID.String(), userID, text); err != nil {
		r.log.Warn("Message indexing failed", "user", userID, "error", err)
	}
	return nil
}

func (r *ConversationRecorder) BumpActivity(userID int64) error {
	return r.users.Touch(userID, time.Now().UTC())
}

// detectLanguage tags the message with an ISO 639-3 code, empty when
// detection is unreliable.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}
