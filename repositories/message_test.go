package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-assist/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_StoreAndRecent(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	userID := int64(42)
	at := time.Now().UTC()
	var stored []domain.Message
	for i := 0; i < 3; i++ {
		message := domain.Message{
			ID:      uuid.New(),
			UserID:  userID,
			Role:    domain.RoleUser,
			Content: fmt.Sprintf("line %d", i),
			At:      at.Add(time.Duration(i) * time.Minute),
		}
		stored = append(stored, message)
		req.NoError(repo.Store(message))
	}

	fetched, err := repo.Recent(userID, 0)
	req.NoError(err)
	req.Equal(stored, fetched)
}

func TestMessageRepository_RecentKeepsTheNewest(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	userID := int64(42)
	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		req.NoError(repo.Store(domain.Message{
			ID:      uuid.New(),
			UserID:  userID,
			Role:    domain.RoleUser,
			Content: fmt.Sprintf("line %d", i),
			At:      at.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Then the limit trims the oldest lines, order stays chronological
	fetched, err := repo.Recent(userID, 2)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("line 3", fetched[0].Content)
	req.Equal("line 4", fetched[1].Content)
}

func TestMessageRepository_UsersAreIsolated(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(newTestDB(t), slog.Default())

	at := time.Now().UTC()
	req.NoError(repo.Store(domain.Message{ID: uuid.New(), UserID: 1, Role: domain.RoleUser, Content: "mine", At: at}))
	req.NoError(repo.Store(domain.Message{ID: uuid.New(), UserID: 2, Role: domain.RoleUser, Content: "theirs", At: at}))

	fetched, err := repo.Recent(1, 0)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("mine", fetched[0].Content)

	total, err := repo.CountAll()
	req.NoError(err)
	req.Equal(2, total)
}
