package repositories

import (
	"testing"

	apperrors "chat-assist/errors"

	"github.com/stretchr/testify/require"
)

func TestContentRepository_SeedDefaults(t *testing.T) {
	req := require.New(t)
	repo := NewContentRepository(newTestDB(t))

	req.NoError(repo.SeedDefaults())

	buttons, err := repo.Buttons()
	req.NoError(err)
	req.Len(buttons, len(defaultButtons))

	topics, err := repo.Topics()
	req.NoError(err)
	req.Len(topics, len(defaultTopics))

	// Then seeding twice changes nothing
	req.NoError(repo.SeedDefaults())
	buttons, err = repo.Buttons()
	req.NoError(err)
	req.Len(buttons, len(defaultButtons))
}

func TestContentRepository_Lookups(t *testing.T) {
	req := require.New(t)
	repo := NewContentRepository(newTestDB(t))
	req.NoError(repo.SeedDefaults())

	button, err := repo.ButtonByID(1)
	req.NoError(err)
	req.Equal("daily_plan", button.Key)

	_, err = repo.ButtonByID(999)
	req.ErrorIs(err, apperrors.ErrButtonNotFound)

	topic, err := repo.TopicByID(2)
	req.NoError(err)
	req.Equal("🐞 Bug report", topic.Label())

	_, err = repo.TopicByID(999)
	req.ErrorIs(err, apperrors.ErrTopicNotFound)
}
