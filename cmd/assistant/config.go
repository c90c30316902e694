package main

import (
	"fmt"
	"time"
)

type Config struct {
	UserBotToken    string        `env:"USER_BOT_TOKEN,required=true" validate:"required"`
	AdminBotToken   string        `env:"ADMIN_BOT_TOKEN,required=true" validate:"required"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY,required=true" validate:"required"`
	OpenAIModel     string        `env:"OPENAI_MODEL,default=gpt-4.1"`
	SuperAdminID    int64         `env:"SUPER_ADMIN_ID,required=true" validate:"required"`
	AdminChannelID  int64         `env:"ADMIN_CHANNEL_ID,required=true" validate:"required"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath   string        `env:"BLUGE_FILEPATH,required=true" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	EditInterval    time.Duration `env:"EDIT_INTERVAL,default=6s"`
	TypingPeriod    time.Duration `env:"TYPING_PERIOD,default=4500ms"`
	StreamTimeout   time.Duration `env:"STREAM_TIMEOUT,default=5m"`
	PollTimeout     time.Duration `env:"POLL_TIMEOUT,default=10s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=20"`
}

// CharacterRune validates that the moderation replacement is exactly
// one character.
func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
