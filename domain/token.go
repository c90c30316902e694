package domain

import "time"

// TokenUsage records the cost of one model call for a user.
type TokenUsage struct {
	UserID           int64
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	At               time.Time
}

// TokenStats aggregates usage over a period.
type TokenStats struct {
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
	Requests         int
	UniqueUsers      int
}

// TokenRank is one leaderboard row.
type TokenRank struct {
	UserID      int64
	TotalTokens int
	Requests    int
}
