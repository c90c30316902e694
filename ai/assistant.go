// Package ai produces assistant answers through the OpenAI chat
// completion API, with conversation memory read from the message log.
package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"chat-assist/domain"
	apperrors "chat-assist/errors"
	"chat-assist/repositories"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful personal assistant inside a messenger chat. " +
	"Answer concisely, use Markdown sparingly, and reply in the user's language."

// Assistant implements contract.Streamer. Every answer is grounded on
// the user's recent history, and every call's token usage is recorded.
type Assistant struct {
	client       *openai.Client
	messages     repositories.IMessageRepository
	tokens       repositories.ITokenRepository
	log          *slog.Logger
	model        string
	historyLimit int
}

func NewAssistant(client *openai.Client, messages repositories.IMessageRepository,
	tokens repositories.ITokenRepository, log *slog.Logger, model string, historyLimit int) *Assistant {
	return &Assistant{
		client:       client,
		messages:     messages,
		tokens:       tokens,
		log:          log,
		model:        model,
		historyLimit: historyLimit,
	}
}

// Stream starts a streaming completion and forwards the text deltas.
// The channel is closed when the stream ends; a mid-stream failure is
// delivered as the final fragment's Err. On success the full answer is
// appended to the message log and the usage recorded.
func (a *Assistant) Stream(ctx context.Context, userID int64, prompt string) (<-chan domain.Fragment, error) {
	request := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: a.buildMessages(userID, prompt),
		Stream:   true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	stream, err := a.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		defer stream.Close()

		var full string
		var usage *openai.Usage
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				// The consumer drains until an Err fragment or close,
				// so this send never blocks forever. Racing it against
				// ctx.Done could close the channel without the error
				// and pass a truncated answer off as complete.
				out <- domain.Fragment{Err: err}
				return
			}
			if response.Usage != nil {
				usage = response.Usage
			}
			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full += delta
			select {
			case out <- domain.Fragment{Text: delta}:
			case <-ctx.Done():
				return
			}
		}
		a.finish(userID, full, usage)
	}()
	return out, nil
}

// Complete is the synchronous path used when streaming is unavailable.
func (a *Assistant) Complete(ctx context.Context, userID int64, prompt string) (string, error) {
	response, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: a.buildMessages(userID, prompt),
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", apperrors.ErrEmptyAnswer
	}
	answer := response.Choices[0].Message.Content
	a.finish(userID, answer, &response.Usage)
	return answer, nil
}

// finish stores the assistant's side of the exchange. Failures here
// must not disturb an already delivered answer.
func (a *Assistant) finish(userID int64, answer string, usage *openai.Usage) {
	if answer != "" {
		err := a.messages.Store(domain.Message{
			ID:      uuid.New(),
			UserID:  userID,
			Role:    domain.RoleAssistant,
			Content: answer,
			At:      time.Now().UTC(),
		})
		if err != nil {
			a.log.Warn("Failed to log assistant answer", "user", userID, "error", err)
		}
	}
	if usage == nil {
		return
	}
	err := a.tokens.Add(domain.TokenUsage{
		UserID:           userID,
		Model:            a.model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		At:               time.Now().UTC(),
	})
	if err != nil {
		a.log.Warn("Failed to record token usage", "user", userID, "error", err)
	}
}

// buildMessages assembles system prompt, recent history and the
// current prompt. The inbound line is logged before streaming starts,
// so it is appended only when the history does not already end with it.
func (a *Assistant) buildMessages(userID int64, prompt string) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	history, err := a.messages.Recent(userID, a.historyLimit)
	if err != nil {
		a.log.Warn("History unavailable, answering without memory", "user", userID, "error", err)
		history = nil
	}
	for _, line := range history {
		role := openai.ChatMessageRoleUser
		if line.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: line.Content})
	}

	last := len(history) - 1
	if last < 0 || history[last].Role != domain.RoleUser || history[last].Content != prompt {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
	}
	return messages
}
