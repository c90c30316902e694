//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-assist/domain"
	"context"
	"reflect"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport is the outbound surface of the chat transport.
// Edit must tolerate no-op edits on identical content; callers treat
// every edit failure as non-fatal.
type Transport interface {
	Send(chat int64, text string) (domain.MessageRef, error)
	Reply(to domain.MessageRef, text string) (domain.MessageRef, error)
	Edit(ref domain.MessageRef, text string) error
	Typing(chat int64) error
}

// Streamer produces the assistant answer for one prompt.
// Stream returns a finite channel of fragments; a mid-stream failure
// is delivered as the last fragment's Err before the channel closes.
// Complete is the synchronous fallback for when streaming breaks.
type Streamer interface {
	Stream(ctx context.Context, userID int64, prompt string) (<-chan domain.Fragment, error)
	Complete(ctx context.Context, userID int64, prompt string) (string, error)
}

// Recorder persists conversation side effects. Calls are
// fire-and-forget for the caller: failures are logged, never raised
// past the processing pipeline.
type Recorder interface {
	LogMessage(userID int64, text string, role domain.Role) error
	BumpActivity(userID int64) error
}
