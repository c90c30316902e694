package dispatch

import (
	"chat-assist/domain"
	"context"
	"sync"
)

// fakeTransport records every outbound call and can be told to fail
// replies or edits.
type fakeTransport struct {
	mu       sync.Mutex
	replies  []string
	edits    []string
	typing   int
	replyErr error
	editErr  error
}

func (f *fakeTransport) Send(chat int64, text string) (domain.MessageRef, error) {
	return domain.MessageRef{ChatID: chat, MessageID: 1}, nil
}

func (f *fakeTransport) Reply(to domain.MessageRef, text string) (domain.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return domain.MessageRef{}, f.replyErr
	}
	f.replies = append(f.replies, text)
	return domain.MessageRef{ChatID: to.ChatID, MessageID: 100 + len(f.replies)}, nil
}

func (f *fakeTransport) Edit(ref domain.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeTransport) Typing(chat int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeTransport) Replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

func (f *fakeTransport) Edits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.edits...)
}

func (f *fakeTransport) TypingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.typing
}

// fakeStreamer replays a fixed fragment script per Stream call and
// tracks how many streams run at the same time. A non-nil gate makes
// every stream pause before its gateAt-th fragment until the gate is
// closed or the context ends; gateAt zero pauses before the first one.
type fakeStreamer struct {
	mu          sync.Mutex
	prompts     []string
	fragments   []domain.Fragment
	streamErr   error
	answer      string
	completeErr error
	completions int
	inflight    int
	maxInflight int
	gate        chan struct{}
	gateAt      int
}

func (f *fakeStreamer) Stream(ctx context.Context, userID int64, prompt string) (<-chan domain.Fragment, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	if f.streamErr != nil {
		err := f.streamErr
		f.mu.Unlock()
		return nil, err
	}
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	gate := f.gate
	gateAt := f.gateAt
	script := append([]domain.Fragment(nil), f.fragments...)
	f.mu.Unlock()

	out := make(chan domain.Fragment)
	go func() {
		defer func() {
			f.mu.Lock()
			f.inflight--
			f.mu.Unlock()
			close(out)
		}()
		for i, fragment := range script {
			if gate != nil && i == gateAt {
				select {
				case <-gate:
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- fragment:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeStreamer) Complete(ctx context.Context, userID int64, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions++
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.answer, nil
}

func (f *fakeStreamer) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeStreamer) MaxInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

func (f *fakeStreamer) Completions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completions
}

// fakeRecorder counts persistence calls; it can panic on the first
// LogMessage to exercise the drain's panic isolation.
type fakeRecorder struct {
	mu         sync.Mutex
	messages   []string
	bumps      int
	panicOnce  bool
	panicFired bool
}

func (f *fakeRecorder) LogMessage(userID int64, text string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnce && !f.panicFired {
		f.panicFired = true
		panic("recorder exploded")
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeRecorder) BumpActivity(userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bumps++
	return nil
}

func (f *fakeRecorder) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}
