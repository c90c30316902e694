package dispatch

import (
	"chat-assist/domain"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDispatcher(transport *fakeTransport, streamer *fakeStreamer, recorder *fakeRecorder, opts Options) *Dispatcher {
	return NewDispatcher(slog.Default(), transport, streamer, recorder, opts)
}

func inboundFor(userID int64, text string) domain.Inbound {
	return domain.Inbound{
		UserID: userID,
		Ref:    domain.MessageRef{ChatID: userID, MessageID: 1},
		Text:   text,
		At:     time.Now(),
	}
}

func TestDispatcher_ProcessesInArrivalOrder(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "ok"}}}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	// Given five messages from the same user
	var want []string
	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("message %d", i)
		want = append(want, text)
		d.Enqueue(context.Background(), inboundFor(42, text))
	}

	// When the queue fully drains
	req.Eventually(func() bool {
		return len(streamer.Prompts()) == 5
	}, 2*time.Second, 5*time.Millisecond)

	// Then the prompts were streamed strictly in arrival order
	req.Equal(want, streamer.Prompts())
}

func TestDispatcher_SingleDrainPerUser(t *testing.T) {
	req := require.New(t)
	gate := make(chan struct{})
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "ok"}}, gate: gate}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	// Given three messages enqueued while the first stream is stuck
	for i := 0; i < 3; i++ {
		d.Enqueue(context.Background(), inboundFor(42, fmt.Sprintf("message %d", i)))
	}
	req.Eventually(func() bool {
		return len(streamer.Prompts()) >= 1
	}, time.Second, 5*time.Millisecond)
	req.Equal(1, d.ActiveDrains())

	// When the gate opens
	close(gate)
	req.Eventually(func() bool {
		return len(streamer.Prompts()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	// Then no two streams for that user ever overlapped
	req.Equal(1, streamer.MaxInflight())
}

func TestDispatcher_UsersDrainConcurrently(t *testing.T) {
	req := require.New(t)
	gate := make(chan struct{})
	defer close(gate)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "ok"}}, gate: gate}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	// Given two users whose streams are both held open
	d.Enqueue(context.Background(), inboundFor(1, "from user one"))
	d.Enqueue(context.Background(), inboundFor(2, "from user two"))

	// Then both drains run at the same time
	req.Eventually(func() bool {
		return streamer.MaxInflight() == 2
	}, time.Second, 5*time.Millisecond)
	req.Equal(2, d.ActiveDrains())
}

func TestDispatcher_IdleUserIsEvicted(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "ok"}}}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	d.Enqueue(context.Background(), inboundFor(42, "only message"))

	// Then the registry holds neither a queue nor a claim afterwards
	req.Eventually(func() bool {
		users, pending := d.QueueDepth()
		return users == 0 && pending == 0 && d.ActiveDrains() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDispatcher_AnswerBypassesQueue(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "button content"}}}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	// When answering directly, outside any queue
	d.Answer(context.Background(), inboundFor(42, "pressed a button"))

	// Then the answer went out and the queue registry stayed empty
	req.Equal([]string{"pressed a button"}, streamer.Prompts())
	users, pending := d.QueueDepth()
	req.Zero(users)
	req.Zero(pending)
}

func TestDispatcher_DrainSurvivesPanic(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "ok"}}}
	recorder := &fakeRecorder{panicOnce: true}
	d := newTestDispatcher(transport, streamer, recorder, Options{})

	// Given the first message blows up inside the recorder
	d.Enqueue(context.Background(), inboundFor(42, "the bad one"))
	d.Enqueue(context.Background(), inboundFor(42, "the good one"))

	// Then the second message is still processed and the claim released
	req.Eventually(func() bool {
		prompts := streamer.Prompts()
		return len(prompts) == 1 && prompts[0] == "the good one" && d.ActiveDrains() == 0
	}, 2*time.Second, 5*time.Millisecond)
	req.Equal([]string{"the good one"}, recorder.Messages())
}
