package dispatch

import (
	"chat-assist/domain"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProcess_StreamedAnswerIsEditedInPlace(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{
		{Text: "Hello"}, {Text: ", "}, {Text: "world"},
	}}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	d.Answer(context.Background(), inboundFor(42, "greet me"))

	// Then the placeholder went first and the final edit holds the
	// full text with no composing suffix
	replies := transport.Replies()
	req.Equal([]string{composingText}, replies)
	edits := transport.Edits()
	req.NotEmpty(edits)
	req.Equal("Hello, world", edits[len(edits)-1])
	req.Zero(streamer.Completions())
}

func TestProcess_ProgressEditsAreThrottled(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	var script []domain.Fragment
	for i := 0; i < 100; i++ {
		script = append(script, domain.Fragment{Text: fmt.Sprintf("chunk%d ", i)})
	}
	streamer := &fakeStreamer{fragments: script}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{EditInterval: 5 * time.Second})

	// When a hundred fragments arrive well inside one edit interval
	d.Answer(context.Background(), inboundFor(42, "flood me"))

	// Then only the final edit went out
	var progress int
	for _, edit := range transport.Edits() {
		if strings.HasSuffix(edit, composingSuffix) {
			progress++
		}
	}
	req.Zero(progress)
	req.Len(transport.Edits(), 1)
}

func TestProcess_TypingStopsWithTheAnswer(t *testing.T) {
	req := require.New(t)
	gate := make(chan struct{})
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "done"}}, gate: gate}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{TypingPeriod: 5 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		d.Answer(context.Background(), inboundFor(42, "think hard"))
		close(done)
	}()

	// Given the stream is held open long enough for several signals
	req.Eventually(func() bool {
		return transport.TypingCount() >= 3
	}, time.Second, time.Millisecond)

	// When the answer completes
	close(gate)
	<-done

	// Then not a single typing signal is emitted afterwards
	settled := transport.TypingCount()
	time.Sleep(50 * time.Millisecond)
	req.Equal(settled, transport.TypingCount())
}

func TestProcess_StreamTimeoutFallsBack(t *testing.T) {
	req := require.New(t)
	gate := make(chan struct{})
	defer close(gate)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{
		fragments: []domain.Fragment{{Text: "partial "}, {Text: "rest"}},
		gate:      gate,
		gateAt:    1,
		answer:    "recovered after the stall",
	}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{StreamTimeout: 50 * time.Millisecond})

	// Given a stream that delivers one fragment and then hangs past
	// the deadline
	d.Answer(context.Background(), inboundFor(42, "answer me"))

	// Then the synchronous fallback ran and the partial text was never
	// finalized as the answer
	req.Equal(1, streamer.Completions())
	replies := transport.Replies()
	req.Equal("recovered after the stall", replies[len(replies)-1])
	req.Empty(transport.Edits())
}

func TestProcess_MidStreamFailureFallsBack(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{
		fragments: []domain.Fragment{{Text: "partial"}, {Err: fmt.Errorf("stream torn down")}},
		answer:    "the full answer",
	}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	d.Answer(context.Background(), inboundFor(42, "answer me"))

	// Then the synchronous completion delivered the answer instead
	req.Equal(1, streamer.Completions())
	replies := transport.Replies()
	req.Equal("the full answer", replies[len(replies)-1])
}

func TestProcess_EmptyStreamFallsBack(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{answer: "recovered answer"}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	// Given a stream that closes without producing any text
	d.Answer(context.Background(), inboundFor(42, "answer me"))

	req.Equal(1, streamer.Completions())
	replies := transport.Replies()
	req.Equal("recovered answer", replies[len(replies)-1])
}

func TestProcess_ApologyWhenEverythingFails(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{
		streamErr:   fmt.Errorf("no stream today"),
		completeErr: fmt.Errorf("no completion either"),
	}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	d.Answer(context.Background(), inboundFor(42, "answer me"))

	// Then the user still hears back, with the apology
	replies := transport.Replies()
	req.NotEmpty(replies)
	req.Equal(apologyText, replies[len(replies)-1])
}

func TestProcess_FinalEditFailureSendsNewMessage(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{editErr: fmt.Errorf("message is too old")}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "the whole answer"}}}
	d := newTestDispatcher(transport, streamer, &fakeRecorder{}, Options{})

	d.Answer(context.Background(), inboundFor(42, "answer me"))

	// Then the collected text arrives as a fresh reply, not an edit
	replies := transport.Replies()
	req.Equal("the whole answer", replies[len(replies)-1])
	req.Empty(transport.Edits())
	req.Zero(streamer.Completions())
}

func TestProcess_RecordsTheInboundMessage(t *testing.T) {
	req := require.New(t)
	transport := &fakeTransport{}
	streamer := &fakeStreamer{fragments: []domain.Fragment{{Text: "noted"}}}
	recorder := &fakeRecorder{}
	d := newTestDispatcher(transport, streamer, recorder, Options{})

	d.Answer(context.Background(), inboundFor(42, "remember this"))

	req.Equal([]string{"remember this"}, recorder.Messages())
	req.Equal(1, recorder.bumps)
}
