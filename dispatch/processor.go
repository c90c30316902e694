package dispatch

import (
	"chat-assist/domain"
	"context"
	"strings"
	"time"
)

const (
	composingText   = "⏳ Composing an answer..."
	composingSuffix = "\n\n⏳ _Still composing..._"
	apologyText     = "⚠️ Something went wrong while answering your message. Please try again."
)

// process renders the answer for one message with live updates:
// placeholder reply first, edit-throttled progress edits while the
// stream runs, one final edit with the full text. Any failure takes
// the one-shot synchronous fallback; the user always receives either
// an answer or an apology.
func (d *Dispatcher) process(parent context.Context, in domain.Inbound) {
	if err := d.recorder.LogMessage(in.UserID, in.Text, domain.RoleUser); err != nil {
		d.log.Warn("Failed to log inbound message", "user", in.UserID, "error", err)
	}
	if err := d.recorder.BumpActivity(in.UserID); err != nil {
		d.log.Warn("Failed to bump user activity", "user", in.UserID, "error", err)
	}

	ctx, cancel := context.WithTimeout(parent, d.opts.StreamTimeout)
	defer cancel()

	// The typing loop must never outlive this invocation. Cancelling
	// and waiting on every exit path guarantees no signal is emitted
	// after process returns.
	typingCtx, stopTyping := context.WithCancel(ctx)
	typingDone := make(chan struct{})
	go func() {
		defer close(typingDone)
		d.keepTyping(typingCtx, in.Ref.ChatID)
	}()
	defer func() {
		stopTyping()
		<-typingDone
	}()

	placeholder, err := d.transport.Reply(in.Ref, composingText)
	if err != nil {
		d.log.Warn("Placeholder send failed", "user", in.UserID, "error", err)
		d.fallback(parent, in)
		return
	}

	fragments, err := d.streamer.Stream(ctx, in.UserID, in.Text)
	if err != nil {
		d.log.Error("Stream could not be started", "user", in.UserID, "error", err)
		d.fallback(parent, in)
		return
	}

	var collected strings.Builder
	lastEdit := time.Now()
	for fragment := range fragments {
		if fragment.Err != nil {
			d.log.Error("Stream failed mid-answer", "user", in.UserID, "error", fragment.Err)
			d.fallback(parent, in)
			return
		}
		if fragment.Text == "" {
			continue
		}
		collected.WriteString(fragment.Text)

		if time.Since(lastEdit) < d.opts.EditInterval {
			continue
		}
		if err := d.transport.Edit(placeholder, collected.String()+composingSuffix); err != nil {
			// Rate limits and no-op edits are expected here.
			d.log.Warn("Progress edit failed", "user", in.UserID, "error", err)
		}
		// Reset after every attempt so the outbound edit rate stays
		// bounded even when the transport keeps rejecting edits.
		lastEdit = time.Now()
	}

	// A closed channel is only a completed answer if the deadline did
	// not expire first; a producer cut off mid-stream may close without
	// delivering its error.
	if ctx.Err() != nil {
		d.log.Error("Stream deadline hit before completion", "user", in.UserID, "error", ctx.Err())
		d.fallback(parent, in)
		return
	}

	if collected.Len() == 0 {
		d.log.Warn("Stream completed without any text", "user", in.UserID)
		d.fallback(parent, in)
		return
	}

	if err := d.transport.Edit(placeholder, collected.String()); err != nil {
		d.log.Warn("Final edit failed, sending as a new message", "user", in.UserID, "error", err)
		if _, err := d.transport.Reply(in.Ref, collected.String()); err != nil {
			d.log.Error("Could not deliver the answer at all", "user", in.UserID, "error", err)
		}
		return
	}
	d.log.Info("Stream rendering completed", "user", in.UserID, "chars", collected.Len())
}

// fallback is the one-shot non-streaming retry. If it fails too, the
// user gets a generic apology; nothing propagates to the drain loop.
// The fallback gets its own time budget: the streaming context may
// already be expired when it runs.
func (d *Dispatcher) fallback(parent context.Context, in domain.Inbound) {
	ctx, cancel := context.WithTimeout(parent, d.opts.StreamTimeout)
	defer cancel()
	answer, err := d.streamer.Complete(ctx, in.UserID, in.Text)
	if err != nil || answer == "" {
		d.log.Error("Fallback completion failed", "user", in.UserID, "error", err)
		if _, err := d.transport.Reply(in.Ref, apologyText); err != nil {
			d.log.Error("Even the apology failed", "user", in.UserID, "error", err)
		}
		return
	}
	if _, err := d.transport.Reply(in.Ref, answer); err != nil {
		d.log.Error("Fallback answer delivery failed", "user", in.UserID, "error", err)
	}
}

// keepTyping signals the composing state immediately and then on a
// fixed cadence until the context is cancelled. Cancellation is the
// only normal termination; transport failures are logged and the loop
// keeps going.
func (d *Dispatcher) keepTyping(ctx context.Context, chat int64) {
	if err := d.transport.Typing(chat); err != nil {
		d.log.Warn("Typing signal failed", "chat", chat, "error", err)
	}
	ticker := time.NewTicker(d.opts.TypingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.transport.Typing(chat); err != nil {
				d.log.Warn("Typing signal failed", "chat", chat, "error", err)
			}
		}
	}
}
