// Package dispatch serializes assistant work per user: every inbound
// message joins that user's FIFO queue, and a single drain goroutine
// per user renders answers one at a time while users stay fully
// concurrent with each other.
package dispatch

import (
	"chat-assist/contract"
	"chat-assist/domain"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type userQueue struct {
	items []domain.Inbound
}

// Options carries the timing knobs of the streaming render.
type Options struct {
	EditInterval  time.Duration // minimum wall-clock time between progress edits
	TypingPeriod  time.Duration // cadence of the "typing" signal
	StreamTimeout time.Duration // upper bound for one message's processing
}

// Dispatcher owns the per-user queues and drain claims.
//
// One mutex guards queues, the active-drain set and the get-or-create
// of queue entries. Goroutines are preemptive, so the claim check, the
// pop and the final empty check must share a lock: an enqueue that
// loses the claim race has already published its message under the
// same mutex, and the draining goroutine cannot miss it.
type Dispatcher struct {
	mu     sync.Mutex
	users  map[int64]*userQueue
	active map[int64]struct{}

	log       *slog.Logger
	transport contract.Transport
	streamer  contract.Streamer
	recorder  contract.Recorder
	opts      Options
}

func NewDispatcher(log *slog.Logger, transport contract.Transport,
	streamer contract.Streamer, recorder contract.Recorder, opts Options) *Dispatcher {
	if opts.EditInterval <= 0 {
		opts.EditInterval = 6 * time.Second
	}
	if opts.TypingPeriod <= 0 {
		opts.TypingPeriod = 4500 * time.Millisecond
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = 5 * time.Minute
	}
	return &Dispatcher{
		users:     make(map[int64]*userQueue),
		active:    make(map[int64]struct{}),
		log:       log,
		transport: transport,
		streamer:  streamer,
		recorder:  recorder,
		opts:      opts,
	}
}

// Enqueue appends one message to the user's queue and schedules a
// drain attempt. Scheduling while a drain is already running is safe
// and cheap: the attempt bows out at the claim check, and the running
// drain picks the message up because it re-checks the queue before
// exiting. Enqueue never blocks on processing.
func (d *Dispatcher) Enqueue(ctx context.Context, in domain.Inbound) {
	d.mu.Lock()
	q, ok := d.users[in.UserID]
	if !ok {
		q = &userQueue{}
		d.users[in.UserID] = q
	}
	q.items = append(q.items, in)
	depth := len(q.items)
	d.mu.Unlock()

	d.log.Debug("Message queued", "user", in.UserID, "depth", depth)
	go d.drain(ctx, in.UserID)
}

// drain claims the user and processes the queue strictly in arrival
// order. The claim, every pop and the final empty observation happen
// under the dispatcher lock; the queue entry is evicted together with
// the claim release so idle users do not accumulate in the registry.
func (d *Dispatcher) drain(ctx context.Context, userID int64) {
	d.mu.Lock()
	if _, busy := d.active[userID]; busy {
		d.mu.Unlock()
		return
	}
	d.active[userID] = struct{}{}
	d.mu.Unlock()

	for {
		d.mu.Lock()
		q := d.users[userID]
		if q == nil || len(q.items) == 0 {
			// Observed empty: release the claim and evict the entry in
			// the same critical section, so a racing Enqueue either saw
			// us active (and we saw its message here) or recreates the
			// entry and claims a fresh drain.
			delete(d.active, userID)
			delete(d.users, userID)
			d.mu.Unlock()
			return
		}
		in := q.items[0]
		q.items = q.items[1:]
		remaining := len(q.items)
		d.mu.Unlock()

		d.log.Info("Processing queued message", "user", userID, "remaining", remaining)
		d.safeProcess(ctx, in)
	}
}

// Answer processes one inbound immediately, outside any queue. This
// is the path for interactive button presses: they carry no ordering
// guarantee relative to the user's queued text messages.
func (d *Dispatcher) Answer(ctx context.Context, in domain.Inbound) {
	d.safeProcess(ctx, in)
}

// QueueDepth reports the number of pending messages across all users.
func (d *Dispatcher) QueueDepth() (users, pending int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range d.users {
		pending += len(q.items)
	}
	return len(d.users), pending
}

// ActiveDrains reports how many users are currently being drained.
func (d *Dispatcher) ActiveDrains() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

// safeProcess isolates one message's processing: neither an error nor
// a panic may stop the drain loop, so message N+1 is always attempted
// after message N.
func (d *Dispatcher) safeProcess(ctx context.Context, in domain.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(fmt.Sprintf("Recovered panic while processing for user %d: %v", in.UserID, r))
		}
	}()
	d.process(ctx, in)
}
