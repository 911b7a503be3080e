package ingress

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/config"
	"github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/logger"
)

// Sink is the conversation an event is delivered to. *orchestrator.Orchestrator
// satisfies it.
type Sink interface {
	ProcessUserInput(ctx context.Context, input string)
	HandleConfirmation(ctx context.Context, id string, decision chat.ConfirmationStatus, modifiedInput string)
}

type RuntimeConfig struct {
	QueueSize     int
	SubmitTimeout time.Duration
	DrainTimeout  time.Duration
}

// RuntimeConfigFrom converts the ingress section of the config file.
func RuntimeConfigFrom(cfg config.IngressConfig) (RuntimeConfig, error) {
	submit, err := cfg.SubmitTimeoutDuration()
	if err != nil {
		return RuntimeConfig{}, errors.Wrap(err, "invalid ingress config")
	}
	drain, err := cfg.DrainTimeoutDuration()
	if err != nil {
		return RuntimeConfig{}, errors.Wrap(err, "invalid ingress config")
	}
	return RuntimeConfig{QueueSize: cfg.QueueSize, SubmitTimeout: submit, DrainTimeout: drain}, nil
}

func (c RuntimeConfig) withDefaults() RuntimeConfig {
	var defaults config.IngressConfig
	if c.QueueSize <= 0 {
		c.QueueSize = config.DefaultIngressQueueSize
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout, _ = defaults.SubmitTimeoutDuration()
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout, _ = defaults.DrainTimeoutDuration()
	}
	return c
}

type job struct {
	evt  Event
	done chan struct{}
}

// Ticket tracks a submitted event until its sink call returns.
type Ticket struct {
	ID   string
	done <-chan struct{}
}

// Wait blocks until the event has been processed or ctx ends.
func (t Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type lane struct {
	sink  Sink
	queue chan job
}

// Queue runs events one at a time per session. Different sessions proceed
// independently.
type Queue struct {
	cfg RuntimeConfig

	mu     sync.RWMutex
	lanes  map[string]*lane
	closed bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(cfg RuntimeConfig) *Queue {
	base, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:    cfg.withDefaults(),
		lanes:  make(map[string]*lane),
		base:   base,
		cancel: cancel,
	}
}

// Attach binds a session to its sink and starts the session's worker.
func (q *Queue) Attach(sessionID string, sink Sink) error {
	if sessionID == "" || sink == nil {
		return errors.InvalidInput("session id and sink are required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.Internal("queue closed")
	}
	if _, exists := q.lanes[sessionID]; exists {
		return errors.InvalidInput("session already attached: " + sessionID)
	}

	l := &lane{sink: sink, queue: make(chan job, q.cfg.QueueSize)}
	q.lanes[sessionID] = l
	q.wg.Add(1)
	go q.work(sessionID, l)
	slog.Debug("Session attached", "session", sessionID)
	return nil
}

// Submit enqueues evt on its session's lane. A full lane is retried until
// the submit timeout, then the event is rejected as transient.
func (q *Queue) Submit(ctx context.Context, evt Event) (Ticket, error) {
	if evt.ID == "" {
		return Ticket{}, errors.InvalidInput("event id is empty")
	}

	// Held across the send so Close cannot close the lane underneath us.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return Ticket{}, errors.Internal("queue closed")
	}
	l, ok := q.lanes[evt.SessionID]
	if !ok {
		return Ticket{}, errors.NotFound("unknown session: " + evt.SessionID)
	}

	j := job{evt: evt, done: make(chan struct{})}
	timer := time.NewTimer(q.cfg.SubmitTimeout)
	defer timer.Stop()

	select {
	case l.queue <- j:
		slog.Debug("Event queued", "id", evt.ID, "type", evt.Type, "session", evt.SessionID)
		return Ticket{ID: evt.ID, done: j.done}, nil
	case <-timer.C:
		slog.Warn("Session queue full, rejecting event", "id", evt.ID, "session", evt.SessionID)
		return Ticket{}, errors.Transient("session queue full")
	case <-ctx.Done():
		return Ticket{}, ctx.Err()
	}
}

func (q *Queue) work(sessionID string, l *lane) {
	defer q.wg.Done()
	for j := range l.queue {
		q.dispatch(l.sink, j)
	}
	slog.Debug("Session worker stopped", "session", sessionID)
}

func (q *Queue) dispatch(sink Sink, j job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered", "event", j.evt.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx := logger.WithSessionID(q.base, j.evt.SessionID)
	ctx = logger.WithTraceID(ctx, j.evt.ID)

	switch j.evt.Type {
	case TypeUserInput:
		sink.ProcessUserInput(ctx, j.evt.Content)
	case TypeDecision:
		sink.HandleConfirmation(ctx, j.evt.ConfirmationID, j.evt.Decision, j.evt.ModifiedInput)
	default:
		slog.Warn("Dropping event of unknown type", append(logger.Attrs(ctx), "type", j.evt.Type)...)
	}
}

// Close stops accepting events and lets queued ones finish. Work still
// running after the drain timeout sees its context cancelled.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	remaining := 0
	for _, l := range q.lanes {
		remaining += len(l.queue)
		close(l.queue)
	}
	q.mu.Unlock()

	slog.Info("Ingress shutting down, draining queues", "remaining", remaining)

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		slog.Info("Ingress shutdown complete")
	case <-time.After(q.cfg.DrainTimeout):
		slog.Warn("Queue drain incomplete, cancelling in-flight work")
		q.cancel()
		<-drained
	}
	q.cancel()
	return nil
}

// Health reports a transient error when any lane is nearly full.
func (q *Queue) Health(ctx context.Context) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errors.Internal("queue closed")
	}
	for session, l := range q.lanes {
		usage := float64(len(l.queue)) / float64(cap(l.queue))
		slog.Debug("Ingress lane usage", "session", session, "len", len(l.queue), "cap", cap(l.queue), "usage", usage)
		if usage > 0.9 {
			return errors.Transient("session queue nearly full: " + session)
		}
	}
	return nil
}
