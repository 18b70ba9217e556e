package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrMailboxFull is returned when a conversation's queue cannot take more events.
var ErrMailboxFull = errors.New("conversation mailbox full")

// ErrMailboxClosed is returned after Close.
var ErrMailboxClosed = errors.New("mailbox closed")

// MailboxConfig tunes per-conversation queues.
type MailboxConfig struct {
	// Buffer is the number of pending events per conversation.
	Buffer int
	// IdleTimeout stops a conversation's goroutine after this long without events.
	IdleTimeout time.Duration
	// Rate and Burst throttle how fast one conversation's events are handled.
	// A zero Rate disables throttling.
	Rate  rate.Limit
	Burst int
}

// Mailbox serializes events per conversation. Each active conversation gets
// one goroutine draining its own channel, so events for the same
// conversation never run concurrently while different conversations do.
type Mailbox struct {
	ctx     context.Context
	handler Handler
	cfg     MailboxConfig
	logger  *slog.Logger

	mu     sync.Mutex
	boxes  map[string]*box
	closed bool
	wg     sync.WaitGroup
}

type box struct {
	events  chan Event
	limiter *rate.Limiter
}

// NewMailbox creates a mailbox that runs handler for every delivered event.
// Workers stop when ctx is cancelled.
func NewMailbox(ctx context.Context, handler Handler, cfg MailboxConfig, logger *slog.Logger) *Mailbox {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox{
		ctx:     ctx,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		boxes:   make(map[string]*box),
	}
}

// Deliver enqueues ev for conversationID without blocking.
func (m *Mailbox) Deliver(_ context.Context, conversationID string, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.ctx.Err() != nil {
		return ErrMailboxClosed
	}

	b, ok := m.boxes[conversationID]
	if !ok {
		b = &box{events: make(chan Event, m.cfg.Buffer)}
		if m.cfg.Rate > 0 {
			burst := m.cfg.Burst
			if burst <= 0 {
				burst = 1
			}
			b.limiter = rate.NewLimiter(m.cfg.Rate, burst)
		}
		m.boxes[conversationID] = b
		m.wg.Add(1)
		go m.run(conversationID, b)
	}

	select {
	case b.events <- ev:
		return nil
	default:
		m.logger.Warn("Conversation mailbox full, dropping event",
			"conversation_id", conversationID,
			"kind", ev.Kind.String())
		return ErrMailboxFull
	}
}

// Active returns the number of conversations with a running worker.
func (m *Mailbox) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes)
}

// Close stops accepting events and waits for workers to finish what they
// already hold.
func (m *Mailbox) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		for _, b := range m.boxes {
			close(b.events)
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Mailbox) run(conversationID string, b *box) {
	defer m.wg.Done()

	idle := time.NewTimer(m.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case ev, ok := <-b.events:
			if !ok {
				return
			}
			if b.limiter != nil {
				if err := b.limiter.Wait(m.ctx); err != nil {
					return
				}
			}
			m.handle(conversationID, ev)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.cfg.IdleTimeout)
		case <-idle.C:
			if m.retire(conversationID, b) {
				return
			}
			idle.Reset(m.cfg.IdleTimeout)
		case <-m.ctx.Done():
			return
		}
	}
}

// retire removes an idle worker unless an event raced in.
func (m *Mailbox) retire(conversationID string, b *box) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(b.events) > 0 {
		return false
	}
	if m.boxes[conversationID] == b {
		delete(m.boxes, conversationID)
	}
	return true
}

func (m *Mailbox) handle(conversationID string, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Conversation handler panicked",
				"conversation_id", conversationID,
				"panic", r)
		}
	}()
	m.handler(m.ctx, conversationID, ev)
}
