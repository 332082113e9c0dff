// Package broker implements the in-memory inter-agent message bus: bounded
// per-receiver FIFO queues behind a single broker-wide mutex, with handler
// callbacks, broadcast, TTL cleanup, and a bounded history index.
package broker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sgarila/dirigent/pkg/models"
)

const (
	// DefaultMaxQueueSize is the per-receiver queue capacity.
	DefaultMaxQueueSize = 1000
	// DefaultTTL is the default message time-to-live.
	DefaultTTL = time.Hour
	// historyLimit caps the by-ID message history index.
	historyLimit = 1000
)

// Handler is a callback invoked when a message is delivered to a receiver.
// Handlers run synchronously inside Send, after the broker lock is released;
// they must not block for long, and panics are caught and logged rather than
// propagated to the sender.
type Handler func(*models.Message)

// Stats is a snapshot of broker counters and queue depths.
type Stats struct {
	// TotalSent counts messages accepted by the broker.
	TotalSent int `json:"total_messages_sent"`
	// TotalDelivered counts messages placed on a receiver queue.
	TotalDelivered int `json:"total_messages_delivered"`
	// TotalFailed counts messages rejected for a full queue.
	TotalFailed int `json:"total_messages_failed"`
	// PendingByAgent maps receiver ID to queued message count.
	PendingByAgent map[string]int `json:"pending_messages_by_agent"`
	// TotalPending is the sum of all queue depths.
	TotalPending int `json:"total_pending"`
	// HistorySize is the number of messages in the history index.
	HistorySize int `json:"message_history_size"`
}

// Broker is the central message hub. All queue mutation is serialized by a
// single mutex; messages carry a priority but delivery per receiver is
// strict FIFO (arrival order), by design.
type Broker struct {
	maxQueueSize int
	ttl          time.Duration
	logger       *zap.Logger

	mu sync.Mutex
	// queues holds undelivered messages per receiver, oldest first.
	queues map[string][]*models.Message
	// history indexes recent messages by ID.
	history map[string]*models.Message
	// historyOrder tracks insertion order for history eviction.
	historyOrder []string
	// handlers holds delivery callbacks per receiver.
	handlers map[string][]Handler

	sent      int
	delivered int
	failed    int
}

// Option configures a Broker.
type Option func(*Broker)

// WithMaxQueueSize sets the per-receiver queue capacity.
func WithMaxQueueSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.maxQueueSize = n
		}
	}
}

// WithTTL sets the default message time-to-live used by CleanupExpired.
func WithTTL(ttl time.Duration) Option {
	return func(b *Broker) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a broker with the given options.
func New(opts ...Option) *Broker {
	b := &Broker{
		maxQueueSize: DefaultMaxQueueSize,
		ttl:          DefaultTTL,
		logger:       zap.NewNop(),
		queues:       make(map[string][]*models.Message),
		history:      make(map[string]*models.Message),
		handlers:     make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send delivers a message to its receiver's queue. Returns false and marks
// the message failed when the queue is full; the message is dropped, never
// retried by the broker. On success the message is marked delivered and any
// handlers registered for the receiver are invoked synchronously.
func (b *Broker) Send(msg *models.Message) bool {
	b.mu.Lock()

	if len(b.queues[msg.ReceiverID]) >= b.maxQueueSize {
		msg.MarkFailed()
		b.failed++
		b.mu.Unlock()
		b.logger.Debug("message rejected, receiver queue full",
			zap.String("receiver", msg.ReceiverID),
			zap.String("message", msg.ID))
		return false
	}

	msg.MarkSent()
	b.queues[msg.ReceiverID] = append(b.queues[msg.ReceiverID], msg)
	b.recordLocked(msg)
	b.sent++

	msg.MarkDelivered()
	b.delivered++

	handlers := make([]Handler, len(b.handlers[msg.ReceiverID]))
	copy(handlers, b.handlers[msg.ReceiverID])
	b.mu.Unlock()

	// Handlers run outside the lock so a handler that calls back into the
	// broker cannot deadlock. Queue mutation stays fully serialized above.
	for _, h := range handlers {
		b.invoke(h, msg)
	}
	return true
}

func (b *Broker) invoke(h Handler, msg *models.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("message handler panicked",
				zap.String("receiver", msg.ReceiverID),
				zap.String("message", msg.ID),
				zap.Any("panic", r))
		}
	}()
	h(msg)
}

func (b *Broker) recordLocked(msg *models.Message) {
	b.history[msg.ID] = msg
	b.historyOrder = append(b.historyOrder, msg.ID)
	for len(b.historyOrder) > historyLimit {
		evict := b.historyOrder[0]
		b.historyOrder = b.historyOrder[1:]
		delete(b.history, evict)
	}
}

// Receive pops the oldest queued message for an agent and marks it
// processed. Returns nil when the queue is empty.
func (b *Broker) Receive(agentID string) *models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := b.queues[agentID]
	if len(queue) == 0 {
		return nil
	}
	msg := queue[0]
	b.queues[agentID] = queue[1:]
	msg.MarkProcessed()
	return msg
}

// Peek returns up to maxCount queued messages for an agent without removing
// them, oldest first.
func (b *Broker) Peek(agentID string, maxCount int) []*models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := b.queues[agentID]
	if maxCount <= 0 || maxCount > len(queue) {
		maxCount = len(queue)
	}
	out := make([]*models.Message, maxCount)
	copy(out, queue[:maxCount])
	return out
}

// QueueSize returns the number of queued messages for an agent.
func (b *Broker) QueueSize(agentID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[agentID])
}

// Get looks up a message by ID in the bounded history index.
func (b *Broker) Get(messageID string) (*models.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.history[messageID]
	return msg, ok
}

// RegisterHandler adds a delivery callback for messages to an agent.
func (b *Broker) RegisterHandler(agentID string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[agentID] = append(b.handlers[agentID], handler)
}

// Broadcast sends a per-recipient clone of the message to each agent and
// returns the number of successful sends.
func (b *Broker) Broadcast(msg *models.Message, agentIDs []string) int {
	success := 0
	for _, id := range agentIDs {
		if b.Send(msg.Clone(id)) {
			success++
		}
	}
	return success
}

// CleanupExpired removes messages older than ttl from all receiver queues
// and returns how many were removed. A non-positive ttl uses the broker
// default. Only queued (not yet received) messages are affected.
func (b *Broker) CleanupExpired(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = b.ttl
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for agentID, queue := range b.queues {
		kept := queue[:0]
		for _, msg := range queue {
			if msg.Expired(ttl) {
				msg.Status = models.MessageStatusExpired
				removed++
				continue
			}
			kept = append(kept, msg)
		}
		b.queues[agentID] = kept
	}
	if removed > 0 {
		b.logger.Debug("expired messages removed", zap.Int("count", removed))
	}
	return removed
}

// Stats returns a snapshot of broker counters and per-agent queue depths.
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make(map[string]int, len(b.queues))
	total := 0
	for agentID, queue := range b.queues {
		pending[agentID] = len(queue)
		total += len(queue)
	}
	return Stats{
		TotalSent:      b.sent,
		TotalDelivered: b.delivered,
		TotalFailed:    b.failed,
		PendingByAgent: pending,
		TotalPending:   total,
		HistorySize:    len(b.history),
	}
}
