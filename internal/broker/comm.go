package broker

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sgarila/dirigent/pkg/models"
)

// localHistoryLimit caps each handle's sent and received records.
const localHistoryLimit = 256

// CommStatus is a snapshot of a communication handle.
type CommStatus struct {
	AgentID          string `json:"agent_id"`
	MessagesSent     int    `json:"messages_sent"`
	MessagesReceived int    `json:"messages_received"`
	PendingMessages  int    `json:"pending_messages"`
}

// Comm is an agent's view of the broker: a convenience handle that stamps
// the agent's ID on outgoing messages, keeps bounded local send/receive
// records, and dispatches incoming messages to typed handlers.
type Comm struct {
	agentID string
	broker  *Broker
	logger  *zap.Logger

	mu       sync.Mutex
	sent     []*models.Message
	received []*models.Message
	handlers map[models.MessageType][]Handler
}

// NewComm creates a communication handle for an agent.
func NewComm(agentID string, b *Broker, logger *zap.Logger) *Comm {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comm{
		agentID:  agentID,
		broker:   b,
		logger:   logger,
		handlers: make(map[models.MessageType][]Handler),
	}
}

// AgentID returns the owning agent's ID.
func (c *Comm) AgentID() string { return c.agentID }

// SendRequest sends a request message carrying an action name and data
// payload. Returns the message ID, or empty string when the broker rejected
// the message.
func (c *Comm) SendRequest(receiverID, action string, data map[string]any, priority models.MessagePriority) string {
	msg := models.NewMessage(c.agentID, receiverID, models.MessageTypeRequest, map[string]any{
		"action": action,
		"data":   data,
	})
	msg.Priority = priority
	return c.send(msg)
}

// SendResponse sends a response message referencing the request it answers
// via parentMessageID. Returns the message ID, or empty string on rejection.
func (c *Comm) SendResponse(receiverID string, result any, parentMessageID string) string {
	msg := models.NewMessage(c.agentID, receiverID, models.MessageTypeResponse, map[string]any{
		"result": result,
	})
	msg.ParentMessageID = parentMessageID
	return c.send(msg)
}

func (c *Comm) send(msg *models.Message) string {
	if !c.broker.Send(msg) {
		c.logger.Warn("message rejected by broker",
			zap.String("sender", c.agentID),
			zap.String("receiver", msg.ReceiverID))
		return ""
	}
	c.mu.Lock()
	c.sent = appendBounded(c.sent, msg)
	c.mu.Unlock()
	return msg.ID
}

// Receive pops the oldest pending message for this agent, recording it
// locally. Returns nil when nothing is pending.
func (c *Comm) Receive() *models.Message {
	msg := c.broker.Receive(c.agentID)
	if msg == nil {
		return nil
	}
	c.mu.Lock()
	c.received = appendBounded(c.received, msg)
	c.mu.Unlock()
	return msg
}

// Peek returns up to maxCount pending messages without consuming them.
func (c *Comm) Peek(maxCount int) []*models.Message {
	return c.broker.Peek(c.agentID, maxCount)
}

// PendingCount returns the number of messages waiting for this agent.
func (c *Comm) PendingCount() int {
	return c.broker.QueueSize(c.agentID)
}

// RegisterHandler adds a handler for a message type, used by HandleIncoming.
func (c *Comm) RegisterHandler(typ models.MessageType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[typ] = append(c.handlers[typ], handler)
}

// HandleIncoming drains the agent's queue, dispatching each message to the
// handlers registered for its type, and returns how many were processed.
// Handler panics are caught and logged; the drain continues.
func (c *Comm) HandleIncoming() int {
	processed := 0
	for {
		msg := c.Receive()
		if msg == nil {
			return processed
		}
		processed++

		c.mu.Lock()
		handlers := make([]Handler, len(c.handlers[msg.Type]))
		copy(handlers, c.handlers[msg.Type])
		c.mu.Unlock()

		if len(handlers) == 0 {
			c.logger.Debug("no handler for message type",
				zap.String("agent", c.agentID),
				zap.String("type", string(msg.Type)))
			continue
		}
		for _, h := range handlers {
			c.dispatch(h, msg)
		}
	}
}

func (c *Comm) dispatch(h Handler, msg *models.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("incoming message handler panicked",
				zap.String("agent", c.agentID),
				zap.String("message", msg.ID),
				zap.Any("panic", r))
		}
	}()
	h(msg)
}

// Status reports the handle's send/receive counters and pending depth.
func (c *Comm) Status() CommStatus {
	c.mu.Lock()
	sent, received := len(c.sent), len(c.received)
	c.mu.Unlock()
	return CommStatus{
		AgentID:          c.agentID,
		MessagesSent:     sent,
		MessagesReceived: received,
		PendingMessages:  c.broker.QueueSize(c.agentID),
	}
}

func appendBounded(msgs []*models.Message, msg *models.Message) []*models.Message {
	msgs = append(msgs, msg)
	if len(msgs) > localHistoryLimit {
		msgs = msgs[len(msgs)-localHistoryLimit:]
	}
	return msgs
}
