package models

import "time"

// MessageType classifies inter-agent messages.
type MessageType string

const (
	// MessageTypeRequest asks another agent to perform an action.
	MessageTypeRequest MessageType = "request"
	// MessageTypeResponse answers a previous request.
	MessageTypeResponse MessageType = "response"
	// MessageTypeBroadcast is sent to multiple agents at once.
	MessageTypeBroadcast MessageType = "broadcast"
	// MessageTypeHealthCheck probes an agent's liveness.
	MessageTypeHealthCheck MessageType = "health_check"
	// MessageTypeError reports a failure to another agent.
	MessageTypeError MessageType = "error"
	// MessageTypeAck acknowledges receipt of a message.
	MessageTypeAck MessageType = "ack"
)

// Valid returns true if the type is a known value.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeRequest, MessageTypeResponse, MessageTypeBroadcast,
		MessageTypeHealthCheck, MessageTypeError, MessageTypeAck:
		return true
	default:
		return false
	}
}

// MessageStatus tracks a message through its delivery lifecycle:
// created → sent → delivered → processed | failed.
type MessageStatus string

const (
	// MessageStatusCreated indicates the message exists but has not been sent.
	MessageStatusCreated MessageStatus = "created"
	// MessageStatusSent indicates the broker accepted the message.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message reached the receiver queue.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusProcessed indicates the receiver consumed the message.
	MessageStatusProcessed MessageStatus = "processed"
	// MessageStatusFailed indicates the broker rejected the message.
	MessageStatusFailed MessageStatus = "failed"
	// MessageStatusExpired indicates the message aged out before consumption.
	MessageStatusExpired MessageStatus = "expired"
)

// Valid returns true if the status is a known value.
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusCreated, MessageStatusSent, MessageStatusDelivered,
		MessageStatusProcessed, MessageStatusFailed, MessageStatusExpired:
		return true
	default:
		return false
	}
}

// MessagePriority is carried on every message. The broker does not reorder
// by it; delivery per receiver is strict FIFO.
type MessagePriority int

const (
	// MessagePriorityLow is background chatter.
	MessagePriorityLow MessagePriority = 1
	// MessagePriorityMedium is the default.
	MessagePriorityMedium MessagePriority = 2
	// MessagePriorityHigh is urgent coordination traffic.
	MessagePriorityHigh MessagePriority = 3
	// MessagePriorityCritical is reserved for failure and repair signals.
	MessagePriorityCritical MessagePriority = 4
)

// String returns the priority name.
func (p MessagePriority) String() string {
	switch p {
	case MessagePriorityLow:
		return "low"
	case MessagePriorityMedium:
		return "medium"
	case MessagePriorityHigh:
		return "high"
	case MessagePriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Message is a unit of inter-agent communication. The broker owns a message
// once sent, until the receiver consumes it; a bounded history index retains
// it for lookup by ID afterwards.
type Message struct {
	// ID is the unique, time-ordered message identifier.
	ID string `json:"message_id"`
	// SenderID is the ID of the sending agent.
	SenderID string `json:"sender_id"`
	// ReceiverID is the ID of the receiving agent.
	ReceiverID string `json:"receiver_id"`
	// Type classifies the message.
	Type MessageType `json:"message_type"`
	// Payload is opaque structured data.
	Payload map[string]any `json:"payload"`
	// Priority is informational; see MessagePriority.
	Priority MessagePriority `json:"priority"`
	// TaskID links the message to a task, if any.
	TaskID string `json:"task_id,omitempty"`
	// ParentMessageID links a response to its request.
	ParentMessageID string `json:"parent_message_id,omitempty"`
	// Status is the current delivery state.
	Status MessageStatus `json:"status"`
	// CreatedAt is when the message was created.
	CreatedAt time.Time `json:"created_at"`
	// SentAt is when the broker accepted the message.
	SentAt *time.Time `json:"sent_at,omitempty"`
	// DeliveredAt is when the message reached the receiver queue.
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	// ProcessedAt is when the receiver consumed the message.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewMessage creates a message in the created state with medium priority.
func NewMessage(senderID, receiverID string, typ MessageType, payload map[string]any) *Message {
	return &Message{
		ID:         NewID("msg"),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       typ,
		Payload:    payload,
		Priority:   MessagePriorityMedium,
		Status:     MessageStatusCreated,
		CreatedAt:  time.Now(),
	}
}

// MarkSent transitions the message to sent.
func (m *Message) MarkSent() {
	now := time.Now()
	m.Status = MessageStatusSent
	m.SentAt = &now
}

// MarkDelivered transitions the message to delivered.
func (m *Message) MarkDelivered() {
	now := time.Now()
	m.Status = MessageStatusDelivered
	m.DeliveredAt = &now
}

// MarkProcessed transitions the message to processed.
func (m *Message) MarkProcessed() {
	now := time.Now()
	m.Status = MessageStatusProcessed
	m.ProcessedAt = &now
}

// MarkFailed transitions the message to failed.
func (m *Message) MarkFailed() {
	m.Status = MessageStatusFailed
}

// Expired returns true if the message is older than the given TTL.
func (m *Message) Expired(ttl time.Duration) bool {
	return time.Since(m.CreatedAt) > ttl
}

// Clone returns a copy of the message addressed to a new receiver, with a
// fresh ID and a shallow copy of the payload. Used by broadcast.
func (m *Message) Clone(receiverID string) *Message {
	payload := make(map[string]any, len(m.Payload))
	for k, v := range m.Payload {
		payload[k] = v
	}
	clone := NewMessage(m.SenderID, receiverID, m.Type, payload)
	clone.Priority = m.Priority
	clone.TaskID = m.TaskID
	return clone
}
