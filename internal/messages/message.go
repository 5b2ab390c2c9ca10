// Package messages implements the message store for Parley.
// It provides types, data access, and state transition logic for inbound
// social messages as they move through the moderation workflow.
package messages

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a message in the workflow state machine.
type Status string

const (
	StatusReceived         Status = "received"
	StatusClassifying      Status = "classifying"
	StatusDrafting         Status = "drafting"
	StatusVerifying        Status = "verifying"
	StatusDispatching      Status = "dispatching"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusBlocked          Status = "blocked"
	StatusRetryPending     Status = "retry_pending"
	StatusSent             Status = "sent"
	StatusResolved         Status = "resolved"
)

// Terminal reports whether the status is an end state requiring no further processing.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusResolved
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusClassifying, StatusDrafting, StatusVerifying,
		StatusDispatching, StatusAwaitingApproval, StatusBlocked,
		StatusRetryPending, StatusSent, StatusResolved:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusReceived:         {StatusClassifying},
	StatusClassifying:      {StatusDrafting, StatusRetryPending, StatusAwaitingApproval},
	StatusDrafting:         {StatusVerifying, StatusRetryPending, StatusBlocked, StatusAwaitingApproval},
	StatusVerifying:        {StatusDispatching, StatusAwaitingApproval, StatusBlocked, StatusRetryPending},
	StatusDispatching:      {StatusSent, StatusAwaitingApproval, StatusRetryPending},
	StatusAwaitingApproval: {StatusDispatching, StatusResolved},
	StatusBlocked:          {StatusDispatching, StatusResolved},
	StatusRetryPending:     {StatusClassifying, StatusDrafting, StatusVerifying, StatusDispatching, StatusAwaitingApproval},
}

// CanTransition reports whether the state machine permits moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// MessageType identifies the kind of inbound communication.
type MessageType string

const (
	TypeDM      MessageType = "dm"
	TypeComment MessageType = "comment"
	TypeReply   MessageType = "reply"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t == TypeDM || t == TypeComment || t == TypeReply
}

// Message represents an inbound DM or comment and its processing state.
// Content and sender fields are immutable once classification begins;
// only Status, Degraded, Attempts, and RetryStage change after that.
type Message struct {
	ID             uuid.UUID   `json:"id"`
	Platform       string      `json:"platform"`
	MessageType    MessageType `json:"message_type"`
	ThreadID       *string     `json:"thread_id"`
	CommentRef     *string     `json:"comment_ref"`
	SenderID       string      `json:"sender_id"`
	SenderUsername *string     `json:"sender_username"`
	Content        string      `json:"content"`
	Status         Status      `json:"status"`
	Degraded       bool        `json:"degraded"`
	Attempts       int         `json:"attempts"`
	RetryStage     *string     `json:"retry_stage"`
	NextAttemptAt  *time.Time  `json:"next_attempt_at"`
	ReceivedAt     time.Time   `json:"received_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// PendingApproval reports whether the message is waiting on a human decision.
func (m *Message) PendingApproval() bool {
	return m.Status == StatusAwaitingApproval || m.Status == StatusBlocked
}

// SubmitCommand carries the data needed to register an inbound message.
type SubmitCommand struct {
	Platform       string      `json:"platform"`
	MessageType    MessageType `json:"message_type"`
	ThreadID       *string     `json:"thread_id"`
	CommentRef     *string     `json:"comment_ref"`
	SenderID       string      `json:"sender_id"`
	SenderUsername *string     `json:"sender_username"`
	Content        string      `json:"content"`
}

// InboxEntry is the inbox projection: a message summary with its pending-approval flag.
type InboxEntry struct {
	Message
	RequiresAttention bool `json:"requires_attention"`
}
