package messages

import (
	"net/url"

	"github.com/parleyhq/parley/pkg/query"
	"github.com/parleyhq/parley/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "messages", "m").
	Project("id", "ID").
	Project("platform", "Platform").
	Project("message_type", "MessageType").
	Project("thread_id", "ThreadID").
	Project("comment_ref", "CommentRef").
	Project("sender_id", "SenderID").
	Project("sender_username", "SenderUsername").
	Project("content", "Content").
	Project("status", "Status").
	Project("degraded", "Degraded").
	Project("attempts", "Attempts").
	Project("retry_stage", "RetryStage").
	Project("next_attempt_at", "NextAttemptAt").
	Project("received_at", "ReceivedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for message queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Status      *string `json:"status,omitempty"`
	Platform    *string `json:"platform,omitempty"`
	MessageType *string `json:"message_type,omitempty"`
	ThreadID    *string `json:"thread_id,omitempty"`
	SenderID    *string `json:"sender_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Platform", f.Platform).
		WhereEquals("MessageType", f.MessageType).
		WhereEquals("ThreadID", f.ThreadID).
		WhereEquals("SenderID", f.SenderID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if p := values.Get("platform"); p != "" {
		f.Platform = &p
	}

	if t := values.Get("message_type"); t != "" {
		f.MessageType = &t
	}

	if id := values.Get("thread_id"); id != "" {
		f.ThreadID = &id
	}

	if s := values.Get("sender_id"); s != "" {
		f.SenderID = &s
	}

	return f
}

func scanMessage(s repository.Scanner) (Message, error) {
	var m Message

	err := s.Scan(
		&m.ID,
		&m.Platform,
		&m.MessageType,
		&m.ThreadID,
		&m.CommentRef,
		&m.SenderID,
		&m.SenderUsername,
		&m.Content,
		&m.Status,
		&m.Degraded,
		&m.Attempts,
		&m.RetryStage,
		&m.NextAttemptAt,
		&m.ReceivedAt,
		&m.UpdatedAt,
	)

	return m, err
}
