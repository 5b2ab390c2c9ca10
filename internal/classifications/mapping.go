package classifications

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/query"
	"github.com/parleyhq/parley/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "classifications", "c").
	Project("id", "ID").
	Project("message_id", "MessageID").
	Project("attempt", "Attempt").
	Project("intent", "Intent").
	Project("intent_confidence", "IntentConfidence").
	Project("risk_flags", "RiskFlags").
	Project("risk_level", "RiskLevel").
	Project("language", "Language").
	Project("should_dm", "ShouldDM").
	Project("should_escalate", "ShouldEscalate").
	Project("reasoning", "Reasoning").
	Project("model_name", "ModelName").
	Project("classified_at", "ClassifiedAt")

var defaultSort = query.SortField{
	Field:      "ClassifiedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for classification queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Intent    *string    `json:"intent,omitempty"`
	RiskLevel *string    `json:"risk_level,omitempty"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Intent", f.Intent).
		WhereEquals("RiskLevel", f.RiskLevel).
		WhereEquals("MessageID", f.MessageID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if i := values.Get("intent"); i != "" {
		f.Intent = &i
	}

	if r := values.Get("risk_level"); r != "" {
		f.RiskLevel = &r
	}

	if m := values.Get("message_id"); m != "" {
		if id, err := uuid.Parse(m); err == nil {
			f.MessageID = &id
		}
	}

	return f
}

func scanClassification(s repository.Scanner) (Classification, error) {
	var c Classification
	var flagsRaw []byte

	err := s.Scan(
		&c.ID,
		&c.MessageID,
		&c.Attempt,
		&c.Intent,
		&c.IntentConfidence,
		&flagsRaw,
		&c.RiskLevel,
		&c.Language,
		&c.ShouldDM,
		&c.ShouldEscalate,
		&c.Reasoning,
		&c.ModelName,
		&c.ClassifiedAt,
	)

	if err != nil {
		return c, err
	}

	if len(flagsRaw) > 0 {
		if err := json.Unmarshal(flagsRaw, &c.RiskFlags); err != nil {
			return c, fmt.Errorf("unmarshal risk_flags: %w", err)
		}
	}

	if c.RiskFlags == nil {
		c.RiskFlags = []string{}
	}

	return c, nil
}
