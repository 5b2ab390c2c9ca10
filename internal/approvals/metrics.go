package approvals

import (
	"context"
	"fmt"
)

// IntentCount is one entry in the top-intents breakdown.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

// Metrics summarizes pipeline and decision quality over a trailing window.
// Decision rates are fractions of recorded human decisions; the autopilot
// rate is the fraction of sent messages that never waited on a human.
type Metrics struct {
	WindowDays    int     `json:"window_days"`
	TotalMessages int     `json:"total_messages"`
	TotalSent     int     `json:"total_sent"`
	TotalPending  int     `json:"total_pending"`
	TotalBlocked  int     `json:"total_blocked"`
	Decisions     int     `json:"decisions"`
	ApprovalRate  float64 `json:"approval_rate"`
	EditRate      float64 `json:"edit_rate"`
	EscalateRate  float64 `json:"escalate_rate"`
	AutopilotRate float64 `json:"autopilot_rate"`
	AvgConfidence float64 `json:"avg_confidence"`

	TopIntents       []IntentCount  `json:"top_intents"`
	RiskDistribution map[string]int `json:"risk_distribution"`
}

func (r *repo) Metrics(ctx context.Context, days int) (*Metrics, error) {
	if days <= 0 {
		days = 7
	}

	m := &Metrics{
		WindowDays:       days,
		TopIntents:       []IntentCount{},
		RiskDistribution: map[string]int{},
	}

	if err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status IN ('awaiting_approval', 'blocked')),
			COUNT(*) FILTER (WHERE status = 'blocked')
		FROM messages
		WHERE received_at >= NOW() - $1 * INTERVAL '1 day'`,
		days,
	).Scan(&m.TotalMessages, &m.TotalSent, &m.TotalPending, &m.TotalBlocked); err != nil {
		return nil, fmt.Errorf("aggregate messages: %w", err)
	}

	var approvals, edits, escalations int
	if err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE action = 'approve'),
			COUNT(*) FILTER (WHERE action = 'edit'),
			COUNT(*) FILTER (WHERE action = 'escalate')
		FROM approvals
		WHERE decided_at >= NOW() - $1 * INTERVAL '1 day'`,
		days,
	).Scan(&approvals, &edits, &escalations); err != nil {
		return nil, fmt.Errorf("aggregate decisions: %w", err)
	}

	m.Decisions = approvals + edits + escalations
	if m.Decisions > 0 {
		total := float64(m.Decisions)
		m.ApprovalRate = float64(approvals) / total
		m.EditRate = float64(edits) / total
		m.EscalateRate = float64(escalations) / total
	}

	// A sent message with no ledger entry went out on autopilot.
	var autopilot int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages msg
		WHERE msg.status = 'sent'
		  AND msg.received_at >= NOW() - $1 * INTERVAL '1 day'
		  AND NOT EXISTS (SELECT 1 FROM approvals a WHERE a.message_id = msg.id)`,
		days,
	).Scan(&autopilot); err != nil {
		return nil, fmt.Errorf("aggregate autopilot: %w", err)
	}
	if m.TotalSent > 0 {
		m.AutopilotRate = float64(autopilot) / float64(m.TotalSent)
	}

	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(intent_confidence), 0)
		FROM classifications
		WHERE classified_at >= NOW() - $1 * INTERVAL '1 day'`,
		days,
	).Scan(&m.AvgConfidence); err != nil {
		return nil, fmt.Errorf("aggregate confidence: %w", err)
	}

	intents, err := r.db.QueryContext(ctx, `
		SELECT intent, COUNT(*) AS total
		FROM classifications
		WHERE classified_at >= NOW() - $1 * INTERVAL '1 day'
		GROUP BY intent
		ORDER BY total DESC
		LIMIT 5`,
		days,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate intents: %w", err)
	}
	defer intents.Close()

	for intents.Next() {
		var ic IntentCount
		if err := intents.Scan(&ic.Intent, &ic.Count); err != nil {
			return nil, err
		}
		m.TopIntents = append(m.TopIntents, ic)
	}
	if err := intents.Err(); err != nil {
		return nil, err
	}

	risks, err := r.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*)
		FROM classifications
		WHERE classified_at >= NOW() - $1 * INTERVAL '1 day'
		GROUP BY risk_level`,
		days,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate risk: %w", err)
	}
	defer risks.Close()

	for risks.Next() {
		var level string
		var count int
		if err := risks.Scan(&level, &count); err != nil {
			return nil, err
		}
		m.RiskDistribution[level] = count
	}
	if err := risks.Err(); err != nil {
		return nil, err
	}

	return m, nil
}
