package drafts

import (
	"encoding/json"
	"fmt"

	"github.com/parleyhq/parley/pkg/repository"
)

const draftColumns = `id, message_id, reply_text, ask_dm_question,
	suggested_products, suggested_influencers, citations, confidence,
	source, superseded_by, created_at`

const verificationColumns = `id, draft_id, verdict, issues, rewritten_text,
	reasoning, model_name, verified_at`

func scanDraft(s repository.Scanner) (Draft, error) {
	var d Draft
	var productsRaw, influencersRaw, citationsRaw []byte

	err := s.Scan(
		&d.ID,
		&d.MessageID,
		&d.ReplyText,
		&d.AskDMQuestion,
		&productsRaw,
		&influencersRaw,
		&citationsRaw,
		&d.Confidence,
		&d.Source,
		&d.SupersededBy,
		&d.CreatedAt,
	)

	if err != nil {
		return d, err
	}

	if len(productsRaw) > 0 {
		if err := json.Unmarshal(productsRaw, &d.SuggestedProducts); err != nil {
			return d, fmt.Errorf("unmarshal suggested_products: %w", err)
		}
	}
	if len(influencersRaw) > 0 {
		if err := json.Unmarshal(influencersRaw, &d.SuggestedInfluencers); err != nil {
			return d, fmt.Errorf("unmarshal suggested_influencers: %w", err)
		}
	}
	if len(citationsRaw) > 0 {
		if err := json.Unmarshal(citationsRaw, &d.Citations); err != nil {
			return d, fmt.Errorf("unmarshal citations: %w", err)
		}
	}

	if d.SuggestedProducts == nil {
		d.SuggestedProducts = []Product{}
	}
	if d.SuggestedInfluencers == nil {
		d.SuggestedInfluencers = []string{}
	}
	if d.Citations == nil {
		d.Citations = []Citation{}
	}

	return d, nil
}

func scanVerification(s repository.Scanner) (Verification, error) {
	var v Verification
	var issuesRaw []byte

	err := s.Scan(
		&v.ID,
		&v.DraftID,
		&v.Verdict,
		&issuesRaw,
		&v.RewrittenText,
		&v.Reasoning,
		&v.ModelName,
		&v.VerifiedAt,
	)

	if err != nil {
		return v, err
	}

	if len(issuesRaw) > 0 {
		if err := json.Unmarshal(issuesRaw, &v.Issues); err != nil {
			return v, fmt.Errorf("unmarshal issues: %w", err)
		}
	}

	if v.Issues == nil {
		v.Issues = []Issue{}
	}

	return v, nil
}
