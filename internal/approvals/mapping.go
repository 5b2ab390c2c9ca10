package approvals

import (
	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/repository"
)

func scanApproval(s repository.Scanner) (Approval, error) {
	var a Approval
	var draftID uuid.NullUUID

	err := s.Scan(
		&a.ID,
		&a.MessageID,
		&draftID,
		&a.ApprovedBy,
		&a.Action,
		&a.EditedText,
		&a.Reason,
		&a.DecidedAt,
	)

	if err != nil {
		return a, err
	}

	if draftID.Valid {
		a.DraftID = &draftID.UUID
	}

	return a, nil
}
