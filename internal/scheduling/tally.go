package scheduling

import (
	"slices"
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// ApproveResult describes the effect of one approve call.
type ApproveResult struct {
	Approval model.Approval
	// Confirmed is true only when this call moved ConfirmedTime from unset to set.
	Confirmed bool
}

// Approve records approverID's vote for the instant at.
//
// The instant does not need to be on the proposal ledger. Re-approving is a
// no-op. Only the instant just voted on is checked against the threshold, and
// an already confirmed meeting keeps its ConfirmedTime.
func Approve(m *model.Meeting, approverID string, at time.Time) (ApproveResult, error) {
	if !m.IsParticipant(approverID) {
		return ApproveResult{}, ErrNotParticipant
	}

	at = NormalizeInstant(at)

	approval := m.FindApproval(at)
	if approval == nil {
		m.Approvals = append(m.Approvals, model.Approval{
			Time:       at,
			ApprovedBy: []string{approverID},
		})
		approval = &m.Approvals[len(m.Approvals)-1]
	} else if !approval.HasApproved(approverID) {
		approval.ApprovedBy = append(approval.ApprovedBy, approverID)
	}

	var res ApproveResult
	if len(approval.ApprovedBy) >= m.RequiredApprovals() && m.ConfirmedTime == nil {
		confirmed := at
		m.ConfirmedTime = &confirmed
		res.Confirmed = true
	}

	res.Approval = model.Approval{
		Time:       approval.Time,
		ApprovedBy: slices.Clone(approval.ApprovedBy),
	}
	return res, nil
}
