package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalAction is the decision an admin took on a pending event.
type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "approve"
	ApprovalReject  ApprovalAction = "reject"
)

// ApprovalAudit is an append-only record of an approval decision. Rows are
// written by the approval workflow and never read back by it.
type ApprovalAudit struct {
	ID      uuid.UUID      `json:"id"`
	EventID uuid.UUID      `json:"event_id"`
	AdminID uuid.UUID      `json:"admin_id"`
	Action  ApprovalAction `json:"action"`
	At      time.Time      `json:"at"`
}
