package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/pageharvest/pageharvest/constants"
)

// Lease binds one worker to one job while work is outstanding.
// Leases are an audit trail and are never deleted.
type Lease struct {
	ID             uuid.UUID                  `json:"id"`
	WorkerID       string                     `json:"worker_id"`
	JobID          uuid.UUID                  `json:"job_id"`
	Progress       constants.LeaseProgress    `json:"progress_status"`
	WorkerLiveness constants.LivenessSnapshot `json:"worker_liveness"`
	CreatedAt      time.Time                  `json:"created_at"`
	FinishedAt     *time.Time                 `json:"finished_at,omitempty"`
}
