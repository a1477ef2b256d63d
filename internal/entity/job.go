package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/pageharvest/pageharvest/constants"
)

// Job represents an extraction job for data transfer between layers.
// Pages is the decoded payload: an ordered list of page references.
type Job struct {
	ID         uuid.UUID           `json:"id"`
	Status     constants.JobStatus `json:"status"`
	Pages      []string            `json:"pages"`
	ResultText *string             `json:"result_text,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
