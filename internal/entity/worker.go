package entity

import (
	"time"

	"github.com/pageharvest/pageharvest/constants"
)

// Worker represents a worker row for data transfer between layers.
type Worker struct {
	ID                string                 `json:"id"`
	Status            constants.WorkerStatus `json:"status"`
	LastHeartbeatTick int                    `json:"last_heartbeat_tick"`
	RegisteredAt      time.Time              `json:"registered_at"`
}
