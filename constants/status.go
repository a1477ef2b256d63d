package constants

// WorkerStatus is the canonical status for rows in workers.
type WorkerStatus string

// Stable values (store these exact strings in DB).
const (
	WorkerIdle    WorkerStatus = "IDLE"    // registered, waiting for a lease
	WorkerBusy    WorkerStatus = "BUSY"    // holds exactly one pending lease
	WorkerOffline WorkerStatus = "OFFLINE" // terminal; a restarted process registers a new id
)

// JobStatus is the canonical status for rows in jobs.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"     // waiting for an idle worker
	JobInProgress JobStatus = "IN_PROGRESS" // leased to a worker
	JobDone       JobStatus = "DONE"        // finished; partial page failures still count as done
	JobFailed     JobStatus = "FAILED"      // terminal; every page failed or yielded nothing
)

// LeaseProgress tracks how far a worker got with its leased job.
type LeaseProgress string

const (
	LeasePending LeaseProgress = "PENDING"
	LeaseDone    LeaseProgress = "DONE"
)

// LivenessSnapshot is the denormalized worker-liveness marker on a lease.
// workers.status is authoritative; this is a convenience for audits.
type LivenessSnapshot string

const (
	LivenessOnline  LivenessSnapshot = "online"
	LivenessOffline LivenessSnapshot = "offline"
)
