package entities

import "time"

// JobStatus is the job queue's own state machine:
// pending <-> processing -> {completed, failed}, with the reaper
// driving the processing -> pending edge on lease expiry.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// DefaultMaxAttempts is the default retry budget before a job is
// marked terminally failed (spec.md §3).
const DefaultMaxAttempts = 5

// Job is one durable unit of work: one provider delivery, claimed by
// exactly one worker at a time.
type Job struct {
	ID           string
	EventID      EventID
	ObjectID     ExternalID
	EventType    string
	ProviderTS   int64
	RawEvent     []byte
	Status       JobStatus
	Attempts     int
	MaxAttempts  int
	LastError    string
	ScheduledAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Backoff returns the delay before a job with n already-counted
// attempts may be retried: backoff(n) = 2^n seconds, per spec.md §4.3.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 30 {
		attempts = 30 // guard against overflow; 2^30s is already ~34 years
	}
	return (1 << uint(attempts)) * time.Second
}
