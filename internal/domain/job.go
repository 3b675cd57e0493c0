package domain

import "time"

// JobStatus tracks a sync job through the scheduler state machine.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobRetrying  JobStatus = "retrying"
)

// PublicationResult summarizes one publication's share of a sync pass.
type PublicationResult struct {
	PublicationID   string
	Publication     string
	Success         bool
	IssuesProcessed int
	ArticlesCreated int
	ArticlesUpdated int
	ArticlesSkipped int
	ArticlesFailed  int
	Messages        []string
	Error           string
}

// SyncSummary aggregates the per-publication results of one pass.
// Success means at least one publication succeeded.
type SyncSummary struct {
	Publications []PublicationResult
	Success      bool
}

// SyncJob is owned exclusively by the scheduler and kept in a bounded
// in-memory history; it is never persisted.
type SyncJob struct {
	ID          string
	Trigger     string // "interval" or "manual"
	ScheduledAt time.Time
	ExecutedAt  time.Time
	CompletedAt time.Time
	Status      JobStatus
	RetryCount  int
	Results     *SyncSummary
	Error       string
}
