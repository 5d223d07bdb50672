package constants

// JobStatus is the lifecycle status of a queued document in the watch worker.
type JobStatus string

// Stable values (store these exact strings).
const (
	JobStatusQueued      JobStatus = "QUEUED"
	JobStatusRunning     JobStatus = "RUNNING"
	JobStatusExtracted   JobStatus = "EXTRACTED"    // extraction succeeded
	JobStatusNeedsReview JobStatus = "NEEDS_REVIEW" // extraction succeeded below the review threshold
	JobStatusFailed      JobStatus = "FAILED"       // every engine failed
)
