package constants

// JobStatus is the canonical status for rows in the jobs table.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "pending"    // eligible for the next tick
	JobStatusProcessing JobStatus = "processing" // claimed by the scheduler
	JobStatusCompleted  JobStatus = "completed"  // handler succeeded
	JobStatusFailed     JobStatus = "failed"     // terminal; only a retry reset changes it
)

// JobType selects the handler a job is dispatched to.
type JobType string

const (
	JobTypeReceipt JobType = "receipt"
	JobTypeEmail   JobType = "email" // reserved
)

// ReceiptStatus tracks the user-visible processing state of a receipt.
type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusProcessed  ReceiptStatus = "processed"
	ReceiptStatusFailed     ReceiptStatus = "failed"
)
