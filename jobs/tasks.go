// Package jobs hosts the asynq background worker and its task handlers.
package jobs

import "github.com/hibiken/asynq"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheSweep reclaims stale-generation decision cache entries.
	TaskCacheSweep = "authz:cache_sweep"
	// TaskAuditVerify re-checks ledger checksums for tamper evidence.
	TaskAuditVerify = "audit:verify"
)

// NewCacheSweepTask constructs a cache sweep task.
func NewCacheSweepTask() *asynq.Task {
	return asynq.NewTask(TaskCacheSweep, nil)
}

// NewAuditVerifyTask constructs a ledger verification task.
func NewAuditVerifyTask() *asynq.Task {
	return asynq.NewTask(TaskAuditVerify, nil)
}
