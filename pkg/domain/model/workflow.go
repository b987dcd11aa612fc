package model

import "time"

type WorkflowStatus string

const (
	WorkflowStatusQueued     WorkflowStatus = "queued"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
)

type WorkflowConclusion string

const (
	WorkflowConclusionSuccess   WorkflowConclusion = "success"
	WorkflowConclusionFailure   WorkflowConclusion = "failure"
	WorkflowConclusionCancelled WorkflowConclusion = "cancelled"
	WorkflowConclusionSkipped   WorkflowConclusion = "skipped"
	WorkflowConclusionTimedOut  WorkflowConclusion = "timed_out"
)

// WorkflowRun is the upstream build run whose completion triggered us.
type WorkflowRun struct {
	ID           int64
	WorkflowID   int64
	Name         string
	Event        string // triggering event type, e.g. "pull_request"
	Status       WorkflowStatus
	Conclusion   WorkflowConclusion
	HeadSHA      string
	URL          string
	PullRequests []int // PR numbers reported by the API; empty for forks
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsPullRequestEvent reports whether the run was triggered by a pull request.
func (r *WorkflowRun) IsPullRequestEvent() bool {
	return r.Event == "pull_request" || r.Event == "pull_request_target"
}

// Succeeded reports whether the run completed successfully.
func (r *WorkflowRun) Succeeded() bool {
	return r.Status == WorkflowStatusCompleted && r.Conclusion == WorkflowConclusionSuccess
}
