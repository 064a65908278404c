package models

import "time"

// TaskStatus is the lifecycle state of a task.
//
//	pending --submit--> submitted --approve--> approved (terminal)
//	                              --reject--> rejected --submit--> submitted
//
// in_progress is part of the persisted enum but no transition in the
// current workflow produces it; it is reserved for future use.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusApproved   TaskStatus = "approved"
	TaskStatusRejected   TaskStatus = "rejected"
)

// Valid reports whether the status is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusSubmitted, TaskStatusApproved, TaskStatusRejected:
		return true
	}
	return false
}

// ReviewStatus tracks whether a mentor has reviewed the latest submission.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusReviewed ReviewStatus = "reviewed"
)

// TaskPriority ranks task urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether the priority is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is one unit of work assigned by a mentor to an intern within a
// program. Score is only meaningful once ReviewStatus is reviewed.
type Task struct {
	ID             string       `db:"id" json:"id"`
	Title          string       `db:"title" json:"title"`
	Description    string       `db:"description" json:"description,omitempty"`
	ProgramID      string       `db:"program_id" json:"program_id"`
	MentorID       string       `db:"mentor_id" json:"mentor_id"`
	AssignedIntern string       `db:"assigned_intern" json:"assigned_intern"`
	Priority       TaskPriority `db:"priority" json:"priority"`
	Status         TaskStatus   `db:"status" json:"status"`
	ReviewStatus   ReviewStatus `db:"review_status" json:"review_status"`
	Deadline       time.Time    `db:"deadline" json:"deadline"`
	AssignedAt     time.Time    `db:"assigned_at" json:"assigned_at"`
	SubmittedAt    *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt     *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	SubmissionText *string      `db:"submission_text" json:"submission_text,omitempty"`
	SubmissionLink *string      `db:"submission_link" json:"submission_link,omitempty"`
	SubmissionFile *string      `db:"submission_file" json:"submission_file,omitempty"`
	Score          *float64     `db:"score" json:"score,omitempty"`
	Feedback       *string      `db:"feedback" json:"feedback,omitempty"`
	IsLate         bool         `db:"is_late" json:"is_late"`
	Attempts       int          `db:"attempts" json:"attempts"`
	Version        int          `db:"version" json:"-"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// TaskDetail enriches a Task with program and participant names.
type TaskDetail struct {
	Task
	ProgramTitle string `db:"program_title" json:"program_title"`
	InternName   string `db:"intern_name" json:"intern_name"`
	MentorName   string `db:"mentor_name" json:"mentor_name"`
}

// TaskFilter provides filters for listing tasks.
type TaskFilter struct {
	ProgramID  string
	MentorID   string
	InternID   string
	Status     TaskStatus
	ProgramIDs []string
	Page       int
	PageSize   int
}

// MentorTaskStats summarises a mentor's task portfolio.
type MentorTaskStats struct {
	TotalTasks      int `json:"total_tasks"`
	PendingReviews  int `json:"pending_reviews"`
	ApprovedTasks   int `json:"approved_tasks"`
	RejectedTasks   int `json:"rejected_tasks"`
	LateSubmissions int `json:"late_submissions"`
}
