package models

// Grade is the letter grade derived from completion percentage.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeFail  Grade = "Fail"
)

// GradeFor maps a completion percentage onto the letter scale.
// Thresholds are inclusive lower bounds, evaluated highest-first.
func GradeFor(completionPercentage float64) Grade {
	switch {
	case completionPercentage >= 85:
		return GradeAPlus
	case completionPercentage >= 70:
		return GradeA
	case completionPercentage >= 55:
		return GradeB
	case completionPercentage >= 40:
		return GradeC
	default:
		return GradeFail
	}
}

// PerformanceSnapshot is the derived aggregate of a task set. It is never
// persisted; it is always recomputed from current task state so it cannot
// go stale.
//
// Grade intentionally follows CompletionPercentage (approved / total), not
// AverageScore: ten approved low-scoring tasks outrank one perfect task.
type PerformanceSnapshot struct {
	TotalTasks           int     `json:"total_tasks"`
	ApprovedTasks        int     `json:"approved_tasks"`
	RejectedTasks        int     `json:"rejected_tasks"`
	SubmittedTasks       int     `json:"submitted_tasks"`
	PendingTasks         int     `json:"pending_tasks"`
	LateSubmissions      int     `json:"late_submissions"`
	TotalAttempts        int     `json:"total_attempts"`
	AverageScore         float64 `json:"average_score"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Grade                Grade   `json:"grade"`
}

// InternPerformance pairs a snapshot with program context for the intern
// performance endpoint.
type InternPerformance struct {
	ProgramID     string              `json:"program_id"`
	ProgramTitle  string              `json:"program_title"`
	ProgramDomain ProgramDomain       `json:"program_domain"`
	Performance   PerformanceSnapshot `json:"performance"`
}

// MentorReportRow is one intern's aggregate within a mentor's roster report.
type MentorReportRow struct {
	InternID    string              `json:"intern_id"`
	InternName  string              `json:"intern_name"`
	InternEmail string              `json:"intern_email"`
	Performance PerformanceSnapshot `json:"performance"`
}

// CertificateEligibility is the outcome of the certificate gate.
type CertificateEligibility struct {
	Eligible             bool    `json:"eligible"`
	Grade                Grade   `json:"grade"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Reason               string  `json:"reason"`
}
