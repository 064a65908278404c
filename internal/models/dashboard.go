package models

// MentorDashboard summarises a mentor's programs, roster and review queue.
type MentorDashboard struct {
	TotalPrograms  int `json:"total_programs"`
	ActivePrograms int `json:"active_programs"`
	TotalInterns   int `json:"total_interns"`
	TotalTasks     int `json:"total_tasks"`
	PendingReviews int `json:"pending_reviews"`
	ApprovedTasks  int `json:"approved_tasks"`
	RejectedTasks  int `json:"rejected_tasks"`

	RecentPrograms []Program    `json:"recent_programs"`
	RecentTasks    []TaskDetail `json:"recent_tasks"`
}

// AdminDashboard gives platform-wide totals.
type AdminDashboard struct {
	TotalMentors      int `json:"total_mentors"`
	TotalInterns      int `json:"total_interns"`
	ActiveInterns     int `json:"active_interns"`
	TotalPrograms     int `json:"total_programs"`
	UpcomingPrograms  int `json:"upcoming_programs"`
	ActivePrograms    int `json:"active_programs"`
	CompletedPrograms int `json:"completed_programs"`
	TotalTasks        int `json:"total_tasks"`
}
