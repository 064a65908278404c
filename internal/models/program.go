package models

import (
	"math"
	"time"
)

// ProgramStatus is the lifecycle state of an internship program.
// The lifecycle is strictly monotonic: upcoming -> active -> completed.
type ProgramStatus string

const (
	ProgramStatusUpcoming  ProgramStatus = "upcoming"
	ProgramStatusActive    ProgramStatus = "active"
	ProgramStatusCompleted ProgramStatus = "completed"
)

// Valid reports whether the status is a known program status.
func (s ProgramStatus) Valid() bool {
	switch s {
	case ProgramStatusUpcoming, ProgramStatusActive, ProgramStatusCompleted:
		return true
	}
	return false
}

// ProgramDomain enumerates the fixed internship categories.
type ProgramDomain string

const (
	DomainWebDevelopment      ProgramDomain = "Web Development"
	DomainBackendDevelopment  ProgramDomain = "Backend Development"
	DomainFrontendDevelopment ProgramDomain = "Frontend Development"
	DomainAIML                ProgramDomain = "AI / ML"
	DomainDataScience         ProgramDomain = "Data Science"
	DomainMobileDevelopment   ProgramDomain = "Mobile App Development"
)

// Valid reports whether the domain is one of the fixed categories.
func (d ProgramDomain) Valid() bool {
	switch d {
	case DomainWebDevelopment, DomainBackendDevelopment, DomainFrontendDevelopment,
		DomainAIML, DomainDataScience, DomainMobileDevelopment:
		return true
	}
	return false
}

// Program is a mentor-led internship cohort.
type Program struct {
	ID              string        `db:"id" json:"id"`
	Title           string        `db:"title" json:"title"`
	Domain          ProgramDomain `db:"domain" json:"domain"`
	Description     string        `db:"description" json:"description,omitempty"`
	Rules           string        `db:"rules" json:"rules,omitempty"`
	MentorID        string        `db:"mentor_id" json:"mentor_id"`
	StartDate       *time.Time    `db:"start_date" json:"start_date,omitempty"`
	EndDate         *time.Time    `db:"end_date" json:"end_date,omitempty"`
	DurationInWeeks int           `db:"duration_in_weeks" json:"duration_in_weeks"`
	Status          ProgramStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// ProgramDetail enriches a Program with mentor identity and enrollments.
type ProgramDetail struct {
	Program
	MentorName  string       `db:"mentor_name" json:"mentor_name"`
	MentorEmail string       `db:"mentor_email" json:"mentor_email"`
	Enrollments []Enrollment `db:"-" json:"enrollments"`
}

// Enrollment binds an intern to a program and to the mentor owning the
// program at the time of joining. Later mentor reassignment does not
// rewrite historical enrollments.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	ProgramID  string    `db:"program_id" json:"program_id"`
	InternID   string    `db:"intern_id" json:"intern_id"`
	MentorID   string    `db:"mentor_id" json:"mentor_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	InternName string    `db:"intern_name" json:"intern_name,omitempty"`
	MentorName string    `db:"mentor_name" json:"mentor_name,omitempty"`
}

// ProgramFilter provides filters for listing programs.
type ProgramFilter struct {
	MentorID string
	InternID string
	Statuses []ProgramStatus
	Page     int
	PageSize int
}

// DurationInWeeks derives the program length from its date range,
// rounding partial weeks up. Zero when either date is missing.
func DurationInWeeks(start, end *time.Time) int {
	if start == nil || end == nil || !end.After(*start) {
		return 0
	}
	days := end.Sub(*start).Hours() / 24
	return int(math.Ceil(days / 7))
}
