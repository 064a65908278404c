package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
	"github.com/noah-isme/ims-go-api/pkg/export"
)

type performanceTaskReader interface {
	ListByInternAndProgram(ctx context.Context, internID, programID string) ([]models.Task, error)
	ListByMentor(ctx context.Context, mentorID string) ([]models.Task, error)
}

type performanceProgramReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	IsEnrolled(ctx context.Context, programID, internID string) (bool, error)
}

type performanceUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Aggregate folds a task set into a performance snapshot. Average score
// only considers reviewed tasks, while completion is approved over all
// tasks regardless of review state. Both ratios are zero for an empty
// set, which grades as Fail.
func Aggregate(tasks []models.Task) models.PerformanceSnapshot {
	snapshot := models.PerformanceSnapshot{TotalTasks: len(tasks)}

	var scoreSum float64
	var reviewed int
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusApproved:
			snapshot.ApprovedTasks++
		case models.TaskStatusRejected:
			snapshot.RejectedTasks++
		case models.TaskStatusSubmitted:
			snapshot.SubmittedTasks++
		default:
			snapshot.PendingTasks++
		}
		if task.IsLate {
			snapshot.LateSubmissions++
		}
		snapshot.TotalAttempts += task.Attempts
		if task.ReviewStatus == models.ReviewStatusReviewed && task.Score != nil {
			scoreSum += *task.Score
			reviewed++
		}
	}

	if reviewed > 0 {
		snapshot.AverageScore = round2(scoreSum / float64(reviewed))
	}
	if snapshot.TotalTasks > 0 {
		snapshot.CompletionPercentage = round2(float64(snapshot.ApprovedTasks) / float64(snapshot.TotalTasks) * 100)
	}
	snapshot.Grade = models.GradeFor(snapshot.CompletionPercentage)
	return snapshot
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PerformanceService derives intern aggregates and mentor roster reports
// on demand from current task state.
type PerformanceService struct {
	tasks    performanceTaskReader
	programs performanceProgramReader
	users    performanceUserReader
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewPerformanceService constructs PerformanceService.
func NewPerformanceService(tasks performanceTaskReader, programs performanceProgramReader, users performanceUserReader, csv *export.CSVExporter, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{tasks: tasks, programs: programs, users: users, csv: csv, logger: logger}
}

// InternPerformance aggregates one intern's tasks within a program.
// Interns can only read their own aggregate; mentors and admins may read
// anyone's.
func (s *PerformanceService) InternPerformance(ctx context.Context, callerID string, callerRole models.UserRole, internID, programID string) (*models.InternPerformance, error) {
	if callerRole == models.RoleIntern && callerID != internID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "interns can only view their own performance")
	}

	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	enrolled, err := s.programs.IsEnrolled(ctx, programID, internID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "intern is not enrolled in this program")
	}

	tasks, err := s.tasks.ListByInternAndProgram(ctx, internID, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	return &models.InternPerformance{
		ProgramID:     program.ID,
		ProgramTitle:  program.Title,
		ProgramDomain: program.Domain,
		Performance:   Aggregate(tasks),
	}, nil
}

// MentorReport aggregates every intern the mentor has assigned tasks to,
// one row per intern, ordered by intern name.
func (s *PerformanceService) MentorReport(ctx context.Context, mentorID string) ([]models.MentorReportRow, error) {
	tasks, err := s.tasks.ListByMentor(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentor tasks")
	}

	byIntern := make(map[string][]models.Task)
	for _, task := range tasks {
		byIntern[task.AssignedIntern] = append(byIntern[task.AssignedIntern], task)
	}

	rows := make([]models.MentorReportRow, 0, len(byIntern))
	for internID, internTasks := range byIntern {
		row := models.MentorReportRow{
			InternID:    internID,
			Performance: Aggregate(internTasks),
		}
		if intern, err := s.users.FindByID(ctx, internID); err == nil {
			row.InternName = intern.FullName
			row.InternEmail = intern.Email
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intern")
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].InternName == rows[j].InternName {
			return rows[i].InternID < rows[j].InternID
		}
		return rows[i].InternName < rows[j].InternName
	})
	return rows, nil
}

// MentorReportCSV renders the mentor report as a CSV document.
func (s *PerformanceService) MentorReportCSV(ctx context.Context, mentorID string) ([]byte, error) {
	rows, err := s.MentorReport(ctx, mentorID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Intern", "Email", "Total Tasks", "Approved", "Rejected", "Late", "Average Score", "Completion %", "Grade"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		p := row.Performance
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Intern":        row.InternName,
			"Email":         row.InternEmail,
			"Total Tasks":   fmt.Sprintf("%d", p.TotalTasks),
			"Approved":      fmt.Sprintf("%d", p.ApprovedTasks),
			"Rejected":      fmt.Sprintf("%d", p.RejectedTasks),
			"Late":          fmt.Sprintf("%d", p.LateSubmissions),
			"Average Score": fmt.Sprintf("%.2f", p.AverageScore),
			"Completion %":  fmt.Sprintf("%.2f", p.CompletionPercentage),
			"Grade":         string(p.Grade),
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return data, nil
}
