package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
)

type taskRepository interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.TaskDetail, error)
	ListByMentor(ctx context.Context, mentorID string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) (bool, error)
}

type taskProgramReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	IsEnrolled(ctx context.Context, programID, internID string) (bool, error)
}

type taskUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateTaskRequest is the mentor payload for assigning a task.
type CreateTaskRequest struct {
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description"`
	ProgramID      string    `json:"program_id" validate:"required,uuid"`
	AssignedIntern string    `json:"assigned_intern" validate:"required,uuid"`
	Priority       string    `json:"priority"`
	Deadline       time.Time `json:"deadline" validate:"required"`
}

// SubmitTaskRequest carries an intern's submission. At least one of the
// three fields must be present.
type SubmitTaskRequest struct {
	SubmissionText *string `json:"submission_text"`
	SubmissionLink *string `json:"submission_link"`
	SubmissionFile *string `json:"submission_file"`
}

// ReviewTaskRequest carries optional mentor overrides for a review.
// Absent fields fall back to the automatic verdict.
type ReviewTaskRequest struct {
	Status   *string  `json:"status"`
	Score    *float64 `json:"score"`
	Feedback *string  `json:"feedback"`
}

// taskVerdict is the outcome of the automatic review heuristic.
type taskVerdict struct {
	Status   models.TaskStatus
	Score    float64
	Feedback string
}

// autoReview derives the automatic verdict from submission facts alone.
// Lateness dominates: a late submission is rejected regardless of how
// many attempts were spent. Otherwise more than two attempts rejects,
// and a timely submission within the attempt budget is approved.
func autoReview(isLate bool, attempts int) taskVerdict {
	switch {
	case isLate:
		return taskVerdict{Status: models.TaskStatusRejected, Score: 2, Feedback: "Late submission"}
	case attempts > 2:
		return taskVerdict{Status: models.TaskStatusRejected, Score: 5, Feedback: "Too many attempts"}
	default:
		return taskVerdict{Status: models.TaskStatusApproved, Score: 8, Feedback: "Good work"}
	}
}

// TaskService implements the task workflow: mentors assign tasks inside
// their active programs, interns submit work, and reviews resolve each
// submission into approved or rejected with a score.
type TaskService struct {
	tasks     taskRepository
	programs  taskProgramReader
	users     taskUserReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTaskService constructs TaskService.
func NewTaskService(tasks taskRepository, programs taskProgramReader, users taskUserReader, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:     tasks,
		programs:  programs,
		users:     users,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create assigns a task to an intern. The program must be active and
// owned by the calling mentor, the intern must be active and enrolled,
// and the deadline must lie in the future.
func (s *TaskService) Create(ctx context.Context, mentorID string, req CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	priority := models.PriorityMedium
	if req.Priority != "" {
		priority = models.TaskPriority(req.Priority)
		if !priority.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", req.Priority))
		}
	}

	program, err := s.programs.FindByID(ctx, req.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program.Status != models.ProgramStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "tasks can only be assigned in active programs")
	}
	if program.MentorID != mentorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the program's mentor can assign tasks")
	}

	intern, err := s.users.FindByID(ctx, req.AssignedIntern)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intern not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intern")
	}
	if intern.Role != models.RoleIntern {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee is not an intern")
	}
	if !intern.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "intern account is not active")
	}

	enrolled, err := s.programs.IsEnrolled(ctx, req.ProgramID, req.AssignedIntern)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "intern is not enrolled in this program")
	}

	now := s.now()
	if !req.Deadline.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be in the future")
	}

	task := &models.Task{
		Title:          req.Title,
		Description:    req.Description,
		ProgramID:      req.ProgramID,
		MentorID:       mentorID,
		AssignedIntern: req.AssignedIntern,
		Priority:       priority,
		Status:         models.TaskStatusPending,
		ReviewStatus:   models.ReviewStatusPending,
		Deadline:       req.Deadline,
		AssignedAt:     now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}

	s.logger.Info("task assigned",
		zap.String("task_id", task.ID),
		zap.String("program_id", task.ProgramID),
		zap.String("intern_id", task.AssignedIntern))
	return task, nil
}

// Submit records the assigned intern's work on a task. Submissions are
// blocked once the program completes or the task is approved; rejected
// tasks may be resubmitted. Each submission resets the review slate and
// stamps lateness against the deadline.
func (s *TaskService) Submit(ctx context.Context, internID, taskID string, req SubmitTaskRequest) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedIntern != internID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is assigned to a different intern")
	}

	program, err := s.programs.FindByID(ctx, task.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program.Status == models.ProgramStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program is completed; submissions are closed")
	}

	enrolled, err := s.programs.IsEnrolled(ctx, task.ProgramID, internID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "intern is not enrolled in this program")
	}

	if task.Status == models.TaskStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "approved tasks cannot be resubmitted")
	}

	if emptySubmission(req) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one submission field is required")
	}

	now := s.now()
	task.SubmissionText = trimmedOrNil(req.SubmissionText)
	task.SubmissionLink = trimmedOrNil(req.SubmissionLink)
	task.SubmissionFile = trimmedOrNil(req.SubmissionFile)
	task.SubmittedAt = &now
	task.IsLate = now.After(task.Deadline)
	task.Attempts++
	task.Status = models.TaskStatusSubmitted
	task.ReviewStatus = models.ReviewStatusPending
	task.Score = nil
	task.Feedback = nil
	task.ReviewedAt = nil

	applied, err := s.tasks.Update(ctx, task)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "task changed concurrently; reload and retry")
	}

	s.audit(ctx, internID, models.AuditActionTaskSubmit, taskID,
		fmt.Sprintf(`{"attempt":%d,"late":%t}`, task.Attempts, task.IsLate))
	return task, nil
}

// Review resolves a submitted task. The verdict starts from the
// automatic heuristic and each field can be overridden by the mentor.
func (s *TaskService) Review(ctx context.Context, mentorID, taskID string, req ReviewTaskRequest) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.MentorID != mentorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigning mentor can review this task")
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "task has not been submitted yet")
	}

	program, err := s.programs.FindByID(ctx, task.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program.Status == models.ProgramStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program is completed; reviews are closed")
	}

	verdict := autoReview(task.IsLate, task.Attempts)
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		if status != models.TaskStatusApproved && status != models.TaskStatusRejected {
			return nil, appErrors.Clone(appErrors.ErrValidation, "review status must be approved or rejected")
		}
		verdict.Status = status
	}
	if req.Score != nil {
		if *req.Score < 0 || *req.Score > 10 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 10")
		}
		verdict.Score = *req.Score
	}
	if req.Feedback != nil {
		feedback := strings.TrimSpace(*req.Feedback)
		if feedback == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "feedback cannot be empty")
		}
		verdict.Feedback = feedback
	}

	now := s.now()
	task.Status = verdict.Status
	task.Score = &verdict.Score
	task.Feedback = &verdict.Feedback
	task.ReviewStatus = models.ReviewStatusReviewed
	task.ReviewedAt = &now

	applied, err := s.tasks.Update(ctx, task)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save review")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "task changed concurrently; reload and retry")
	}

	s.audit(ctx, mentorID, models.AuditActionTaskReview, taskID,
		fmt.Sprintf(`{"status":%q,"score":%.2f}`, task.Status, verdict.Score))
	s.logger.Info("task reviewed",
		zap.String("task_id", taskID),
		zap.String("status", string(task.Status)),
		zap.Float64("score", verdict.Score))
	return task, nil
}

// Get returns a task, restricted to its participants unless the caller
// is an admin.
func (s *TaskService) Get(ctx context.Context, callerID string, callerRole models.UserRole, taskID string) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if callerRole != models.RoleAdmin && task.MentorID != callerID && task.AssignedIntern != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this task")
	}
	return task, nil
}

// List returns tasks matching the filter with joined names.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.TaskDetail, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	if tasks == nil {
		tasks = []models.TaskDetail{}
	}
	return tasks, nil
}

// MentorStats summarises a mentor's task portfolio across all programs.
func (s *TaskService) MentorStats(ctx context.Context, mentorID string) (*models.MentorTaskStats, error) {
	tasks, err := s.tasks.ListByMentor(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentor tasks")
	}
	stats := &models.MentorTaskStats{TotalTasks: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusSubmitted:
			stats.PendingReviews++
		case models.TaskStatusApproved:
			stats.ApprovedTasks++
		case models.TaskStatusRejected:
			stats.RejectedTasks++
		}
		if task.IsLate {
			stats.LateSubmissions++
		}
	}
	return stats, nil
}

func (s *TaskService) load(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

func (s *TaskService) audit(ctx context.Context, actorID, action, resourceID, newValues string) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "task",
		ResourceID: &resourceID,
		NewValues:  []byte(newValues),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func emptySubmission(req SubmitTaskRequest) bool {
	return trimmedOrNil(req.SubmissionText) == nil &&
		trimmedOrNil(req.SubmissionLink) == nil &&
		trimmedOrNil(req.SubmissionFile) == nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
