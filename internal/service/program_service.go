package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
)

type programRepository interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	FindByTitle(ctx context.Context, title string) (*models.Program, error)
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	UpdateStatus(ctx context.Context, id string, from, to models.ProgramStatus) (bool, error)
	ListEnrollments(ctx context.Context, programID string) ([]models.Enrollment, error)
	CountEnrollments(ctx context.Context, programID string) (int, error)
	IsEnrolled(ctx context.Context, programID, internID string) (bool, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
}

type programUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateProgramRequest is the payload for creating an internship program.
type CreateProgramRequest struct {
	Title       string     `json:"title" validate:"required"`
	Domain      string     `json:"domain" validate:"required"`
	Description string     `json:"description"`
	Rules       string     `json:"rules"`
	MentorID    string     `json:"mentor_id" validate:"required,uuid"`
	StartDate   *time.Time `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date" validate:"required"`
}

// UpdateProgramRequest carries the editable program fields. Nil fields
// are left untouched.
type UpdateProgramRequest struct {
	Title       *string    `json:"title"`
	Domain      *string    `json:"domain"`
	Description *string    `json:"description"`
	Rules       *string    `json:"rules"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ProgramService implements the program lifecycle: a program is created
// upcoming, activated once it has a mentor and at least one enrolled
// intern, and completed from active. The lifecycle never moves backwards
// and completed is terminal.
type ProgramService struct {
	programs  programRepository
	users     programUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs ProgramService.
func NewProgramService(programs programRepository, users programUserReader, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{programs: programs, users: users, validator: validate, logger: logger}
}

// Create registers a new program in the upcoming state. Duration is
// always derived from the date range, never taken from the caller.
func (s *ProgramService) Create(ctx context.Context, actorID string, req CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	domain := models.ProgramDomain(req.Domain)
	if !domain.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown domain %q", req.Domain))
	}
	if !req.EndDate.After(*req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	mentor, err := s.users.FindByID(ctx, req.MentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	if mentor.Role != models.RoleMentor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned user is not a mentor")
	}

	if _, err := s.programs.FindByTitle(ctx, req.Title); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a program with this title already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program title")
	}

	program := &models.Program{
		Title:           req.Title,
		Domain:          domain,
		Description:     req.Description,
		Rules:           req.Rules,
		MentorID:        req.MentorID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		DurationInWeeks: models.DurationInWeeks(req.StartDate, req.EndDate),
		Status:          models.ProgramStatusUpcoming,
	}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}

	s.audit(ctx, actorID, models.AuditActionProgramChange, program.ID, `{"event":"created"}`)
	s.logger.Info("program created",
		zap.String("program_id", program.ID),
		zap.String("mentor_id", program.MentorID),
		zap.String("domain", string(program.Domain)))
	return program, nil
}

// Update edits program metadata. Completed programs are frozen. When
// either date changes the duration is recomputed from the stored range.
func (s *ProgramService) Update(ctx context.Context, actorID, programID string, req UpdateProgramRequest) (*models.Program, error) {
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.Status == models.ProgramStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "completed programs cannot be edited")
	}

	if req.Title != nil && *req.Title != program.Title {
		if _, err := s.programs.FindByTitle(ctx, *req.Title); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a program with this title already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program title")
		}
		program.Title = *req.Title
	}
	if req.Domain != nil {
		domain := models.ProgramDomain(*req.Domain)
		if !domain.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown domain %q", *req.Domain))
		}
		program.Domain = domain
	}
	if req.Description != nil {
		program.Description = *req.Description
	}
	if req.Rules != nil {
		program.Rules = *req.Rules
	}
	if req.StartDate != nil {
		program.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		program.EndDate = req.EndDate
	}
	if program.StartDate != nil && program.EndDate != nil && !program.EndDate.After(*program.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	program.DurationInWeeks = models.DurationInWeeks(program.StartDate, program.EndDate)

	if err := s.programs.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}

	s.audit(ctx, actorID, models.AuditActionProgramChange, program.ID, `{"event":"updated"}`)
	return program, nil
}

// ChangeStatus advances the program lifecycle. Allowed moves are
// upcoming -> active and active -> completed; everything else is
// rejected. Activation additionally requires an assigned mentor and at
// least one enrolled intern.
func (s *ProgramService) ChangeStatus(ctx context.Context, actorID, programID string, to models.ProgramStatus) (*models.Program, error) {
	if !to.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", to))
	}

	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}

	from := program.Status
	switch {
	case from == models.ProgramStatusCompleted:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "program is completed; no further transitions are allowed")
	case from == models.ProgramStatusUpcoming && to == models.ProgramStatusActive:
		if program.MentorID == "" {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program needs an assigned mentor before activation")
		}
		count, err := s.programs.CountEnrollments(ctx, programID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if count == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program needs at least one enrolled intern before activation")
		}
	case from == models.ProgramStatusActive && to == models.ProgramStatusCompleted:
		// unconditional
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move program from %s to %s", from, to))
	}

	applied, err := s.programs.UpdateStatus(ctx, programID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program status")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "program status changed concurrently; reload and retry")
	}
	program.Status = to

	s.audit(ctx, actorID, models.AuditActionProgramChange, programID, fmt.Sprintf(`{"from":%q,"to":%q}`, from, to))
	s.logger.Info("program status changed",
		zap.String("program_id", programID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return program, nil
}

// Enroll adds an intern to an upcoming program and binds the program's
// current mentor to the enrollment record.
func (s *ProgramService) Enroll(ctx context.Context, actorID, programID, internID string) (*models.Enrollment, error) {
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.Status != models.ProgramStatusUpcoming {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "interns can only be enrolled while a program is upcoming")
	}

	intern, err := s.users.FindByID(ctx, internID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intern not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intern")
	}
	if intern.Role != models.RoleIntern {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not an intern")
	}
	if !intern.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "intern account is not active")
	}

	enrolled, err := s.programs.IsEnrolled(ctx, programID, internID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "intern is already enrolled in this program")
	}

	enrollment := &models.Enrollment{
		ProgramID: programID,
		InternID:  internID,
		MentorID:  program.MentorID,
	}
	if err := s.programs.Enroll(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll intern")
	}

	s.audit(ctx, actorID, models.AuditActionEnroll, programID, fmt.Sprintf(`{"intern_id":%q}`, internID))
	return enrollment, nil
}

// Get returns a program with its mentor identity and enrollments.
func (s *ProgramService) Get(ctx context.Context, programID string) (*models.ProgramDetail, error) {
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}

	detail := &models.ProgramDetail{Program: *program}
	if mentor, err := s.users.FindByID(ctx, program.MentorID); err == nil {
		detail.MentorName = mentor.FullName
		detail.MentorEmail = mentor.Email
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}

	enrollments, err := s.programs.ListEnrollments(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	detail.Enrollments = enrollments
	return detail, nil
}

// List returns programs matching the filter along with pagination.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, *models.Pagination, error) {
	programs, total, err := s.programs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	if programs == nil {
		programs = []models.Program{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return programs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ProgramService) load(ctx context.Context, programID string) (*models.Program, error) {
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

func (s *ProgramService) audit(ctx context.Context, actorID, action, resourceID, newValues string) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "program",
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
