package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	ListInternsWithMentor(ctx context.Context) ([]models.InternOverview, error)
	ListMentorsWithInternCount(ctx context.Context) ([]models.MentorOverview, error)
	ListAvailableInterns(ctx context.Context) ([]models.User, error)
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type mentorProgramChecker interface {
	HasProgramsForMentor(ctx context.Context, mentorID string) (bool, error)
}

// CreateMentorRequest is the admin payload for creating a mentor account.
type CreateMentorRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserService covers admin-side user management: mentors are created by
// admins and active immediately, interns register themselves and must be
// activated before they can participate.
type UserService struct {
	users     userRepository
	programs  mentorProgramChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userRepository, programs mentorProgramChecker, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, programs: programs, validator: validate, logger: logger}
}

// CreateMentor provisions a mentor account.
func (s *UserService) CreateMentor(ctx context.Context, actorID string, req CreateMentorRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentor payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	mentor := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleMentor,
		Active:       true,
	}
	if err := s.users.Create(ctx, mentor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentor")
	}

	s.audit(ctx, actorID, models.AuditActionUserCreate, mentor.ID, `{"role":"mentor"}`)

	return &models.UserInfo{ID: mentor.ID, Email: mentor.Email, FullName: mentor.FullName, Role: mentor.Role, Active: mentor.Active}, nil
}

// ListMentors returns every mentor with the number of enrollments
// attributed to them.
func (s *UserService) ListMentors(ctx context.Context) ([]models.MentorOverview, error) {
	mentors, err := s.users.ListMentorsWithInternCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	return mentors, nil
}

// DeleteMentor removes a mentor that is not assigned to any program.
func (s *UserService) DeleteMentor(ctx context.Context, actorID, mentorID string) error {
	mentor, err := s.users.FindByID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	if mentor.Role != models.RoleMentor {
		return appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
	}

	assigned, err := s.programs.HasProgramsForMentor(ctx, mentorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mentor assignments")
	}
	if assigned {
		return appErrors.Clone(appErrors.ErrConflict, "mentor is assigned to a program; remove mentor from program first")
	}

	if err := s.users.RevokeUserRefreshTokens(ctx, mentorID); err != nil {
		s.logger.Warn("failed to revoke mentor sessions", zap.Error(err))
	}
	if err := s.users.Delete(ctx, mentorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mentor")
	}

	s.audit(ctx, actorID, models.AuditActionUserDelete, mentorID, `{"role":"mentor"}`)
	return nil
}

// ListInterns returns every intern with the mentor bound at enrollment.
func (s *UserService) ListInterns(ctx context.Context) ([]models.InternOverview, error) {
	interns, err := s.users.ListInternsWithMentor(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list interns")
	}
	return interns, nil
}

// ListAvailableInterns returns active interns without an enrollment in
// any upcoming or active program.
func (s *UserService) ListAvailableInterns(ctx context.Context) ([]models.User, error) {
	interns, err := s.users.ListAvailableInterns(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available interns")
	}
	return interns, nil
}

// SetInternStatus activates or deactivates an intern account.
func (s *UserService) SetInternStatus(ctx context.Context, actorID, internID string, active bool) (*models.UserInfo, error) {
	intern, err := s.users.FindByID(ctx, internID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intern not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intern")
	}
	if intern.Role != models.RoleIntern {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "intern not found")
	}

	if err := s.users.SetActive(ctx, internID, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update intern status")
	}
	if !active {
		if err := s.users.RevokeUserRefreshTokens(ctx, internID); err != nil {
			s.logger.Warn("failed to revoke intern sessions", zap.Error(err))
		}
	}

	s.audit(ctx, actorID, models.AuditActionUserUpdate, internID, fmt.Sprintf(`{"active":%t}`, active))

	intern.Active = active
	return &models.UserInfo{ID: intern.ID, Email: intern.Email, FullName: intern.FullName, Role: intern.Role, Active: intern.Active}, nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID, newValues string) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "user",
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
