package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
	"github.com/noah-isme/ims-go-api/pkg/export"
)

// minimumCompletionForCertificate is the completion floor for issuing a
// certificate. Note it sits above the Fail boundary, so a C at exactly
// 45 percent still qualifies.
const minimumCompletionForCertificate = 45.0

// Evaluate applies the certificate gate to a program state and task
// aggregate. All conditions must hold: the program is completed, the
// intern had at least one task, the grade is passing, and completion
// reached the floor. Reason names the first failing condition.
func Evaluate(programStatus models.ProgramStatus, snapshot models.PerformanceSnapshot) models.CertificateEligibility {
	result := models.CertificateEligibility{
		Grade:                snapshot.Grade,
		CompletionPercentage: snapshot.CompletionPercentage,
	}
	switch {
	case programStatus != models.ProgramStatusCompleted:
		result.Reason = "program is not completed"
	case snapshot.TotalTasks == 0:
		result.Reason = "no tasks were assigned during the program"
	case snapshot.Grade == models.GradeFail:
		result.Reason = "grade is below the passing threshold"
	case snapshot.CompletionPercentage < minimumCompletionForCertificate:
		result.Reason = fmt.Sprintf("completion is below %.0f%%", minimumCompletionForCertificate)
	default:
		result.Eligible = true
		result.Reason = "all requirements met"
	}
	return result
}

type certificateTaskReader interface {
	ListByInternAndProgram(ctx context.Context, internID, programID string) ([]models.Task, error)
}

type certificateProgramReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	IsEnrolled(ctx context.Context, programID, internID string) (bool, error)
}

type certificateUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CertificateConfig carries the identity printed on issued certificates.
type CertificateConfig struct {
	Issuer   string
	SignedBy string
}

// CertificateService gates and renders completion certificates.
type CertificateService struct {
	tasks    certificateTaskReader
	programs certificateProgramReader
	users    certificateUserReader
	pdf      *export.PDFExporter
	config   CertificateConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(tasks certificateTaskReader, programs certificateProgramReader, users certificateUserReader, pdf *export.PDFExporter, config CertificateConfig, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		tasks:    tasks,
		programs: programs,
		users:    users,
		pdf:      pdf,
		config:   config,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckEligibility recomputes the certificate gate for an intern within
// a program. Interns may only check themselves.
func (s *CertificateService) CheckEligibility(ctx context.Context, callerID string, callerRole models.UserRole, internID, programID string) (*models.CertificateEligibility, error) {
	if callerRole == models.RoleIntern && callerID != internID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "interns can only check their own eligibility")
	}

	_, _, snapshot, err := s.evaluate(ctx, internID, programID)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// DownloadCertificate renders the PDF certificate for an eligible
// intern. Ineligible interns get the gate's reason back as a
// precondition failure.
func (s *CertificateService) DownloadCertificate(ctx context.Context, callerID string, callerRole models.UserRole, internID, programID string) ([]byte, error) {
	if callerRole == models.RoleIntern && callerID != internID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "interns can only download their own certificate")
	}

	program, intern, eligibility, err := s.evaluate(ctx, internID, programID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, eligibility.Reason)
	}

	data, err := s.pdf.RenderCertificate(export.Certificate{
		InternName:           intern.FullName,
		ProgramTitle:         program.Title,
		ProgramDomain:        string(program.Domain),
		Grade:                string(eligibility.Grade),
		CompletionPercentage: eligibility.CompletionPercentage,
		DurationInWeeks:      program.DurationInWeeks,
		Issuer:               s.config.Issuer,
		SignedBy:             s.config.SignedBy,
		IssuedAt:             s.now(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	s.logger.Info("certificate issued",
		zap.String("intern_id", internID),
		zap.String("program_id", programID),
		zap.String("grade", string(eligibility.Grade)))
	return data, nil
}

func (s *CertificateService) evaluate(ctx context.Context, internID, programID string) (*models.Program, *models.User, *models.CertificateEligibility, error) {
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	intern, err := s.users.FindByID(ctx, internID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "intern not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intern")
	}

	enrolled, err := s.programs.IsEnrolled(ctx, programID, internID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "intern is not enrolled in this program")
	}

	tasks, err := s.tasks.ListByInternAndProgram(ctx, internID, programID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	eligibility := Evaluate(program.Status, Aggregate(tasks))
	return program, intern, &eligibility, nil
}
