package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
)

type dashboardProgramReader interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	CountByStatus(ctx context.Context) (map[models.ProgramStatus]int, error)
}

type dashboardTaskReader interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.TaskDetail, error)
	ListByMentor(ctx context.Context, mentorID string) ([]models.Task, error)
	Count(ctx context.Context) (int, error)
}

type dashboardUserReader interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// DashboardService assembles role-scoped overview pages. Results are
// cached briefly; dashboards tolerate slightly stale numbers.
type DashboardService struct {
	programs dashboardProgramReader
	tasks    dashboardTaskReader
	users    dashboardUserReader
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(programs dashboardProgramReader, tasks dashboardTaskReader, users dashboardUserReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		programs: programs,
		tasks:    tasks,
		users:    users,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// MentorDashboard summarises the mentor's programs, roster and queue.
func (s *DashboardService) MentorDashboard(ctx context.Context, mentorID string) (*models.MentorDashboard, error) {
	cacheKey := fmt.Sprintf("dashboard:mentor:%s", mentorID)
	var cached models.MentorDashboard
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	programs, totalPrograms, err := s.programs.List(ctx, models.ProgramFilter{MentorID: mentorID, PageSize: 5})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentor programs")
	}

	tasks, err := s.tasks.ListByMentor(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentor tasks")
	}

	recentTasks, err := s.tasks.List(ctx, models.TaskFilter{MentorID: mentorID, PageSize: 5})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent tasks")
	}

	dashboard := &models.MentorDashboard{
		TotalPrograms:  totalPrograms,
		RecentPrograms: programs,
		RecentTasks:    recentTasks,
		TotalTasks:     len(tasks),
	}

	interns := make(map[string]struct{})
	for _, program := range programs {
		if program.Status == models.ProgramStatusActive {
			dashboard.ActivePrograms++
		}
	}
	for _, task := range tasks {
		interns[task.AssignedIntern] = struct{}{}
		switch task.Status {
		case models.TaskStatusSubmitted:
			dashboard.PendingReviews++
		case models.TaskStatusApproved:
			dashboard.ApprovedTasks++
		case models.TaskStatusRejected:
			dashboard.RejectedTasks++
		}
	}
	dashboard.TotalInterns = len(interns)

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Debug("failed to cache mentor dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// AdminDashboard gives platform-wide totals.
func (s *DashboardService) AdminDashboard(ctx context.Context) (*models.AdminDashboard, error) {
	const cacheKey = "dashboard:admin"
	var cached models.AdminDashboard
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	dashboard := &models.AdminDashboard{}

	mentorRole := models.RoleMentor
	if _, total, err := s.users.List(ctx, models.UserFilter{Role: &mentorRole, PageSize: 1}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count mentors")
	} else {
		dashboard.TotalMentors = total
	}

	internRole := models.RoleIntern
	if _, total, err := s.users.List(ctx, models.UserFilter{Role: &internRole, PageSize: 1}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count interns")
	} else {
		dashboard.TotalInterns = total
	}

	active := true
	if _, total, err := s.users.List(ctx, models.UserFilter{Role: &internRole, Active: &active, PageSize: 1}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active interns")
	} else {
		dashboard.ActiveInterns = total
	}

	programCounts, err := s.programs.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count programs")
	}
	dashboard.UpcomingPrograms = programCounts[models.ProgramStatusUpcoming]
	dashboard.ActivePrograms = programCounts[models.ProgramStatusActive]
	dashboard.CompletedPrograms = programCounts[models.ProgramStatusCompleted]
	dashboard.TotalPrograms = dashboard.UpcomingPrograms + dashboard.ActivePrograms + dashboard.CompletedPrograms

	totalTasks, err := s.tasks.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count tasks")
	}
	dashboard.TotalTasks = totalTasks

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Debug("failed to cache admin dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// InvalidateMentor drops the mentor's cached dashboard after a write.
func (s *DashboardService) InvalidateMentor(ctx context.Context, mentorID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:mentor:%s", mentorID)); err != nil {
		s.logger.Debug("failed to invalidate mentor dashboard", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "dashboard:admin"); err != nil {
		s.logger.Debug("failed to invalidate admin dashboard", zap.Error(err))
	}
}
