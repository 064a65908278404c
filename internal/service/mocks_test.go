package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/noah-isme/ims-go-api/internal/models"
)

type mockUserStore struct {
	users     map[string]*models.User
	tokens    map[string]*models.RefreshToken
	audits    []models.AuditLog
	revoked   []string
	deleted   []string
	listErr   error
	available []models.User
	interns   []models.InternOverview
	mentors   []models.MentorOverview
}

func newMockUserStore(users ...*models.User) *mockUserStore {
	store := &mockUserStore{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
	for _, user := range users {
		cp := *user
		store.users[user.ID] = &cp
	}
	return store
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []models.User
	for _, user := range m.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserStore) SetActive(ctx context.Context, id string, active bool) error {
	if user, ok := m.users[id]; ok {
		user.Active = active
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockUserStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func (m *mockUserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserStore) ListInternsWithMentor(ctx context.Context) ([]models.InternOverview, error) {
	return m.interns, m.listErr
}

func (m *mockUserStore) ListMentorsWithInternCount(ctx context.Context) ([]models.MentorOverview, error) {
	return m.mentors, m.listErr
}

func (m *mockUserStore) ListAvailableInterns(ctx context.Context) ([]models.User, error) {
	return m.available, m.listErr
}

func (m *mockUserStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	m.tokens[token.Token] = &cp
	return nil
}

func (m *mockUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockUserStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockProgramStore struct {
	programs    map[string]*models.Program
	enrollments []models.Enrollment
	mentorOwns  map[string]bool
	statusErr   error
	staleStatus bool
}

func newMockProgramStore(programs ...*models.Program) *mockProgramStore {
	store := &mockProgramStore{
		programs:   make(map[string]*models.Program),
		mentorOwns: make(map[string]bool),
	}
	for _, program := range programs {
		cp := *program
		store.programs[program.ID] = &cp
		store.mentorOwns[program.MentorID] = true
	}
	return store
}

func (m *mockProgramStore) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if program, ok := m.programs[id]; ok {
		cp := *program
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramStore) FindByTitle(ctx context.Context, title string) (*models.Program, error) {
	for _, program := range m.programs {
		if program.Title == title {
			cp := *program
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramStore) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	var out []models.Program
	for _, program := range m.programs {
		if filter.MentorID != "" && program.MentorID != filter.MentorID {
			continue
		}
		out = append(out, *program)
	}
	return out, len(out), nil
}

func (m *mockProgramStore) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = fmt.Sprintf("program-%d", len(m.programs)+1)
	}
	cp := *program
	m.programs[program.ID] = &cp
	m.mentorOwns[program.MentorID] = true
	return nil
}

func (m *mockProgramStore) Update(ctx context.Context, program *models.Program) error {
	cp := *program
	m.programs[program.ID] = &cp
	return nil
}

func (m *mockProgramStore) UpdateStatus(ctx context.Context, id string, from, to models.ProgramStatus) (bool, error) {
	if m.statusErr != nil {
		return false, m.statusErr
	}
	if m.staleStatus {
		return false, nil
	}
	program, ok := m.programs[id]
	if !ok || program.Status != from {
		return false, nil
	}
	program.Status = to
	return true, nil
}

func (m *mockProgramStore) HasProgramsForMentor(ctx context.Context, mentorID string) (bool, error) {
	return m.mentorOwns[mentorID], nil
}

func (m *mockProgramStore) ListEnrollments(ctx context.Context, programID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, enrollment := range m.enrollments {
		if enrollment.ProgramID == programID {
			out = append(out, enrollment)
		}
	}
	return out, nil
}

func (m *mockProgramStore) CountEnrollments(ctx context.Context, programID string) (int, error) {
	count := 0
	for _, enrollment := range m.enrollments {
		if enrollment.ProgramID == programID {
			count++
		}
	}
	return count, nil
}

func (m *mockProgramStore) IsEnrolled(ctx context.Context, programID, internID string) (bool, error) {
	for _, enrollment := range m.enrollments {
		if enrollment.ProgramID == programID && enrollment.InternID == internID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProgramStore) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("enrollment-%d", len(m.enrollments)+1)
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now()
	}
	m.enrollments = append(m.enrollments, *enrollment)
	return nil
}

func (m *mockProgramStore) CountByStatus(ctx context.Context) (map[models.ProgramStatus]int, error) {
	counts := make(map[models.ProgramStatus]int)
	for _, program := range m.programs {
		counts[program.Status]++
	}
	return counts, nil
}

type mockTaskStore struct {
	tasks     map[string]*models.Task
	updateErr error
	stale     bool
}

func newMockTaskStore(tasks ...*models.Task) *mockTaskStore {
	store := &mockTaskStore{tasks: make(map[string]*models.Task)}
	for _, task := range tasks {
		cp := *task
		if cp.Version == 0 {
			cp.Version = 1
		}
		store.tasks[task.ID] = &cp
	}
	return store
}

func (m *mockTaskStore) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if task, ok := m.tasks[id]; ok {
		cp := *task
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTaskStore) List(ctx context.Context, filter models.TaskFilter) ([]models.TaskDetail, error) {
	var out []models.TaskDetail
	for _, task := range m.tasks {
		if filter.MentorID != "" && task.MentorID != filter.MentorID {
			continue
		}
		if filter.InternID != "" && task.AssignedIntern != filter.InternID {
			continue
		}
		out = append(out, models.TaskDetail{Task: *task})
	}
	return out, nil
}

func (m *mockTaskStore) ListByInternAndProgram(ctx context.Context, internID, programID string) ([]models.Task, error) {
	var out []models.Task
	for _, task := range m.tasks {
		if task.AssignedIntern == internID && task.ProgramID == programID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *mockTaskStore) ListByMentor(ctx context.Context, mentorID string) ([]models.Task, error) {
	var out []models.Task
	for _, task := range m.tasks {
		if task.MentorID == mentorID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *mockTaskStore) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%d", len(m.tasks)+1)
	}
	if task.Version == 0 {
		task.Version = 1
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskStore) Update(ctx context.Context, task *models.Task) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}
	if m.stale {
		return false, nil
	}
	current, ok := m.tasks[task.ID]
	if !ok || current.Version != task.Version {
		return false, nil
	}
	task.Version++
	cp := *task
	m.tasks[task.ID] = &cp
	return true, nil
}

func (m *mockTaskStore) Count(ctx context.Context) (int, error) {
	return len(m.tasks), nil
}
