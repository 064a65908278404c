package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/ims-go-api/internal/middleware"
	"github.com/noah-isme/ims-go-api/internal/models"
	"github.com/noah-isme/ims-go-api/internal/service"
)

const (
	testAdminID  = "a7d3a1f0-0000-4000-8000-000000000001"
	testMentorID = "a7d3a1f0-0000-4000-8000-000000000002"
	testInternID = "a7d3a1f0-0000-4000-8000-000000000003"
)

func TestProgramRoutesIntegration(t *testing.T) {
	router := buildProgramRouter()

	t.Run("list unauthorized", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/programs", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("create forbidden for mentor", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/programs", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		setTestUser(req, testMentorID, models.RoleMentor)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	var programID string

	t.Run("create success", func(t *testing.T) {
		start := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
		end := time.Now().Add(24 * time.Hour * 57).Format(time.RFC3339)
		payload := fmt.Sprintf(`{"title":"Backend Internship","domain":"Backend Development","mentor_id":%q,"start_date":%q,"end_date":%q}`, testMentorID, start, end)
		req, _ := http.NewRequest(http.MethodPost, "/programs", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		setTestUser(req, testAdminID, models.RoleAdmin)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"upcoming"`)

		var body struct {
			Data models.Program `json:"data"`
		}
		require.NoError(t, jsonDecode(resp, &body))
		programID = body.Data.ID
		require.NotEmpty(t, programID)
	})

	t.Run("activation blocked without enrollment", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/programs/"+programID+"/status", bytes.NewBufferString(`{"status":"active"}`))
		req.Header.Set("Content-Type", "application/json")
		setTestUser(req, testAdminID, models.RoleAdmin)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusPreconditionFailed, resp.Code)
	})

	t.Run("enroll intern", func(t *testing.T) {
		payload := fmt.Sprintf(`{"intern_id":%q}`, testInternID)
		req, _ := http.NewRequest(http.MethodPost, "/programs/"+programID+"/enrollments", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		setTestUser(req, testAdminID, models.RoleAdmin)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), testInternID)
	})

	t.Run("activate after enrollment", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/programs/"+programID+"/status", bytes.NewBufferString(`{"status":"active"}`))
		req.Header.Set("Content-Type", "application/json")
		setTestUser(req, testAdminID, models.RoleAdmin)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"active"`)
	})

	t.Run("detail includes enrollment", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/programs/"+programID, nil)
		setTestUser(req, testInternID, models.RoleIntern)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), testInternID)
	})

	t.Run("backward transition rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/programs/"+programID+"/status", bytes.NewBufferString(`{"status":"upcoming"}`))
		req.Header.Set("Content-Type", "application/json")
		setTestUser(req, testAdminID, models.RoleAdmin)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})
}

func buildProgramRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: userID,
				Role:   models.UserRole(c.GetHeader("X-Test-Role")),
			})
		}
		c.Next()
	})

	programs := newStubProgramStore()
	users := newStubUserStore()
	programSvc := service.NewProgramService(programs, users, validator.New(), zap.NewNop())
	cache := service.NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	dashboardSvc := service.NewDashboardService(programs, &stubTaskStore{}, users, cache, time.Minute, zap.NewNop())
	h := NewProgramHandler(programSvc, dashboardSvc)

	group := router.Group("/programs")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", internalmiddleware.RequireRoles(models.RoleAdmin), h.Create)
	group.PUT("/:id", internalmiddleware.RequireRoles(models.RoleAdmin), h.Update)
	group.PATCH("/:id/status", internalmiddleware.RequireRoles(models.RoleAdmin), h.ChangeStatus)
	group.POST("/:id/enrollments", internalmiddleware.RequireRoles(models.RoleAdmin), h.Enroll)
	return router
}

func setTestUser(req *http.Request, userID string, role models.UserRole) {
	req.Header.Set("X-Test-User", userID)
	req.Header.Set("X-Test-Role", string(role))
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func jsonDecode(resp *httptest.ResponseRecorder, dest interface{}) error {
	return json.Unmarshal(resp.Body.Bytes(), dest)
}

type stubProgramStore struct {
	programs    map[string]models.Program
	enrollments []models.Enrollment
}

func newStubProgramStore() *stubProgramStore {
	return &stubProgramStore{programs: make(map[string]models.Program)}
}

func (s *stubProgramStore) FindByID(_ context.Context, id string) (*models.Program, error) {
	program, ok := s.programs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &program, nil
}

func (s *stubProgramStore) FindByTitle(_ context.Context, title string) (*models.Program, error) {
	for _, program := range s.programs {
		if program.Title == title {
			return &program, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubProgramStore) List(_ context.Context, _ models.ProgramFilter) ([]models.Program, int, error) {
	out := make([]models.Program, 0, len(s.programs))
	for _, program := range s.programs {
		out = append(out, program)
	}
	return out, len(out), nil
}

func (s *stubProgramStore) Create(_ context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = fmt.Sprintf("program-%d", len(s.programs)+1)
	}
	s.programs[program.ID] = *program
	return nil
}

func (s *stubProgramStore) Update(_ context.Context, program *models.Program) error {
	s.programs[program.ID] = *program
	return nil
}

func (s *stubProgramStore) UpdateStatus(_ context.Context, id string, from, to models.ProgramStatus) (bool, error) {
	program, ok := s.programs[id]
	if !ok || program.Status != from {
		return false, nil
	}
	program.Status = to
	s.programs[id] = program
	return true, nil
}

func (s *stubProgramStore) ListEnrollments(_ context.Context, programID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, enrollment := range s.enrollments {
		if enrollment.ProgramID == programID {
			out = append(out, enrollment)
		}
	}
	return out, nil
}

func (s *stubProgramStore) CountEnrollments(_ context.Context, programID string) (int, error) {
	enrollments, _ := s.ListEnrollments(context.Background(), programID)
	return len(enrollments), nil
}

func (s *stubProgramStore) IsEnrolled(_ context.Context, programID, internID string) (bool, error) {
	for _, enrollment := range s.enrollments {
		if enrollment.ProgramID == programID && enrollment.InternID == internID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubProgramStore) Enroll(_ context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("enrollment-%d", len(s.enrollments)+1)
	}
	s.enrollments = append(s.enrollments, *enrollment)
	return nil
}

func (s *stubProgramStore) CountByStatus(_ context.Context) (map[models.ProgramStatus]int, error) {
	counts := make(map[models.ProgramStatus]int)
	for _, program := range s.programs {
		counts[program.Status]++
	}
	return counts, nil
}

type stubUserStore struct {
	users map[string]models.User
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: map[string]models.User{
		testAdminID:  {ID: testAdminID, Email: "admin@example.com", FullName: "Admin", Role: models.RoleAdmin, Active: true},
		testMentorID: {ID: testMentorID, Email: "mentor@example.com", FullName: "Grace Hopper", Role: models.RoleMentor, Active: true},
		testInternID: {ID: testInternID, Email: "intern@example.com", FullName: "Ada Lovelace", Role: models.RoleIntern, Active: true},
	}}
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (s *stubUserStore) CreateAuditLog(_ context.Context, _ *models.AuditLog) error {
	return nil
}

func (s *stubUserStore) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, len(out), nil
}

type stubTaskStore struct{}

func (s *stubTaskStore) List(_ context.Context, _ models.TaskFilter) ([]models.TaskDetail, error) {
	return nil, nil
}

func (s *stubTaskStore) ListByMentor(_ context.Context, _ string) ([]models.Task, error) {
	return nil, nil
}

func (s *stubTaskStore) Count(_ context.Context) (int, error) {
	return 0, nil
}
