package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ims-go-api/internal/models"
)

func newTaskRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func taskTestColumns() []string {
	return []string{"id", "title", "description", "program_id", "mentor_id", "assigned_intern", "priority", "status", "review_status", "deadline", "assigned_at", "submitted_at", "reviewed_at", "submission_text", "submission_link", "submission_file", "score", "feedback", "is_late", "attempts", "version", "created_at", "updated_at"}
}

func TestTaskRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	task := &models.Task{
		Title:          "Build login page",
		ProgramID:      "program-1",
		MentorID:       "mentor-1",
		AssignedIntern: "intern-1",
		Priority:       models.PriorityMedium,
		Status:         models.TaskStatusPending,
		ReviewStatus:   models.ReviewStatusPending,
		Deadline:       time.Now().Add(72 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), task))
	require.NotEmpty(t, task.ID)
	require.Equal(t, 1, task.Version)
	require.False(t, task.AssignedAt.IsZero())

	rows := sqlmock.NewRows(taskTestColumns()).
		AddRow(task.ID, task.Title, "", task.ProgramID, task.MentorID, task.AssignedIntern, task.Priority, task.Status, task.ReviewStatus, task.Deadline, task.AssignedAt, nil, nil, nil, nil, nil, nil, nil, false, 0, 1, task.CreatedAt, task.UpdatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, program_id")).
		WithArgs(task.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, found.ID)
	require.Equal(t, models.TaskStatusPending, found.Status)
	require.Nil(t, found.Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateGuardsVersion(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	task := &models.Task{
		ID:           "task-1",
		Status:       models.TaskStatusSubmitted,
		ReviewStatus: models.ReviewStatusPending,
		Attempts:     1,
		Version:      3,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.Update(context.Background(), task)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 4, task.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateStaleVersion(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	task := &models.Task{ID: "task-1", Status: models.TaskStatusSubmitted, Version: 2}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.Update(context.Background(), task)
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	now := time.Now()
	cols := append(taskTestColumns(), "program_title", "intern_name", "mentor_name")
	rows := sqlmock.NewRows(cols).
		AddRow("task-1", "Wire the API", "", "program-1", "mentor-1", "intern-1", "high", "submitted", "pending", now, now, now, nil, "done", nil, nil, nil, nil, false, 1, 2, now, now, "Backend Internship", "Ada Lovelace", "Grace Hopper")
	mock.ExpectQuery("SELECT t\\.id, .+ FROM tasks t").
		WithArgs("program-1", "mentor-1").
		WillReturnRows(rows)

	tasks, err := repo.List(context.Background(), models.TaskFilter{ProgramID: "program-1", MentorID: "mentor-1"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Backend Internship", tasks[0].ProgramTitle)
	require.Equal(t, "Ada Lovelace", tasks[0].InternName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryListByInternAndProgram(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	now := time.Now()
	score := 8.0
	rows := sqlmock.NewRows(taskTestColumns()).
		AddRow("task-1", "Write tests", "", "program-1", "mentor-1", "intern-1", "low", "approved", "reviewed", now, now, now, now, "done", nil, nil, score, "Good work", false, 1, 3, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE assigned_intern = $1 AND program_id = $2")).
		WithArgs("intern-1", "program-1").
		WillReturnRows(rows)

	tasks, err := repo.ListByInternAndProgram(context.Background(), "intern-1", "program-1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].Score)
	require.Equal(t, 8.0, *tasks[0].Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCount(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()

	repo := NewTaskRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tasks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
