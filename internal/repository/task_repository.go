package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ims-go-api/internal/models"
)

// TaskRepository handles persistence of tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, program_id, mentor_id, assigned_intern, priority, status, review_status, deadline, assigned_at, submitted_at, reviewed_at, submission_text, submission_link, submission_file, score, feedback, is_late, attempts, version, created_at, updated_at`

// FindByID returns a task by its ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 LIMIT 1`, taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// List returns tasks matching the filter, newest first.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.TaskDetail, error) {
	base := `FROM tasks t
JOIN internship_programs p ON p.id = t.program_id
JOIN users i ON i.id = t.assigned_intern
JOIN users m ON m.id = t.mentor_id`
	var conditions []string
	var args []interface{}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("t.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("t.mentor_id = $%d", len(args)+1))
		args = append(args, filter.MentorID)
	}
	if filter.InternID != "" {
		conditions = append(conditions, fmt.Sprintf("t.assigned_intern = $%d", len(args)+1))
		args = append(args, filter.InternID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(filter.ProgramIDs) > 0 {
		placeholders := make([]string, len(filter.ProgramIDs))
		for i, id := range filter.ProgramIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("t.program_id IN (%s)", strings.Join(placeholders, ", ")))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	cols := "t." + strings.ReplaceAll(taskColumns, ", ", ", t.")
	query := fmt.Sprintf(`SELECT %s, p.title AS program_title, i.full_name AS intern_name, m.full_name AS mentor_name %s ORDER BY t.created_at DESC`, cols, base+clause)

	var tasks []models.TaskDetail
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByInternAndProgram returns the bare task rows for one intern within
// one program, the working set of the performance aggregator.
func (r *TaskRepository) ListByInternAndProgram(ctx context.Context, internID, programID string) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE assigned_intern = $1 AND program_id = $2 ORDER BY created_at DESC`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, internID, programID); err != nil {
		return nil, fmt.Errorf("list tasks by intern and program: %w", err)
	}
	return tasks, nil
}

// ListByMentor returns every task owned by the mentor.
func (r *TaskRepository) ListByMentor(ctx context.Context, mentorID string) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE mentor_id = $1 ORDER BY created_at DESC`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, mentorID); err != nil {
		return nil, fmt.Errorf("list tasks by mentor: %w", err)
	}
	return tasks, nil
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.AssignedAt.IsZero() {
		task.AssignedAt = now
	}
	if task.Version == 0 {
		task.Version = 1
	}

	const query = `INSERT INTO tasks (id, title, description, program_id, mentor_id, assigned_intern, priority, status, review_status, deadline, assigned_at, submitted_at, reviewed_at, submission_text, submission_link, submission_file, score, feedback, is_late, attempts, version, created_at, updated_at)
VALUES (:id, :title, :description, :program_id, :mentor_id, :assigned_intern, :priority, :status, :review_status, :deadline, :assigned_at, :submitted_at, :reviewed_at, :submission_text, :submission_link, :submission_file, :score, :feedback, :is_late, :attempts, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update writes the mutable task fields guarded by the version the caller
// read. It returns false without error when the row moved on in the
// meantime (stale write).
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) (bool, error) {
	previousVersion := task.Version
	task.Version = previousVersion + 1
	task.UpdatedAt = time.Now().UTC()

	const query = `UPDATE tasks SET status = :status, review_status = :review_status, submitted_at = :submitted_at, reviewed_at = :reviewed_at, submission_text = :submission_text, submission_link = :submission_link, submission_file = :submission_file, score = :score, feedback = :feedback, is_late = :is_late, attempts = :attempts, version = :version, updated_at = :updated_at WHERE id = :id AND version = :previous_version`
	arg := struct {
		models.Task
		PreviousVersion int `db:"previous_version"`
	}{Task: *task, PreviousVersion: previousVersion}

	res, err := r.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update task affected rows: %w", err)
	}
	return affected > 0, nil
}

// Count returns the total number of tasks.
func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM tasks`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}
