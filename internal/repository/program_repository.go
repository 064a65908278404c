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

// ProgramRepository handles persistence of internship programs and
// their enrollments.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = `id, title, domain, description, rules, mentor_id, start_date, end_date, duration_in_weeks, status, created_at, updated_at`

// FindByID returns a program by its ID.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	query := fmt.Sprintf(`SELECT %s FROM internship_programs WHERE id = $1 LIMIT 1`, programColumns)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find program by id: %w", err)
	}
	return &program, nil
}

// FindByTitle returns a program with the exact title, if any.
func (r *ProgramRepository) FindByTitle(ctx context.Context, title string) (*models.Program, error) {
	query := fmt.Sprintf(`SELECT %s FROM internship_programs WHERE title = $1 LIMIT 1`, programColumns)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, title); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find program by title: %w", err)
	}
	return &program, nil
}

// List returns programs matching the filter with a total count.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	base := `FROM internship_programs p`
	var conditions []string
	var args []interface{}

	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("p.mentor_id = $%d", len(args)+1))
		args = append(args, filter.MentorID)
	}
	if filter.InternID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM program_enrollments pe WHERE pe.program_id = p.id AND pe.intern_id = $%d)", len(args)+1))
		args = append(args, filter.InternID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, s)
		}
		conditions = append(conditions, fmt.Sprintf("p.status IN (%s)", strings.Join(placeholders, ", ")))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.%s %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`,
		strings.ReplaceAll(programColumns, ", ", ", p."), base+clause, size, offset)

	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// Create inserts a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now

	const query = `INSERT INTO internship_programs (id, title, domain, description, rules, mentor_id, start_date, end_date, duration_in_weeks, status, created_at, updated_at)
VALUES (:id, :title, :domain, :description, :rules, :mentor_id, :start_date, :end_date, :duration_in_weeks, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update persists mutable program fields.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE internship_programs SET title = :title, domain = :domain, description = :description, rules = :rules, start_date = :start_date, end_date = :end_date, duration_in_weeks = :duration_in_weeks, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// UpdateStatus advances the lifecycle status. The previous status is part
// of the predicate so a concurrent transition cannot be overwritten; zero
// affected rows means the caller read a stale status.
func (r *ProgramRepository) UpdateStatus(ctx context.Context, id string, from, to models.ProgramStatus) (bool, error) {
	const query = `UPDATE internship_programs SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update program status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update program status affected rows: %w", err)
	}
	return affected > 0, nil
}

// HasProgramsForMentor reports whether any program references the mentor.
func (r *ProgramRepository) HasProgramsForMentor(ctx context.Context, mentorID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM internship_programs WHERE mentor_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, mentorID); err != nil {
		return false, fmt.Errorf("check mentor programs: %w", err)
	}
	return exists, nil
}

// ListEnrollments returns the enrollments of a program with intern and
// mentor identity, oldest first.
func (r *ProgramRepository) ListEnrollments(ctx context.Context, programID string) ([]models.Enrollment, error) {
	const query = `SELECT pe.id, pe.program_id, pe.intern_id, pe.mentor_id, pe.enrolled_at,
       i.full_name AS intern_name, m.full_name AS mentor_name
FROM program_enrollments pe
JOIN users i ON i.id = pe.intern_id
JOIN users m ON m.id = pe.mentor_id
WHERE pe.program_id = $1
ORDER BY pe.enrolled_at ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, programID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// CountEnrollments returns the enrollment count for a program.
func (r *ProgramRepository) CountEnrollments(ctx context.Context, programID string) (int, error) {
	const query = `SELECT COUNT(*) FROM program_enrollments WHERE program_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, programID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// IsEnrolled reports whether the intern is enrolled in the program.
func (r *ProgramRepository) IsEnrolled(ctx context.Context, programID, internID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM program_enrollments WHERE program_id = $1 AND intern_id = $2)`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, programID, internID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

// Enroll appends an enrollment record.
func (r *ProgramRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO program_enrollments (id, program_id, intern_id, mentor_id, enrolled_at) VALUES (:id, :program_id, :intern_id, :mentor_id, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("enroll intern: %w", err)
	}
	return nil
}

// CountByStatus aggregates program counts per lifecycle status.
func (r *ProgramRepository) CountByStatus(ctx context.Context) (map[models.ProgramStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM internship_programs GROUP BY status`
	rows := []struct {
		Status models.ProgramStatus `db:"status"`
		Count  int                  `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count programs by status: %w", err)
	}
	counts := make(map[models.ProgramStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
