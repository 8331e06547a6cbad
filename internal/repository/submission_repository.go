package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/automark/automark-api/internal/models"
)

// SubmissionRepository handles persistence of answer sheet submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create persists a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = now
	}
	submission.UpdatedAt = now
	const query = `INSERT INTO submissions (id, exam_id, student_id, answer_sheet_file, grade, is_published, submitted_at, updated_at)
        VALUES (:id, :exam_id, :student_id, :answer_sheet_file, :grade, :is_published, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns the submission by its ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, exam_id, student_id, answer_sheet_file, grade, is_published, submitted_at, updated_at FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindExamTeacherID returns the owning teacher of the exam a submission
// belongs to. Used for ownership checks on grading operations.
func (r *SubmissionRepository) FindExamTeacherID(ctx context.Context, submissionID string) (string, error) {
	const query = `SELECT e.teacher_id FROM submissions s JOIN exams e ON e.id = s.exam_id WHERE s.id = $1`
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, query, submissionID); err != nil {
		return "", err
	}
	return teacherID, nil
}

// ListByStudent returns the student's submissions joined with exam info,
// newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentSubmissionRow, error) {
	const query = `SELECT s.id, e.title AS exam_title, e.exam_code, s.answer_sheet_file, s.grade, s.is_published, s.submitted_at
        FROM submissions s
        JOIN exams e ON e.id = s.exam_id
        WHERE s.student_id = $1
        ORDER BY s.submitted_at DESC`
	var rows []models.StudentSubmissionRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return rows, nil
}

// ListByTeacher returns every submission against the teacher's exams joined
// with student and exam info, newest first.
func (r *SubmissionRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubmissionRow, error) {
	const query = `SELECT s.id, u.username AS student_name, e.title AS exam_title, e.exam_code, s.answer_sheet_file, s.grade, s.is_published, s.submitted_at
        FROM submissions s
        JOIN exams e ON e.id = s.exam_id
        JOIN users u ON u.id = s.student_id
        WHERE e.teacher_id = $1
        ORDER BY s.submitted_at DESC`
	var rows []models.TeacherSubmissionRow
	if err := r.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher submissions: %w", err)
	}
	return rows, nil
}

// UpdateGrade replaces the grade text for a submission.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, id, grade string) error {
	const query = `UPDATE submissions SET grade = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, grade, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return requireRowAffected(result)
}

// SetDraftGrade writes a grade only when none exists yet, so a background
// grader never clobbers a teacher's manual grade.
func (r *SubmissionRepository) SetDraftGrade(ctx context.Context, id, grade string) error {
	const query = `UPDATE submissions SET grade = $2, updated_at = $3 WHERE id = $1 AND grade IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("set draft grade: %w", err)
	}
	return nil
}

// Publish marks the submission's grade visible to the student.
func (r *SubmissionRepository) Publish(ctx context.Context, id string) error {
	const query = `UPDATE submissions SET is_published = TRUE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("publish grade: %w", err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
