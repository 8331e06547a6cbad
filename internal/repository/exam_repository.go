package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/automark/automark-api/internal/models"
)

// ExamRepository handles persistence of exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Create persists a new exam. A unique index on exam_code means a code
// collision surfaces as ErrDuplicate so the caller can regenerate and retry.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exams (id, title, exam_code, teacher_id, question_paper_file, rubric_file, created_at)
        VALUES (:id, :title, :exam_code, :teacher_id, :question_paper_file, :rubric_file, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// FindByCode returns the exam matching the shareable code.
func (r *ExamRepository) FindByCode(ctx context.Context, code string) (*models.Exam, error) {
	const query = `SELECT id, title, exam_code, teacher_id, question_paper_file, rubric_file, created_at FROM exams WHERE exam_code = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, code); err != nil {
		return nil, err
	}
	return &exam, nil
}

// FindByID returns the exam by its ID.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, title, exam_code, teacher_id, question_paper_file, rubric_file, created_at FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListByTeacher returns all exams owned by the teacher, newest first.
func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Exam, error) {
	const query = `SELECT id, title, exam_code, teacher_id, question_paper_file, rubric_file, created_at FROM exams WHERE teacher_id = $1 ORDER BY created_at DESC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher exams: %w", err)
	}
	return exams, nil
}
