package models

import (
	"database/sql"
	"time"
)

// Submission is a student's answer sheet for one exam. Grade stays private
// to the teacher until IsPublished flips.
type Submission struct {
	ID              string         `db:"id" json:"id"`
	ExamID          string         `db:"exam_id" json:"exam_id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	AnswerSheetFile string         `db:"answer_sheet_file" json:"-"`
	Grade           sql.NullString `db:"grade" json:"-"`
	IsPublished     bool           `db:"is_published" json:"is_published"`
	SubmittedAt     time.Time      `db:"submitted_at" json:"submitted_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// StudentSubmissionRow is the join view a student sees for their own
// submissions.
type StudentSubmissionRow struct {
	ID              string         `db:"id"`
	ExamTitle       string         `db:"exam_title"`
	ExamCode        string         `db:"exam_code"`
	AnswerSheetFile string         `db:"answer_sheet_file"`
	Grade           sql.NullString `db:"grade"`
	IsPublished     bool           `db:"is_published"`
	SubmittedAt     time.Time      `db:"submitted_at"`
}

// TeacherSubmissionRow is the join view a teacher sees across all exams
// they own.
type TeacherSubmissionRow struct {
	ID              string         `db:"id"`
	StudentName     string         `db:"student_name"`
	ExamTitle       string         `db:"exam_title"`
	ExamCode        string         `db:"exam_code"`
	AnswerSheetFile string         `db:"answer_sheet_file"`
	Grade           sql.NullString `db:"grade"`
	IsPublished     bool           `db:"is_published"`
	SubmittedAt     time.Time      `db:"submitted_at"`
}
