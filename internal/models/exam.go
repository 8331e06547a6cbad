package models

import "time"

// ExamCodeLength is the length of the shareable join code.
const ExamCodeLength = 6

// Exam is a teacher-owned exam with its uploaded question paper and rubric.
// ExamCode is the six character code students use to submit against it.
type Exam struct {
	ID                string    `db:"id" json:"id"`
	Title             string    `db:"title" json:"title"`
	ExamCode          string    `db:"exam_code" json:"exam_code"`
	TeacherID         string    `db:"teacher_id" json:"teacher_id"`
	QuestionPaperFile string    `db:"question_paper_file" json:"-"`
	RubricFile        string    `db:"rubric_file" json:"-"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
