package dto

import "time"

// SubmitAnswerRequest is the metadata part of the multipart answer upload.
type SubmitAnswerRequest struct {
	ExamCode string `form:"exam_code" validate:"required,len=6,alphanum"`
}

// StudentSubmission is what a student sees for one of their submissions.
// Grade is only present once the teacher has published it.
type StudentSubmission struct {
	ID             string    `json:"id"`
	ExamTitle      string    `json:"exam_title"`
	ExamCode       string    `json:"exam_code"`
	Grade          *string   `json:"grade"`
	IsPublished    bool      `json:"is_published"`
	AnswerSheetURL string    `json:"answer_sheet_url,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// TeacherSubmission is what a teacher sees for a submission against one of
// their exams. The grade is always visible to the owner.
type TeacherSubmission struct {
	ID             string    `json:"id"`
	StudentName    string    `json:"student_name"`
	ExamTitle      string    `json:"exam_title"`
	ExamCode       string    `json:"exam_code"`
	Grade          *string   `json:"grade"`
	IsPublished    bool      `json:"is_published"`
	AnswerSheetURL string    `json:"answer_sheet_url,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// UpdateGradeRequest sets or replaces a submission's grade text.
type UpdateGradeRequest struct {
	Grade string `json:"grade" validate:"required,max=10000"`
}
