package dto

import (
	"time"

	"github.com/automark/automark-api/internal/models"
)

// CreateExamRequest is the metadata part of the multipart exam upload. The
// question paper and rubric arrive as file parts.
type CreateExamRequest struct {
	Title string `form:"title" validate:"required,min=1,max=200"`
}

// ExamResponse is the teacher-facing shape of an exam. File URLs are signed
// download links, not raw storage paths.
type ExamResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ExamCode         string    `json:"exam_code"`
	QuestionPaperURL string    `json:"question_paper_url,omitempty"`
	RubricURL        string    `json:"rubric_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewExamResponse maps an exam model, leaving file URLs for the service to
// fill in once signed.
func NewExamResponse(e *models.Exam) *ExamResponse {
	if e == nil {
		return nil
	}
	return &ExamResponse{
		ID:        e.ID,
		Title:     e.Title,
		ExamCode:  e.ExamCode,
		CreatedAt: e.CreatedAt,
	}
}
