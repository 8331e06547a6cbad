package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/service"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/response"
)

// UploadLimits caps incoming multipart files before they reach storage.
type UploadLimits struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// ExamHandler wires HTTP endpoints to the exam service.
type ExamHandler struct {
	service *service.ExamService
	metrics *service.MetricsService
	limits  UploadLimits
}

// NewExamHandler creates a new handler.
func NewExamHandler(svc *service.ExamService, metrics *service.MetricsService, limits UploadLimits) *ExamHandler {
	return &ExamHandler{service: svc, metrics: metrics, limits: limits}
}

// Create godoc
// @Summary Create exam
// @Description Create an exam with question paper and rubric uploads
// @Tags Exams
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Exam title"
// @Param question_paper formData file true "Question paper PDF"
// @Param rubric_file formData file true "Rubric PDF"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /create-exam [post]
func (h *ExamHandler) Create(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateExamRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}

	questionPaper, err := openUpload(c, "question_paper", h.limits)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer questionPaper.close()

	rubric, err := openUpload(c, "rubric_file", h.limits)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rubric.close()

	exam, err := h.service.Create(c.Request.Context(), session.UserID, req, questionPaper.upload, rubric.upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordExamCreated()
	response.JSON(c, http.StatusCreated, exam, "Exam created")
}

// List godoc
// @Summary List own exams
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	exams, err := h.service.ListByTeacher(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, exams)
}
