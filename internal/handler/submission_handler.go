package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/service"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/response"
)

// SubmissionHandler wires HTTP endpoints to the submission service.
type SubmissionHandler struct {
	service *service.SubmissionService
	exports *service.ExportService
	metrics *service.MetricsService
	limits  UploadLimits
}

// NewSubmissionHandler creates a new handler. exports may be nil when the
// export endpoint is disabled.
func NewSubmissionHandler(svc *service.SubmissionService, exports *service.ExportService, metrics *service.MetricsService, limits UploadLimits) *SubmissionHandler {
	return &SubmissionHandler{service: svc, exports: exports, metrics: metrics, limits: limits}
}

// Submit godoc
// @Summary Submit answer sheet
// @Description Submit an answer sheet against an exam code
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param exam_code formData string true "Exam code"
// @Param answer_sheet formData file true "Answer sheet PDF"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submit-answer [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	answerSheet, err := openUpload(c, "answer_sheet", h.limits)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer answerSheet.close()

	submission, err := h.service.Submit(c.Request.Context(), session.UserID, req, answerSheet.upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordSubmission()
	response.JSON(c, http.StatusCreated, submission, "Submission received")
}

// ListForStudent godoc
// @Summary List own submissions
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) ListForStudent(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submissions, err := h.service.ListForStudent(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submissions)
}

// ListForTeacher godoc
// @Summary List submissions against own exams
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher/submissions [get]
func (h *SubmissionHandler) ListForTeacher(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submissions, err := h.service.ListForTeacher(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submissions)
}

// UpdateGrade godoc
// @Summary Update grade
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /update_grade/{id} [post]
func (h *SubmissionHandler) UpdateGrade(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	if err := h.service.UpdateGrade(c.Request.Context(), session.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, nil, "Grade updated")
}

// PublishGrade godoc
// @Summary Publish grade
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /publish_grade/{id} [post]
func (h *SubmissionHandler) PublishGrade(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.PublishGrade(c.Request.Context(), session.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordGradePublished()
	response.JSON(c, http.StatusOK, nil, "Grade published")
}

// Export godoc
// @Summary Export submissions
// @Description Download all submissions against own exams as CSV or PDF
// @Tags Submissions
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /teacher/submissions/export [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.ExportSubmissions(c.Request.Context(), session.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
