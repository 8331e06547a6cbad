package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/models"
	appErrors "github.com/automark/automark-api/pkg/errors"
)

const examCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// examCodeMaxAttempts bounds code regeneration when an insert collides with
// an existing code.
const examCodeMaxAttempts = 5

type examRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Exam, error)
}

type examFileStore interface {
	SaveStream(ref string, r io.Reader) error
	Delete(ref string) error
}

type examURLSigner interface {
	Generate(entityID, ref string) (string, time.Time, error)
}

// ExamUpload is one incoming file part of the create-exam request.
type ExamUpload struct {
	Filename string
	Reader   io.Reader
}

// ExamService provides exam creation and listing for teachers.
type ExamService struct {
	repo      examRepository
	files     examFileStore
	signer    examURLSigner
	audits    authAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(repo examRepository, files examFileStore, signer examURLSigner, audits authAuditRepository, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{repo: repo, files: files, signer: signer, audits: audits, validator: validate, logger: logger}
}

// Create stores the question paper and rubric, then persists the exam with a
// fresh shareable code. Code collisions are resolved by regenerating and
// retrying the insert; the unique index is the arbiter, not a lookup.
func (s *ExamService) Create(ctx context.Context, teacherID string, req dto.CreateExamRequest, questionPaper, rubric ExamUpload) (*dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if questionPaper.Reader == nil || rubric.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question paper and rubric files are required")
	}

	examID := uuid.NewString()
	paperRef := path.Join("papers", examID+"-question.pdf")
	rubricRef := path.Join("papers", examID+"-rubric.pdf")

	if err := s.files.SaveStream(paperRef, questionPaper.Reader); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store question paper")
	}
	if err := s.files.SaveStream(rubricRef, rubric.Reader); err != nil {
		s.cleanupFiles(paperRef)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rubric")
	}

	exam := &models.Exam{
		ID:                examID,
		Title:             req.Title,
		TeacherID:         teacherID,
		QuestionPaperFile: paperRef,
		RubricFile:        rubricRef,
	}

	var lastErr error
	for attempt := 0; attempt < examCodeMaxAttempts; attempt++ {
		code, err := generateExamCode()
		if err != nil {
			s.cleanupFiles(paperRef, rubricRef)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate exam code")
		}
		exam.ExamCode = code
		lastErr = s.repo.Create(ctx, exam)
		if lastErr == nil {
			break
		}
		if !isDuplicate(lastErr) {
			s.cleanupFiles(paperRef, rubricRef)
			return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
		}
		s.logger.Warn("exam code collision, regenerating", zap.String("exam_id", examID), zap.Int("attempt", attempt+1))
	}
	if lastErr != nil {
		s.cleanupFiles(paperRef, rubricRef)
		return nil, appErrors.Wrap(lastErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "exhausted exam code attempts")
	}

	s.audit(ctx, teacherID, models.AuditActionExamCreate, "exam "+exam.ID)

	return s.toResponse(exam), nil
}

// ListByTeacher returns the teacher's exams with signed download links.
func (s *ExamService) ListByTeacher(ctx context.Context, teacherID string) ([]dto.ExamResponse, error) {
	exams, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	result := make([]dto.ExamResponse, 0, len(exams))
	for i := range exams {
		result = append(result, *s.toResponse(&exams[i]))
	}
	return result, nil
}

func (s *ExamService) toResponse(exam *models.Exam) *dto.ExamResponse {
	resp := dto.NewExamResponse(exam)
	if s.signer == nil {
		return resp
	}
	if token, _, err := s.signer.Generate(exam.ID, exam.QuestionPaperFile); err == nil {
		resp.QuestionPaperURL = downloadPath(token)
	} else {
		s.logger.Warn("failed to sign question paper link", zap.String("exam_id", exam.ID), zap.Error(err))
	}
	if token, _, err := s.signer.Generate(exam.ID, exam.RubricFile); err == nil {
		resp.RubricURL = downloadPath(token)
	} else {
		s.logger.Warn("failed to sign rubric link", zap.String("exam_id", exam.ID), zap.Error(err))
	}
	return resp
}

func (s *ExamService) cleanupFiles(refs ...string) {
	for _, ref := range refs {
		if err := s.files.Delete(ref); err != nil {
			s.logger.Warn("failed to clean up stored file", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func (s *ExamService) audit(ctx context.Context, userID, action, detail string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Create(ctx, &models.AuditLog{UserID: userID, Action: action, Detail: detail}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func downloadPath(token string) string {
	return "/api/files/download?token=" + token
}

func generateExamCode() (string, error) {
	// Rejection sampling keeps every character equally likely; taking a raw
	// byte mod 36 would skew toward the start of the alphabet.
	const limit = 256 - 256%len(examCodeAlphabet)
	code := make([]byte, 0, models.ExamCodeLength)
	buf := make([]byte, models.ExamCodeLength)
	for len(code) < models.ExamCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, examCodeAlphabet[int(b)%len(examCodeAlphabet)])
			if len(code) == models.ExamCodeLength {
				break
			}
		}
	}
	return string(code), nil
}
