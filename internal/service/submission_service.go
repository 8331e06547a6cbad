package service

import (
	"context"
	"database/sql"
	"errors"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/models"
	appErrors "github.com/automark/automark-api/pkg/errors"
)

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindExamTeacherID(ctx context.Context, submissionID string) (string, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentSubmissionRow, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubmissionRow, error)
	UpdateGrade(ctx context.Context, id, grade string) error
	Publish(ctx context.Context, id string) error
}

type submissionExamRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Exam, error)
}

// GradeEnqueuer hands a freshly stored submission to the background grading
// pipeline. A nil enqueuer disables automated draft grading.
type GradeEnqueuer interface {
	EnqueueSubmission(submissionID string) error
}

// SubmissionService provides answer sheet submission and grading flows.
type SubmissionService struct {
	repo      submissionRepository
	exams     submissionExamRepository
	files     examFileStore
	signer    examURLSigner
	audits    authAuditRepository
	grader    GradeEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(repo submissionRepository, exams submissionExamRepository, files examFileStore, signer examURLSigner, audits authAuditRepository, grader GradeEnqueuer, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{repo: repo, exams: exams, files: files, signer: signer, audits: audits, grader: grader, validator: validate, logger: logger}
}

// Submit stores a student's answer sheet against the exam behind the code.
func (s *SubmissionService) Submit(ctx context.Context, studentID string, req dto.SubmitAnswerRequest, answerSheet ExamUpload) (*dto.StudentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if answerSheet.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer sheet file is required")
	}

	exam, err := s.exams.FindByCode(ctx, req.ExamCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownExamCode
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve exam code")
	}

	submissionID := uuid.NewString()
	sheetRef := path.Join("answers", submissionID+".pdf")
	if err := s.files.SaveStream(sheetRef, answerSheet.Reader); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store answer sheet")
	}

	submission := &models.Submission{
		ID:              submissionID,
		ExamID:          exam.ID,
		StudentID:       studentID,
		AnswerSheetFile: sheetRef,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		if delErr := s.files.Delete(sheetRef); delErr != nil {
			s.logger.Warn("failed to clean up answer sheet", zap.String("ref", sheetRef), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	s.audit(ctx, studentID, models.AuditActionSubmissionCreate, "submission "+submission.ID)

	if s.grader != nil {
		if err := s.grader.EnqueueSubmission(submission.ID); err != nil {
			s.logger.Warn("failed to enqueue submission for grading", zap.String("submission_id", submission.ID), zap.Error(err))
		}
	}

	return &dto.StudentSubmission{
		ID:          submission.ID,
		ExamTitle:   exam.Title,
		ExamCode:    exam.ExamCode,
		IsPublished: false,
		SubmittedAt: submission.SubmittedAt,
	}, nil
}

// ListForStudent returns the student's submissions. Grades stay hidden until
// the teacher publishes them.
func (s *SubmissionService) ListForStudent(ctx context.Context, studentID string) ([]dto.StudentSubmission, error) {
	rows, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	result := make([]dto.StudentSubmission, 0, len(rows))
	for _, row := range rows {
		item := dto.StudentSubmission{
			ID:          row.ID,
			ExamTitle:   row.ExamTitle,
			ExamCode:    row.ExamCode,
			IsPublished: row.IsPublished,
			SubmittedAt: row.SubmittedAt,
		}
		if row.IsPublished && row.Grade.Valid {
			grade := row.Grade.String
			item.Grade = &grade
		}
		item.AnswerSheetURL = s.signDownload(row.ID, row.AnswerSheetFile)
		result = append(result, item)
	}
	return result, nil
}

// ListForTeacher returns every submission against the teacher's exams with
// grades always visible to the owner.
func (s *SubmissionService) ListForTeacher(ctx context.Context, teacherID string) ([]dto.TeacherSubmission, error) {
	rows, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	result := make([]dto.TeacherSubmission, 0, len(rows))
	for _, row := range rows {
		item := dto.TeacherSubmission{
			ID:          row.ID,
			StudentName: row.StudentName,
			ExamTitle:   row.ExamTitle,
			ExamCode:    row.ExamCode,
			IsPublished: row.IsPublished,
			SubmittedAt: row.SubmittedAt,
		}
		if row.Grade.Valid {
			grade := row.Grade.String
			item.Grade = &grade
		}
		item.AnswerSheetURL = s.signDownload(row.ID, row.AnswerSheetFile)
		result = append(result, item)
	}
	return result, nil
}

// UpdateGrade replaces the grade on a submission owned by the teacher.
func (s *SubmissionService) UpdateGrade(ctx context.Context, teacherID, submissionID string, req dto.UpdateGradeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := s.requireOwnership(ctx, teacherID, submissionID); err != nil {
		return err
	}
	if err := s.repo.UpdateGrade(ctx, submissionID, req.Grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}

	s.audit(ctx, teacherID, models.AuditActionGradeUpdate, "submission "+submissionID)

	return nil
}

// PublishGrade makes the grade visible to the student. Publishing is
// idempotent.
func (s *SubmissionService) PublishGrade(ctx context.Context, teacherID, submissionID string) error {
	if err := s.requireOwnership(ctx, teacherID, submissionID); err != nil {
		return err
	}
	if err := s.repo.Publish(ctx, submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish grade")
	}

	s.audit(ctx, teacherID, models.AuditActionGradePublish, "submission "+submissionID)

	return nil
}

// requireOwnership confirms the submission's exam belongs to the teacher. A
// foreign submission reads as not found rather than forbidden so IDs are not
// probeable.
func (s *SubmissionService) requireOwnership(ctx context.Context, teacherID, submissionID string) error {
	ownerID, err := s.repo.FindExamTeacherID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check submission ownership")
	}
	if ownerID != teacherID {
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return nil
}

func (s *SubmissionService) signDownload(entityID, ref string) string {
	if s.signer == nil || ref == "" {
		return ""
	}
	token, _, err := s.signer.Generate(entityID, ref)
	if err != nil {
		s.logger.Warn("failed to sign download link", zap.String("entity_id", entityID), zap.Error(err))
		return ""
	}
	return downloadPath(token)
}

func (s *SubmissionService) audit(ctx context.Context, userID, action, detail string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Create(ctx, &models.AuditLog{UserID: userID, Action: action, Detail: detail}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
