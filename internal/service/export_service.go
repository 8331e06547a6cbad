package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/automark/automark-api/internal/models"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/export"
)

type exportSubmissionRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubmissionRow, error)
}

// ExportFormat selects the rendered output for submission exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus the response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders a teacher's submission list as CSV or PDF.
type ExportService struct {
	repo   exportSubmissionRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(repo exportSubmissionRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var submissionExportHeaders = []string{"Student", "Exam", "Code", "Grade", "Published", "Submitted At"}

// ExportSubmissions renders all submissions against the teacher's exams.
func (s *ExportService) ExportSubmissions(ctx context.Context, teacherID string, format ExportFormat) (*ExportResult, error) {
	rows, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	data := export.Dataset{Headers: submissionExportHeaders}
	for _, row := range rows {
		grade := ""
		if row.Grade.Valid {
			grade = row.Grade.String
		}
		data.Rows = append(data.Rows, map[string]string{
			"Student":      row.StudentName,
			"Exam":         row.ExamTitle,
			"Code":         row.ExamCode,
			"Grade":        grade,
			"Published":    strconv.FormatBool(row.IsPublished),
			"Submitted At": row.SubmittedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(data, "Submissions")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: "submissions.pdf"}, nil
	case ExportFormatCSV, "":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: "submissions.csv"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
