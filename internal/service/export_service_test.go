package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automark/automark-api/internal/models"
)

func TestExportServiceCSV(t *testing.T) {
	repo := newMockSubmissionRepo()
	repo.teacherRows = []models.TeacherSubmissionRow{
		{ID: "sub-1", StudentName: "alice", ExamTitle: "Algebra", ExamCode: "AB12CD", Grade: sql.NullString{String: "90/100", Valid: true}, IsPublished: true, SubmittedAt: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)},
		{ID: "sub-2", StudentName: "bob", ExamTitle: "Algebra", ExamCode: "AB12CD", SubmittedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	svc := NewExportService(repo, nil)

	result, err := svc.ExportSubmissions(context.Background(), "tch-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "submissions.csv", result.Filename)

	body := string(result.Content)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Student")
	assert.Contains(t, lines[1], "alice")
	assert.Contains(t, lines[1], "90/100")
	assert.Contains(t, lines[2], "bob")
}

func TestExportServicePDF(t *testing.T) {
	repo := newMockSubmissionRepo()
	repo.teacherRows = []models.TeacherSubmissionRow{
		{ID: "sub-1", StudentName: "alice", ExamTitle: "Algebra", ExamCode: "AB12CD", SubmittedAt: time.Now()},
	}
	svc := NewExportService(repo, nil)

	result, err := svc.ExportSubmissions(context.Background(), "tch-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(newMockSubmissionRepo(), nil)

	_, err := svc.ExportSubmissions(context.Background(), "tch-1", ExportFormat("xlsx"))
	require.Error(t, err)
}
