package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRepositoryListByTeacherJoins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_name", "exam_title", "exam_code", "answer_sheet_file", "grade", "is_published", "submitted_at"}).
		AddRow("sub-1", "alice", "Algebra Final", "AB12CD", "answers/a.pdf", "85/100", true, time.Now()).
		AddRow("sub-2", "bob", "Algebra Final", "AB12CD", "answers/b.pdf", nil, false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(rows)

	result, err := repo.ListByTeacher(context.Background(), "tch-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, "alice", result[0].StudentName)
	require.True(t, result[0].Grade.Valid)
	require.False(t, result[1].Grade.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateGradeMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET grade = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrade(context.Background(), "missing", "90/100")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryPublish(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET is_published = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Publish(context.Background(), "sub-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindExamTeacherID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id"}).AddRow("tch-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.teacher_id FROM submissions s JOIN exams e ON e.id = s.exam_id WHERE s.id = $1")).
		WithArgs("sub-1").
		WillReturnRows(rows)

	teacherID, err := repo.FindExamTeacherID(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, "tch-1", teacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}
