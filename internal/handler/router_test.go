package handler

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/middleware"
	"github.com/automark/automark-api/internal/models"
	"github.com/automark/automark-api/internal/repository"
	"github.com/automark/automark-api/internal/service"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/storage"
)

const testCookieName = "automark_session"

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*models.User{}}
}

func (m *memUserRepo) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = "usr-" + user.Username
	}
	m.users[user.Username] = user
	return nil
}

func (m *memUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*models.Session{}}
}

func (m *memSessionRepo) Save(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionRepo) Find(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, appErrors.ErrSessionMiss
	}
	return session, nil
}

func (m *memSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type memAuditRepo struct{}

func (memAuditRepo) Create(_ context.Context, _ *models.AuditLog) error { return nil }

type memExamRepo struct {
	mu    sync.Mutex
	exams map[string]*models.Exam
}

func newMemExamRepo() *memExamRepo {
	return &memExamRepo{exams: map[string]*models.Exam{}}
}

func (m *memExamRepo) Create(_ context.Context, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.exams {
		if existing.ExamCode == exam.ExamCode {
			return repository.ErrDuplicate
		}
	}
	stored := *exam
	m.exams[exam.ID] = &stored
	return nil
}

func (m *memExamRepo) FindByID(_ context.Context, id string) (*models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return exam, nil
}

func (m *memExamRepo) FindByCode(_ context.Context, code string) (*models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, exam := range m.exams {
		if exam.ExamCode == code {
			return exam, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memExamRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Exam
	for _, exam := range m.exams {
		if exam.TeacherID == teacherID {
			result = append(result, *exam)
		}
	}
	return result, nil
}

type memSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*models.Submission
	exams       *memExamRepo
	users       *memUserRepo
}

func newMemSubmissionRepo(exams *memExamRepo, users *memUserRepo) *memSubmissionRepo {
	return &memSubmissionRepo{submissions: map[string]*models.Submission{}, exams: exams, users: users}
}

func (m *memSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	stored := *submission
	m.submissions[submission.ID] = &stored
	return nil
}

func (m *memSubmissionRepo) FindByID(_ context.Context, id string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return submission, nil
}

func (m *memSubmissionRepo) FindExamTeacherID(ctx context.Context, submissionID string) (string, error) {
	submission, err := m.FindByID(ctx, submissionID)
	if err != nil {
		return "", err
	}
	exam, err := m.exams.FindByID(ctx, submission.ExamID)
	if err != nil {
		return "", err
	}
	return exam.TeacherID, nil
}

func (m *memSubmissionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.StudentSubmissionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.StudentSubmissionRow
	for _, submission := range m.submissions {
		if submission.StudentID != studentID {
			continue
		}
		exam := m.exams.exams[submission.ExamID]
		rows = append(rows, models.StudentSubmissionRow{
			ID:              submission.ID,
			ExamTitle:       exam.Title,
			ExamCode:        exam.ExamCode,
			AnswerSheetFile: submission.AnswerSheetFile,
			Grade:           submission.Grade,
			IsPublished:     submission.IsPublished,
			SubmittedAt:     submission.SubmittedAt,
		})
	}
	return rows, nil
}

func (m *memSubmissionRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubmissionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.TeacherSubmissionRow
	for _, submission := range m.submissions {
		exam := m.exams.exams[submission.ExamID]
		if exam == nil || exam.TeacherID != teacherID {
			continue
		}
		studentName := submission.StudentID
		for _, user := range m.users.users {
			if user.ID == submission.StudentID {
				studentName = user.Username
			}
		}
		rows = append(rows, models.TeacherSubmissionRow{
			ID:              submission.ID,
			StudentName:     studentName,
			ExamTitle:       exam.Title,
			ExamCode:        exam.ExamCode,
			AnswerSheetFile: submission.AnswerSheetFile,
			Grade:           submission.Grade,
			IsPublished:     submission.IsPublished,
			SubmittedAt:     submission.SubmittedAt,
		})
	}
	return rows, nil
}

func (m *memSubmissionRepo) UpdateGrade(_ context.Context, id, grade string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	submission.Grade = sql.NullString{String: grade, Valid: true}
	return nil
}

func (m *memSubmissionRepo) SetDraftGrade(_ context.Context, id, grade string) error {
	return m.UpdateGrade(context.Background(), id, grade)
}

func (m *memSubmissionRepo) Publish(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	submission.IsPublished = true
	return nil
}

type testEnv struct {
	router      *gin.Engine
	users       *memUserRepo
	sessions    *memSessionRepo
	exams       *memExamRepo
	submissions *memSubmissionRepo
	store       *storage.LocalStorage
}

func newTestEnv(baseDir string) *testEnv {
	gin.SetMode(gin.TestMode)

	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	exams := newMemExamRepo()
	submissions := newMemSubmissionRepo(exams, users)
	store, err := storage.NewLocalStorage(baseDir)
	if err != nil {
		panic(err)
	}
	signer := storage.NewSignedURLSigner("handler-test-secret", time.Hour)

	authSvc := service.NewAuthService(users, sessions, memAuditRepo{}, nil, nil, service.AuthConfig{
		TokenSecret: "handler-test-secret",
		SessionTTL:  time.Hour,
	})
	examSvc := service.NewExamService(exams, store, signer, memAuditRepo{}, nil, nil)
	submissionSvc := service.NewSubmissionService(submissions, exams, store, signer, memAuditRepo{}, nil, nil, nil)
	exportSvc := service.NewExportService(submissions, nil)
	metricsSvc := service.NewMetricsService()

	cookie := CookieSettings{Name: testCookieName, MaxAge: 3600}
	limits := UploadLimits{MaxFileSizeBytes: 1 << 20, AllowedMIMEs: []string{"application/pdf"}}

	authHandler := NewAuthHandler(authSvc, cookie)
	examHandler := NewExamHandler(examSvc, metricsSvc, limits)
	submissionHandler := NewSubmissionHandler(submissionSvc, exportSvc, metricsSvc, limits)
	fileHandler := NewFileHandler(signer, store)

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/login", authHandler.Login)
		api.POST("/register", authHandler.Register)
		api.GET("/check-session", authHandler.CheckSession)
		api.POST("/logout", authHandler.Logout)
		api.GET("/files/download", fileHandler.Download)

		teacher := api.Group("")
		teacher.Use(middleware.Session(authSvc, testCookieName), middleware.RequireRoles(models.RoleTeacher))
		{
			teacher.POST("/create-exam", examHandler.Create)
			teacher.GET("/exams", examHandler.List)
			teacher.GET("/teacher/submissions", submissionHandler.ListForTeacher)
			teacher.GET("/teacher/submissions/export", submissionHandler.Export)
			teacher.POST("/publish_grade/:id", submissionHandler.PublishGrade)
			teacher.POST("/update_grade/:id", submissionHandler.UpdateGrade)
		}

		student := api.Group("")
		student.Use(middleware.Session(authSvc, testCookieName), middleware.RequireRoles(models.RoleStudent))
		{
			student.POST("/submit-answer", submissionHandler.Submit)
			student.GET("/submissions", submissionHandler.ListForStudent)
		}
	}

	return &testEnv{router: router, users: users, sessions: sessions, exams: exams, submissions: submissions, store: store}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func sessionCookie(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == testCookieName {
			return cookie
		}
	}
	return nil
}

func drainBody(r io.Reader) string {
	content, _ := io.ReadAll(r)
	return string(content)
}
