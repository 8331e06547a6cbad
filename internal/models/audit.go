package models

import "time"

// Audit actions recorded against user activity.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionLogout           = "LOGOUT"
	AuditActionRegister         = "REGISTER"
	AuditActionExamCreate       = "EXAM_CREATE"
	AuditActionSubmissionCreate = "SUBMISSION_CREATE"
	AuditActionGradeUpdate      = "GRADE_UPDATE"
	AuditActionGradePublish     = "GRADE_PUBLISH"
)

// AuditLog records a notable account action for later review.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
