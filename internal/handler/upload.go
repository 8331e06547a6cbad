package handler

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/service"
	appErrors "github.com/automark/automark-api/pkg/errors"
)

type openedUpload struct {
	upload service.ExamUpload
	file   multipart.File
}

func (u *openedUpload) close() {
	if u.file != nil {
		_ = u.file.Close()
	}
}

// openUpload fetches a multipart file field, enforcing size and type limits
// before any bytes reach storage.
func openUpload(c *gin.Context, field string, limits UploadLimits) (*openedUpload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, field+" file is required")
	}
	if limits.MaxFileSizeBytes > 0 && header.Size > limits.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, field+" exceeds the maximum file size")
	}
	if len(limits.AllowedMIMEs) > 0 && !mimeAllowed(header, limits.AllowedMIMEs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, field+" must be a PDF")
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	return &openedUpload{
		upload: service.ExamUpload{Filename: header.Filename, Reader: file},
		file:   file,
	}, nil
}

func mimeAllowed(header *multipart.FileHeader, allowed []string) bool {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(header.Header.Get("Content-Type"), ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, mime := range allowed {
		if contentType == strings.ToLower(mime) {
			return true
		}
		// browsers occasionally omit the part content type; fall back to
		// the file extension for the pdf case
		if mime == "application/pdf" && ext == ".pdf" && contentType == "" {
			return true
		}
	}
	return false
}
