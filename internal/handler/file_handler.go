package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/response"
	"github.com/automark/automark-api/pkg/storage"
)

// FileHandler streams stored files behind signed download tokens. Raw
// storage paths are never exposed; the only way in is a token the server
// minted.
type FileHandler struct {
	signer *storage.SignedURLSigner
	files  *storage.LocalStorage
}

// NewFileHandler creates a new handler.
func NewFileHandler(signer *storage.SignedURLSigner, files *storage.LocalStorage) *FileHandler {
	return &FileHandler{signer: signer, files: files}
}

// Download godoc
// @Summary Download file
// @Description Stream a stored file referenced by a signed token
// @Tags Files
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	_, ref, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.files.Open(ref)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Cache-Control", "private, no-store")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		// headers already sent; nothing to do but drop the connection
		c.Abort()
	}
}
