package handler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
	"github.com/noah-isme/langschool-api/pkg/response"
	"github.com/noah-isme/langschool-api/pkg/storage"
)

type exportService interface {
	ExportCourseSessions(ctx context.Context, id string, format models.ExportFormat) (*models.ExportResult, error)
	ExportClassSessions(ctx context.Context, id string, format models.ExportFormat) (*models.ExportResult, error)
	Resolve(token string) (*storage.DownloadToken, error)
	Open(relPath string) (*os.File, error)
}

var exportContentTypes = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportHandler renders session ledgers and serves signed downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func exportFormat(c *gin.Context) models.ExportFormat {
	return models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportFormatCSV))))
}

// CourseSessions godoc
// @Summary Export course sessions
// @Tags Exports
// @Produce json
// @Param id path string true "Course ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/export [get]
func (h *ExportHandler) CourseSessions(c *gin.Context) {
	result, err := h.exports.ExportCourseSessions(c.Request.Context(), c.Param("id"), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ClassSessions godoc
// @Summary Export kindergarten class sessions
// @Tags Exports
// @Produce json
// @Param id path string true "Class ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 201 {object} response.Envelope
// @Router /kindergarten-classes/{id}/export [get]
func (h *ExportHandler) ClassSessions(c *gin.Context) {
	result, err := h.exports.ExportClassSessions(c.Request.Context(), c.Param("id"), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	meta, err := h.exports.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Open(meta.Path)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Persistence(err, "failed to read export"))
		return
	}
	name := filepath.Base(meta.Path)
	response.Attachment(c, name, exportContentTypes[strings.ToLower(filepath.Ext(name))], info.Size(), file)
}
