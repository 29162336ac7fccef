package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
	"github.com/noah-isme/langschool-api/pkg/export"
	"github.com/noah-isme/langschool-api/pkg/storage"
)

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type classReader interface {
	Get(ctx context.Context, id string) (*models.KindergartenClass, error)
}

// ExportConfig tunes export links and retention.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders session ledgers to files and issues signed download links.
type ExportService struct {
	courses courseReader
	classes classReader
	storage fileStorage
	signer  *storage.SignedURLSigner
	formats map[models.ExportFormat]export.Renderer
	cfg     ExportConfig
	logger  *zap.Logger
	clock   func() time.Time
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(courses courseReader, classes classReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		courses: courses,
		classes: classes,
		storage: files,
		signer:  signer,
		formats: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter("Sessions"),
		},
		cfg: cfg,
		logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// ExportCourseSessions renders the session ledger of a course.
func (s *ExportService) ExportCourseSessions(ctx context.Context, id string, format models.ExportFormat) (*models.ExportResult, error) {
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(course.Name, "course", scheduling.CourseTaxonomy, course.Sessions, format)
}

// ExportClassSessions renders the session ledger of a kindergarten class.
func (s *ExportService) ExportClassSessions(ctx context.Context, id string, format models.ExportFormat) (*models.ExportResult, error) {
	class, err := s.classes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(class.Name, "class", scheduling.ClassTaxonomy, class.Sessions, format)
}

func (s *ExportService) render(title, kind string, taxonomy scheduling.Taxonomy, sessions scheduling.SessionList, format models.ExportFormat) (*models.ExportResult, error) {
	renderer, ok := s.formats[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	payload, err := renderer.Render(SessionDataset(title, taxonomy, sessions))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("%s_%s_%s.%s", kind, sanitizeFilename(title), s.clock().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(id+"/"+filename, payload)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("export generated", zap.String("export_id", id), zap.String("format", string(format)), zap.Int("sessions", len(sessions)))
	return &models.ExportResult{
		ID:          id,
		Format:      format,
		Filename:    filename,
		DownloadURL: fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Resolve validates a download token and returns its metadata.
func (s *ExportService) Resolve(token string) (*storage.DownloadToken, error) {
	meta, err := s.signer.Parse(token, false)
	switch {
	case err == nil:
		return meta, nil
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link expired")
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}
}

// Open returns a handle to a stored export.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	f, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Persistence(err, "failed to open export")
	}
	return f, nil
}

// Cleanup removes stored exports older than ttl, defaulting to the configured retention.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// SessionDataset flattens a ledger into export rows, one per session, and
// summarises it by status. Absent and cancelled sessions are shaded.
func SessionDataset(title string, taxonomy scheduling.Taxonomy, sessions scheduling.SessionList) export.Dataset {
	headers := []string{"#", "Date", "Start", "End", "Status", "Compensatory", "Custom", "Original Date", "Notes"}
	rows := make([]map[string]string, 0, len(sessions))
	for i, session := range sessions {
		original := ""
		if session.OriginalDate != nil {
			original = scheduling.DateKey(*session.OriginalDate)
		}
		rows = append(rows, map[string]string{
			"#":             strconv.Itoa(i),
			"Date":          scheduling.DateKey(session.Date),
			"Start":         session.StartTime,
			"End":           session.EndTime,
			"Status":        session.Status,
			"Compensatory":  yesNo(session.IsCompensatory),
			"Custom":        yesNo(session.IsCustom),
			"Original Date": original,
			"Notes":         session.Notes,
		})
	}

	ledger := scheduling.Ledger{Taxonomy: taxonomy, Sessions: sessions}
	stats := ledger.Statistics()
	summary := []export.SummaryLine{
		{Label: "Total sessions", Value: strconv.Itoa(stats.Total)},
		{Label: "Open sessions", Value: strconv.Itoa(stats.Open)},
		{Label: "Make-up sessions", Value: strconv.Itoa(stats.Compensatory)},
		{Label: "Custom sessions", Value: strconv.Itoa(stats.Custom)},
	}
	for _, status := range taxonomy.Statuses {
		if n := stats.ByStatus[status]; n > 0 {
			summary = append(summary, export.SummaryLine{Label: status, Value: strconv.Itoa(n)})
		}
	}

	return export.Dataset{
		Title:   title,
		Headers: headers,
		Rows:    rows,
		Summary: summary,
		Weights: map[string]float64{"#": 0.4, "Start": 0.6, "End": 0.6, "Status": 1.8, "Compensatory": 1.1, "Custom": 0.7, "Notes": 2.5},
		Shade: func(row map[string]string) bool {
			return taxonomy.IsCancellation(row["Status"])
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func sanitizeFilename(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
