package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
	"github.com/noah-isme/langschool-api/pkg/storage"
)

type stubClassReader struct {
	classes map[string]*models.KindergartenClass
}

func (s *stubClassReader) Get(ctx context.Context, id string) (*models.KindergartenClass, error) {
	if c, ok := s.classes[id]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	original := onDay(0)
	course := &models.Course{ID: "c1", Name: "English A1", Schedule: scheduling.Schedule{Sessions: scheduling.SessionList{
		{Date: onDay(0), StartTime: "10:00", EndTime: "12:00", Status: scheduling.CourseSessionAbsentHoliday},
		{Date: onDay(14), StartTime: "10:00", EndTime: "12:00", Status: scheduling.CourseSessionPending, IsCompensatory: true, OriginalDate: &original},
	}}}
	class := &models.KindergartenClass{ID: "k1", Name: "Sunflowers", Schedule: scheduling.Schedule{Sessions: scheduling.SessionList{
		{Date: onDay(2), Status: scheduling.ClassSessionScheduled},
	}}}
	return NewExportService(
		&stubCourseReader{courses: map[string]*models.Course{"c1": course}},
		&stubClassReader{classes: map[string]*models.KindergartenClass{"k1": class}},
		files,
		storage.NewSignedURLSigner("export-secret", time.Hour),
		ExportConfig{APIPrefix: "/api/v1/"},
		zap.NewNop(),
	)
}

func TestExportServiceCourseCSVRoundTrip(t *testing.T) {
	svc := newExportFixture(t)

	result, err := svc.ExportCourseSessions(context.Background(), "c1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.DownloadURL, "/api/v1/exports/"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	token := strings.TrimPrefix(result.DownloadURL, "/api/v1/exports/")
	meta, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, result.ID, meta.ExportID)

	f, err := svc.Open(meta.Path)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#,Date,Start,End,Status,Compensatory,Custom,Original Date,Notes", lines[0])
	assert.Equal(t, "1,2024-01-15,10:00,12:00,Pending,yes,no,2024-01-01,", lines[2])
}

func TestExportServiceClassFormats(t *testing.T) {
	svc := newExportFixture(t)
	for _, format := range []models.ExportFormat{models.ExportFormatPDF, models.ExportFormatXLSX} {
		result, err := svc.ExportClassSessions(context.Background(), "k1", format)
		require.NoError(t, err)
		assert.Equal(t, format, result.Format)
	}

	_, err := svc.ExportClassSessions(context.Background(), "k1", "docx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ExportClassSessions(context.Background(), "missing", models.ExportFormatCSV)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceResolveRejectsTampering(t *testing.T) {
	svc := newExportFixture(t)
	_, err := svc.Resolve("garbage")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSessionDatasetSummarisesLedger(t *testing.T) {
	sessions := scheduling.SessionList{
		{Date: onDay(0), Status: scheduling.CourseSessionTaught},
		{Date: onDay(2), Status: scheduling.CourseSessionAbsentHoliday},
		{Date: onDay(4), Status: scheduling.CourseSessionPending, IsCompensatory: true},
	}
	data := SessionDataset("English A1", scheduling.CourseTaxonomy, sessions)

	assert.Equal(t, "English A1", data.Title)
	require.Len(t, data.Rows, 3)
	assert.False(t, data.Shade(data.Rows[0]))
	assert.True(t, data.Shade(data.Rows[1]))

	summary := map[string]string{}
	for _, line := range data.Summary {
		summary[line.Label] = line.Value
	}
	assert.Equal(t, "3", summary["Total sessions"])
	assert.Equal(t, "1", summary["Make-up sessions"])
	assert.Equal(t, "1", summary[scheduling.CourseSessionAbsentHoliday])
	assert.NotContains(t, summary, scheduling.CourseSessionAbsentOther)
}
