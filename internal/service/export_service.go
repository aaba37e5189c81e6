package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pyqhub/papers-api/internal/models"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
	"github.com/pyqhub/papers-api/pkg/export"
)

type catalogSource interface {
	Catalog(ctx context.Context, status string) ([]models.Paper, error)
}

// ExportFormat identifies a supported catalog export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered catalog ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders the paper catalog into downloadable documents.
type ExportService struct {
	source catalogSource
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs the service.
func NewExportService(source catalogSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{source: source, logger: logger, now: time.Now}
}

var catalogColumns = []export.Column{
	{Key: "id", Title: "ID"},
	{Key: "subject", Title: "Subject"},
	{Key: "department", Title: "Department"},
	{Key: "semester", Title: "Semester"},
	{Key: "year", Title: "Year"},
	{Key: "status", Title: "Status"},
	{Key: "uploader", Title: "Uploader"},
	{Key: "downloads", Title: "Downloads"},
	{Key: "average_rating", Title: "Avg Rating"},
	{Key: "created_at", Title: "Created"},
}

// Render builds the catalog export in the requested format.
func (s *ExportService) Render(ctx context.Context, status string, format ExportFormat) (*ExportFile, error) {
	format = ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	papers, err := s.source.Catalog(ctx, status)
	if err != nil {
		return nil, err
	}

	table := export.Table{Columns: catalogColumns, Rows: make([]map[string]string, 0, len(papers))}
	for _, paper := range papers {
		table.Rows = append(table.Rows, map[string]string{
			"id":             paper.ID,
			"subject":        paper.Subject,
			"department":     paper.Department,
			"semester":       paper.Semester,
			"year":           fmt.Sprintf("%d", paper.Year),
			"status":         string(paper.Status),
			"uploader":       paper.Uploader,
			"downloads":      fmt.Sprintf("%d", paper.Downloads),
			"average_rating": fmt.Sprintf("%.2f", paper.AverageRating),
			"created_at":     paper.CreatedAt.Format("2006-01-02"),
		})
	}

	stamp := s.now().UTC().Format("20060102")
	switch format {
	case FormatPDF:
		content, err := export.RenderPDF(table, "Question Papers Catalog")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("papers-catalog-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := export.RenderCSV(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("papers-catalog-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}
