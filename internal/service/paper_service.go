package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pyqhub/papers-api/internal/dto"
	"github.com/pyqhub/papers-api/internal/models"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
)

type paperStore interface {
	Create(ctx context.Context, paper *models.Paper) error
	GetByID(ctx context.Context, id string) (*models.Paper, error)
	List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, int, error)
	UpdateStatus(ctx context.Context, id string, status models.PaperStatus) (*models.Paper, error)
	UpdateFields(ctx context.Context, id, subject, department string, year int, semester, fileName string) (*models.Paper, error)
	IncrementDownloads(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.PaperStats, error)
}

type localBlobStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
}

type blobRelay interface {
	Publish(ctx context.Context, filename, localURL string) string
	Discard(ctx context.Context, fileURL, filename string)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

// PaperUpload carries upload metadata and the request body stream.
type PaperUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// PaperDownload bundles what the file endpoint needs to respond: either a
// redirect target or an open local file.
type PaperDownload struct {
	RedirectURL string
	File        *os.File
	Filename    string
	SizeBytes   int64
}

// PaperServiceConfig holds intake validation parameters and the moderation
// default applied at creation.
type PaperServiceConfig struct {
	MaxFileSize   int64
	PublicPrefix  string
	AutoApprove   bool
	StatsCacheTTL time.Duration
	PendingLimit  int
}

const statsCacheKey = "papers:stats"

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// PaperService orchestrates the submission and moderation workflow.
type PaperService struct {
	repo      paperStore
	local     localBlobStore
	relay     blobRelay
	cache     statsCache
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       PaperServiceConfig
	now       func() time.Time
}

// NewPaperService constructs the service with defaults. The metrics service
// may be nil.
func NewPaperService(repo paperStore, local localBlobStore, relay blobRelay, cache statsCache, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg PaperServiceConfig) *PaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/uploads"
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = time.Minute
	}
	if cfg.PendingLimit <= 0 {
		cfg.PendingLimit = 50
	}
	return &PaperService{
		repo:      repo,
		local:     local,
		relay:     relay,
		cache:     cache,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Upload validates the submission, stores the PDF and creates the paper
// record in the configured initial status.
func (s *PaperService) Upload(ctx context.Context, form dto.UploadPaperForm, upload PaperUpload) (*models.Paper, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no file uploaded")
	}
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing required fields")
	}
	if !strings.EqualFold(upload.MimeType, "application/pdf") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF files are allowed")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	filename := s.generateFilename(upload.Filename)
	if _, err := s.local.SaveStream(filename, upload.Content); err != nil {
		if ctx.Err() != nil {
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "upload aborted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist upload")
	}

	localURL := strings.TrimRight(s.cfg.PublicPrefix, "/") + "/" + filename
	fileURL := localURL
	if s.relay != nil {
		fileURL = s.relay.Publish(ctx, filename, localURL)
	}

	status := models.StatusPending
	if s.cfg.AutoApprove {
		status = models.StatusReady
	}

	uploader := strings.TrimSpace(form.Uploader)
	if uploader == "" {
		uploader = models.AnonymousUploader
	}

	paper := &models.Paper{
		Subject:    strings.TrimSpace(form.Subject),
		Department: strings.TrimSpace(form.Department),
		Semester:   strings.TrimSpace(form.Semester),
		Year:       form.Year,
		Tags:       pq.StringArray(splitTags(form.Tags)),
		FileURL:    fileURL,
		FileName:   upload.Filename,
		Uploader:   uploader,
		Status:     status,
	}
	if err := s.repo.Create(ctx, paper); err != nil {
		if s.relay != nil {
			s.relay.Discard(ctx, fileURL, filename)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create paper record")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, statsCacheKey)
	}

	return paper, nil
}

// List returns the public catalog view; an empty status filter defaults to
// published papers only.
func (s *PaperService) List(ctx context.Context, query dto.ListPapersQuery) ([]models.Paper, error) {
	status := strings.TrimSpace(query.Status)
	if status == "" {
		status = string(models.StatusReady)
	}
	filter := models.PaperFilter{
		Subject:    strings.TrimSpace(query.Subject),
		Department: strings.TrimSpace(query.Department),
		Semester:   strings.TrimSpace(query.Semester),
		Year:       query.Year,
		Tags:       splitTags(query.Tags),
		Status:     status,
		Query:      strings.TrimSpace(query.Query),
		Sort:       query.Sort,
		Limit:      query.Limit,
	}
	papers, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list papers")
	}
	return papers, nil
}

// ListAdmin returns the paginated moderation catalog. An empty status shows
// every state.
func (s *PaperService) ListAdmin(ctx context.Context, query dto.AdminListPapersQuery) ([]models.Paper, *models.Pagination, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}
	status := strings.TrimSpace(query.Status)
	if status == "" {
		status = models.StatusAll
	}
	filter := models.PaperFilter{
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	}
	papers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list papers")
	}
	pageCount := (total + pageSize - 1) / pageSize
	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		PageCount:  pageCount,
	}
	return papers, pagination, nil
}

// ListPending returns the newest papers awaiting review.
func (s *PaperService) ListPending(ctx context.Context) ([]models.Paper, error) {
	filter := models.PaperFilter{
		Status: string(models.StatusPending),
		Sort:   models.SortNewest,
		Limit:  s.cfg.PendingLimit,
	}
	papers, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending papers")
	}
	return papers, nil
}

// Get fetches one paper regardless of status.
func (s *PaperService) Get(ctx context.Context, id string) (*models.Paper, error) {
	paper, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	return paper, nil
}

// Download resolves how the file endpoint should respond for a paper. The
// downloads counter is incremented best-effort either way.
func (s *PaperService) Download(ctx context.Context, id string) (*PaperDownload, error) {
	paper, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(paper.FileURL, "http://") || strings.HasPrefix(paper.FileURL, "https://") {
		s.countDownload(ctx, paper.ID)
		return &PaperDownload{RedirectURL: paper.FileURL}, nil
	}

	filename := path.Base(paper.FileURL)
	file, err := s.local.Open(filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "paper file not found")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read paper file")
	}

	s.countDownload(ctx, paper.ID)
	return &PaperDownload{
		File:      file,
		Filename:  fmt.Sprintf("%s_%d.pdf", sanitizeBase(paper.Subject), paper.Year),
		SizeBytes: info.Size(),
	}, nil
}

// UpdateStatus applies an admin moderation decision.
func (s *PaperService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Paper, error) {
	status := models.PaperStatus(strings.TrimSpace(req.Status))
	if !models.ValidTransitionTarget(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}
	paper, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paper status")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, statsCacheKey)
	}
	return paper, nil
}

// Update applies the admin metadata edit; every field is required.
func (s *PaperService) Update(ctx context.Context, id string, req dto.UpdatePaperRequest) (*models.Paper, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all fields are required")
	}
	paper, err := s.repo.UpdateFields(ctx, id, strings.TrimSpace(req.Subject), strings.TrimSpace(req.Department), req.Year, strings.TrimSpace(req.Semester), strings.TrimSpace(req.FileName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paper")
	}
	return paper, nil
}

// Delete removes the record and then best-effort discards the blob behind
// it. Blob failures never surface.
func (s *PaperService) Delete(ctx context.Context, id string) error {
	paper, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete paper")
	}
	if s.relay != nil {
		s.relay.Discard(ctx, paper.FileURL, path.Base(paper.FileURL))
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, statsCacheKey)
	}
	return nil
}

// Stats returns aggregate catalog counters, cached briefly when a cache is
// available.
func (s *PaperService) Stats(ctx context.Context) (*models.PaperStats, error) {
	if s.cache != nil {
		var cached models.PaperStats
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch stats")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.cfg.StatsCacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Catalog pages through every paper in the requested status for export.
func (s *PaperService) Catalog(ctx context.Context, status string) ([]models.Paper, error) {
	if strings.TrimSpace(status) == "" {
		status = models.StatusAll
	}
	const pageSize = 100
	var all []models.Paper
	for page := 1; ; page++ {
		filter := models.PaperFilter{Status: status, Page: page, PageSize: pageSize}
		papers, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export catalog")
		}
		all = append(all, papers...)
		if len(all) >= total || len(papers) == 0 {
			break
		}
	}
	return all, nil
}

func (s *PaperService) countDownload(ctx context.Context, id string) {
	if err := s.repo.IncrementDownloads(ctx, id); err != nil {
		s.logger.Warn("download counter update failed", zap.String("paper_id", id), zap.Error(err))
	}
}

func (s *PaperService) generateFilename(original string) string {
	base := sanitizeBase(strings.TrimSuffix(original, path.Ext(original)))
	if base == "" {
		base = "paper"
	}
	return fmt.Sprintf("%s-%d.pdf", base, s.now().UnixMilli())
}

func sanitizeBase(name string) string {
	return filenameSanitizer.ReplaceAllString(name, "")
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
