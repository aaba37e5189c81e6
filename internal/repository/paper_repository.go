package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pyqhub/papers-api/internal/models"
)

const paperColumns = `id, subject, department, semester, year, tags, file_url, file_name, uploader,
       status, extracted_text, views, downloads, ratings, average_rating, total_ratings,
       created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern, escaping LIKE
// wildcards so user input matches literally.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// PaperRepository handles paper metadata persistence.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository constructs the repository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// Create stores a new paper row.
func (r *PaperRepository) Create(ctx context.Context, paper *models.Paper) error {
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	paper.UpdatedAt = now
	if paper.Tags == nil {
		paper.Tags = pq.StringArray{}
	}
	if paper.Ratings == nil {
		paper.Ratings = models.RatingList{}
	}
	const query = `INSERT INTO papers
	(id, subject, department, semester, year, tags, file_url, file_name, uploader,
	 status, extracted_text, views, downloads, ratings, average_rating, total_ratings,
	 created_at, updated_at)
	VALUES (:id, :subject, :department, :semester, :year, :tags, :file_url, :file_name, :uploader,
	 :status, :extracted_text, :views, :downloads, :ratings, :average_rating, :total_ratings,
	 :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("create paper: %w", err)
	}
	return nil
}

// GetByID retrieves one paper row.
func (r *PaperRepository) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1 LIMIT 1`
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get paper by id: %w", err)
	}
	return &paper, nil
}

// List returns papers matching the filter. When filter.Page is positive the
// result is paginated and the total row count is computed; otherwise the
// flat limit applies and total mirrors the slice length.
func (r *PaperRepository) List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Subject != "" {
		args = append(args, likePattern(filter.Subject))
		conditions = append(conditions, fmt.Sprintf("LOWER(subject) LIKE $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)))
	}
	if filter.Status != "" && filter.Status != models.StatusAll {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, likePattern(filter.Query))
		conditions = append(conditions, fmt.Sprintf("(LOWER(subject) LIKE $%d OR LOWER(extracted_text) LIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var orderBy string
	switch filter.Sort {
	case models.SortOldest:
		orderBy = " ORDER BY created_at ASC"
	case models.SortDownloads:
		orderBy = " ORDER BY downloads DESC"
	default:
		orderBy = " ORDER BY created_at DESC"
	}

	query := `SELECT ` + paperColumns + ` FROM papers` + where + orderBy

	if filter.Page > 0 {
		pageSize := filter.PageSize
		if pageSize <= 0 {
			pageSize = 20
		} else if pageSize > 100 {
			pageSize = 100
		}
		offset := (filter.Page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, offset)

		var papers []models.Paper
		if err := r.db.SelectContext(ctx, &papers, query, args...); err != nil {
			return nil, 0, fmt.Errorf("list papers: %w", err)
		}

		var total int
		countQuery := `SELECT COUNT(*) FROM papers` + where
		if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
			return nil, 0, fmt.Errorf("count papers: %w", err)
		}
		return papers, total, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	var papers []models.Paper
	if err := r.db.SelectContext(ctx, &papers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list papers: %w", err)
	}
	return papers, len(papers), nil
}

// UpdateStatus applies a moderation decision and returns the fresh row.
func (r *PaperRepository) UpdateStatus(ctx context.Context, id string, status models.PaperStatus) (*models.Paper, error) {
	query := `UPDATE papers SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + paperColumns
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id, status, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update paper status: %w", err)
	}
	return &paper, nil
}

// UpdateFields applies the admin edit and returns the fresh row.
func (r *PaperRepository) UpdateFields(ctx context.Context, id, subject, department string, year int, semester, fileName string) (*models.Paper, error) {
	query := `UPDATE papers SET subject = $2, department = $3, year = $4, semester = $5,
       file_name = $6, updated_at = $7 WHERE id = $1 RETURNING ` + paperColumns
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id, subject, department, year, semester, fileName, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update paper fields: %w", err)
	}
	return &paper, nil
}

// UpdateRatings persists the rating list together with its aggregates in a
// single row write.
func (r *PaperRepository) UpdateRatings(ctx context.Context, id string, ratings models.RatingList, average float64, total int) (*models.Paper, error) {
	query := `UPDATE papers SET ratings = $2, average_rating = $3, total_ratings = $4,
       updated_at = $5 WHERE id = $1 RETURNING ` + paperColumns
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id, ratings, average, total, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update paper ratings: %w", err)
	}
	return &paper, nil
}

// IncrementDownloads bumps the download counter.
func (r *PaperRepository) IncrementDownloads(ctx context.Context, id string) error {
	const query = `UPDATE papers SET downloads = downloads + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	return nil
}

// Delete removes a paper row permanently.
func (r *PaperRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM papers WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check paper delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats aggregates catalog counters in one scan.
func (r *PaperRepository) Stats(ctx context.Context) (*models.PaperStats, error) {
	const query = `SELECT COUNT(*) AS total_papers,
       COUNT(*) FILTER (WHERE status = 'pending') AS pending_papers,
       COUNT(*) FILTER (WHERE status = 'ready') AS ready_papers,
       COALESCE(SUM(downloads), 0) AS total_downloads
	FROM papers`
	var stats models.PaperStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("paper stats: %w", err)
	}
	return &stats, nil
}
