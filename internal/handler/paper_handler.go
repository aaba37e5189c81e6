package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pyqhub/papers-api/internal/dto"
	"github.com/pyqhub/papers-api/internal/models"
	"github.com/pyqhub/papers-api/internal/service"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
	"github.com/pyqhub/papers-api/pkg/response"
)

type paperService interface {
	Upload(ctx context.Context, form dto.UploadPaperForm, upload service.PaperUpload) (*models.Paper, error)
	List(ctx context.Context, query dto.ListPapersQuery) ([]models.Paper, error)
	Get(ctx context.Context, id string) (*models.Paper, error)
	Download(ctx context.Context, id string) (*service.PaperDownload, error)
}

type ratingService interface {
	Submit(ctx context.Context, paperID string, req dto.SubmitRatingRequest) (*dto.RatingResponse, error)
	Get(ctx context.Context, paperID, userID string) (*dto.RatingResponse, error)
}

// PaperHandler serves the public paper endpoints.
type PaperHandler struct {
	papers  paperService
	ratings ratingService
	metrics *service.MetricsService
}

// NewPaperHandler constructs the handler.
func NewPaperHandler(papers paperService, ratings ratingService, metrics *service.MetricsService) *PaperHandler {
	return &PaperHandler{papers: papers, ratings: ratings, metrics: metrics}
}

// Upload godoc
// @Summary Submit a question paper PDF
// @Tags Papers
// @Accept multipart/form-data
// @Produce json
// @Param subject formData string true "Subject"
// @Param year formData int true "Exam year"
// @Param semester formData string false "Semester"
// @Param department formData string false "Department"
// @Param tags formData string false "Comma separated tags"
// @Param uploader formData string false "Uploader name"
// @Param file formData file true "PDF document"
// @Success 201 {object} response.Envelope
// @Router /papers/upload [post]
func (h *PaperHandler) Upload(c *gin.Context) {
	var form dto.UploadPaperForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no file uploaded"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close() //nolint:errcheck

	upload := service.PaperUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  src,
	}
	paper, err := h.papers.Upload(c.Request.Context(), form, upload)
	if err != nil {
		h.metrics.RecordUpload("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordUpload("accepted")
	response.Created(c, dto.UploadPaperResponse{
		PaperID: paper.ID,
		FileURL: paper.FileURL,
		Status:  string(paper.Status),
	})
}

// List godoc
// @Summary List published papers
// @Tags Papers
// @Produce json
// @Param subject query string false "Subject substring"
// @Param department query string false "Department"
// @Param semester query string false "Semester"
// @Param year query int false "Exam year"
// @Param tags query string false "Comma separated tags"
// @Param q query string false "Full text query"
// @Param status query string false "Status filter"
// @Param sort query string false "newest|oldest|downloads"
// @Param limit query int false "Result cap"
// @Success 200 {object} response.Envelope
// @Router /papers [get]
func (h *PaperHandler) List(c *gin.Context) {
	var query dto.ListPapersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	papers, err := h.papers.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, papers)
}

// Get godoc
// @Summary Get one paper by id
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Router /papers/{id} [get]
func (h *PaperHandler) Get(c *gin.Context) {
	paper, err := h.papers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, paper)
}

// File godoc
// @Summary Download the paper PDF
// @Tags Papers
// @Produce octet-stream
// @Param id path string true "Paper ID"
// @Success 200 {file} binary
// @Router /papers/file/{id} [get]
func (h *PaperHandler) File(c *gin.Context) {
	result, err := h.papers.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordDownload()
	if result.RedirectURL != "" {
		c.Redirect(http.StatusFound, result.RedirectURL)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, "application/pdf", result.File, nil)
}

// SubmitRating godoc
// @Summary Rate a paper
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.SubmitRatingRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Router /papers/{id}/rating [post]
func (h *PaperHandler) SubmitRating(c *gin.Context) {
	var req dto.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid rating payload"))
		return
	}
	result, err := h.ratings.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// GetRating godoc
// @Summary Read a paper's rating aggregate
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Param userId query string false "User identifier"
// @Success 200 {object} response.Envelope
// @Router /papers/{id}/rating [get]
func (h *PaperHandler) GetRating(c *gin.Context) {
	result, err := h.ratings.Get(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
