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

type adminPaperService interface {
	ListPending(ctx context.Context) ([]models.Paper, error)
	ListAdmin(ctx context.Context, query dto.AdminListPapersQuery) ([]models.Paper, *models.Pagination, error)
	Stats(ctx context.Context) (*models.PaperStats, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Paper, error)
	Update(ctx context.Context, id string, req dto.UpdatePaperRequest) (*models.Paper, error)
	Delete(ctx context.Context, id string) error
}

type exportService interface {
	Render(ctx context.Context, status string, format service.ExportFormat) (*service.ExportFile, error)
}

// AdminHandler serves the moderation endpoints.
type AdminHandler struct {
	papers  adminPaperService
	exports exportService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(papers adminPaperService, exports exportService) *AdminHandler {
	return &AdminHandler{papers: papers, exports: exports}
}

// Stats godoc
// @Summary Catalog counters
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.papers.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Pending godoc
// @Summary Newest papers awaiting review
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/pending [get]
func (h *AdminHandler) Pending(c *gin.Context) {
	papers, err := h.papers.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, papers)
}

// List godoc
// @Summary Paginated catalog across all statuses
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/papers [get]
func (h *AdminHandler) List(c *gin.Context) {
	var query dto.AdminListPapersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	papers, pagination, err := h.papers.ListAdmin(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, pagination)
}

// Export godoc
// @Summary Export the catalog as CSV or PDF
// @Tags Admin
// @Produce octet-stream
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param format query string false "csv|pdf"
// @Success 200 {file} binary
// @Router /admin/papers/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	file, err := h.exports.Render(c.Request.Context(), c.Query("status"), service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// UpdateStatus godoc
// @Summary Apply a moderation decision
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Paper ID"
// @Param payload body dto.UpdateStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /admin/papers/{id}/status [patch]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid status payload"))
		return
	}
	paper, err := h.papers.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, paper)
}

// Update godoc
// @Summary Edit paper metadata
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Paper ID"
// @Param payload body dto.UpdatePaperRequest true "Metadata"
// @Success 200 {object} response.Envelope
// @Router /admin/papers/{id} [put]
func (h *AdminHandler) Update(c *gin.Context) {
	var req dto.UpdatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid paper payload"))
		return
	}
	paper, err := h.papers.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, paper)
}

// Delete godoc
// @Summary Delete a paper and its stored file
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Router /admin/papers/{id} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.papers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
