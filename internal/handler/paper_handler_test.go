package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyqhub/papers-api/internal/dto"
	"github.com/pyqhub/papers-api/internal/models"
	"github.com/pyqhub/papers-api/internal/service"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
)

type paperServiceMock struct {
	uploadResp   *models.Paper
	uploadErr    error
	lastForm     dto.UploadPaperForm
	lastUpload   service.PaperUpload
	listResp     []models.Paper
	listErr      error
	lastQuery    dto.ListPapersQuery
	getResp      *models.Paper
	getErr       error
	downloadResp *service.PaperDownload
	downloadErr  error
}

func (m *paperServiceMock) Upload(ctx context.Context, form dto.UploadPaperForm, upload service.PaperUpload) (*models.Paper, error) {
	m.lastForm = form
	m.lastUpload = upload
	return m.uploadResp, m.uploadErr
}

func (m *paperServiceMock) List(ctx context.Context, query dto.ListPapersQuery) ([]models.Paper, error) {
	m.lastQuery = query
	return m.listResp, m.listErr
}

func (m *paperServiceMock) Get(ctx context.Context, id string) (*models.Paper, error) {
	return m.getResp, m.getErr
}

func (m *paperServiceMock) Download(ctx context.Context, id string) (*service.PaperDownload, error) {
	return m.downloadResp, m.downloadErr
}

type ratingServiceMock struct {
	submitResp *dto.RatingResponse
	submitErr  error
	lastSubmit dto.SubmitRatingRequest
	getResp    *dto.RatingResponse
	getErr     error
	lastUserID string
}

func (m *ratingServiceMock) Submit(ctx context.Context, paperID string, req dto.SubmitRatingRequest) (*dto.RatingResponse, error) {
	m.lastSubmit = req
	return m.submitResp, m.submitErr
}

func (m *ratingServiceMock) Get(ctx context.Context, paperID, userID string) (*dto.RatingResponse, error) {
	m.lastUserID = userID
	return m.getResp, m.getErr
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestPaperHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paperServiceMock{
		uploadResp: &models.Paper{ID: "p1", FileURL: "/uploads/exam-1.pdf", Status: models.StatusPending},
	}
	handler := NewPaperHandler(mockSvc, &ratingServiceMock{}, service.NewMetricsService())

	body, contentType := multipartUpload(t, map[string]string{
		"subject": "Algorithms",
		"year":    "2023",
	}, "exam.pdf", []byte("%PDF-1.4 test"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/papers/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Algorithms", mockSvc.lastForm.Subject)
	assert.Equal(t, 2023, mockSvc.lastForm.Year)
	assert.Equal(t, "exam.pdf", mockSvc.lastUpload.Filename)

	var envelope struct {
		Success bool                    `json:"success"`
		Data    dto.UploadPaperResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "p1", envelope.Data.PaperID)
	assert.Equal(t, "pending", envelope.Data.Status)
}

func TestPaperHandlerUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaperHandler(&paperServiceMock{}, &ratingServiceMock{}, service.NewMetricsService())

	body, contentType := multipartUpload(t, map[string]string{"subject": "Algorithms", "year": "2023"}, "", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/papers/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}

func TestPaperHandlerUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paperServiceMock{uploadErr: appErrors.ErrPayloadTooLarge}
	handler := NewPaperHandler(mockSvc, &ratingServiceMock{}, service.NewMetricsService())

	body, contentType := multipartUpload(t, map[string]string{"subject": "Algorithms", "year": "2023"}, "exam.pdf", []byte("%PDF-1.4"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/papers/upload", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPaperHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paperServiceMock{listResp: []models.Paper{{ID: "p1", Subject: "Algorithms"}}}
	handler := NewPaperHandler(mockSvc, &ratingServiceMock{}, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/papers?subject=algo&year=2023&sort=downloads", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "algo", mockSvc.lastQuery.Subject)
	assert.Equal(t, 2023, mockSvc.lastQuery.Year)
	assert.Equal(t, "downloads", mockSvc.lastQuery.Sort)
}

func TestPaperHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paperServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewPaperHandler(mockSvc, &ratingServiceMock{}, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/papers/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaperHandlerFileRedirectsRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paperServiceMock{downloadResp: &service.PaperDownload{
		RedirectURL: "https://bucket.example.com/papers/x.pdf",
	}}
	handler := NewPaperHandler(mockSvc, &ratingServiceMock{}, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/papers/p1/file", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.File(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://bucket.example.com/papers/x.pdf", w.Header().Get("Location"))
}

func TestPaperHandlerSubmitRating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userRating := 4
	mockSvc := &ratingServiceMock{submitResp: &dto.RatingResponse{AverageRating: 4, TotalRatings: 1, UserRating: &userRating}}
	handler := NewPaperHandler(&paperServiceMock{}, mockSvc, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/papers/p1/rating", bytes.NewBufferString(`{"rating":4,"userId":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.SubmitRating(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, mockSvc.lastSubmit.Rating)
	assert.Equal(t, "u1", mockSvc.lastSubmit.UserID)
}

func TestPaperHandlerSubmitRatingMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaperHandler(&paperServiceMock{}, &ratingServiceMock{}, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/papers/p1/rating", bytes.NewBufferString(`{"rating":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.SubmitRating(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaperHandlerSubmitRatingOversizedBodyIs413(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaperHandler(&paperServiceMock{}, &ratingServiceMock{}, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	payload := bytes.NewBufferString(`{"rating":4,"userId":"` + strings.Repeat("u", 256) + `"}`)
	req, _ := http.NewRequest(http.MethodPost, "/papers/p1/rating", payload)
	req.Header.Set("Content-Type", "application/json")
	req.Body = http.MaxBytesReader(w, req.Body, 16)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.SubmitRating(c)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPaperHandlerGetRatingPassesUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &ratingServiceMock{getResp: &dto.RatingResponse{AverageRating: 3}}
	handler := NewPaperHandler(&paperServiceMock{}, mockSvc, service.NewMetricsService())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/papers/p1/rating?userId=u9", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "p1"}}

	handler.GetRating(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u9", mockSvc.lastUserID)
}
