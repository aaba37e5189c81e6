package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pyqhub/papers-api/internal/dto"
	"github.com/pyqhub/papers-api/internal/models"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
)

type ratingStore interface {
	GetByID(ctx context.Context, id string) (*models.Paper, error)
	UpdateRatings(ctx context.Context, id string, ratings models.RatingList, average float64, total int) (*models.Paper, error)
}

// RatingService keeps one rating per user per paper and the running mean.
type RatingService struct {
	repo      ratingStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRatingService constructs the service.
func NewRatingService(repo ratingStore, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RatingService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// Submit records or overwrites the caller's rating and recomputes the mean.
func (s *RatingService) Submit(ctx context.Context, paperID string, req dto.SubmitRatingRequest) (*dto.RatingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = models.AnonymousUploader
	}

	paper, err := s.repo.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	ratings := make(models.RatingList, len(paper.Ratings))
	copy(ratings, paper.Ratings)
	found := false
	for i := range ratings {
		if ratings[i].UserID == userID {
			ratings[i].Rating = req.Rating
			ratings[i].RatedAt = s.now().UTC()
			found = true
			break
		}
	}
	if !found {
		ratings = append(ratings, models.Rating{
			UserID:  userID,
			Rating:  req.Rating,
			RatedAt: s.now().UTC(),
		})
	}

	average := ratings.Mean()
	updated, err := s.repo.UpdateRatings(ctx, paperID, ratings, average, len(ratings))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
	}

	userRating := req.Rating
	return &dto.RatingResponse{
		AverageRating: updated.AverageRating,
		TotalRatings:  updated.TotalRatings,
		UserRating:    &userRating,
	}, nil
}

// Get reads the aggregate and, when a user is named, their own rating.
func (s *RatingService) Get(ctx context.Context, paperID, userID string) (*dto.RatingResponse, error) {
	paper, err := s.repo.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	resp := &dto.RatingResponse{
		AverageRating: paper.AverageRating,
		TotalRatings:  paper.TotalRatings,
	}
	if userID = strings.TrimSpace(userID); userID != "" {
		if entry, ok := paper.Ratings.Find(userID); ok {
			value := entry.Rating
			resp.UserRating = &value
		}
	}
	return resp, nil
}
