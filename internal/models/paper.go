package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PaperStatus is the moderation state of an uploaded paper.
type PaperStatus string

const (
	StatusPending  PaperStatus = "pending"
	StatusReady    PaperStatus = "ready"
	StatusRejected PaperStatus = "rejected"

	// StatusAll is the listing sentinel that disables status filtering.
	StatusAll = "all"
)

// ValidTransitionTarget reports whether a status is an acceptable target
// for an admin moderation decision.
func ValidTransitionTarget(s PaperStatus) bool {
	return s == StatusReady || s == StatusRejected
}

// AnonymousUploader marks uploads without an identified submitter.
const AnonymousUploader = "anonymous"

// Rating is one user's score for a paper. At most one entry per userId is
// kept on a paper; resubmissions overwrite in place.
type Rating struct {
	UserID  string    `json:"userId"`
	Rating  int       `json:"rating"`
	RatedAt time.Time `json:"ratedAt"`
}

// RatingList stores the per-user ratings as a JSONB document so a rating
// write stays a single-row atomic update.
type RatingList []Rating

// Value implements driver.Valuer for JSONB persistence.
func (l RatingList) Value() (driver.Value, error) {
	if l == nil {
		l = RatingList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (l *RatingList) Scan(src interface{}) error {
	if src == nil {
		*l = RatingList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported ratings column type %T", src)
	}
	return json.Unmarshal(raw, l)
}

// Mean returns the arithmetic mean of all entries, 0 when empty.
func (l RatingList) Mean() float64 {
	if len(l) == 0 {
		return 0
	}
	sum := 0
	for _, r := range l {
		sum += r.Rating
	}
	return float64(sum) / float64(len(l))
}

// Find returns the entry for a user, if present.
func (l RatingList) Find(userID string) (Rating, bool) {
	for _, r := range l {
		if r.UserID == userID {
			return r, true
		}
	}
	return Rating{}, false
}

// Paper represents one catalogued exam paper row.
type Paper struct {
	ID            string         `db:"id" json:"id"`
	Subject       string         `db:"subject" json:"subject"`
	Department    string         `db:"department" json:"department,omitempty"`
	Semester      string         `db:"semester" json:"semester,omitempty"`
	Year          int            `db:"year" json:"year"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	FileURL       string         `db:"file_url" json:"fileUrl"`
	FileName      string         `db:"file_name" json:"fileName"`
	Uploader      string         `db:"uploader" json:"uploader"`
	Status        PaperStatus    `db:"status" json:"status"`
	ExtractedText string         `db:"extracted_text" json:"-"`
	Views         int            `db:"views" json:"views"`
	Downloads     int            `db:"downloads" json:"downloads"`
	Ratings       RatingList     `db:"ratings" json:"-"`
	AverageRating float64        `db:"average_rating" json:"averageRating"`
	TotalRatings  int            `db:"total_ratings" json:"totalRatings"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// PaperFilter captures listing criteria.
type PaperFilter struct {
	Subject    string
	Department string
	Semester   string
	Year       int
	Tags       []string
	Status     string
	Query      string
	Sort       string
	Limit      int
	Page       int
	PageSize   int
}

// Listing sort keys.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortDownloads = "downloads"
)

// PaperStats aggregates catalog counters for the admin dashboard.
type PaperStats struct {
	TotalPapers    int `db:"total_papers" json:"totalPapers"`
	PendingPapers  int `db:"pending_papers" json:"pendingPapers"`
	ReadyPapers    int `db:"ready_papers" json:"readyPapers"`
	TotalDownloads int `db:"total_downloads" json:"totalDownloads"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	PageCount  int `json:"pageCount"`
}
