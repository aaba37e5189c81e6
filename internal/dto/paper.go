package dto

// UploadPaperForm carries the multipart fields submitted alongside the PDF.
type UploadPaperForm struct {
	Subject    string `form:"subject" validate:"required"`
	Year       int    `form:"year" validate:"required"`
	Semester   string `form:"semester"`
	Department string `form:"department"`
	Tags       string `form:"tags"`
	Uploader   string `form:"uploader"`
}

// UploadPaperResponse is returned after a successful submission.
type UploadPaperResponse struct {
	PaperID string `json:"paperId"`
	FileURL string `json:"fileUrl"`
	Status  string `json:"status"`
}

// ListPapersQuery captures public listing query parameters.
type ListPapersQuery struct {
	Subject    string `form:"subject"`
	Department string `form:"department"`
	Semester   string `form:"semester"`
	Year       int    `form:"year"`
	Tags       string `form:"tags"`
	Query      string `form:"q"`
	Status     string `form:"status"`
	Sort       string `form:"sort"`
	Limit      int    `form:"limit"`
}

// AdminListPapersQuery adds page-based pagination for the admin catalog.
type AdminListPapersQuery struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// UpdateStatusRequest is the moderation decision payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePaperRequest is the admin edit payload; every field is required.
type UpdatePaperRequest struct {
	Subject    string `json:"subject" validate:"required"`
	Department string `json:"department" validate:"required"`
	Year       int    `json:"year" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
	FileName   string `json:"fileName" validate:"required"`
}

// SubmitRatingRequest is the public rating payload.
type SubmitRatingRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	UserID string `json:"userId"`
}

// RatingResponse reports the aggregate after a rating read or write.
type RatingResponse struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
	UserRating    *int    `json:"userRating"`
}
