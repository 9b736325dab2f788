package response

import (
	"bookstore/internal/usecase/queries"
)

type ReviewResponse struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	OwnerEmail string `json:"owner_email"`
	BookID     string `json:"book_id"`
	BookTitle  string `json:"book_title"`
	Rating     int32  `json:"rating"`
	Comment    string `json:"comment"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

func FromReviewView(v *queries.ReviewView) *ReviewResponse {
	return &ReviewResponse{
		ID:         v.ID.String(),
		OwnerID:    v.OwnerID.String(),
		OwnerEmail: v.OwnerEmail,
		BookID:     v.BookID.String(),
		BookTitle:  v.BookTitle,
		Rating:     v.Rating,
		Comment:    v.Comment,
		CreatedAt:  v.CreatedAt.Unix(),
		UpdatedAt:  v.UpdatedAt.Unix(),
	}
}

type ReviewListItemResponse struct {
	ID         string `json:"id"`
	OwnerEmail string `json:"owner_email"`
	Rating     int32  `json:"rating"`
	Comment    string `json:"comment"`
	CreatedAt  int64  `json:"created_at"`
}

func FromReviewList(items []*queries.ReviewListItem) []*ReviewListItemResponse {
	res := make([]*ReviewListItemResponse, len(items))
	for i, it := range items {
		res[i] = &ReviewListItemResponse{
			ID:         it.ID.String(),
			OwnerEmail: it.OwnerEmail,
			Rating:     it.Rating,
			Comment:    it.Comment,
			CreatedAt:  it.CreatedAt.Unix(),
		}
	}
	return res
}

type BookRatingStatsResponse struct {
	BookID        string  `json:"book_id"`
	TotalReviews  int32   `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
}

func FromBookRatingStats(s *queries.BookRatingStats) *BookRatingStatsResponse {
	return &BookRatingStatsResponse{
		BookID:        s.BookID.String(),
		TotalReviews:  s.TotalReviews,
		AverageRating: s.AverageRating,
	}
}
