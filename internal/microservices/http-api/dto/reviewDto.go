package dto

import (
	"time"

	"mediareview/internal/microservices/http-api/models"
)

// CreateReviewDTO for posting a review of a title
type CreateReviewDTO struct {
	Text  string `json:"text" validate:"required,min=1"`
	Score int    `json:"score" validate:"required,min=1,max=10"`
}

// UpdateReviewDTO for PATCH; only submitted fields change
type UpdateReviewDTO struct {
	Text  *string `json:"text" validate:"omitnil,min=1"`
	Score *int    `json:"score" validate:"omitnil,min=1,max=10"`
}

// ReviewResponse shows the author by username
type ReviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

func (d UpdateReviewDTO) ApplyTo(r *models.Review) {
	if d.Text != nil {
		r.Text = *d.Text
	}
	if d.Score != nil {
		r.Score = *d.Score
	}
}

// FromModelToReviewResponse converts a Review model to ReviewResponse DTO
func FromModelToReviewResponse(r *models.Review) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}
