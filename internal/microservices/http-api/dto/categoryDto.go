package dto

import "mediareview/internal/microservices/http-api/models"

// CategoryRequest used for POST /categories
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

type CategoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (d CategoryRequest) ToModel() models.Category {
	return models.Category{Name: d.Name, Slug: d.Slug}
}

func FromModelToCategoryResponse(c *models.Category) CategoryResponse {
	return CategoryResponse{Name: c.Name, Slug: c.Slug}
}
