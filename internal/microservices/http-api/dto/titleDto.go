package dto

import (
	"bytes"
	"encoding/json"
	"sort"

	"mediareview/internal/microservices/http-api/models"
)

// TitleCreateRequest used for POST /titles. Genre and category are slugs.
type TitleCreateRequest struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        int      `json:"year" validate:"required,gt=0,pastyear"`
	Description string   `json:"description"`
	Genre       []string `json:"genre" validate:"required,dive,max=50,slug"`
	Category    string   `json:"category" validate:"required,max=50,slug"`

	nulls []string
}

// TitleUpdateRequest used for PATCH /titles/{id}; only submitted fields change.
type TitleUpdateRequest struct {
	Name        *string   `json:"name" validate:"omitnil,min=1,max=256"`
	Year        *int      `json:"year" validate:"omitnil,gt=0,pastyear"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre" validate:"omitnil,dive,max=50,slug"`
	Category    *string   `json:"category" validate:"omitnil,max=50,slug"`

	nulls []string
}

var titleFields = map[string]bool{"name": true, "year": true, "description": true, "genre": true, "category": true}

// UnmarshalJSON records title fields sent as an explicit null.
func (d *TitleCreateRequest) UnmarshalJSON(b []byte) error {
	type plain TitleCreateRequest
	if err := json.Unmarshal(b, (*plain)(d)); err != nil {
		return err
	}
	nulls, err := nullKeys(b, titleFields)
	d.nulls = nulls
	return err
}

// NullFields lists the fields sent as null; none of them may be null.
func (d TitleCreateRequest) NullFields() []string { return d.nulls }

// UnmarshalJSON records title fields sent as an explicit null, which is
// not the same as leaving them out.
func (d *TitleUpdateRequest) UnmarshalJSON(b []byte) error {
	type plain TitleUpdateRequest
	if err := json.Unmarshal(b, (*plain)(d)); err != nil {
		return err
	}
	nulls, err := nullKeys(b, titleFields)
	d.nulls = nulls
	return err
}

func (d TitleUpdateRequest) NullFields() []string { return d.nulls }

// nullKeys returns the keys of the JSON object b that are in known and
// hold a literal null.
func nullKeys(b []byte, known map[string]bool) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	var keys []string
	for k, v := range raw {
		if known[k] && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// TitleResponse is the read shape: category and genres are expanded and
// rating is derived.
type TitleResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Year        int               `json:"year"`
	Rating      *int              `json:"rating"`
	Description string            `json:"description"`
	Genre       []GenreResponse   `json:"genre"`
	Category    *CategoryResponse `json:"category"`
}

func (d TitleUpdateRequest) ApplyTo(t *models.Title) {
	if d.Name != nil {
		t.Name = *d.Name
	}
	if d.Year != nil {
		t.Year = *d.Year
	}
	if d.Description != nil {
		t.Description = *d.Description
	}
}

// FromModelToTitleResponse builds the read shape; rating is the already
// rounded aggregate.
func FromModelToTitleResponse(t *models.Title, rating *int) TitleResponse {
	resp := TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      rating,
		Description: t.Description,
		Genre:       Map(t.Genres, FromModelToGenreResponse),
	}
	if t.Category != nil {
		c := FromModelToCategoryResponse(t.Category)
		resp.Category = &c
	}
	return resp
}
