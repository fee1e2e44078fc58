package models

// explicit join model so genre deletes can clear links without loading titles
type TitleGenre struct {
	TitleID int64 `json:"title_id" gorm:"primaryKey"`
	GenreID int64 `json:"genre_id" gorm:"primaryKey;index"`
}

func (TitleGenre) TableName() string {
	return "title_genres"
}
