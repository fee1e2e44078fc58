package models

type Title struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"size:256;not null"`
	Year        int       `json:"year" gorm:"not null;index;check:chk_titles_year_positive,year > 0"`
	Description string    `json:"description" gorm:"type:text;not null;default:''"`
	CategoryID  *int64    `json:"-" gorm:"index"`
	Category    *Category `json:"category" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;"`
	Genres      []Genre   `json:"genre" gorm:"many2many:title_genres;"`

	// Rating is the raw mean of the title's review scores. It is filled by
	// the repository on every read and never written.
	Rating *float64 `json:"-" gorm:"->;-:migration"`
}

func (Title) TableName() string {
	return "titles"
}
