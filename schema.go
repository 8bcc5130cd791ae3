package portfolio

import "time"

// sqlImage is the relational row of an image record
type sqlImage struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Name       string    `gorm:"not null"`
	URL        string    `gorm:"not null"`
	PublicID   string    `gorm:"not null"`
	UploadedAt time.Time `gorm:"index:image_uploaded_at"`
}

func (sqlImage) TableName() string {
	return "images"
}

func (i sqlImage) record() ImageRecord {
	return ImageRecord{
		ID:         i.ID,
		Name:       i.Name,
		URL:        i.URL,
		PublicID:   i.PublicID,
		UploadedAt: i.UploadedAt.UTC(),
	}
}
