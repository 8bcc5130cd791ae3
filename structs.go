package portfolio

import (
	"time"
)

// ImageRecord is the metadata of an image hosted by a media host
type ImageRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ImageSummary is the public projection of an image record used by listings
type ImageSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Summary returns the listing projection of an image record
func (r ImageRecord) Summary() ImageSummary {
	return ImageSummary{
		ID:       r.ID,
		Name:     r.Name,
		URL:      r.URL,
		PublicID: r.PublicID,
	}
}

// NewImage is the input for creating an image record. URL and PublicID are
// returned together by a media host and are never changed afterwards.
type NewImage struct {
	Name     string
	URL      string
	PublicID string
}

// ImageName returns the given name or the default placeholder when it is empty
func ImageName(name string) string {
	if name == "" {
		return DefaultImageName
	}
	return name
}
