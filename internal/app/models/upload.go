package models

import "time"

// Upload purposes
const (
	UploadAvatar = "avatar"
)

// Upload records an object written to storage on behalf of a member
type Upload struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profileId"`
	ObjectKey string    `json:"-"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mimeType"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"createdAt"`
}
