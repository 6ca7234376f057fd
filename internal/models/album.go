package models

import (
	"time"
)

// Album is a purchasable digital release. Albums are created and edited by
// admin tooling; this service only reads them.
type Album struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Artist        string    `json:"artist" db:"artist"`
	Description   string    `json:"description" db:"description"`
	Price         float64   `json:"price" db:"price"`
	CoverImageURL *string   `json:"cover_image_url,omitempty" db:"cover_image_url"`
	FilePath      string    `json:"-" db:"file_path"`
	StorageKey    *string   `json:"-" db:"storage_key"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Track belongs to exactly one album. There is no per-track purchase;
// downloads are gated on the album-level entitlement.
type Track struct {
	ID          string    `json:"id" db:"id"`
	AlbumID     string    `json:"album_id" db:"album_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	TrackNumber int       `json:"track_number" db:"track_number"`
	StorageKey  string    `json:"-" db:"storage_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
