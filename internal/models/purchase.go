package models

import (
	"time"
)

// Purchase is the entitlement record authorizing an account to download an
// album. Written exactly once per verified payment-completion event;
// payment_reference carries a unique index so replayed webhook deliveries
// cannot create a second row.
type Purchase struct {
	ID               string    `json:"id" db:"id"`
	AccountID        string    `json:"account_id" db:"account_id"`
	AlbumID          string    `json:"album_id" db:"album_id"`
	PaymentReference string    `json:"payment_reference" db:"payment_reference"`
	Amount           float64   `json:"amount" db:"amount"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// PurchaseSummary is a purchase joined with the album columns the downloads
// page renders.
type PurchaseSummary struct {
	ID            string    `json:"id" db:"id"`
	AlbumID       string    `json:"album_id" db:"album_id"`
	AlbumTitle    string    `json:"album_title" db:"album_title"`
	AlbumArtist   string    `json:"album_artist" db:"album_artist"`
	CoverImageURL *string   `json:"cover_image_url,omitempty" db:"cover_image_url"`
	Amount        float64   `json:"amount" db:"amount"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
