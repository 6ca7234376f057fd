package services

import (
	"errors"
)

var (
	// ErrNotFound means the requested album or track does not exist (or the
	// track does not belong to the given album).
	ErrNotFound = errors.New("target not found")

	// ErrNotEntitled means no purchase record exists for the account and
	// album; the download is refused outright.
	ErrNotEntitled = errors.New("album not purchased")

	// ErrDelivery means the object-storage service failed to issue a
	// download URL.
	ErrDelivery = errors.New("failed to generate download link")
)
