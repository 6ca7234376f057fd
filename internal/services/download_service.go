package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/soundvault/backend/internal/storage"
)

// Every URL is valid for one hour, album and track targets alike.
const signedURLTTL = 3600 * time.Second

// DownloadService authorizes downloads against the entitlement records and
// asks object storage for pre-signed URLs. It holds no state of its own;
// every call may return a distinct URL for the same target.
type DownloadService struct {
	db           *sql.DB
	signer       storage.ObjectSigner
	entitlements *EntitlementService
	mediaBucket  string
	legacyBucket string
}

func NewDownloadService(db *sql.DB, signer storage.ObjectSigner, entitlements *EntitlementService, mediaBucket, legacyBucket string) *DownloadService {
	return &DownloadService{
		db:           db,
		signer:       signer,
		entitlements: entitlements,
		mediaBucket:  mediaBucket,
		legacyBucket: legacyBucket,
	}
}

// SignAlbumDownload returns a pre-signed URL for the whole-album file.
// The entitlement check runs before the target is resolved. Albums carry
// either a modern storage key or a legacy file path; the key wins when both
// are present.
func (s *DownloadService) SignAlbumDownload(ctx context.Context, accountID, albumID string) (string, error) {
	if err := s.requireEntitlement(ctx, accountID, albumID); err != nil {
		return "", err
	}

	var storageKey, filePath sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT storage_key, file_path FROM albums WHERE id = $1`, albumID).
		Scan(&storageKey, &filePath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetching album %s: %w", albumID, err)
	}

	bucket, key := s.legacyBucket, filePath.String
	if storageKey.Valid && storageKey.String != "" {
		bucket, key = s.mediaBucket, storageKey.String
	}

	url, err := s.signer.SignDownloadURL(ctx, bucket, key, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return url, nil
}

// SignTrackDownload returns a pre-signed URL for a single track. The track
// must belong to the given album, but the entitlement is the album-level
// one; there is no per-track purchase.
func (s *DownloadService) SignTrackDownload(ctx context.Context, accountID, albumID, trackID string) (string, error) {
	if err := s.requireEntitlement(ctx, accountID, albumID); err != nil {
		return "", err
	}

	var storageKey string
	err := s.db.QueryRowContext(ctx, `
		SELECT storage_key FROM tracks WHERE id = $1 AND album_id = $2`, trackID, albumID).
		Scan(&storageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetching track %s: %w", trackID, err)
	}

	url, err := s.signer.SignDownloadURL(ctx, s.mediaBucket, storageKey, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return url, nil
}

// SignDownloadQR signs the requested target and renders the URL as a QR
// PNG for handing the download to a phone. TrackID may be empty for the
// whole-album file.
func (s *DownloadService) SignDownloadQR(ctx context.Context, accountID, albumID, trackID string) (string, string, error) {
	var url string
	var err error
	if trackID != "" {
		url, err = s.SignTrackDownload(ctx, accountID, albumID, trackID)
	} else {
		url, err = s.SignAlbumDownload(ctx, accountID, albumID)
	}
	if err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", "", fmt.Errorf("encoding QR: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", fmt.Errorf("rendering QR: %w", err)
	}

	return url, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *DownloadService) requireEntitlement(ctx context.Context, accountID, albumID string) error {
	purchased, err := s.entitlements.HasPurchased(ctx, accountID, albumID)
	if err != nil {
		return fmt.Errorf("entitlement lookup: %w", err)
	}
	if !purchased {
		return ErrNotEntitled
	}
	return nil
}
