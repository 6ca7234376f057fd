package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/soundvault/backend/internal/models"
)

const (
	albumsCacheKey = "catalog:albums"
	albumsCacheTTL = 5 * time.Minute
)

// CatalogService serves the public storefront browse endpoints. The album
// list is cached in Redis; albums change rarely and only through admin
// tooling outside this service.
type CatalogService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewCatalogService(db *sql.DB, redis *redis.Client) *CatalogService {
	return &CatalogService{
		db:    db,
		redis: redis,
	}
}

// ListAlbums lists all albums
// @Summary List albums
// @Description All albums in the catalog, newest first
// @Tags catalog
// @Produce json
// @Success 200 {object} object{albums=[]models.Album}
// @Failure 500 {object} services.ErrorResponse
// @Router /albums [get]
func (s *CatalogService) ListAlbums(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, albumsCacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(cached)
			return
		}
	}

	albums, err := s.fetchAlbums(ctx)
	if err != nil {
		log.Printf("[CATALOG] Failed to list albums: %v", err)
		SendErrorResponse(w, "Failed to fetch albums", http.StatusInternalServerError, nil)
		return
	}

	payload, err := json.Marshal(map[string]any{"albums": albums})
	if err != nil {
		SendErrorResponse(w, "Failed to fetch albums", http.StatusInternalServerError, nil)
		return
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, albumsCacheKey, payload, albumsCacheTTL).Err(); err != nil {
			log.Printf("[CATALOG] Failed to cache album list: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// GetAlbum returns one album with its tracks
// @Summary Get album
// @Description One album with its tracks in track-number order
// @Tags catalog
// @Produce json
// @Param albumId path string true "Album ID"
// @Success 200 {object} object{album=models.Album,tracks=[]models.Track}
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /albums/{albumId} [get]
func (s *CatalogService) GetAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumId")

	album, err := s.fetchAlbum(r.Context(), albumID)
	if errors.Is(err, sql.ErrNoRows) {
		SendErrorResponse(w, "Album not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[CATALOG] Failed to fetch album %s: %v", albumID, err)
		SendErrorResponse(w, "Failed to fetch album", http.StatusInternalServerError, nil)
		return
	}

	tracks, err := s.fetchTracks(r.Context(), albumID)
	if err != nil {
		log.Printf("[CATALOG] Failed to fetch tracks for album %s: %v", albumID, err)
		SendErrorResponse(w, "Failed to fetch album", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"album":  album,
		"tracks": tracks,
	})
}

func (s *CatalogService) fetchAlbums(ctx context.Context) ([]models.Album, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, artist, description, price, cover_image_url, created_at
		FROM albums
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := []models.Album{}
	for rows.Next() {
		var a models.Album
		var cover sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Artist, &a.Description, &a.Price, &cover, &a.CreatedAt); err != nil {
			return nil, err
		}
		if cover.Valid {
			a.CoverImageURL = &cover.String
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (s *CatalogService) fetchAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	var a models.Album
	var cover sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, artist, description, price, cover_image_url, created_at
		FROM albums WHERE id = $1`, albumID).
		Scan(&a.ID, &a.Title, &a.Artist, &a.Description, &a.Price, &cover, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if cover.Valid {
		a.CoverImageURL = &cover.String
	}
	return &a, nil
}

func (s *CatalogService) fetchTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, album_id, title, description, track_number, created_at
		FROM tracks
		WHERE album_id = $1
		ORDER BY track_number ASC`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var t models.Track
		var desc sql.NullString
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.Title, &desc, &t.TrackNumber, &t.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			t.Description = &desc.String
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
