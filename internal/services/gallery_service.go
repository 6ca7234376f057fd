package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/soundvault/backend/internal/models"
)

const (
	galleryCacheKey = "gallery:images"
	galleryCacheTTL = 5 * time.Minute
)

// GalleryService backs the public gallery page and its admin management
// endpoints. Mutations invalidate the cached listing.
type GalleryService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
}

func NewGalleryService(db *sql.DB, redis *redis.Client) *GalleryService {
	return &GalleryService{
		db:        db,
		redis:     redis,
		validator: NewValidationHelper(),
	}
}

// ListImages lists gallery images
// @Summary List gallery images
// @Description All gallery images in display order
// @Tags gallery
// @Produce json
// @Success 200 {object} object{images=[]models.GalleryImage}
// @Failure 500 {object} services.ErrorResponse
// @Router /gallery [get]
func (s *GalleryService) ListImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, galleryCacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(cached)
			return
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, image_url, display_order, created_at
		FROM gallery_images
		ORDER BY display_order ASC, created_at ASC`)
	if err != nil {
		log.Printf("[GALLERY] Failed to list images: %v", err)
		SendErrorResponse(w, "Failed to fetch gallery", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	images := []models.GalleryImage{}
	for rows.Next() {
		var img models.GalleryImage
		if err := rows.Scan(&img.ID, &img.Title, &img.Description, &img.ImageURL, &img.DisplayOrder, &img.CreatedAt); err != nil {
			log.Printf("[GALLERY] Failed to scan image row: %v", err)
			SendErrorResponse(w, "Failed to fetch gallery", http.StatusInternalServerError, nil)
			return
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to fetch gallery", http.StatusInternalServerError, nil)
		return
	}

	payload, err := json.Marshal(map[string]any{"images": images})
	if err != nil {
		SendErrorResponse(w, "Failed to fetch gallery", http.StatusInternalServerError, nil)
		return
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, galleryCacheKey, payload, galleryCacheTTL).Err(); err != nil {
			log.Printf("[GALLERY] Failed to cache gallery list: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// AddImage adds a gallery image
// @Summary Add gallery image
// @Description Add a photo to the public gallery
// @Tags gallery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,description=string,imageUrl=string,displayOrder=int} true "Image data"
// @Success 201 {object} object{id=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/gallery [post]
func (s *GalleryService) AddImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string `json:"title" validate:"required"`
		Description  string `json:"description"`
		ImageURL     string `json:"imageUrl" validate:"required,url"`
		DisplayOrder int    `json:"displayOrder" validate:"gte=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(r.Context(), `
		INSERT INTO gallery_images (id, title, description, image_url, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, req.Title, req.Description, req.ImageURL, req.DisplayOrder, time.Now())
	if err != nil {
		log.Printf("[GALLERY] Failed to add image: %v", err)
		SendErrorResponse(w, "Failed to add image", http.StatusInternalServerError, nil)
		return
	}

	s.invalidateCache(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// DeleteImage removes a gallery image
// @Summary Delete gallery image
// @Description Remove a photo from the public gallery
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Param imageId path string true "Image ID"
// @Success 200 {object} object{success=bool}
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/gallery/{imageId} [delete]
func (s *GalleryService) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageId")

	result, err := s.db.ExecContext(r.Context(), `DELETE FROM gallery_images WHERE id = $1`, imageID)
	if err != nil {
		log.Printf("[GALLERY] Failed to delete image %s: %v", imageID, err)
		SendErrorResponse(w, "Failed to delete image", http.StatusInternalServerError, nil)
		return
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		SendErrorResponse(w, "Image not found", http.StatusNotFound, nil)
		return
	}

	s.invalidateCache(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *GalleryService) invalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, galleryCacheKey).Err(); err != nil {
		log.Printf("[GALLERY] Failed to invalidate gallery cache: %v", err)
	}
}
