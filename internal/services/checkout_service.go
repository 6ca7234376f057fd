package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/soundvault/backend/internal/middleware"
	"github.com/soundvault/backend/internal/models"
	"github.com/soundvault/backend/internal/payments"
	"github.com/spf13/viper"
)

// CheckoutService starts hosted checkout sessions. It never writes locally:
// entitlement is granted only by the webhook leg, on a verified completion
// notification.
type CheckoutService struct {
	db        *sql.DB
	gateway   payments.Gateway
	validator *ValidationHelper
}

func NewCheckoutService(db *sql.DB, gateway payments.Gateway) *CheckoutService {
	return &CheckoutService{
		db:        db,
		gateway:   gateway,
		validator: NewValidationHelper(),
	}
}

// CreateCheckoutSession starts a checkout session for one album
// @Summary Start album checkout
// @Description Create a hosted checkout session for the album and return its redirect URL
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{albumId=string} true "Checkout request"
// @Success 200 {object} object{url=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /checkout [post]
func (s *CheckoutService) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		AlbumID string `json:"albumId" validate:"required"`
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

	album, err := s.fetchAlbum(r.Context(), req.AlbumID)
	if errors.Is(err, sql.ErrNoRows) {
		SendErrorResponse(w, "Album not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[CHECKOUT] Failed to fetch album %s: %v", req.AlbumID, err)
		SendErrorResponse(w, "Failed to start checkout", http.StatusInternalServerError, nil)
		return
	}

	baseURL := strings.TrimRight(viper.GetString("app.base_url"), "/")
	redirectURL, err := s.gateway.CreateCheckoutSession(payments.CheckoutParams{
		AccountID:    account.ID,
		AccountEmail: account.Email,
		AlbumID:      album.ID,
		AlbumTitle:   album.Title,
		UnitAmount:   int64(math.Round(album.Price * 100)),
		SuccessURL:   baseURL + "/downloads?success=true",
		CancelURL:    fmt.Sprintf("%s/albums/%s?canceled=true", baseURL, album.ID),
	})
	if err != nil {
		log.Printf("[CHECKOUT] Failed to create session for album %s: %v", album.ID, err)
		SendErrorResponse(w, "Failed to start checkout", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": redirectURL})
}

func (s *CheckoutService) fetchAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	var album models.Album
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, artist, price FROM albums WHERE id = $1`, albumID).
		Scan(&album.ID, &album.Title, &album.Artist, &album.Price)
	if err != nil {
		return nil, err
	}
	return &album, nil
}
