package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/soundvault/backend/internal/middleware"
	"github.com/soundvault/backend/internal/services"
)

// DownloadHandler exposes the download-authorization flow over HTTP. The
// service decides; this layer only decodes requests and maps errors to
// status codes.
type DownloadHandler struct {
	service   *services.DownloadService
	validator *services.ValidationHelper
}

func NewDownloadHandler(service *services.DownloadService) *DownloadHandler {
	return &DownloadHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

type downloadRequest struct {
	AlbumID string `json:"albumId" validate:"required"`
	TrackID string `json:"trackId"`
}

// SignAlbumDownload issues a download URL for a purchased album
// @Summary Album download URL
// @Description Pre-signed URL for the whole-album file, valid for one hour
// @Tags downloads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{albumId=string} true "Download request"
// @Success 200 {object} object{url=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /downloads/album [post]
func (h *DownloadHandler) SignAlbumDownload(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	url, err := h.service.SignAlbumDownload(r.Context(), account.ID, req.AlbumID)
	if err != nil {
		h.respondError(w, "Album not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// SignTrackDownload issues a download URL for one track of a purchased album
// @Summary Track download URL
// @Description Pre-signed URL for a single track, valid for one hour
// @Tags downloads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{albumId=string,trackId=string} true "Download request"
// @Success 200 {object} object{url=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /downloads/track [post]
func (h *DownloadHandler) SignTrackDownload(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.TrackID == "" {
		services.SendErrorResponse(w, "trackId is required", http.StatusBadRequest, nil)
		return
	}

	url, err := h.service.SignTrackDownload(r.Context(), account.ID, req.AlbumID, req.TrackID)
	if err != nil {
		h.respondError(w, "Track not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// DownloadQR issues a download URL plus a QR rendering of it
// @Summary Download QR code
// @Description Pre-signed download URL rendered as a QR PNG for mobile handoff
// @Tags downloads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{albumId=string,trackId=string} true "Download request, trackId optional"
// @Success 200 {object} object{url=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /downloads/qr [post]
func (h *DownloadHandler) DownloadQR(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	url, qrImage, err := h.service.SignDownloadQR(r.Context(), account.ID, req.AlbumID, req.TrackID)
	if err != nil {
		h.respondError(w, "Target not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"url":     url,
		"qrImage": qrImage,
	})
}

func (h *DownloadHandler) decode(w http.ResponseWriter, r *http.Request) (downloadRequest, bool) {
	var req downloadRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return req, false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return req, false
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return req, false
	}
	return req, true
}

func (h *DownloadHandler) respondError(w http.ResponseWriter, notFoundMsg string, err error) {
	switch {
	case errors.Is(err, services.ErrNotEntitled):
		services.SendErrorResponse(w, "You have not purchased this album", http.StatusForbidden, nil)
	case errors.Is(err, services.ErrNotFound):
		services.SendErrorResponse(w, notFoundMsg, http.StatusNotFound, nil)
	default:
		log.Printf("[DOWNLOAD] %v", err)
		services.SendErrorResponse(w, "Failed to generate download link", http.StatusInternalServerError, nil)
	}
}
