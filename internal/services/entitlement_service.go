package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/soundvault/backend/internal/middleware"
	"github.com/soundvault/backend/internal/models"
)

// EntitlementService reads and writes purchase records, the durable link
// between an account and the albums it may download.
type EntitlementService struct {
	db *sql.DB
}

func NewEntitlementService(db *sql.DB) *EntitlementService {
	return &EntitlementService{db: db}
}

// HasPurchased reports whether an entitlement exists for the account and
// album. Track-level downloads are gated by the same album-level record.
func (s *EntitlementService) HasPurchased(ctx context.Context, accountID, albumID string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM purchases
		WHERE account_id = $1 AND album_id = $2
		LIMIT 1`, accountID, albumID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasReference reports whether a purchase with the given payment reference
// was already recorded. Used to acknowledge replayed completion events
// without writing a second row.
func (s *EntitlementService) HasReference(ctx context.Context, paymentReference string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM purchases
		WHERE payment_reference = $1
		LIMIT 1`, paymentReference).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordPurchase inserts one entitlement row. The caller supplies only
// gateway-verified fields; id and created_at are filled here.
func (s *EntitlementService) RecordPurchase(ctx context.Context, p *models.Purchase) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, account_id, album_id, payment_reference, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.AccountID, p.AlbumID, p.PaymentReference, p.Amount, p.CreatedAt)
	return err
}

// ListPurchases returns the authenticated account's purchases
// @Summary List purchased albums
// @Description Purchases of the current account with album details, newest first
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{purchases=[]models.PurchaseSummary}
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /purchases [get]
func (s *EntitlementService) ListPurchases(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT p.id, p.album_id, a.title, a.artist, a.cover_image_url, p.amount, p.created_at
		FROM purchases p
		JOIN albums a ON a.id = p.album_id
		WHERE p.account_id = $1
		ORDER BY p.created_at DESC`, account.ID)
	if err != nil {
		log.Printf("[PURCHASES] Failed to list purchases for %s: %v", account.ID, err)
		SendErrorResponse(w, "Failed to fetch purchases", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	purchases := []models.PurchaseSummary{}
	for rows.Next() {
		var p models.PurchaseSummary
		var cover sql.NullString
		if err := rows.Scan(&p.ID, &p.AlbumID, &p.AlbumTitle, &p.AlbumArtist, &cover, &p.Amount, &p.CreatedAt); err != nil {
			log.Printf("[PURCHASES] Failed to scan purchase row: %v", err)
			SendErrorResponse(w, "Failed to fetch purchases", http.StatusInternalServerError, nil)
			return
		}
		if cover.Valid {
			p.CoverImageURL = &cover.String
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to fetch purchases", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"purchases": purchases})
}
