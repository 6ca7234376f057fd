package services

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/lib/pq"
	"github.com/soundvault/backend/internal/models"
	"github.com/soundvault/backend/internal/payments"
)

// WebhookService is the webhook leg of the purchase flow. The gateway
// delivers completion notifications at least once; the handler must verify
// the signature before touching any field of the payload, and must stay
// safe under replays.
type WebhookService struct {
	gateway      payments.Gateway
	entitlements *EntitlementService
}

func NewWebhookService(gateway payments.Gateway, entitlements *EntitlementService) *WebhookService {
	return &WebhookService{
		gateway:      gateway,
		entitlements: entitlements,
	}
}

// HandlePaymentEvent processes a signed gateway notification
// @Summary Payment gateway webhook
// @Description Verify a gateway notification and record the purchase on checkout completion
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Gateway signature"
// @Success 200 {object} object{received=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /webhooks/payment [post]
func (s *WebhookService) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 65536)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		SendErrorResponse(w, "Failed to read request body", http.StatusBadRequest, nil)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		SendErrorResponse(w, "No signature provided", http.StatusBadRequest, nil)
		return
	}

	// Nothing in the body is interpreted until this returns.
	event, err := s.gateway.VerifyEvent(body, signature)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrInvalidSignature):
			log.Printf("[WEBHOOK] Signature verification failed: %v", err)
			SendErrorResponse(w, "Webhook signature verification failed", http.StatusBadRequest, nil)
		case errors.Is(err, payments.ErrMalformedEvent):
			log.Printf("[WEBHOOK] Malformed completion event: %v", err)
			SendErrorResponse(w, "Missing metadata in checkout session", http.StatusBadRequest, nil)
		default:
			log.Printf("[WEBHOOK] Failed to process event: %v", err)
			SendErrorResponse(w, "Invalid event", http.StatusBadRequest, nil)
		}
		return
	}

	if event.Kind != payments.EventCheckoutCompleted {
		s.acknowledge(w)
		return
	}

	completed := event.Completed

	// At-least-once delivery: a replayed completion event is acknowledged
	// without writing a second row.
	exists, err := s.entitlements.HasReference(r.Context(), completed.PaymentReference)
	if err != nil {
		log.Printf("[WEBHOOK] Failed to check payment reference %s: %v", completed.PaymentReference, err)
		SendErrorResponse(w, "Failed to record purchase", http.StatusInternalServerError, nil)
		return
	}
	if exists {
		log.Printf("[WEBHOOK] Duplicate completion event for %s, already recorded", completed.PaymentReference)
		s.acknowledge(w)
		return
	}

	purchase := &models.Purchase{
		AccountID:        completed.AccountID,
		AlbumID:          completed.AlbumID,
		PaymentReference: completed.PaymentReference,
		Amount:           float64(completed.AmountTotal) / 100,
	}
	if err := s.entitlements.RecordPurchase(r.Context(), purchase); err != nil {
		// Unique index on payment_reference: a concurrent replay lost the
		// race, which is the same outcome as the pre-check above.
		if isUniqueViolation(err) {
			log.Printf("[WEBHOOK] Duplicate completion event for %s, already recorded", completed.PaymentReference)
			s.acknowledge(w)
			return
		}
		log.Printf("[WEBHOOK] Failed to record purchase for account=%s album=%s: %v",
			completed.AccountID, completed.AlbumID, err)
		SendErrorResponse(w, "Failed to record purchase", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[WEBHOOK] Purchase recorded: account=%s album=%s reference=%s",
		completed.AccountID, completed.AlbumID, completed.PaymentReference)
	s.acknowledge(w)
}

func (s *WebhookService) acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
