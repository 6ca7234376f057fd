package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

var (
	// ErrInvalidSignature means the event could not be authenticated against
	// the shared webhook secret. Nothing in the payload may be trusted.
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrMalformedEvent means the event verified but is missing the session
	// metadata this system embeds at checkout time.
	ErrMalformedEvent = errors.New("completion event missing checkout metadata")
)

// EventKind tags the verified event variants this system distinguishes.
// Anything the storefront does not act on collapses into EventIgnored.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventCheckoutCompleted
)

// CompletedCheckout is the subset of a verified completion notification the
// webhook handler acts on. All fields come from gateway-signed data, never
// from request input.
type CompletedCheckout struct {
	AccountID        string
	AlbumID          string
	PaymentReference string
	AmountTotal      int64 // minor units
}

// Event is a verified, tagged webhook notification.
type Event struct {
	Kind      EventKind
	Completed *CompletedCheckout // set when Kind == EventCheckoutCompleted
}

// CheckoutParams describes the hosted checkout session to create for one
// account buying one album.
type CheckoutParams struct {
	AccountID    string
	AccountEmail string
	AlbumID      string
	AlbumTitle   string
	UnitAmount   int64 // minor units
	SuccessURL   string
	CancelURL    string
}

// Gateway is the payment processor surface the services depend on.
type Gateway interface {
	CreateCheckoutSession(params CheckoutParams) (string, error)
	VerifyEvent(payload []byte, sigHeader string) (Event, error)
}

// StripeGateway implements Gateway against Stripe Checkout and the Stripe
// webhook signing scheme.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

// CreateCheckoutSession creates a hosted checkout session carrying the
// account and album identifiers as session metadata, so the completion
// notification can be correlated back without a local pending-purchase
// table. Returns the hosted redirect URL.
func (g *StripeGateway) CreateCheckoutSession(p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(p.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.AlbumTitle),
						Description: stripe.String(fmt.Sprintf("Music album: %s", p.AlbumTitle)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if p.AccountEmail != "" {
		params.CustomerEmail = stripe.String(p.AccountEmail)
	}
	params.AddMetadata("userId", p.AccountID)
	params.AddMetadata("albumId", p.AlbumID)

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return s.URL, nil
}

// VerifyEvent authenticates the raw payload against the shared secret and
// maps it to a tagged Event. Verification always happens before any field
// of the payload is interpreted.
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if ev.Type != "checkout.session.completed" {
		return Event{Kind: EventIgnored}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	accountID := sess.Metadata["userId"]
	albumID := sess.Metadata["albumId"]
	if accountID == "" || albumID == "" {
		return Event{}, ErrMalformedEvent
	}

	var paymentRef string
	if sess.PaymentIntent != nil {
		paymentRef = sess.PaymentIntent.ID
	}

	return Event{
		Kind: EventCheckoutCompleted,
		Completed: &CompletedCheckout{
			AccountID:        accountID,
			AlbumID:          albumID,
			PaymentReference: paymentRef,
			AmountTotal:      sess.AmountTotal,
		},
	}, nil
}
