package stripe

import (
	"encoding/json"
	"time"
)

// --- Inputs: what the usecases hand to the client ---

type CheckoutSessionInput struct {
	PlanID       string
	PlanName     string
	PlanPrice    float64
	Currency     string
	StudentID    string
	StudentEmail string
	SuccessURL   string
	CancelURL    string

	// Payment-options checkout only.
	PaymentMethod string // "card"
	Installments  int
}

type CheckoutSessionOutput struct {
	SessionID   string
	CheckoutURL string
}

type PixIntentInput struct {
	StudentID      string
	PlanID         string
	FinalAmount    float64 // charged amount, after PIX discount
	OriginalAmount float64
	Discount       float64
	Description    string
}

// PixIntentOutput carries the payment intent plus the extracted QR payload.
type PixIntentOutput struct {
	Intent       *PaymentIntent
	QRCode       string
	QRCodeBase64 string
}

type SubscriptionInput struct {
	CustomerID string
	PriceID    string
	Metadata   map[string]string
}

type SubscriptionResult struct {
	SubscriptionID     string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// --- Gateway objects: what Stripe returns ---

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

type PaymentIntent struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	Metadata           map[string]string `json:"metadata"`
	NextAction         *NextAction       `json:"next_action,omitempty"`
}

func (pi *PaymentIntent) HasMethodType(t string) bool {
	for _, m := range pi.PaymentMethodTypes {
		if m == t {
			return true
		}
	}
	return false
}

type NextAction struct {
	Type             string            `json:"type"`
	PixDisplayQRCode *PixDisplayQRCode `json:"pix_display_qr_code,omitempty"`
}

type PixDisplayQRCode struct {
	Data        string `json:"data"`
	ImageURLPNG string `json:"image_url_png"`
	ExpiresAt   int64  `json:"expires_at"`
}

type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Mode          string            `json:"mode"` // "payment" or "subscription"
	AmountTotal   int64             `json:"amount_total"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type Subscription struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
}

type Invoice struct {
	ID                string `json:"id"`
	Subscription      string `json:"subscription"`
	AmountPaid        int64  `json:"amount_paid"`
	AmountDue         int64  `json:"amount_due"`
	Currency          string `json:"currency"`
	PaymentIntent     string `json:"payment_intent"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

// Event is a verified webhook event. Data.Object keeps the raw payload so
// each handler unmarshals only the object type it expects.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (e *Event) PaymentIntent() (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := json.Unmarshal(e.Data.Object, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

func (e *Event) Subscription() (*Subscription, error) {
	var s Subscription
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (e *Event) Invoice() (*Invoice, error) {
	var inv Invoice
	if err := json.Unmarshal(e.Data.Object, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var cs CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// Webhook event types the reconciliation engine consumes.
const (
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventCheckoutSessionCompleted = "checkout.session.completed"
)
