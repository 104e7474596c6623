package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"

	PaymentMethodPix  = "pix"
	PaymentMethodCard = "card"
)

// Payment is one row of the charge ledger, written by the reconciliation
// engine whenever the gateway reports a settled or failed charge.
type Payment struct {
	ID               string     `json:"id"`
	SubscriptionID   string     `json:"subscription_id"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	PaymentMethod    string     `json:"payment_method"`
	GatewayPaymentID string     `json:"gateway_payment_id"`
	PixPaymentID     string     `json:"pix_payment_id,omitempty"`
	PaidAt           *time.Time `json:"paid_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func NewPayment(subscriptionID string, amount float64, currency, status, method, gatewayPaymentID string) *Payment {
	return &Payment{
		ID:               uuid.New().String(),
		SubscriptionID:   subscriptionID,
		Amount:           amount,
		Currency:         currency,
		Status:           status,
		PaymentMethod:    method,
		GatewayPaymentID: gatewayPaymentID,
		CreatedAt:        time.Now(),
	}
}
