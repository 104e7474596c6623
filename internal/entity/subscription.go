package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusSuspended = "suspended"
	SubscriptionStatusCancelled = "cancelled"
)

type Subscription struct {
	ID                 string     `json:"id"`
	StudentID          string     `json:"student_id"`
	PlanID             string     `json:"plan_id"`
	Status             string     `json:"status"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	// Gateway id, or a locally synthesized reference ("pix_<paymentID>",
	// "checkout_<sessionID>") for flows not backed by a gateway subscription.
	GatewaySubscriptionID string    `json:"gateway_subscription_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Plan *Plan `json:"plan,omitempty"`
}

func NewSubscription(studentID, planID, status, gatewaySubscriptionID string, periodStart, periodEnd time.Time) *Subscription {
	now := time.Now()
	return &Subscription{
		ID:                    uuid.New().String(),
		StudentID:             studentID,
		PlanID:                planID,
		Status:                status,
		CurrentPeriodStart:    periodStart,
		CurrentPeriodEnd:      periodEnd,
		GatewaySubscriptionID: gatewaySubscriptionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
