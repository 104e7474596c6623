package entity

import "time"

// Student carries the denormalized projection of the student's current
// subscription. Every write to a Subscription status is paired, in the same
// transaction, with a write here.
type Student struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	SubscriptionStatus    string     `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at"`
}
