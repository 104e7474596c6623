package entity

import (
	"fmt"
	"time"
)

// PaymentConfig is the tunable payment parameter set. Only the most recent
// row is authoritative.
type PaymentConfig struct {
	ID                          string    `json:"id"`
	MaxInstallments             int       `json:"max_installments"`
	PixDiscountPercent          float64   `json:"pix_discount_percent"`
	InstallmentsWithoutInterest int       `json:"installments_without_interest"`
	PixExpirationMinutes        int       `json:"pix_expiration_minutes"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// PaymentConfigUpdate is a partial admin update; nil fields keep the stored
// value.
type PaymentConfigUpdate struct {
	MaxInstallments             *int     `json:"max_installments"`
	PixDiscountPercent          *float64 `json:"pix_discount_percent"`
	InstallmentsWithoutInterest *int     `json:"installments_without_interest"`
	PixExpirationMinutes        *int     `json:"pix_expiration_minutes"`
}

func (u PaymentConfigUpdate) Empty() bool {
	return u.MaxInstallments == nil && u.PixDiscountPercent == nil &&
		u.InstallmentsWithoutInterest == nil && u.PixExpirationMinutes == nil
}

// Merge overlays the update on top of the current config and returns the
// merged result without mutating the receiver.
func (c PaymentConfig) Merge(u PaymentConfigUpdate) PaymentConfig {
	if u.MaxInstallments != nil {
		c.MaxInstallments = *u.MaxInstallments
	}
	if u.PixDiscountPercent != nil {
		c.PixDiscountPercent = *u.PixDiscountPercent
	}
	if u.InstallmentsWithoutInterest != nil {
		c.InstallmentsWithoutInterest = *u.InstallmentsWithoutInterest
	}
	if u.PixExpirationMinutes != nil {
		c.PixExpirationMinutes = *u.PixExpirationMinutes
	}
	return c
}

// Validate checks all fields jointly, including the cross-field constraint
// between installments without interest and max installments. It must run on
// the merged view, never on the bare partial update.
func (c PaymentConfig) Validate() error {
	if c.MaxInstallments < 1 || c.MaxInstallments > 24 {
		return fmt.Errorf("max_installments must be between 1 and 24, got %d", c.MaxInstallments)
	}
	if c.PixDiscountPercent < 0 || c.PixDiscountPercent > 50 {
		return fmt.Errorf("pix_discount_percent must be between 0 and 50, got %v", c.PixDiscountPercent)
	}
	if c.InstallmentsWithoutInterest < 0 {
		return fmt.Errorf("installments_without_interest must be >= 0, got %d", c.InstallmentsWithoutInterest)
	}
	if c.InstallmentsWithoutInterest > c.MaxInstallments {
		return fmt.Errorf("installments_without_interest (%d) cannot exceed max_installments (%d)",
			c.InstallmentsWithoutInterest, c.MaxInstallments)
	}
	if c.PixExpirationMinutes < 5 || c.PixExpirationMinutes > 1440 {
		return fmt.Errorf("pix_expiration_minutes must be between 5 and 1440, got %d", c.PixExpirationMinutes)
	}
	return nil
}
