package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eadhub/eadhub-payments/internal/entity"
)

type PaymentConfigRepository struct {
	DB *sql.DB
}

func NewPaymentConfigRepository(db *sql.DB) *PaymentConfigRepository {
	return &PaymentConfigRepository{DB: db}
}

const paymentConfigColumns = `
	id, max_installments, pix_discount_percent,
	installments_without_interest, pix_expiration_minutes,
	created_at, updated_at
`

// Latest returns the most recently updated config row, the only one that is
// authoritative.
func (r *PaymentConfigRepository) Latest(ctx context.Context) (*entity.PaymentConfig, error) {
	query := `
		SELECT ` + paymentConfigColumns + `
		FROM payment_config
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var c entity.PaymentConfig
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&c.ID, &c.MaxInstallments, &c.PixDiscountPercent,
		&c.InstallmentsWithoutInterest, &c.PixExpirationMinutes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment config: %w", err)
	}
	return &c, nil
}

// Update applies a partial update; nil fields keep the stored value.
func (r *PaymentConfigRepository) Update(ctx context.Context, id string, u entity.PaymentConfigUpdate) (*entity.PaymentConfig, error) {
	query := `
		UPDATE payment_config
		SET max_installments              = COALESCE($2, max_installments),
		    pix_discount_percent          = COALESCE($3, pix_discount_percent),
		    installments_without_interest = COALESCE($4, installments_without_interest),
		    pix_expiration_minutes        = COALESCE($5, pix_expiration_minutes),
		    updated_at                    = NOW()
		WHERE id = $1
		RETURNING ` + paymentConfigColumns + `
	`
	var c entity.PaymentConfig
	err := r.DB.QueryRowContext(ctx, query, id,
		u.MaxInstallments, u.PixDiscountPercent,
		u.InstallmentsWithoutInterest, u.PixExpirationMinutes,
	).Scan(
		&c.ID, &c.MaxInstallments, &c.PixDiscountPercent,
		&c.InstallmentsWithoutInterest, &c.PixExpirationMinutes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment config: %w", err)
	}
	return &c, nil
}
