package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
)

type PixPaymentRepository struct {
	DB *sql.DB
}

func NewPixPaymentRepository(db *sql.DB) *PixPaymentRepository {
	return &PixPaymentRepository{DB: db}
}

func (r *PixPaymentRepository) Create(ctx context.Context, p *entity.PixPayment) error {
	return insertPixPayment(ctx, r.DB, p)
}

func (r *PixPaymentRepository) FindByID(ctx context.Context, id string) (*entity.PixPayment, error) {
	return findPixPaymentByID(ctx, r.DB, id)
}

func (r *PixPaymentRepository) MarkPaid(ctx context.Context, id string, gatewayResponse []byte) (bool, error) {
	return markPixPaymentPaid(ctx, r.DB, id, gatewayResponse)
}

func (r *PixPaymentRepository) FindExpired(ctx context.Context, now time.Time) ([]*entity.PixPayment, error) {
	return findExpiredPixPayments(ctx, r.DB, now)
}

func (r *PixPaymentRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	return markPixPaymentExpired(ctx, r.DB, id)
}

func (r *PixPaymentRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	return markPixPaymentCancelled(ctx, r.DB, id)
}
