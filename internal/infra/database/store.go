package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

// Store runs multi-table units of work inside one database transaction.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx usecase.Tx) error) error {
	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&storeTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// storeTx adapts *sql.Tx to the usecase.Tx contract by delegating to the
// shared query helpers.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) PixPaymentByChargeID(ctx context.Context, chargeID string) (*entity.PixPayment, error) {
	return findPixPaymentByChargeID(ctx, t.tx, chargeID)
}

func (t *storeTx) MarkPixPaymentPaid(ctx context.Context, paymentID string, gatewayResponse []byte) (bool, error) {
	return markPixPaymentPaid(ctx, t.tx, paymentID, gatewayResponse)
}

func (t *storeTx) PlanByID(ctx context.Context, planID string) (*entity.Plan, error) {
	return findPlanByID(ctx, t.tx, planID)
}

func (t *storeTx) ActivePlanByID(ctx context.Context, planID string) (*entity.Plan, error) {
	return findActivePlanByID(ctx, t.tx, planID)
}

func (t *storeTx) StudentByID(ctx context.Context, studentID string) (*entity.Student, error) {
	return findStudentByID(ctx, t.tx, studentID)
}

func (t *storeTx) SubscriptionByGatewayID(ctx context.Context, gatewayID string) (*entity.Subscription, error) {
	return findSubscriptionByGatewayID(ctx, t.tx, gatewayID)
}

func (t *storeTx) SubscriptionByStudentAndStatus(ctx context.Context, studentID string, statuses ...string) (*entity.Subscription, error) {
	return findSubscriptionByStudentAndStatus(ctx, t.tx, studentID, statuses...)
}

func (t *storeTx) CreateSubscription(ctx context.Context, sub *entity.Subscription) error {
	return insertSubscription(ctx, t.tx, sub)
}

func (t *storeTx) ActivateSubscription(ctx context.Context, subscriptionID, planID, gatewayID string, periodStart, periodEnd time.Time) error {
	return activateSubscription(ctx, t.tx, subscriptionID, planID, gatewayID, periodStart, periodEnd)
}

func (t *storeTx) UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string, cancelledAt *time.Time) error {
	return updateSubscriptionStatus(ctx, t.tx, subscriptionID, status, cancelledAt)
}

func (t *storeTx) UpdateSubscriptionByGatewayID(ctx context.Context, gatewayID, status string, periodStart, periodEnd time.Time) (string, error) {
	return updateSubscriptionByGatewayID(ctx, t.tx, gatewayID, status, periodStart, periodEnd)
}

func (t *storeTx) ExtendSubscriptionPeriod(ctx context.Context, subscriptionID string, days int) error {
	return extendSubscriptionPeriod(ctx, t.tx, subscriptionID, days)
}

func (t *storeTx) CreatePayment(ctx context.Context, p *entity.Payment) error {
	return insertPayment(ctx, t.tx, p)
}

func (t *storeTx) UpdateStudentSubscription(ctx context.Context, studentID, status string, expiresAt *time.Time) error {
	return updateStudentSubscription(ctx, t.tx, studentID, status, expiresAt)
}
