package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/lib/pq"
)

// executor is satisfied by both *sql.DB and *sql.Tx, so every query below
// works identically inside and outside a transaction.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// --- pix_payments ---

const pixPaymentColumns = `
	id, student_id, plan_id, amount, discount, final_amount,
	qr_code, qr_code_base64, copy_paste_code, status,
	expires_at, paid_at, gateway_charge_id, gateway_response,
	created_at, updated_at
`

func insertPixPayment(ctx context.Context, ex executor, p *entity.PixPayment) error {
	query := `
		INSERT INTO pix_payments (` + pixPaymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := ex.ExecContext(ctx, query,
		p.ID, p.StudentID, p.PlanID, p.Amount, p.Discount, p.FinalAmount,
		p.QRCode, p.QRCodeBase64, p.CopyPasteCode, p.Status,
		p.ExpiresAt, p.PaidAt, p.GatewayChargeID, p.GatewayResponse,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pix payment: %w", err)
	}
	return nil
}

func scanPixPayment(row *sql.Row) (*entity.PixPayment, error) {
	var p entity.PixPayment
	err := row.Scan(
		&p.ID, &p.StudentID, &p.PlanID, &p.Amount, &p.Discount, &p.FinalAmount,
		&p.QRCode, &p.QRCodeBase64, &p.CopyPasteCode, &p.Status,
		&p.ExpiresAt, &p.PaidAt, &p.GatewayChargeID, &p.GatewayResponse,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan pix payment: %w", err)
	}
	return &p, nil
}

func findPixPaymentByID(ctx context.Context, ex executor, id string) (*entity.PixPayment, error) {
	query := `SELECT ` + pixPaymentColumns + ` FROM pix_payments WHERE id = $1`
	return scanPixPayment(ex.QueryRowContext(ctx, query, id))
}

func findPixPaymentByChargeID(ctx context.Context, ex executor, chargeID string) (*entity.PixPayment, error) {
	query := `SELECT ` + pixPaymentColumns + ` FROM pix_payments WHERE gateway_charge_id = $1`
	return scanPixPayment(ex.QueryRowContext(ctx, query, chargeID))
}

// markPixPaymentPaid is the single pending -> paid transition. The status
// guard makes the racing writers (webhook vs polling) commute: whoever runs
// first flips the row, the other sees 0 rows affected.
func markPixPaymentPaid(ctx context.Context, ex executor, id string, gatewayResponse []byte) (bool, error) {
	query := `
		UPDATE pix_payments
		SET status = 'paid', paid_at = NOW(), gateway_response = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := ex.ExecContext(ctx, query, id, gatewayResponse)
	if err != nil {
		return false, fmt.Errorf("mark pix payment paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func markPixPaymentExpired(ctx context.Context, ex executor, id string) (bool, error) {
	query := `
		UPDATE pix_payments
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := ex.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark pix payment expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func markPixPaymentCancelled(ctx context.Context, ex executor, id string) (bool, error) {
	query := `
		UPDATE pix_payments
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := ex.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark pix payment cancelled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func findExpiredPixPayments(ctx context.Context, ex executor, now time.Time) ([]*entity.PixPayment, error) {
	query := `
		SELECT ` + pixPaymentColumns + `
		FROM pix_payments
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
	`
	rows, err := ex.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("find expired pix payments: %w", err)
	}
	defer rows.Close()

	var out []*entity.PixPayment
	for rows.Next() {
		var p entity.PixPayment
		if err := rows.Scan(
			&p.ID, &p.StudentID, &p.PlanID, &p.Amount, &p.Discount, &p.FinalAmount,
			&p.QRCode, &p.QRCodeBase64, &p.CopyPasteCode, &p.Status,
			&p.ExpiresAt, &p.PaidAt, &p.GatewayChargeID, &p.GatewayResponse,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// --- subscriptions ---

const subscriptionColumns = `
	id, student_id, plan_id, status,
	current_period_start, current_period_end, cancelled_at,
	gateway_subscription_id, created_at, updated_at
`

func insertSubscription(ctx context.Context, ex executor, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := ex.ExecContext(ctx, query,
		sub.ID, sub.StudentID, sub.PlanID, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelledAt,
		sub.GatewaySubscriptionID, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func scanSubscription(row *sql.Row) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := row.Scan(
		&sub.ID, &sub.StudentID, &sub.PlanID, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelledAt,
		&sub.GatewaySubscriptionID, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}

func findSubscriptionByGatewayID(ctx context.Context, ex executor, gatewayID string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE gateway_subscription_id = $1`
	return scanSubscription(ex.QueryRowContext(ctx, query, gatewayID))
}

func findSubscriptionByStudentAndStatus(ctx context.Context, ex executor, studentID string, statuses ...string) (*entity.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE student_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanSubscription(ex.QueryRowContext(ctx, query, studentID, pq.Array(statuses)))
}

func activateSubscription(ctx context.Context, ex executor, subscriptionID, planID, gatewayID string, periodStart, periodEnd time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = 'active', plan_id = $2, gateway_subscription_id = $3,
		    current_period_start = $4, current_period_end = $5,
		    cancelled_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := ex.ExecContext(ctx, query, subscriptionID, planID, gatewayID, periodStart, periodEnd)
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	return nil
}

func updateSubscriptionStatus(ctx context.Context, ex executor, subscriptionID, status string, cancelledAt *time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2, cancelled_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := ex.ExecContext(ctx, query, subscriptionID, status, cancelledAt)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	return nil
}

// updateSubscriptionByGatewayID returns the owning student's id, or "" when
// no local row matches the gateway reference.
func updateSubscriptionByGatewayID(ctx context.Context, ex executor, gatewayID, status string, periodStart, periodEnd time.Time) (string, error) {
	query := `
		UPDATE subscriptions
		SET status = $2, current_period_start = $3, current_period_end = $4, updated_at = NOW()
		WHERE gateway_subscription_id = $1
		RETURNING student_id
	`
	var studentID string
	err := ex.QueryRowContext(ctx, query, gatewayID, status, periodStart, periodEnd).Scan(&studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("update subscription by gateway id: %w", err)
	}
	return studentID, nil
}

func extendSubscriptionPeriod(ctx context.Context, ex executor, subscriptionID string, days int) error {
	query := `
		UPDATE subscriptions
		SET current_period_end = current_period_end + make_interval(days => $2),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := ex.ExecContext(ctx, query, subscriptionID, days)
	if err != nil {
		return fmt.Errorf("extend subscription period: %w", err)
	}
	return nil
}

// --- plans ---

const planColumns = `
	id, name, price, currency, billing_interval, duration_days, is_active,
	created_at, updated_at
`

func scanPlan(row *sql.Row) (*entity.Plan, error) {
	var p entity.Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Currency, &p.Interval, &p.DurationDays,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return &p, nil
}

func findPlanByID(ctx context.Context, ex executor, id string) (*entity.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return scanPlan(ex.QueryRowContext(ctx, query, id))
}

func findActivePlanByID(ctx context.Context, ex executor, id string) (*entity.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1 AND is_active = true`
	return scanPlan(ex.QueryRowContext(ctx, query, id))
}

// --- students ---

func findStudentByID(ctx context.Context, ex executor, id string) (*entity.Student, error) {
	query := `
		SELECT id, name, email, subscription_status, subscription_expires_at
		FROM students
		WHERE id = $1
	`
	var s entity.Student
	err := ex.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Email, &s.SubscriptionStatus, &s.SubscriptionExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &s, nil
}

func updateStudentSubscription(ctx context.Context, ex executor, studentID, status string, expiresAt *time.Time) error {
	query := `
		UPDATE students
		SET subscription_status = $2, subscription_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := ex.ExecContext(ctx, query, studentID, status, expiresAt)
	if err != nil {
		return fmt.Errorf("update student subscription: %w", err)
	}
	return nil
}

// --- payments ledger ---

func insertPayment(ctx context.Context, ex executor, p *entity.Payment) error {
	query := `
		INSERT INTO payments (
			id, subscription_id, amount, currency, status, payment_method,
			gateway_payment_id, pix_payment_id, paid_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`
	_, err := ex.ExecContext(ctx, query,
		p.ID, p.SubscriptionID, p.Amount, p.Currency, p.Status, p.PaymentMethod,
		p.GatewayPaymentID, p.PixPaymentID, p.PaidAt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}
