package database

import (
	"context"
	"database/sql"

	"github.com/eadhub/eadhub-payments/internal/entity"
)

type SubscriptionRepository struct {
	DB *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func (r *SubscriptionRepository) FindByStudentAndStatus(ctx context.Context, studentID, status string) (*entity.Subscription, error) {
	return findSubscriptionByStudentAndStatus(ctx, r.DB, studentID, status)
}

// FindLatestByStudent returns the student's most recent subscription,
// whatever its status, joined with the plan for display.
func (r *SubscriptionRepository) FindLatestByStudent(ctx context.Context, studentID string) (*entity.Subscription, error) {
	query := `
		SELECT
			s.id, s.student_id, s.plan_id, s.status,
			s.current_period_start, s.current_period_end, s.cancelled_at,
			s.gateway_subscription_id, s.created_at, s.updated_at,
			p.id, p.name, p.price, p.currency, p.billing_interval,
			p.duration_days, p.is_active, p.created_at, p.updated_at
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.student_id = $1
		ORDER BY s.created_at DESC
		LIMIT 1
	`
	var sub entity.Subscription
	var plan entity.Plan
	err := r.DB.QueryRowContext(ctx, query, studentID).Scan(
		&sub.ID, &sub.StudentID, &sub.PlanID, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelledAt,
		&sub.GatewaySubscriptionID, &sub.CreatedAt, &sub.UpdatedAt,
		&plan.ID, &plan.Name, &plan.Price, &plan.Currency, &plan.Interval,
		&plan.DurationDays, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.Plan = &plan
	return &sub, nil
}
