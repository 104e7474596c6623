package usecase

import (
	"context"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

// PaymentGateway is the narrow contract against the external payment
// provider. Failures come back as stable stripe.Err* codes; no retries
// happen behind this interface.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, input stripe.CheckoutSessionInput) (stripe.CheckoutSessionOutput, error)
	CreateCheckoutWithPaymentOptions(ctx context.Context, input stripe.CheckoutSessionInput) (stripe.CheckoutSessionOutput, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) error
	CreateSubscription(ctx context.Context, input stripe.SubscriptionInput) (stripe.SubscriptionResult, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	ReactivateSubscription(ctx context.Context, subscriptionID string) error
	GetSubscription(ctx context.Context, subscriptionID string) (stripe.SubscriptionResult, error)
}

// PixIntentProvider is the startup-selected strategy for PIX intent
// creation: the real gateway in production, a local simulator elsewhere.
type PixIntentProvider interface {
	CreatePixIntent(ctx context.Context, input stripe.PixIntentInput) (*stripe.PixIntentOutput, error)
}

// CacheStore is the shared cache layer (TTL-capable, keyed by string).
type CacheStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// --- Notifications: best-effort side channel, never part of a transaction ---

type PixPendingEmail struct {
	StudentName   string
	StudentEmail  string
	PlanName      string
	Amount        float64
	Discount      float64
	FinalAmount   float64
	CopyPasteCode string
	ExpiresAt     time.Time
	PaymentID     string
}

type PixExpiredEmail struct {
	StudentName  string
	StudentEmail string
	PlanName     string
	PlanID       string
}

type SubscriptionConfirmedEmail struct {
	StudentName  string
	StudentEmail string
	PlanName     string
	Amount       float64
	ExpiresAt    time.Time
}

type EmailService interface {
	SendPixPaymentPendingEmail(data PixPendingEmail) error
	SendPixPaymentExpiredEmail(data PixExpiredEmail) error
	SendPixPaymentConfirmedEmail(data SubscriptionConfirmedEmail) error
}

// QueueProducerInterface enqueues confirmation e-mails for a worker to
// deliver out of band.
type QueueProducerInterface interface {
	EnqueueSubscriptionConfirmed(ctx context.Context, data SubscriptionConfirmedEmail) error
}

// --- Persistence ---

type PaymentConfigRepositoryInterface interface {
	Latest(ctx context.Context) (*entity.PaymentConfig, error)
	Update(ctx context.Context, id string, u entity.PaymentConfigUpdate) (*entity.PaymentConfig, error)
}

type PixPaymentRepositoryInterface interface {
	Create(ctx context.Context, p *entity.PixPayment) error
	FindByID(ctx context.Context, id string) (*entity.PixPayment, error)
	// MarkPaid is a conditional write guarded by status = 'pending'; it
	// reports whether this call performed the transition.
	MarkPaid(ctx context.Context, id string, gatewayResponse []byte) (bool, error)
	FindExpired(ctx context.Context, now time.Time) ([]*entity.PixPayment, error)
	// MarkExpired transitions pending -> expired; same guard semantics.
	MarkExpired(ctx context.Context, id string) (bool, error)
	// MarkCancelled transitions pending -> cancelled; same guard semantics.
	MarkCancelled(ctx context.Context, id string) (bool, error)
}

type PlanRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entity.Plan, error)
	FindActiveByID(ctx context.Context, id string) (*entity.Plan, error)
	ListActive(ctx context.Context) ([]*entity.Plan, error)
}

type StudentRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entity.Student, error)
}

type SubscriptionRepositoryInterface interface {
	FindByStudentAndStatus(ctx context.Context, studentID, status string) (*entity.Subscription, error)
	FindLatestByStudent(ctx context.Context, studentID string) (*entity.Subscription, error)
}

// Store gives usecases a transactional view over the database. Every
// multi-row mutation spanning pix_payments + subscriptions + students runs
// inside one WithinTx call; an error from fn rolls the whole unit back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	PixPaymentByChargeID(ctx context.Context, chargeID string) (*entity.PixPayment, error)
	MarkPixPaymentPaid(ctx context.Context, paymentID string, gatewayResponse []byte) (bool, error)

	PlanByID(ctx context.Context, planID string) (*entity.Plan, error)
	ActivePlanByID(ctx context.Context, planID string) (*entity.Plan, error)
	StudentByID(ctx context.Context, studentID string) (*entity.Student, error)

	SubscriptionByGatewayID(ctx context.Context, gatewayID string) (*entity.Subscription, error)
	SubscriptionByStudentAndStatus(ctx context.Context, studentID string, statuses ...string) (*entity.Subscription, error)
	CreateSubscription(ctx context.Context, sub *entity.Subscription) error
	ActivateSubscription(ctx context.Context, subscriptionID, planID, gatewayID string, periodStart, periodEnd time.Time) error
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string, cancelledAt *time.Time) error
	UpdateSubscriptionByGatewayID(ctx context.Context, gatewayID, status string, periodStart, periodEnd time.Time) (studentID string, err error)
	ExtendSubscriptionPeriod(ctx context.Context, subscriptionID string, days int) error

	CreatePayment(ctx context.Context, p *entity.Payment) error
	UpdateStudentSubscription(ctx context.Context, studentID, status string, expiresAt *time.Time) error
}
