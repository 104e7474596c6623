package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

type MockPixPaymentRepository struct {
	mock.Mock
}

func (m *MockPixPaymentRepository) Create(ctx context.Context, p *entity.PixPayment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPixPaymentRepository) FindByID(ctx context.Context, id string) (*entity.PixPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PixPayment), args.Error(1)
}

func (m *MockPixPaymentRepository) MarkPaid(ctx context.Context, id string, gatewayResponse []byte) (bool, error) {
	args := m.Called(ctx, id, gatewayResponse)
	return args.Bool(0), args.Error(1)
}

func (m *MockPixPaymentRepository) FindExpired(ctx context.Context, now time.Time) ([]*entity.PixPayment, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PixPayment), args.Error(1)
}

func (m *MockPixPaymentRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPixPaymentRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) FindByID(ctx context.Context, id string) (*entity.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockPlanRepository) FindActiveByID(ctx context.Context, id string) (*entity.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*entity.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Plan), args.Error(1)
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) FindByID(ctx context.Context, id string) (*entity.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByStudentAndStatus(ctx context.Context, studentID, status string) (*entity.Subscription, error) {
	args := m.Called(ctx, studentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindLatestByStudent(ctx context.Context, studentID string) (*entity.Subscription, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

type MockPaymentConfigRepository struct {
	mock.Mock
}

func (m *MockPaymentConfigRepository) Latest(ctx context.Context) (*entity.PaymentConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentConfig), args.Error(1)
}

func (m *MockPaymentConfigRepository) Update(ctx context.Context, id string, u entity.PaymentConfigUpdate) (*entity.PaymentConfig, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentConfig), args.Error(1)
}

type MockCacheStore struct {
	mock.Mock
}

func (m *MockCacheStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, input stripe.CheckoutSessionInput) (stripe.CheckoutSessionOutput, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(stripe.CheckoutSessionOutput), args.Error(1)
}

func (m *MockGateway) CreateCheckoutWithPaymentOptions(ctx context.Context, input stripe.CheckoutSessionInput) (stripe.CheckoutSessionOutput, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(stripe.CheckoutSessionOutput), args.Error(1)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *MockGateway) CancelPaymentIntent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateSubscription(ctx context.Context, input stripe.SubscriptionInput) (stripe.SubscriptionResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(stripe.SubscriptionResult), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockGateway) ReactivateSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (stripe.SubscriptionResult, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(stripe.SubscriptionResult), args.Error(1)
}

type MockPixProvider struct {
	mock.Mock
}

func (m *MockPixProvider) CreatePixIntent(ctx context.Context, input stripe.PixIntentInput) (*stripe.PixIntentOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PixIntentOutput), args.Error(1)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPixPaymentPendingEmail(data PixPendingEmail) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockEmailService) SendPixPaymentExpiredEmail(data PixExpiredEmail) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockEmailService) SendPixPaymentConfirmedEmail(data SubscriptionConfirmedEmail) error {
	args := m.Called(data)
	return args.Error(0)
}

type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) EnqueueSubscriptionConfirmed(ctx context.Context, data SubscriptionConfirmedEmail) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) PixPaymentByChargeID(ctx context.Context, chargeID string) (*entity.PixPayment, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PixPayment), args.Error(1)
}

func (m *MockTx) MarkPixPaymentPaid(ctx context.Context, paymentID string, gatewayResponse []byte) (bool, error) {
	args := m.Called(ctx, paymentID, gatewayResponse)
	return args.Bool(0), args.Error(1)
}

func (m *MockTx) PlanByID(ctx context.Context, planID string) (*entity.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockTx) ActivePlanByID(ctx context.Context, planID string) (*entity.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockTx) StudentByID(ctx context.Context, studentID string) (*entity.Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockTx) SubscriptionByGatewayID(ctx context.Context, gatewayID string) (*entity.Subscription, error) {
	args := m.Called(ctx, gatewayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockTx) SubscriptionByStudentAndStatus(ctx context.Context, studentID string, statuses ...string) (*entity.Subscription, error) {
	args := m.Called(ctx, studentID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockTx) CreateSubscription(ctx context.Context, sub *entity.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockTx) ActivateSubscription(ctx context.Context, subscriptionID, planID, gatewayID string, periodStart, periodEnd time.Time) error {
	args := m.Called(ctx, subscriptionID, planID, gatewayID, periodStart, periodEnd)
	return args.Error(0)
}

func (m *MockTx) UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string, cancelledAt *time.Time) error {
	args := m.Called(ctx, subscriptionID, status, cancelledAt)
	return args.Error(0)
}

func (m *MockTx) UpdateSubscriptionByGatewayID(ctx context.Context, gatewayID, status string, periodStart, periodEnd time.Time) (string, error) {
	args := m.Called(ctx, gatewayID, status, periodStart, periodEnd)
	return args.String(0), args.Error(1)
}

func (m *MockTx) ExtendSubscriptionPeriod(ctx context.Context, subscriptionID string, days int) error {
	args := m.Called(ctx, subscriptionID, days)
	return args.Error(0)
}

func (m *MockTx) CreatePayment(ctx context.Context, p *entity.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockTx) UpdateStudentSubscription(ctx context.Context, studentID, status string, expiresAt *time.Time) error {
	args := m.Called(ctx, studentID, status, expiresAt)
	return args.Error(0)
}

// fakeStore runs the unit of work against a MockTx without a real database.
type fakeStore struct {
	tx Tx
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return fn(s.tx)
}
