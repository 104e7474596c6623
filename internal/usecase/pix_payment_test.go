package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

func newPixUseCase(repo *MockPixPaymentRepository, provider *MockPixProvider, gateway *MockGateway) (*PixPaymentUseCase, *MockStudentRepository, *MockPlanRepository) {
	students := new(MockStudentRepository)
	plans := new(MockPlanRepository)
	configRepo := new(MockPaymentConfigRepository)
	cacheStore := new(MockCacheStore)
	cacheStore.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	cacheStore.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	configRepo.On("Latest", mock.Anything).Return(&entity.PaymentConfig{
		ID:                   "cfg-1",
		MaxInstallments:      12,
		PixDiscountPercent:   5,
		PixExpirationMinutes: 30,
	}, nil)
	email := new(MockEmailService)
	email.On("SendPixPaymentPendingEmail", mock.Anything).Return(nil).Maybe()
	email.On("SendPixPaymentExpiredEmail", mock.Anything).Return(nil).Maybe()
	students.On("FindByID", mock.Anything, mock.Anything).Return(&entity.Student{ID: "stu-1", Name: "Ana", Email: "ana@example.com"}, nil).Maybe()
	plans.On("FindByID", mock.Anything, mock.Anything).Return(&entity.Plan{ID: "plan-1", Name: "Mensal", Price: 100, Currency: "brl"}, nil).Maybe()

	cfg := NewPaymentConfigService(configRepo, cacheStore)
	return NewPixPaymentUseCase(repo, students, plans, cfg, provider, gateway, email), students, plans
}

func pixIntentOutput(id string) *stripe.PixIntentOutput {
	return &stripe.PixIntentOutput{
		Intent:       &stripe.PaymentIntent{ID: id, Status: "requires_action", PaymentMethodTypes: []string{"pix"}},
		QRCode:       "00020126...payload-" + id,
		QRCodeBase64: "https://api.qrserver.com/v1/create-qr-code/?data=" + id,
	}
}

func TestCreatePixPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("prices with snapshot and persists pending", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		provider.On("CreatePixIntent", ctx, mock.MatchedBy(func(in stripe.PixIntentInput) bool {
			return in.FinalAmount == 95.0 && in.Discount == 5.0 && in.OriginalAmount == 100.0
		})).Return(pixIntentOutput("pi_1"), nil)

		var persisted *entity.PixPayment
		repo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*entity.PixPayment)
		}).Return(nil)

		result, err := uc.CreatePixPayment(ctx, CreatePixPaymentInput{
			StudentID: "stu-1", PlanID: "plan-1", StudentEmail: "ana@example.com", Amount: 100,
		})

		assert.NoError(t, err)
		assert.Equal(t, 95.0, result.FinalAmount)
		assert.Equal(t, 5.0, result.Discount)
		assert.NotEmpty(t, result.CopyPasteCode)
		assert.Equal(t, entity.PixStatusPending, persisted.Status)
		assert.Equal(t, "pi_1", persisted.GatewayChargeID)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), persisted.ExpiresAt, 5*time.Second)
	})

	t.Run("distinct payments carry distinct codes", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		provider.On("CreatePixIntent", ctx, mock.Anything).Return(pixIntentOutput("pi_a"), nil).Once()
		provider.On("CreatePixIntent", ctx, mock.Anything).Return(pixIntentOutput("pi_b"), nil).Once()
		repo.On("Create", ctx, mock.Anything).Return(nil)

		first, err := uc.CreatePixPayment(ctx, CreatePixPaymentInput{StudentID: "stu-1", PlanID: "plan-1", Amount: 100})
		assert.NoError(t, err)
		second, err := uc.CreatePixPayment(ctx, CreatePixPaymentInput{StudentID: "stu-1", PlanID: "plan-1", Amount: 100})
		assert.NoError(t, err)

		assert.NotEqual(t, first.PaymentID, second.PaymentID)
		assert.NotEqual(t, first.CopyPasteCode, second.CopyPasteCode)
	})

	t.Run("gateway failure creates nothing", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		provider.On("CreatePixIntent", ctx, mock.Anything).Return(nil, stripe.ErrPaymentIntentCreation)

		_, err := uc.CreatePixPayment(ctx, CreatePixPaymentInput{StudentID: "stu-1", PlanID: "plan-1", Amount: 100})

		assert.Error(t, err)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCheckPixPaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal payment short-circuits the gateway", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		paidAt := time.Now().Add(-time.Hour)
		repo.On("FindByID", ctx, "pay-1").Return(&entity.PixPayment{
			ID: "pay-1", Status: entity.PixStatusPaid, PaidAt: &paidAt, FinalAmount: 95,
		}, nil)

		status, err := uc.CheckPixPaymentStatus(ctx, "pay-1")

		assert.NoError(t, err)
		assert.Equal(t, entity.PixStatusPaid, status.Status)
		gateway.AssertNotCalled(t, "GetPaymentIntent", mock.Anything, mock.Anything)
	})

	t.Run("pending with succeeded intent is marked paid once", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindByID", ctx, "pay-1").Return(&entity.PixPayment{
			ID: "pay-1", Status: entity.PixStatusPending, GatewayChargeID: "pi_1", FinalAmount: 95,
		}, nil)
		gateway.On("GetPaymentIntent", ctx, "pi_1").Return(&stripe.PaymentIntent{ID: "pi_1", Status: "succeeded"}, nil)
		repo.On("MarkPaid", ctx, "pay-1", mock.Anything).Return(true, nil)

		status, err := uc.CheckPixPaymentStatus(ctx, "pay-1")

		assert.NoError(t, err)
		assert.Equal(t, entity.PixStatusPaid, status.Status)
		repo.AssertNumberOfCalls(t, "MarkPaid", 1)
	})

	t.Run("losing the race with the webhook is not an error", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindByID", ctx, "pay-1").Return(&entity.PixPayment{
			ID: "pay-1", Status: entity.PixStatusPending, GatewayChargeID: "pi_1", FinalAmount: 95,
		}, nil)
		gateway.On("GetPaymentIntent", ctx, "pi_1").Return(&stripe.PaymentIntent{ID: "pi_1", Status: "succeeded"}, nil)
		// Webhook got there first; guarded write reports no transition.
		repo.On("MarkPaid", ctx, "pay-1", mock.Anything).Return(false, nil)

		status, err := uc.CheckPixPaymentStatus(ctx, "pay-1")

		assert.NoError(t, err)
		assert.Equal(t, entity.PixStatusPaid, status.Status)
	})

	t.Run("canceled intent marks the payment cancelled", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindByID", ctx, "pay-1").Return(&entity.PixPayment{
			ID: "pay-1", Status: entity.PixStatusPending, GatewayChargeID: "pi_1", FinalAmount: 95,
		}, nil)
		gateway.On("GetPaymentIntent", ctx, "pi_1").Return(&stripe.PaymentIntent{ID: "pi_1", Status: "canceled"}, nil)
		repo.On("MarkCancelled", ctx, "pay-1").Return(true, nil)

		status, err := uc.CheckPixPaymentStatus(ctx, "pay-1")

		assert.NoError(t, err)
		assert.Equal(t, entity.PixStatusCancelled, status.Status)
	})

	t.Run("unknown payment is a domain error", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindByID", ctx, "nope").Return(nil, nil)

		_, err := uc.CheckPixPaymentStatus(ctx, "nope")

		de := AsDomain(err)
		assert.NotNil(t, de)
		assert.Equal(t, CodePixPaymentNotFound, de.Code)
	})
}

func TestExpirePendingPayments(t *testing.T) {
	ctx := context.Background()

	expired := func(id string) *entity.PixPayment {
		return &entity.PixPayment{
			ID: id, StudentID: "stu-1", PlanID: "plan-1",
			Status: entity.PixStatusPending, GatewayChargeID: "pi_" + id,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
	}

	t.Run("sweeps all expired and counts transitions", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindExpired", ctx, mock.Anything).Return([]*entity.PixPayment{expired("a"), expired("b")}, nil)
		gateway.On("CancelPaymentIntent", ctx, mock.Anything).Return(nil)
		repo.On("MarkExpired", ctx, "a").Return(true, nil)
		repo.On("MarkExpired", ctx, "b").Return(true, nil)

		count, err := uc.ExpirePendingPayments(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("one failing payment does not abort the sweep", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindExpired", ctx, mock.Anything).Return([]*entity.PixPayment{expired("a"), expired("b"), expired("c")}, nil)
		gateway.On("CancelPaymentIntent", ctx, "pi_a").Return(errors.New("gateway timeout"))
		gateway.On("CancelPaymentIntent", ctx, "pi_b").Return(nil)
		gateway.On("CancelPaymentIntent", ctx, "pi_c").Return(nil)
		repo.On("MarkExpired", ctx, "a").Return(true, nil)
		repo.On("MarkExpired", ctx, "b").Return(false, errors.New("db error"))
		repo.On("MarkExpired", ctx, "c").Return(true, nil)

		count, err := uc.ExpirePendingPayments(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("payment confirmed mid-sweep is left alone", func(t *testing.T) {
		repo := new(MockPixPaymentRepository)
		provider := new(MockPixProvider)
		gateway := new(MockGateway)
		uc, _, _ := newPixUseCase(repo, provider, gateway)

		repo.On("FindExpired", ctx, mock.Anything).Return([]*entity.PixPayment{expired("a")}, nil)
		gateway.On("CancelPaymentIntent", ctx, "pi_a").Return(nil)
		repo.On("MarkExpired", ctx, "a").Return(false, nil)

		count, err := uc.ExpirePendingPayments(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
