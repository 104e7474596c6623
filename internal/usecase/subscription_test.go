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

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()
	plan := &entity.Plan{ID: "plan-1", Name: "Mensal", Price: 100, Currency: "brl", DurationDays: 30, IsActive: true}

	input := StartSubscriptionInput{
		StudentID: "stu-1", StudentEmail: "ana@example.com", PlanID: "plan-1",
		SuccessURL: "https://app.test/ok", CancelURL: "https://app.test/back",
	}

	t.Run("opens checkout and records a pending subscription", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		plans := new(MockPlanRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, plans, &fakeStore{tx: tx}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(nil, nil)
		plans.On("FindActiveByID", ctx, "plan-1").Return(plan, nil)
		gateway.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(in stripe.CheckoutSessionInput) bool {
			return in.PlanID == "plan-1" && in.StudentEmail == "ana@example.com"
		})).Return(stripe.CheckoutSessionOutput{SessionID: "cs_1", CheckoutURL: "https://gw.test/cs_1"}, nil)
		tx.On("CreateSubscription", ctx, mock.MatchedBy(func(sub *entity.Subscription) bool {
			return sub.Status == entity.SubscriptionStatusPending && sub.GatewaySubscriptionID == "checkout_cs_1"
		})).Return(nil)

		checkout, err := uc.CreateSubscription(ctx, input)

		assert.NoError(t, err)
		assert.Equal(t, "cs_1", checkout.SessionID)
		assert.Equal(t, "https://gw.test/cs_1", checkout.CheckoutURL)
		assert.NotEmpty(t, checkout.SubscriptionID)
	})

	t.Run("active subscription blocks a new checkout", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockGateway)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: new(MockTx)}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).
			Return(&entity.Subscription{ID: "sub-1", Status: entity.SubscriptionStatusActive}, nil)

		_, err := uc.CreateSubscription(ctx, input)

		de := AsDomain(err)
		assert.NotNil(t, de)
		assert.Equal(t, CodeAlreadySubscribed, de.Code)
		gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("inactive plan is rejected before the gateway", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		plans := new(MockPlanRepository)
		gateway := new(MockGateway)
		uc := NewSubscriptionUseCase(subs, plans, &fakeStore{tx: new(MockTx)}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(nil, nil)
		plans.On("FindActiveByID", ctx, "plan-1").Return(nil, nil)

		_, err := uc.CreateSubscription(ctx, input)

		de := AsDomain(err)
		assert.NotNil(t, de)
		assert.Equal(t, CodePlanNotFound, de.Code)
		gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("renew follows the same flow", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		plans := new(MockPlanRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, plans, &fakeStore{tx: tx}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(nil, nil)
		plans.On("FindActiveByID", ctx, "plan-1").Return(plan, nil)
		gateway.On("CreateCheckoutSession", ctx, mock.Anything).
			Return(stripe.CheckoutSessionOutput{SessionID: "cs_2", CheckoutURL: "https://gw.test/cs_2"}, nil)
		tx.On("CreateSubscription", ctx, mock.Anything).Return(nil)

		checkout, err := uc.RenewSubscription(ctx, input)

		assert.NoError(t, err)
		assert.Equal(t, "cs_2", checkout.SessionID)
	})

	t.Run("gateway failure leaves nothing persisted", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		plans := new(MockPlanRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, plans, &fakeStore{tx: tx}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(nil, nil)
		plans.On("FindActiveByID", ctx, "plan-1").Return(plan, nil)
		gateway.On("CreateCheckoutSession", ctx, mock.Anything).
			Return(stripe.CheckoutSessionOutput{}, errors.New("gateway 500"))

		_, err := uc.CreateSubscription(ctx, input)

		assert.Error(t, err)
		tx.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
	})
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()

	activeSub := func(gatewayID string) *entity.Subscription {
		return &entity.Subscription{
			ID: "sub-1", StudentID: "stu-1", PlanID: "plan-1",
			Status:                entity.SubscriptionStatusActive,
			GatewaySubscriptionID: gatewayID,
			CurrentPeriodEnd:      time.Now().Add(20 * 24 * time.Hour),
		}
	}

	t.Run("gateway-managed subscription cancels remotely first", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: tx}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(activeSub("sub_gw1"), nil)
		gateway.On("CancelSubscription", ctx, "sub_gw1").Return(nil)
		tx.On("UpdateSubscriptionStatus", ctx, "sub-1", entity.SubscriptionStatusCancelled, mock.Anything).Return(nil)
		tx.On("UpdateStudentSubscription", ctx, "stu-1", entity.SubscriptionStatusCancelled, mock.Anything).Return(nil)

		view, err := uc.CancelSubscription(ctx, "stu-1")

		assert.NoError(t, err)
		assert.Equal(t, entity.SubscriptionStatusCancelled, view.Status)
		assert.NotNil(t, view.CancelledAt)
	})

	t.Run("gateway refusal leaves local state untouched", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: tx}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(activeSub("sub_gw1"), nil)
		gateway.On("CancelSubscription", ctx, "sub_gw1").Return(errors.New("gateway 500"))

		_, err := uc.CancelSubscription(ctx, "stu-1")

		assert.Error(t, err)
		tx.AssertNotCalled(t, "UpdateSubscriptionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pix-backed subscription skips the gateway", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: tx}, gateway)

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(activeSub("pix_pay-1"), nil)
		tx.On("UpdateSubscriptionStatus", ctx, "sub-1", entity.SubscriptionStatusCancelled, mock.Anything).Return(nil)
		tx.On("UpdateStudentSubscription", ctx, "stu-1", entity.SubscriptionStatusCancelled, mock.Anything).Return(nil)

		_, err := uc.CancelSubscription(ctx, "stu-1")

		assert.NoError(t, err)
		gateway.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	})

	t.Run("no active subscription is a domain error", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: new(MockTx)}, new(MockGateway))

		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusActive).Return(nil, nil)

		_, err := uc.CancelSubscription(ctx, "stu-1")

		de := AsDomain(err)
		assert.NotNil(t, de)
		assert.Equal(t, CodeNoActiveSubscription, de.Code)
	})
}

func TestReactivateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("within the paid period", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		gateway := new(MockGateway)
		tx := new(MockTx)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: tx}, gateway)

		cancelled := &entity.Subscription{
			ID: "sub-1", StudentID: "stu-1", Status: entity.SubscriptionStatusCancelled,
			GatewaySubscriptionID: "sub_gw1",
			CurrentPeriodEnd:      time.Now().Add(5 * 24 * time.Hour),
		}
		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusCancelled).Return(cancelled, nil)
		gateway.On("ReactivateSubscription", ctx, "sub_gw1").Return(nil)
		tx.On("UpdateSubscriptionStatus", ctx, "sub-1", entity.SubscriptionStatusActive, (*time.Time)(nil)).Return(nil)
		tx.On("UpdateStudentSubscription", ctx, "stu-1", entity.SubscriptionStatusActive, mock.Anything).Return(nil)

		view, err := uc.ReactivateSubscription(ctx, "stu-1")

		assert.NoError(t, err)
		assert.Equal(t, entity.SubscriptionStatusActive, view.Status)
		assert.Nil(t, view.CancelledAt)
	})

	t.Run("after the paid period requires a new checkout", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: new(MockTx)}, new(MockGateway))

		expired := &entity.Subscription{
			ID: "sub-1", StudentID: "stu-1", Status: entity.SubscriptionStatusCancelled,
			CurrentPeriodEnd: time.Now().Add(-24 * time.Hour),
		}
		subs.On("FindByStudentAndStatus", ctx, "stu-1", entity.SubscriptionStatusCancelled).Return(expired, nil)

		_, err := uc.ReactivateSubscription(ctx, "stu-1")

		de := AsDomain(err)
		assert.NotNil(t, de)
		assert.Equal(t, CodeNoCancelledSub, de.Code)
	})
}

func TestGetCurrentSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("returns latest with plan name", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: new(MockTx)}, new(MockGateway))

		subs.On("FindLatestByStudent", ctx, "stu-1").Return(&entity.Subscription{
			ID: "sub-1", Status: entity.SubscriptionStatusActive, PlanID: "plan-1",
			Plan: &entity.Plan{ID: "plan-1", Name: "Mensal"},
		}, nil)

		view, err := uc.GetCurrentSubscription(ctx, "stu-1")

		assert.NoError(t, err)
		assert.Equal(t, "Mensal", view.PlanName)
	})

	t.Run("no subscription at all is a domain error", func(t *testing.T) {
		subs := new(MockSubscriptionRepository)
		uc := NewSubscriptionUseCase(subs, new(MockPlanRepository), &fakeStore{tx: new(MockTx)}, new(MockGateway))

		subs.On("FindLatestByStudent", ctx, "stu-1").Return(nil, nil)

		_, err := uc.GetCurrentSubscription(ctx, "stu-1")

		assert.NotNil(t, AsDomain(err))
	})
}
