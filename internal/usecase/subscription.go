package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

type SubscriptionView struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	PlanID             string     `json:"planId"`
	PlanName           string     `json:"planName,omitempty"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
}

// SubscriptionUseCase serves subscription queries, checkout starts and the
// cancel/reactivate transitions. Activation itself only ever happens through
// the webhook reconciler; nothing here flips a subscription to active on its
// own.
type SubscriptionUseCase struct {
	SubscriptionRepo SubscriptionRepositoryInterface
	PlanRepo         PlanRepositoryInterface
	Store            Store
	Gateway          PaymentGateway
}

func NewSubscriptionUseCase(
	subscriptionRepo SubscriptionRepositoryInterface,
	planRepo PlanRepositoryInterface,
	store Store,
	gateway PaymentGateway,
) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		SubscriptionRepo: subscriptionRepo,
		PlanRepo:         planRepo,
		Store:            store,
		Gateway:          gateway,
	}
}

func (uc *SubscriptionUseCase) GetCurrentSubscription(ctx context.Context, studentID string) (*SubscriptionView, error) {
	sub, err := uc.SubscriptionRepo.FindLatestByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, NewDomainError(CodeNoActiveSubscription, "student has no subscription")
	}
	return toView(sub), nil
}

func (uc *SubscriptionUseCase) GetActivePlans(ctx context.Context) ([]*entity.Plan, error) {
	return uc.PlanRepo.ListActive(ctx)
}

func (uc *SubscriptionUseCase) GetPlanByID(ctx context.Context, planID string) (*entity.Plan, error) {
	plan, err := uc.PlanRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, NewDomainError(CodePlanNotFound, "plan not found")
	}
	return plan, nil
}

type StartSubscriptionInput struct {
	StudentID    string
	StudentEmail string
	PlanID       string
	SuccessURL   string
	CancelURL    string
}

// SubscriptionCheckout is the hosted-checkout redirect handed back to the
// frontend, plus the local pending subscription awaiting gateway activation.
type SubscriptionCheckout struct {
	SubscriptionID string `json:"subscriptionId"`
	SessionID      string `json:"sessionId"`
	CheckoutURL    string `json:"checkoutUrl"`
}

// CreateSubscription opens a subscription-mode gateway checkout and records a
// pending subscription keyed by the session id. The webhook reconciler flips
// it to active once the gateway confirms the first payment.
func (uc *SubscriptionUseCase) CreateSubscription(ctx context.Context, input StartSubscriptionInput) (*SubscriptionCheckout, error) {
	return uc.startCheckout(ctx, input, false)
}

// RenewSubscription starts the same checkout flow for a student whose
// previous subscription ran out; it differs from CreateSubscription only in
// intent and redirect targets.
func (uc *SubscriptionUseCase) RenewSubscription(ctx context.Context, input StartSubscriptionInput) (*SubscriptionCheckout, error) {
	return uc.startCheckout(ctx, input, true)
}

func (uc *SubscriptionUseCase) startCheckout(ctx context.Context, input StartSubscriptionInput, renewal bool) (*SubscriptionCheckout, error) {
	active, err := uc.SubscriptionRepo.FindByStudentAndStatus(ctx, input.StudentID, entity.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, NewDomainError(CodeAlreadySubscribed, "student already has an active subscription")
	}

	plan, err := uc.PlanRepo.FindActiveByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, NewDomainError(CodePlanNotFound, "plan not found or inactive")
	}

	session, err := uc.Gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionInput{
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		PlanPrice:    plan.Price,
		Currency:     plan.Currency,
		StudentID:    input.StudentID,
		StudentEmail: input.StudentEmail,
		SuccessURL:   input.SuccessURL,
		CancelURL:    input.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	// Provisional period; activation rewrites it from the gateway event.
	periodStart, periodEnd := plan.Period(time.Now())
	pending := entity.NewSubscription(input.StudentID, plan.ID, entity.SubscriptionStatusPending,
		"checkout_"+session.SessionID, periodStart, periodEnd)

	err = uc.Store.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateSubscription(ctx, pending)
	})
	if err != nil {
		return nil, err
	}

	intent := "create"
	if renewal {
		intent = "renew"
	}
	log.Printf("[subscription] %s checkout started student=%s plan=%s session=%s",
		intent, input.StudentID, plan.ID, session.SessionID)

	return &SubscriptionCheckout{
		SubscriptionID: pending.ID,
		SessionID:      session.SessionID,
		CheckoutURL:    session.CheckoutURL,
	}, nil
}

// CancelSubscription cancels the student's active subscription. The gateway
// is told first; only after it agrees does the local state change, so a
// gateway failure leaves the subscription untouched. Access is kept until
// the end of the already-paid period.
func (uc *SubscriptionUseCase) CancelSubscription(ctx context.Context, studentID string) (*SubscriptionView, error) {
	sub, err := uc.SubscriptionRepo.FindByStudentAndStatus(ctx, studentID, entity.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, NewDomainError(CodeNoActiveSubscription, "no active subscription to cancel")
	}

	if gatewayManaged(sub.GatewaySubscriptionID) {
		if err := uc.Gateway.CancelSubscription(ctx, sub.GatewaySubscriptionID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	err = uc.Store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.UpdateSubscriptionStatus(ctx, sub.ID, entity.SubscriptionStatusCancelled, &now); err != nil {
			return err
		}
		periodEnd := sub.CurrentPeriodEnd
		return tx.UpdateStudentSubscription(ctx, studentID, entity.SubscriptionStatusCancelled, &periodEnd)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[subscription] cancelled id=%s student=%s access_until=%s",
		sub.ID, studentID, sub.CurrentPeriodEnd.Format(time.RFC3339))

	sub.Status = entity.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	return toView(sub), nil
}

// ReactivateSubscription undoes a cancellation whose paid period has not yet
// run out.
func (uc *SubscriptionUseCase) ReactivateSubscription(ctx context.Context, studentID string) (*SubscriptionView, error) {
	sub, err := uc.SubscriptionRepo.FindByStudentAndStatus(ctx, studentID, entity.SubscriptionStatusCancelled)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, NewDomainError(CodeNoCancelledSub, "no cancelled subscription to reactivate")
	}
	if time.Now().After(sub.CurrentPeriodEnd) {
		return nil, NewDomainError(CodeNoCancelledSub, "cancelled subscription already expired, start a new checkout")
	}

	if gatewayManaged(sub.GatewaySubscriptionID) {
		if err := uc.Gateway.ReactivateSubscription(ctx, sub.GatewaySubscriptionID); err != nil {
			return nil, err
		}
	}

	err = uc.Store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.UpdateSubscriptionStatus(ctx, sub.ID, entity.SubscriptionStatusActive, nil); err != nil {
			return err
		}
		periodEnd := sub.CurrentPeriodEnd
		return tx.UpdateStudentSubscription(ctx, studentID, entity.SubscriptionStatusActive, &periodEnd)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[subscription] reactivated id=%s student=%s", sub.ID, studentID)

	sub.Status = entity.SubscriptionStatusActive
	sub.CancelledAt = nil
	return toView(sub), nil
}

// gatewayManaged tells apart subscriptions the gateway knows about from the
// ones we synthesized locally for PIX and one-off card checkouts.
func gatewayManaged(gatewaySubscriptionID string) bool {
	if gatewaySubscriptionID == "" {
		return false
	}
	return !strings.HasPrefix(gatewaySubscriptionID, "pix_") &&
		!strings.HasPrefix(gatewaySubscriptionID, "checkout_")
}

func toView(sub *entity.Subscription) *SubscriptionView {
	v := &SubscriptionView{
		ID:                 sub.ID,
		Status:             sub.Status,
		PlanID:             sub.PlanID,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelledAt:        sub.CancelledAt,
	}
	if sub.Plan != nil {
		v.PlanName = sub.Plan.Name
	}
	return v
}
