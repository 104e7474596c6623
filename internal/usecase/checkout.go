package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

type CheckoutInput struct {
	StudentID     string
	StudentEmail  string
	PlanID        string
	PaymentMethod string
	Installments  int
	SuccessURL    string
	CancelURL     string
}

// CheckoutOutput is one of two shapes: a hosted checkout redirect for card
// payments or an inline PIX charge. Exactly one of the two is set.
type CheckoutOutput struct {
	PaymentMethod string            `json:"paymentMethod"`
	Checkout      *CardCheckout     `json:"checkout,omitempty"`
	Pix           *PixPaymentResult `json:"pix,omitempty"`
}

type CardCheckout struct {
	SessionID        string  `json:"sessionId"`
	CheckoutURL      string  `json:"checkoutUrl"`
	Installments     int     `json:"installments"`
	InstallmentValue float64 `json:"installmentValue"`
	TotalAmount      float64 `json:"totalAmount"`
}

// CheckoutUseCase routes a subscription purchase to card checkout or PIX,
// validating everything it can before touching the gateway.
type CheckoutUseCase struct {
	StudentRepo      StudentRepositoryInterface
	PlanRepo         PlanRepositoryInterface
	SubscriptionRepo SubscriptionRepositoryInterface
	Config           *PaymentConfigService
	Pix              *PixPaymentUseCase
	Gateway          PaymentGateway
}

func NewCheckoutUseCase(
	studentRepo StudentRepositoryInterface,
	planRepo PlanRepositoryInterface,
	subscriptionRepo SubscriptionRepositoryInterface,
	config *PaymentConfigService,
	pix *PixPaymentUseCase,
	gateway PaymentGateway,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		StudentRepo:      studentRepo,
		PlanRepo:         planRepo,
		SubscriptionRepo: subscriptionRepo,
		Config:           config,
		Pix:              pix,
		Gateway:          gateway,
	}
}

func (uc *CheckoutUseCase) Execute(ctx context.Context, input CheckoutInput) (*CheckoutOutput, error) {
	if input.PaymentMethod != entity.PaymentMethodCard && input.PaymentMethod != entity.PaymentMethodPix {
		return nil, NewDomainError(CodeInvalidPaymentMethod,
			fmt.Sprintf("payment method must be %q or %q", entity.PaymentMethodCard, entity.PaymentMethodPix))
	}

	cfg, err := uc.Config.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	installments := input.Installments
	if installments == 0 {
		installments = 1
	}
	if input.PaymentMethod == entity.PaymentMethodCard {
		if installments < 1 || installments > cfg.MaxInstallments {
			return nil, NewDomainError(CodeInvalidInstallments,
				fmt.Sprintf("installments must be between 1 and %d", cfg.MaxInstallments))
		}
	}

	student, err := uc.StudentRepo.FindByID(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, NewDomainError(CodeStudentNotFound, "student not found")
	}

	plan, err := uc.PlanRepo.FindActiveByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, NewDomainError(CodePlanNotFound, "plan not found or inactive")
	}

	active, err := uc.SubscriptionRepo.FindByStudentAndStatus(ctx, input.StudentID, entity.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, NewDomainError(CodeAlreadySubscribed, "student already has an active subscription")
	}

	email := input.StudentEmail
	if email == "" {
		email = student.Email
	}

	if input.PaymentMethod == entity.PaymentMethodPix {
		pix, err := uc.Pix.CreatePixPayment(ctx, CreatePixPaymentInput{
			StudentID:    input.StudentID,
			PlanID:       plan.ID,
			StudentEmail: email,
			Amount:       plan.Price,
		})
		if err != nil {
			return nil, err
		}
		return &CheckoutOutput{PaymentMethod: entity.PaymentMethodPix, Pix: pix}, nil
	}

	session, err := uc.Gateway.CreateCheckoutWithPaymentOptions(ctx, stripe.CheckoutSessionInput{
		PlanID:        plan.ID,
		PlanName:      plan.Name,
		PlanPrice:     plan.Price,
		Currency:      plan.Currency,
		StudentID:     input.StudentID,
		StudentEmail:  email,
		SuccessURL:    input.SuccessURL,
		CancelURL:     input.CancelURL,
		PaymentMethod: entity.PaymentMethodCard,
		Installments:  installments,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[checkout] card session created student=%s plan=%s installments=%d session=%s",
		input.StudentID, plan.ID, installments, session.SessionID)

	return &CheckoutOutput{
		PaymentMethod: entity.PaymentMethodCard,
		Checkout: &CardCheckout{
			SessionID:        session.SessionID,
			CheckoutURL:      session.CheckoutURL,
			Installments:     installments,
			InstallmentValue: ComputeInstallmentValue(plan.Price, installments),
			TotalAmount:      plan.Price,
		},
	}, nil
}
