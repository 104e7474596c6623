package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
)

type CreatePixPaymentInput struct {
	StudentID    string
	PlanID       string
	StudentEmail string
	Amount       float64
}

type PixPaymentResult struct {
	PaymentID     string    `json:"paymentId"`
	QRCode        string    `json:"qrCode"`
	QRCodeBase64  string    `json:"qrCodeBase64"`
	CopyPasteCode string    `json:"copyPasteCode"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Amount        float64   `json:"amount"`
	Discount      float64   `json:"discount"`
	FinalAmount   float64   `json:"finalAmount"`
}

type PixPaymentStatus struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paidAt"`
	FinalAmount float64    `json:"finalAmount"`
}

// PixPaymentUseCase owns the pix_payments record lifecycle:
// pending -> paid | expired | cancelled, terminal states absorbing.
type PixPaymentUseCase struct {
	Repo        PixPaymentRepositoryInterface
	StudentRepo StudentRepositoryInterface
	PlanRepo    PlanRepositoryInterface
	Config      *PaymentConfigService
	PixProvider PixIntentProvider
	Gateway     PaymentGateway
	Email       EmailService
}

func NewPixPaymentUseCase(
	repo PixPaymentRepositoryInterface,
	studentRepo StudentRepositoryInterface,
	planRepo PlanRepositoryInterface,
	config *PaymentConfigService,
	pixProvider PixIntentProvider,
	gateway PaymentGateway,
	email EmailService,
) *PixPaymentUseCase {
	return &PixPaymentUseCase{
		Repo:        repo,
		StudentRepo: studentRepo,
		PlanRepo:    planRepo,
		Config:      config,
		PixProvider: pixProvider,
		Gateway:     gateway,
		Email:       email,
	}
}

// CreatePixPayment snapshots the current config, prices the charge, asks the
// gateway for a PIX intent and persists the pending record. The pending
// e-mail is fire-and-forget: its failure never propagates.
func (uc *PixPaymentUseCase) CreatePixPayment(ctx context.Context, input CreatePixPaymentInput) (*PixPaymentResult, error) {
	cfg, err := uc.Config.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	pricing := ComputePixPricing(input.Amount, cfg.PixDiscountPercent)
	expiresAt := time.Now().Add(time.Duration(cfg.PixExpirationMinutes) * time.Minute)

	intent, err := uc.PixProvider.CreatePixIntent(ctx, stripe.PixIntentInput{
		StudentID:      input.StudentID,
		PlanID:         input.PlanID,
		FinalAmount:    pricing.FinalAmount,
		OriginalAmount: input.Amount,
		Discount:       pricing.Discount,
		Description:    fmt.Sprintf("Assinatura - Plano %s", input.PlanID),
	})
	if err != nil {
		return nil, err
	}

	payment := entity.NewPixPayment(input.StudentID, input.PlanID, input.Amount, pricing.Discount, pricing.FinalAmount, expiresAt)
	payment.QRCode = intent.QRCode
	payment.CopyPasteCode = intent.QRCode // copy-paste code is the QR payload
	payment.QRCodeBase64 = intent.QRCodeBase64
	payment.GatewayChargeID = intent.Intent.ID
	payment.GatewayResponse = stripe.MarshalIntent(intent.Intent)

	if err := uc.Repo.Create(ctx, payment); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to persist pix payment", Err: err}
	}

	log.Printf("[pix] payment created id=%s student=%s plan=%s final=%.2f expires=%s",
		payment.ID, input.StudentID, input.PlanID, pricing.FinalAmount, expiresAt.Format(time.RFC3339))

	go uc.sendPendingEmail(payment, input.StudentID)

	return &PixPaymentResult{
		PaymentID:     payment.ID,
		QRCode:        payment.QRCode,
		QRCodeBase64:  payment.QRCodeBase64,
		CopyPasteCode: payment.CopyPasteCode,
		ExpiresAt:     payment.ExpiresAt,
		Amount:        payment.Amount,
		Discount:      payment.Discount,
		FinalAmount:   payment.FinalAmount,
	}, nil
}

// CheckPixPaymentStatus returns the current status, consulting the gateway
// only while the payment is still pending. The pending -> paid transition is
// a status-guarded write; it races with the webhook handler and whichever
// side observes success first wins, the other becomes a no-op.
func (uc *PixPaymentUseCase) CheckPixPaymentStatus(ctx context.Context, paymentID string) (*PixPaymentStatus, error) {
	payment, err := uc.Repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, NewDomainError(CodePixPaymentNotFound, "pix payment not found")
	}

	if payment.IsTerminal() {
		return &PixPaymentStatus{
			ID:          payment.ID,
			Status:      payment.Status,
			PaidAt:      payment.PaidAt,
			FinalAmount: payment.FinalAmount,
		}, nil
	}

	intent, err := uc.Gateway.GetPaymentIntent(ctx, payment.GatewayChargeID)
	if err != nil {
		return nil, err
	}

	if intent.Status == "succeeded" {
		updated, err := uc.Repo.MarkPaid(ctx, payment.ID, stripe.MarshalIntent(intent))
		if err != nil {
			return nil, err
		}
		if updated {
			log.Printf("[pix] payment confirmed via polling id=%s charge=%s", payment.ID, payment.GatewayChargeID)
		}
		now := time.Now()
		return &PixPaymentStatus{
			ID:          payment.ID,
			Status:      entity.PixStatusPaid,
			PaidAt:      &now,
			FinalAmount: payment.FinalAmount,
		}, nil
	}

	if intent.Status == "canceled" {
		if _, err := uc.Repo.MarkCancelled(ctx, payment.ID); err != nil {
			return nil, err
		}
		return &PixPaymentStatus{
			ID:          payment.ID,
			Status:      entity.PixStatusCancelled,
			FinalAmount: payment.FinalAmount,
		}, nil
	}

	return &PixPaymentStatus{
		ID:          payment.ID,
		Status:      payment.Status,
		PaidAt:      payment.PaidAt,
		FinalAmount: payment.FinalAmount,
	}, nil
}

// ExpirePendingPayments sweeps pending payments whose expiration has passed.
// Gateway cancellation is best-effort and one payment's failure never aborts
// the rest of the sweep. Returns how many payments actually transitioned.
func (uc *PixPaymentUseCase) ExpirePendingPayments(ctx context.Context) (int, error) {
	expired, err := uc.Repo.FindExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, payment := range expired {
		if err := uc.Gateway.CancelPaymentIntent(ctx, payment.GatewayChargeID); err != nil {
			log.Printf("[pix] gateway cancel failed for expired payment id=%s: %v", payment.ID, err)
		}

		updated, err := uc.Repo.MarkExpired(ctx, payment.ID)
		if err != nil {
			log.Printf("[pix] failed to expire payment id=%s: %v", payment.ID, err)
			continue
		}
		if !updated {
			// Raced with a confirmation; the payment is no longer pending.
			continue
		}

		count++
		log.Printf("[pix] payment expired id=%s charge=%s", payment.ID, payment.GatewayChargeID)
		go uc.sendExpiredEmail(payment)
	}

	if count > 0 {
		log.Printf("[pix] expiration sweep done expired=%d checked=%d", count, len(expired))
	}
	return count, nil
}

func (uc *PixPaymentUseCase) sendPendingEmail(payment *entity.PixPayment, studentID string) {
	ctx := context.Background()
	student, err := uc.StudentRepo.FindByID(ctx, studentID)
	if err != nil || student == nil {
		log.Printf("[pix] pending email skipped, student lookup failed id=%s: %v", studentID, err)
		return
	}
	plan, err := uc.PlanRepo.FindByID(ctx, payment.PlanID)
	if err != nil || plan == nil {
		log.Printf("[pix] pending email skipped, plan lookup failed id=%s: %v", payment.PlanID, err)
		return
	}

	if err := uc.Email.SendPixPaymentPendingEmail(PixPendingEmail{
		StudentName:   student.Name,
		StudentEmail:  student.Email,
		PlanName:      plan.Name,
		Amount:        payment.Amount,
		Discount:      payment.Discount,
		FinalAmount:   payment.FinalAmount,
		CopyPasteCode: payment.CopyPasteCode,
		ExpiresAt:     payment.ExpiresAt,
		PaymentID:     payment.ID,
	}); err != nil {
		log.Printf("[pix] pending email failed payment=%s: %v", payment.ID, err)
	}
}

func (uc *PixPaymentUseCase) sendExpiredEmail(payment *entity.PixPayment) {
	ctx := context.Background()
	student, err := uc.StudentRepo.FindByID(ctx, payment.StudentID)
	if err != nil || student == nil {
		return
	}
	plan, err := uc.PlanRepo.FindByID(ctx, payment.PlanID)
	if err != nil || plan == nil {
		return
	}

	if err := uc.Email.SendPixPaymentExpiredEmail(PixExpiredEmail{
		StudentName:  student.Name,
		StudentEmail: student.Email,
		PlanName:     plan.Name,
		PlanID:       plan.ID,
	}); err != nil {
		log.Printf("[pix] expired email failed payment=%s: %v", payment.ID, err)
	}
}
