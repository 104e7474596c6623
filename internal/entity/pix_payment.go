package entity

import (
	"time"

	"github.com/google/uuid"
)

// PIX payment lifecycle. Terminal states are absorbing: the only writes that
// touch status are guarded by `WHERE status = 'pending'` at the repository.
const (
	PixStatusPending   = "pending"
	PixStatusPaid      = "paid"
	PixStatusExpired   = "expired"
	PixStatusCancelled = "cancelled"
)

type PixPayment struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	PlanID          string     `json:"plan_id"`
	Amount          float64    `json:"amount"`
	Discount        float64    `json:"discount"`
	FinalAmount     float64    `json:"final_amount"`
	QRCode          string     `json:"qr_code"`
	QRCodeBase64    string     `json:"qr_code_base64"`
	CopyPasteCode   string     `json:"copy_paste_code"`
	Status          string     `json:"status"`
	ExpiresAt       time.Time  `json:"expires_at"`
	PaidAt          *time.Time `json:"paid_at"`
	GatewayChargeID string     `json:"gateway_charge_id"`
	GatewayResponse []byte     `json:"-"` // raw gateway snapshot, audit only
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewPixPayment snapshots the pricing at creation time; later config changes
// must not affect an already-priced payment.
func NewPixPayment(studentID, planID string, amount, discount, finalAmount float64, expiresAt time.Time) *PixPayment {
	now := time.Now()
	return &PixPayment{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		PlanID:      planID,
		Amount:      amount,
		Discount:    discount,
		FinalAmount: finalAmount,
		Status:      PixStatusPending,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *PixPayment) IsTerminal() bool {
	return p.Status != PixStatusPending
}
