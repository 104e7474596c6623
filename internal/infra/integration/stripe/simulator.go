package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"time"
)

// PixSimulator stands in for the gateway's PIX intent creation in
// environments where PIX is not enabled on the Stripe account (sandbox
// accounts outside Brazil, CI). It fabricates a payload in the
// br.gov.bcb.pix emv format so the frontend flow stays exercisable.
//
// It is selected once at startup by environment and must never run in
// production; NewPixSimulator enforces that.
type PixSimulator struct{}

func NewPixSimulator(env string) (*PixSimulator, error) {
	if env == "production" {
		return nil, errors.New("pix simulator is not allowed in production")
	}
	log.Printf("[stripe] PIX simulator enabled (env=%s) - intents are local fakes", env)
	return &PixSimulator{}, nil
}

func (s *PixSimulator) CreatePixIntent(_ context.Context, input PixIntentInput) (*PixIntentOutput, error) {
	id := fmt.Sprintf("pi_mock_%d_%06d", time.Now().UnixNano(), rand.Intn(1_000_000))

	code := fmt.Sprintf(
		"00020126580014br.gov.bcb.pix0136%s520400005303986540%.2f5802BR5925PLATAFORMA EAD TESTE6009SAO PAULO62070503***6304",
		id, input.FinalAmount,
	)
	imageURL := "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=" + url.QueryEscape(code)

	intent := &PaymentIntent{
		ID:                 id,
		Status:             "requires_action",
		Amount:             ToCents(input.FinalAmount),
		Currency:           "brl",
		PaymentMethodTypes: []string{"pix"},
		Metadata: map[string]string{
			"studentId":      input.StudentID,
			"planId":         input.PlanID,
			"originalAmount": fmt.Sprintf("%v", input.OriginalAmount),
			"discount":       fmt.Sprintf("%v", input.Discount),
			"finalAmount":    fmt.Sprintf("%v", input.FinalAmount),
			"mock":           "true",
		},
		NextAction: &NextAction{
			Type: "pix_display_qr_code",
			PixDisplayQRCode: &PixDisplayQRCode{
				Data:        code,
				ImageURLPNG: imageURL,
			},
		},
	}

	log.Printf("[stripe] simulated pix intent created id=%s student=%s", id, input.StudentID)
	return &PixIntentOutput{Intent: intent, QRCode: code, QRCodeBase64: imageURL}, nil
}

// MarshalIntent snapshots an intent for the audit column.
func MarshalIntent(pi *PaymentIntent) []byte {
	b, err := json.Marshal(pi)
	if err != nil {
		return []byte("{}")
	}
	return b
}
