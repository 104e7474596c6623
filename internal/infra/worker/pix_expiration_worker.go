package worker

import (
	"context"
	"log"
	"time"

	"github.com/eadhub/eadhub-payments/internal/infra/http/middleware"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

// PixExpirationWorker periodically sweeps pending PIX payments past their
// expiration. The sweep itself is race-safe, so running more than one
// instance is wasteful but harmless.
type PixExpirationWorker struct {
	pix          *usecase.PixPaymentUseCase
	tickInterval time.Duration
}

func NewPixExpirationWorker(pix *usecase.PixPaymentUseCase) *PixExpirationWorker {
	return &PixExpirationWorker{
		pix:          pix,
		tickInterval: 1 * time.Minute,
	}
}

func (w *PixExpirationWorker) Start(ctx context.Context) {
	log.Println("🕒 pix expiration worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ pix expiration worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *PixExpirationWorker) sweep(ctx context.Context) {
	count, err := w.pix.ExpirePendingPayments(ctx)
	if err != nil {
		log.Printf("❌ pix expiration sweep failed: %v", err)
		return
	}
	for i := 0; i < count; i++ {
		middleware.RecordPixPayment("expired")
	}
}
