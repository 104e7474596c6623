package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/eadhub/eadhub-payments/internal/infra/http/middleware"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

// webhookBodyLimit keeps a hostile payload from exhausting memory before
// signature verification rejects it.
const webhookBodyLimit = 1 << 20

type WebhookHandler struct {
	Gateway    *stripe.Client
	Reconciler *usecase.WebhookReconciler
}

func NewWebhookHandler(gateway *stripe.Client, reconciler *usecase.WebhookReconciler) *WebhookHandler {
	return &WebhookHandler{Gateway: gateway, Reconciler: reconciler}
}

// Handle verifies the signature, reconciles the event and acks. A 500 makes
// the gateway redeliver; every reconciler handler is idempotent, so
// redelivery is always safe.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "UNREADABLE_BODY"})
		return
	}

	event, err := h.Gateway.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			log.Printf("⚠️ [webhook] invalid signature from %s", r.RemoteAddr)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_SIGNATURE"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_PAYLOAD"})
		return
	}

	if err := h.Reconciler.HandleEvent(r.Context(), event); err != nil {
		middleware.RecordWebhookEvent(event.Type, "error")
		log.Printf("❌ [webhook] reconciliation failed type=%s id=%s: %v", event.Type, event.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "RECONCILIATION_FAILED"})
		return
	}

	middleware.RecordWebhookEvent(event.Type, "ok")
	if event.Type == stripe.EventPaymentIntentSucceeded || event.Type == stripe.EventCheckoutSessionCompleted {
		middleware.RecordSubscriptionActivation()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
