package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/infra/http/middleware"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

type PaymentHandler struct {
	Checkout *usecase.CheckoutUseCase
	Pix      *usecase.PixPaymentUseCase
}

func NewPaymentHandler(checkout *usecase.CheckoutUseCase, pix *usecase.PixPaymentUseCase) *PaymentHandler {
	return &PaymentHandler{Checkout: checkout, Pix: pix}
}

type checkoutRequest struct {
	PlanID        string `json:"planId"`
	PaymentMethod string `json:"paymentMethod"`
	Installments  int    `json:"installments"`
	SuccessURL    string `json:"successUrl"`
	CancelURL     string `json:"cancelUrl"`
}

// HandleCheckout starts a purchase for the authenticated student, either as
// a hosted card checkout or an inline PIX charge.
func (h *PaymentHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_JSON", Message: err.Error()})
		return
	}

	id := middleware.IdentityFrom(r.Context())

	output, err := h.Checkout.Execute(r.Context(), usecase.CheckoutInput{
		StudentID:     id.StudentID,
		StudentEmail:  id.Email,
		PlanID:        req.PlanID,
		PaymentMethod: req.PaymentMethod,
		Installments:  req.Installments,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if output.PaymentMethod == entity.PaymentMethodPix {
		middleware.RecordPixPayment("created")
	}
	writeJSON(w, http.StatusCreated, output)
}

// HandlePixStatus polls a PIX payment's status. Students can only see their
// own payments.
func (h *PaymentHandler) HandlePixStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	id := middleware.IdentityFrom(r.Context())

	payment, err := h.Pix.Repo.FindByID(r.Context(), paymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if payment == nil {
		writeError(w, usecase.NewDomainError(usecase.CodePixPaymentNotFound, "pix payment not found"))
		return
	}
	if payment.StudentID != id.StudentID && !id.IsAdmin() {
		writeError(w, usecase.NewDomainError(usecase.CodeForbidden, "payment belongs to another student"))
		return
	}

	wasPending := !payment.IsTerminal()

	status, err := h.Pix.CheckPixPaymentStatus(r.Context(), paymentID)
	if err != nil {
		writeError(w, err)
		return
	}

	if wasPending && status.Status == entity.PixStatusPaid {
		middleware.RecordPixPayment("confirmed")
	}
	writeJSON(w, http.StatusOK, status)
}
