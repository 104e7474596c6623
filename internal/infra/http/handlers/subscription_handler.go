package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eadhub/eadhub-payments/internal/infra/http/middleware"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

type SubscriptionHandler struct {
	Subscriptions *usecase.SubscriptionUseCase
}

func NewSubscriptionHandler(subscriptions *usecase.SubscriptionUseCase) *SubscriptionHandler {
	return &SubscriptionHandler{Subscriptions: subscriptions}
}

type startSubscriptionRequest struct {
	PlanID     string `json:"planId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (h *SubscriptionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.startCheckout(w, r, h.Subscriptions.CreateSubscription)
}

func (h *SubscriptionHandler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	h.startCheckout(w, r, h.Subscriptions.RenewSubscription)
}

func (h *SubscriptionHandler) startCheckout(w http.ResponseWriter, r *http.Request,
	start func(context.Context, usecase.StartSubscriptionInput) (*usecase.SubscriptionCheckout, error)) {
	var req startSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_JSON", Message: err.Error()})
		return
	}
	id := middleware.IdentityFrom(r.Context())
	checkout, err := start(r.Context(), usecase.StartSubscriptionInput{
		StudentID:    id.StudentID,
		StudentEmail: id.Email,
		PlanID:       req.PlanID,
		SuccessURL:   req.SuccessURL,
		CancelURL:    req.CancelURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkout)
}

func (h *SubscriptionHandler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	sub, err := h.Subscriptions.GetCurrentSubscription(r.Context(), id.StudentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	sub, err := h.Subscriptions.CancelSubscription(r.Context(), id.StudentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	sub, err := h.Subscriptions.ReactivateSubscription(r.Context(), id.StudentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Subscriptions.GetActivePlans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *SubscriptionHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Subscriptions.GetPlanByID(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
