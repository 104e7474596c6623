package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/eadhub/eadhub-payments/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError maps a usecase error to its HTTP status. Technical errors never
// leak their internals to the caller.
func writeError(w http.ResponseWriter, err error) {
	if de := usecase.AsDomain(err); de != nil {
		writeJSON(w, statusFor(de.Code), errorBody{Error: de.Code, Message: de.Message})
		return
	}
	log.Printf("❌ internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL_ERROR"})
}

func statusFor(code string) int {
	switch code {
	case usecase.CodeValidation, usecase.CodeInvalidPaymentMethod, usecase.CodeInvalidInstallments:
		return http.StatusBadRequest
	case usecase.CodeForbidden:
		return http.StatusForbidden
	case usecase.CodePixPaymentNotFound, usecase.CodePlanNotFound, usecase.CodeStudentNotFound,
		usecase.CodeConfigNotFound, usecase.CodeNoActiveSubscription, usecase.CodeNoCancelledSub:
		return http.StatusNotFound
	case usecase.CodeAlreadySubscribed:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
