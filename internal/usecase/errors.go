package usecase

import "errors"

// Stable error codes surfaced to the HTTP layer.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodePixPaymentNotFound   = "PIX_PAYMENT_NOT_FOUND"
	CodePlanNotFound         = "PLAN_NOT_FOUND_OR_INACTIVE"
	CodeStudentNotFound      = "STUDENT_NOT_FOUND"
	CodeConfigNotFound       = "CONFIG_NOT_FOUND"
	CodeNoActiveSubscription = "NO_ACTIVE_SUBSCRIPTION"
	CodeNoCancelledSub       = "NO_CANCELLED_SUBSCRIPTION"
	CodeAlreadySubscribed    = "STUDENT_ALREADY_HAS_ACTIVE_SUBSCRIPTION"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	CodeInvalidInstallments  = "INVALID_INSTALLMENTS"
	CodePixCreationFailed    = "PIX_PAYMENT_CREATION_FAILED"
	CodeForbidden            = "FORBIDDEN"
)

// DomainError is a business-rule failure the caller can act on. Handlers
// branch on Code, never on Message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Code + ": " + e.Message
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// TechnicalError is an infrastructure failure (database, queue); the request
// failed but no business rule was violated.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Code + ": " + e.Message
}

func (e *TechnicalError) Unwrap() error { return e.Err }

// AsDomain unwraps err into a DomainError, or nil.
func AsDomain(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}
