package errors

import (
	"errors"
	"net/http"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrAccountNotFound is returned when an account cannot be resolved.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCardNotFound is returned when a card cannot be resolved.
	ErrCardNotFound = errors.New("card not found")
	// ErrClientNotFound is returned when a client cannot be resolved.
	ErrClientNotFound = errors.New("client not found")
	// ErrInsufficientFunds is returned when the pre-debit balance check fails.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned when an amount is missing or not positive.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrForbidden is returned when the caller does not own the debited instrument.
	ErrForbidden = errors.New("operation not permitted on this instrument")
	// ErrSelfTransfer is returned when source and destination are the same instrument.
	ErrSelfTransfer = errors.New("source and destination must differ")
	// ErrDuplicateCard is returned when the account already holds a card of that type.
	ErrDuplicateCard = errors.New("account already holds a card of this type")
	// ErrLoginTaken is returned when the requested login is already in use.
	ErrLoginTaken = errors.New("login is already in use")
	// ErrMinorForbidden is returned when a minor applies for a loan.
	ErrMinorForbidden = errors.New("minors cannot apply for loans")
	// ErrMissingCreditCard is returned when loan disbursement has no target card.
	ErrMissingCreditCard = errors.New("an active credit card is required to apply for a loan")
	// ErrMissingDebitCard is returned when loan repayment has no debit card to draw from.
	ErrMissingDebitCard = errors.New("an active debit card is required to repay a loan")
	// ErrActiveLoanExists is returned when the account already has an active loan.
	ErrActiveLoanExists = errors.New("account already has an active loan")
	// ErrNoActiveLoan is returned when repayment finds no active loan.
	ErrNoActiveLoan = errors.New("no active loan on this account")
	// ErrNoPendingInstallment is returned when every installment is already paid.
	ErrNoPendingInstallment = errors.New("no pending installment")
	// ErrSchemaMissing is returned when the loan tables have not been provisioned.
	ErrSchemaMissing = errors.New("feature tables are not provisioned")
	// ErrLockContention is returned on deadlock or lock wait timeout; callers may retry.
	ErrLockContention = errors.New("transaction aborted due to lock contention")
	// ErrNumberSpaceExhausted is returned when unique number generation gives up.
	ErrNumberSpaceExhausted = errors.New("could not generate a unique number")
)

// MySQL server error codes the core must recognize.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoSuchTable     = 1146
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// ClassifyMySQL maps driver-level MySQL errors onto the domain taxonomy so
// callers can distinguish "feature not installed" and retryable lock
// contention from generic failures. Unrecognized errors pass through.
func ClassifyMySQL(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case mysqlErrNoSuchTable:
		return ErrSchemaMissing
	case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
		return ErrLockContention
	default:
		return err
	}
}

// IsDuplicateEntry reports whether err is a MySQL unique constraint violation.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "ACCOUNT_NOT_FOUND")
	case errors.Is(err, ErrCardNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "CARD_NOT_FOUND")
	case errors.Is(err, ErrClientNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "CLIENT_NOT_FOUND")
	case errors.Is(err, ErrNoActiveLoan):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NO_ACTIVE_LOAN")
	case errors.Is(err, ErrInsufficientFunds):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INSUFFICIENT_FUNDS")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrMinorForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "MINOR_FORBIDDEN")
	case errors.Is(err, ErrSelfTransfer):
		return NewHTTPError(http.StatusConflict, err.Error(), "SELF_TRANSFER")
	case errors.Is(err, ErrDuplicateCard):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_CARD")
	case errors.Is(err, ErrLoginTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "LOGIN_TAKEN")
	case errors.Is(err, ErrActiveLoanExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "ACTIVE_LOAN_EXISTS")
	case errors.Is(err, ErrMissingCreditCard):
		return NewHTTPError(http.StatusConflict, err.Error(), "MISSING_CREDIT_CARD")
	case errors.Is(err, ErrMissingDebitCard):
		return NewHTTPError(http.StatusConflict, err.Error(), "MISSING_DEBIT_CARD")
	case errors.Is(err, ErrNoPendingInstallment):
		return NewHTTPError(http.StatusConflict, err.Error(), "NO_PENDING_INSTALLMENT")
	case errors.Is(err, ErrSchemaMissing):
		return NewHTTPError(http.StatusServiceUnavailable, err.Error(), "FEATURE_NOT_INSTALLED")
	case errors.Is(err, ErrLockContention):
		return NewHTTPError(http.StatusServiceUnavailable, err.Error(), "TRY_AGAIN")
	case errors.Is(err, ErrNumberSpaceExhausted):
		return NewHTTPError(http.StatusServiceUnavailable, err.Error(), "TRY_AGAIN")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
