package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/service"
)

// TransactionHandler handles ledger history and account-to-account transfers.
type TransactionHandler struct {
	transactionService service.TransactionService
	ledgerService      service.LedgerService
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(transactionService service.TransactionService, ledgerService service.LedgerService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, ledgerService: ledgerService}
}

// AccountTransferRequest moves money to another account by number.
type AccountTransferRequest struct {
	ToAccountNumber string `json:"to_account_number" validate:"required,len=10,numeric"`
	Amount          string `json:"amount" validate:"required"`
	Note            string `json:"note"`
}

// Recent godoc
// @Summary List the caller's latest transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Transaction
// @Failure 401 {object} errors.ErrorResponse
// @Router /transactions/me [get]
func (h *TransactionHandler) Recent(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	entries, err := h.transactionService.RecentByAccount(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, entries)
}

// Transfer godoc
// @Summary Transfer account money to another account by number
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AccountTransferRequest true "Transfer data"
// @Success 200 {object} service.LedgerResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /transactions/transfer [post]
func (h *TransactionHandler) Transfer(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req AccountTransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid amount",
			Code:  "INVALID_AMOUNT",
		})
	}

	result, err := h.ledgerService.AccountTransfer(c.Request().Context(), identity.AccountID, service.AccountTransferInput{
		ToAccountNumber: req.ToAccountNumber,
		Amount:          amount,
		Note:            req.Note,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}
