package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/service"
)

// LoanHandler handles loan applications and repayments.
type LoanHandler struct {
	loanService service.LoanService
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(loanService service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// ApplyLoanRequest is one loan application.
type ApplyLoanRequest struct {
	Amount           string `json:"amount" validate:"required"`
	DurationMonths   int    `json:"duration_months" validate:"required,min=1,max=120"`
	MonthlyIncome    string `json:"monthly_income" validate:"required"`
	OtherObligations string `json:"other_obligations"`
}

// Apply godoc
// @Summary Apply for a loan
// @Description Evaluates eligibility and on approval disburses the principal
// @Description to the applicant's credit card. A rejection is returned as a
// @Description 200 with status REJECTED.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ApplyLoanRequest true "Application data"
// @Success 200 {object} service.ApplyResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/apply [post]
func (h *LoanHandler) Apply(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req ApplyLoanRequest
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
	income, err := parseAmount(req.MonthlyIncome)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid monthly income",
			Code:  "INVALID_AMOUNT",
		})
	}
	obligations, err := parseOptionalAmount(req.OtherObligations)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid obligations",
			Code:  "INVALID_AMOUNT",
		})
	}

	result, err := h.loanService.Apply(c.Request().Context(), identity.AccountID, identity.ClientID, service.ApplyInput{
		Amount:           amount,
		DurationMonths:   req.DurationMonths,
		MonthlyIncome:    income,
		OtherObligations: obligations,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// Active godoc
// @Summary Get the caller's active loan with its schedule
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.LoanOverview
// @Failure 401 {object} errors.ErrorResponse
// @Router /loans/active [get]
func (h *LoanHandler) Active(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	overview, err := h.loanService.ActiveLoan(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, overview)
}

// History godoc
// @Summary List the caller's past loan applications
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.LoanApplication
// @Failure 401 {object} errors.ErrorResponse
// @Router /loans/history [get]
func (h *LoanHandler) History(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	applications, err := h.loanService.History(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, applications)
}

// Repay godoc
// @Summary Pay the next pending installment
// @Description Draws the installment from the debit card first and the
// @Description account balance second.
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.RepayResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/repay [post]
func (h *LoanHandler) Repay(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	result, err := h.loanService.Repay(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// RepayAll godoc
// @Summary Pay off the whole remaining loan balance
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.RepayResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /loans/repay-all [post]
func (h *LoanHandler) RepayAll(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	result, err := h.loanService.RepayAll(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}
