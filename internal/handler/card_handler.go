package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/service"
)

// CardHandler handles card issuance, listing and the card-based ledger
// operations (top-up, card-to-card transfer, mobile send).
type CardHandler struct {
	cardService   service.CardService
	ledgerService service.LedgerService
}

// NewCardHandler creates a new card handler.
func NewCardHandler(cardService service.CardService, ledgerService service.LedgerService) *CardHandler {
	return &CardHandler{cardService: cardService, ledgerService: ledgerService}
}

// IssueCardRequest requests a new card.
type IssueCardRequest struct {
	Type  string `json:"type" validate:"required,oneof=debit credit"`
	Brand string `json:"brand" validate:"required,oneof=VISA MASTERCARD"`
}

// ReplenishRequest tops up a card.
type ReplenishRequest struct {
	Card          string `json:"card" validate:"required,len=16,numeric"`
	Amount        string `json:"amount" validate:"required"`
	PaymentMethod string `json:"payment_method"`
}

// CardTransferRequest moves money between cards.
type CardTransferRequest struct {
	FromCard    string `json:"from_card" validate:"required,len=16,numeric"`
	ToCard      string `json:"to_card" validate:"required,len=16,numeric"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

// MobileTransferRequest sends card money to a phone number.
type MobileTransferRequest struct {
	FromCard string `json:"from_card" validate:"required,len=16,numeric"`
	Phone    string `json:"phone" validate:"required,min=9,max=16"`
	Amount   string `json:"amount" validate:"required"`
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// parseOptionalAmount treats an empty string as zero.
func parseOptionalAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return parseAmount(raw)
}

// ListCards godoc
// @Summary List the caller's cards
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Card
// @Failure 401 {object} errors.ErrorResponse
// @Router /cards/me [get]
func (h *CardHandler) ListCards(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	cards, err := h.cardService.ListCards(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, cards)
}

// IssueCard godoc
// @Summary Issue a new debit or credit card
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body IssueCardRequest true "Card type and brand"
// @Success 201 {object} model.Card
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /cards [post]
func (h *CardHandler) IssueCard(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req IssueCardRequest
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

	card, err := h.cardService.IssueCard(c.Request().Context(), identity.AccountID, service.IssueCardInput{
		Type:  model.CardType(req.Type),
		Brand: model.CardBrand(req.Brand),
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, card)
}

// Replenish godoc
// @Summary Top up a card from an external payment method
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReplenishRequest true "Top-up data"
// @Success 200 {object} service.LedgerResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cards/replenish [post]
func (h *CardHandler) Replenish(c echo.Context) error {
	if _, err := identityFrom(c); err != nil {
		return err
	}

	var req ReplenishRequest
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

	result, err := h.ledgerService.Replenish(c.Request().Context(), service.ReplenishInput{
		CardNumber: req.Card,
		Amount:     amount,
		Method:     req.PaymentMethod,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// Transfer godoc
// @Summary Transfer money between two cards
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CardTransferRequest true "Transfer data"
// @Success 200 {object} service.LedgerResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /cards/transfer [post]
func (h *CardHandler) Transfer(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req CardTransferRequest
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

	result, err := h.ledgerService.CardTransfer(c.Request().Context(), identity.AccountID, service.CardTransferInput{
		FromCard: req.FromCard,
		ToCard:   req.ToCard,
		Amount:   amount,
		Note:     req.Description,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// Mobile godoc
// @Summary Send card money to a phone number
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MobileTransferRequest true "Mobile transfer data"
// @Success 200 {object} service.LedgerResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cards/mobile [post]
func (h *CardHandler) Mobile(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req MobileTransferRequest
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

	result, err := h.ledgerService.MobileTransfer(c.Request().Context(), identity.AccountID, service.MobileTransferInput{
		FromCard: req.FromCard,
		Phone:    req.Phone,
		Amount:   amount,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}
