package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/service"
)

// ClientHandler handles client profile and child-account endpoints.
type ClientHandler struct {
	accountService service.AccountService
}

// NewClientHandler creates a new client handler.
func NewClientHandler(accountService service.AccountService) *ClientHandler {
	return &ClientHandler{accountService: accountService}
}

// InviteChildRequest creates a child account under the caller.
type InviteChildRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	BirthDate      string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	PassportNumber string `json:"passport_number" validate:"required"`
	Login          string `json:"login" validate:"required,min=3"`
}

// Me godoc
// @Summary Get the calling client's profile with combined balances
// @Tags client
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /clients/me [get]
func (h *ClientHandler) Me(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	profile, err := h.accountService.GetProfile(c.Request().Context(), identity.AccountID, identity.ClientID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, profile)
}

// InviteChild godoc
// @Summary Create a child account with temporary credentials
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InviteChildRequest true "Child data"
// @Success 201 {object} service.InviteChildResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /clients/children [post]
func (h *ClientHandler) InviteChild(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req InviteChildRequest
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

	result, err := h.accountService.InviteChild(c.Request().Context(), identity.AccountID, service.InviteChildInput{
		FullName:       req.FullName,
		BirthDate:      req.BirthDate,
		PassportNumber: req.PassportNumber,
		Login:          req.Login,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, result)
}

// ListChildren godoc
// @Summary List the caller's child accounts
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Account
// @Failure 401 {object} errors.ErrorResponse
// @Router /clients/children [get]
func (h *ClientHandler) ListChildren(c echo.Context) error {
	identity, err := identityFrom(c)
	if err != nil {
		return err
	}

	children, err := h.accountService.ListChildren(c.Request().Context(), identity.AccountID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, children)
}
