package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/denysekm/bank-system/internal/auth"
	"github.com/denysekm/bank-system/internal/config"
	"github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/handler"
	"github.com/denysekm/bank-system/internal/model"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	clientHandler *handler.ClientHandler,
	cardHandler *handler.CardHandler,
	transactionHandler *handler.TransactionHandler,
	loanHandler *handler.LoanHandler,
	adminHandler *handler.AdminHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &auth.Claims{}
		},
	}))

	secured.POST("/auth/change-credentials", authHandler.ChangeCredentials)

	// Client routes
	secured.GET("/clients/me", clientHandler.Me)
	secured.POST("/clients/children", clientHandler.InviteChild)
	secured.GET("/clients/children", clientHandler.ListChildren)

	// Card routes
	secured.GET("/cards/me", cardHandler.ListCards)
	secured.POST("/cards", cardHandler.IssueCard)
	secured.POST("/cards/replenish", cardHandler.Replenish)
	secured.POST("/cards/transfer", cardHandler.Transfer)
	secured.POST("/cards/mobile", cardHandler.Mobile)

	// Transaction routes
	secured.GET("/transactions/me", transactionHandler.Recent)
	secured.POST("/transactions/transfer", transactionHandler.Transfer)

	// Loan routes
	secured.POST("/loans/apply", loanHandler.Apply)
	secured.GET("/loans/active", loanHandler.Active)
	secured.GET("/loans/history", loanHandler.History)
	secured.POST("/loans/repay", loanHandler.Repay)
	secured.POST("/loans/repay-all", loanHandler.RepayAll)

	// Admin routes
	admin := secured.Group("/admin", requireAdmin)
	admin.GET("/users", adminHandler.ListUsers)
	admin.DELETE("/users/:clientId", adminHandler.DeleteClient)
}

// requireAdmin rejects callers whose token does not carry the ADMIN role.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		claims, ok := token.Claims.(*auth.Claims)
		if !ok || claims.Identity.Role != string(model.RoleAdmin) {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "admin access required",
				Code:  "FORBIDDEN",
			})
		}
		return next(c)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
