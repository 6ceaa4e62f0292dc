package main

import (
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/denysekm/bank-system/internal/auth"
	"github.com/denysekm/bank-system/internal/cache"
	"github.com/denysekm/bank-system/internal/config"
	"github.com/denysekm/bank-system/internal/db"
	"github.com/denysekm/bank-system/internal/handler"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
	"github.com/denysekm/bank-system/internal/router"
	"github.com/denysekm/bank-system/internal/service"
)

// @title Bank System API
// @version 1.0
// @description Retail banking API with accounts, cards, transfers, loans and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.Installment{},
			&model.Loan{},
			&model.LoanApplication{},
			&model.Transaction{},
			&model.Card{},
			&model.Account{},
			&model.Client{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.Client{},
		&model.Account{},
		&model.Card{},
		&model.Transaction{},
		&model.LoanApplication{},
		&model.Loan{},
		&model.Installment{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	repos := repository.NewRepos(gormDB)
	uow := repository.NewUnitOfWork(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(repos, uow, jwtService, tokenStore)
	accountService := service.NewAccountService(repos, uow, cacheClient)
	cardService := service.NewCardService(repos, uow, cacheClient)
	ledgerService := service.NewLedgerService(uow, cacheClient)
	transactionService := service.NewTransactionService(repos)
	loanService := service.NewLoanService(repos, uow, cacheClient)
	adminService := service.NewAdminService(repos, uow)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	clientHandler := handler.NewClientHandler(accountService)
	cardHandler := handler.NewCardHandler(cardService, ledgerService)
	transactionHandler := handler.NewTransactionHandler(transactionService, ledgerService)
	loanHandler := handler.NewLoanHandler(loanService)
	adminHandler := handler.NewAdminHandler(adminService)

	// Register routes
	router.Register(
		e,
		cfg,
		authHandler,
		clientHandler,
		cardHandler,
		transactionHandler,
		loanHandler,
		adminHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
