package main

import (
	"context"
	"log"

	"github.com/denysekm/bank-system/internal/auth"
	"github.com/denysekm/bank-system/internal/cache"
	"github.com/denysekm/bank-system/internal/config"
	"github.com/denysekm/bank-system/internal/db"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
	"github.com/denysekm/bank-system/internal/service"
)

// Seeds the administrator account. Safe to run repeatedly.
func main() {
	cfg := config.Load()
	if cfg.AdminPass == "" {
		log.Fatal("ADMIN_PASSWORD must be set")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.Client{}, &model.Account{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	repos := repository.NewRepos(gormDB)
	uow := repository.NewUnitOfWork(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	authService := service.NewAuthService(repos, uow, jwtService, tokenStore)

	created, err := authService.EnsureAdmin(context.Background(), cfg.AdminLogin, cfg.AdminPass)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		log.Printf("admin account %q created", cfg.AdminLogin)
	} else {
		log.Printf("admin account %q already exists", cfg.AdminLogin)
	}
}
