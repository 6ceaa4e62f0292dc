package service

import (
	"context"
	"fmt"

	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

const recentTransactionLimit = 20

// TransactionService exposes read access to the ledger log.
type TransactionService interface {
	RecentByAccount(ctx context.Context, accountID uint) ([]model.Transaction, error)
}

type transactionService struct {
	repos repository.Repos
}

// NewTransactionService creates a new transaction service.
func NewTransactionService(repos repository.Repos) TransactionService {
	return &transactionService{repos: repos}
}

// RecentByAccount returns the account's latest ledger entries, newest first.
func (s *transactionService) RecentByAccount(ctx context.Context, accountID uint) ([]model.Transaction, error) {
	entries, err := s.repos.Transactions.ListRecentByAccount(ctx, accountID, recentTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return entries, nil
}
