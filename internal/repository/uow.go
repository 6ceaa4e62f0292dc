package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository bound to one transaction. Ledger and loan
// operations receive a Repos whose members all share the same underlying
// transaction, so locks taken through any of them hold until commit/rollback.
type Repos struct {
	Clients      ClientRepository
	Accounts     AccountRepository
	Cards        CardRepository
	Transactions TransactionRepository
	Loans        LoanRepository
}

// UnitOfWork runs a function inside one database transaction. Any error
// returned by fn rolls back everything written so far, including ledger rows.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r Repos) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a GORM-backed unit of work.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(r Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}

// NewRepos binds all repositories to the given DB handle.
func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Clients:      NewClientRepository(db),
		Accounts:     NewAccountRepository(db),
		Cards:        NewCardRepository(db),
		Transactions: NewTransactionRepository(db),
		Loans:        NewLoanRepository(db),
	}
}
