package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/repository"
)

// AdminUser is one row of the admin user table.
type AdminUser struct {
	ClientID       uint   `json:"client_id"`
	FullName       string `json:"full_name"`
	BirthDate      string `json:"birth_date"`
	PassportNumber string `json:"passport_number"`
	AccountID      uint   `json:"account_id"`
	Login          string `json:"login"`
	Role           string `json:"role"`
}

// DeleteClientResult counts what a cascade removed.
type DeleteClientResult struct {
	Accounts int `json:"accounts"`
	Clients  int `json:"clients"`
}

// AdminService handles the admin surface: user listing and the cascading
// client deletion.
type AdminService interface {
	ListUsers(ctx context.Context) ([]AdminUser, error)
	DeleteClient(ctx context.Context, clientID uint) (*DeleteClientResult, error)
}

type adminService struct {
	repos repository.Repos
	uow   repository.UnitOfWork
}

// NewAdminService creates a new admin service.
func NewAdminService(repos repository.Repos, uow repository.UnitOfWork) AdminService {
	return &adminService{repos: repos, uow: uow}
}

// ListUsers returns all non-admin accounts joined with their clients.
func (s *adminService) ListUsers(ctx context.Context) ([]AdminUser, error) {
	accounts, err := s.repos.Accounts.ListNonAdminWithClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	users := make([]AdminUser, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, AdminUser{
			ClientID:       account.ClientID,
			FullName:       account.Client.FullName,
			BirthDate:      account.Client.BirthDate.Format(dateLayout),
			PassportNumber: account.Client.PassportNumber,
			AccountID:      account.ID,
			Login:          account.Login,
			Role:           string(account.Role),
		})
	}
	return users, nil
}

// DeleteClient removes a client, every account in their child-account tree
// (any depth), and all dependent data, in one transaction. Accounts are
// deleted deepest-first because of the parent-account self reference; clients
// are deleted only when they have no accounts left outside the tree.
func (s *adminService) DeleteClient(ctx context.Context, clientID uint) (*DeleteClientResult, error) {
	var result DeleteClientResult
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		if _, err := r.Clients.FindByID(ctx, clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrClientNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}

		rootIDs, err := r.Accounts.ListIDsByClient(ctx, clientID)
		if err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		if len(rootIDs) == 0 {
			if err := r.Clients.DeleteByIDs(ctx, []uint{clientID}); err != nil {
				return apperrors.ClassifyMySQL(err)
			}
			result = DeleteClientResult{Clients: 1}
			return nil
		}

		// Breadth-first walk of the child-account tree, recording depth so
		// children go before their parents at delete time.
		depth := map[uint]int{}
		var accountIDs []uint
		queue := make([]uint, 0, len(rootIDs))
		for _, id := range rootIDs {
			depth[id] = 0
			accountIDs = append(accountIDs, id)
			queue = append(queue, id)
		}
		for len(queue) > 0 {
			parentID := queue[0]
			queue = queue[1:]
			childIDs, err := r.Accounts.ListChildIDs(ctx, parentID)
			if err != nil {
				return apperrors.ClassifyMySQL(err)
			}
			for _, childID := range childIDs {
				if _, seen := depth[childID]; seen {
					continue
				}
				depth[childID] = depth[parentID] + 1
				accountIDs = append(accountIDs, childID)
				queue = append(queue, childID)
			}
		}

		clientIDs, err := r.Accounts.ListClientIDs(ctx, accountIDs)
		if err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		clientIDSet := map[uint]bool{clientID: true}
		for _, id := range clientIDs {
			clientIDSet[id] = true
		}

		if err := r.Transactions.DeleteByAccountIDs(ctx, accountIDs); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if err := r.Cards.DeleteByAccountIDs(ctx, accountIDs); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if err := r.Loans.DeleteByAccountIDs(ctx, accountIDs); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		sort.Slice(accountIDs, func(i, j int) bool {
			return depth[accountIDs[i]] > depth[accountIDs[j]]
		})
		for _, id := range accountIDs {
			if err := r.Accounts.DeleteByIDs(ctx, []uint{id}); err != nil {
				return apperrors.ClassifyMySQL(err)
			}
		}

		var deletable []uint
		for id := range clientIDSet {
			remaining, err := r.Accounts.ListIDsByClient(ctx, id)
			if err != nil {
				return apperrors.ClassifyMySQL(err)
			}
			if len(remaining) == 0 {
				deletable = append(deletable, id)
			}
		}
		if err := r.Clients.DeleteByIDs(ctx, deletable); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = DeleteClientResult{Accounts: len(accountIDs), Clients: len(deletable)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
