package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

type AccountService struct {
	Store store.Store
}

// Get fetches the account behind an authenticated request. A valid token
// for an account that no longer exists is Forbidden.
func (s *AccountService) Get(ctx context.Context, id string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, Forbidden(msgAccountNotFound)
	}
	if err != nil {
		return domain.Account{}, Internal(err)
	}
	return a, nil
}
