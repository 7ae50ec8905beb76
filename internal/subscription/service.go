package subscription

import (
	"context"
	"errors"
)

type Service interface {
	Plans() []Plan
	Current(ctx context.Context, customerID int) (*Subscription, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Plans() []Plan {
	return Plans()
}

// Current returns the customer's live subscription, or nil when there is none.
func (s *service) Current(ctx context.Context, customerID int) (*Subscription, error) {
	sub, err := s.repo.GetCurrentForCustomer(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sub, err
}
