package credit

import (
	"context"
	"errors"
	"time"

	"sessionbook/internal/logger"
)

var ErrInvalidGrant = errors.New("invalid credit grant")

type Service interface {
	Balance(ctx context.Context, customerID int) (Balance, error)
	Grant(ctx context.Context, req GrantRequest) (*Credit, error)
	Packs() []Pack
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Balance(ctx context.Context, customerID int) (Balance, error) {
	grants, err := s.repo.ListForCustomer(ctx, customerID)
	if err != nil {
		return Balance{}, err
	}
	return NewBalance(grants, s.now()), nil
}

func (s *service) Grant(ctx context.Context, req GrantRequest) (*Credit, error) {
	if req.CustomerID <= 0 || req.Sessions <= 0 {
		return nil, ErrInvalidGrant
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidGrant
	}

	c, _, err := s.repo.Create(ctx, Grant{
		CustomerID: req.CustomerID,
		Sessions:   req.Sessions,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Session credits granted", "customer_id", req.CustomerID, "sessions", req.Sessions, "credit_id", c.ID)
	return c, nil
}

func (s *service) Packs() []Pack {
	return Packs()
}
