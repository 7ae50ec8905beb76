package sessiontype

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("session type not found")
	ErrInvalidInput = errors.New("invalid session type")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*SessionType, error)
	Get(ctx context.Context, id int) (*SessionType, error)
	List(ctx context.Context, includeInactive bool) ([]SessionType, error)
	Update(ctx context.Context, id int, req UpdateRequest) (*SessionType, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*SessionType, error) {
	if req.Name == "" || req.Capacity < 1 || !ValidDuration(req.DurationMinutes) || req.Price.IsNegative() {
		return nil, ErrInvalidInput
	}
	return s.repo.Create(ctx, req)
}

func (s *service) Get(ctx context.Context, id int) (*SessionType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]SessionType, error) {
	return s.repo.List(ctx, !includeInactive)
}

func (s *service) Update(ctx context.Context, id int, req UpdateRequest) (*SessionType, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return nil, ErrInvalidInput
	}
	return s.repo.Update(ctx, id, req)
}
