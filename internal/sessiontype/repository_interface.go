package sessiontype

import "context"

type Repository interface {
	Create(ctx context.Context, req CreateRequest) (*SessionType, error)
	GetByID(ctx context.Context, id int) (*SessionType, error)
	List(ctx context.Context, activeOnly bool) ([]SessionType, error)
	Update(ctx context.Context, id int, req UpdateRequest) (*SessionType, error)
}
