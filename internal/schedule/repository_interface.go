package schedule

import "context"

type Repository interface {
	ListTemplates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, dayOfWeek int, start, end Clock) (*Template, error)
	DeleteTemplate(ctx context.Context, id int) error

	ListExceptions(ctx context.Context, from, to string) ([]Exception, error)
	UpsertException(ctx context.Context, e Exception) (*Exception, error)
	DeleteException(ctx context.Context, id int) error

	GetPolicy(ctx context.Context) (*Policy, error)
	UpdatePolicy(ctx context.Context, p Policy) (*Policy, error)
}
