package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid availability input")
	ErrTemplateOverlap = errors.New("template overlaps an existing window on the same day")
)

type Service interface {
	Templates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*Template, error)
	DeleteTemplate(ctx context.Context, id int) error

	Exceptions(ctx context.Context, from, to string) ([]Exception, error)
	UpsertException(ctx context.Context, req UpsertExceptionRequest) (*Exception, error)
	DeleteException(ctx context.Context, id int) error

	Policy(ctx context.Context) (Policy, error)
	UpdatePolicy(ctx context.Context, req UpdatePolicyRequest) (*Policy, error)

	// Resolver snapshots policy, templates and exceptions into a Resolver
	// anchored at now.
	Resolver(ctx context.Context, now time.Time) (*Resolver, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Templates(ctx context.Context) ([]Template, error) {
	return s.repo.ListTemplates(ctx)
}

func (s *service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*Template, error) {
	if req.DayOfWeek == nil || *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		return nil, fmt.Errorf("%w: day_of_week must be 0-6", ErrInvalidInput)
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	candidate := Template{DayOfWeek: *req.DayOfWeek, StartTime: start, EndTime: end}
	existing, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if candidate.overlaps(t) {
			return nil, ErrTemplateOverlap
		}
	}

	return s.repo.CreateTemplate(ctx, candidate.DayOfWeek, start, end)
}

func (s *service) DeleteTemplate(ctx context.Context, id int) error {
	return s.repo.DeleteTemplate(ctx, id)
}

func (s *service) Exceptions(ctx context.Context, from, to string) ([]Exception, error) {
	if _, err := time.Parse(dateLayout, from); err != nil {
		return nil, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidInput)
	}
	if _, err := time.Parse(dateLayout, to); err != nil {
		return nil, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidInput)
	}
	return s.repo.ListExceptions(ctx, from, to)
}

func (s *service) UpsertException(ctx context.Context, req UpsertExceptionRequest) (*Exception, error) {
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	e := Exception{Date: req.Date, IsAvailable: req.IsAvailable, Reason: req.Reason}
	if req.StartTime != nil || req.EndTime != nil {
		if !req.IsAvailable || req.StartTime == nil || req.EndTime == nil {
			return nil, fmt.Errorf("%w: an extra window needs is_available, start_time and end_time", ErrInvalidInput)
		}
		start, end, err := parseWindow(*req.StartTime, *req.EndTime)
		if err != nil {
			return nil, err
		}
		e.StartTime, e.EndTime = &start, &end
	}

	return s.repo.UpsertException(ctx, e)
}

func (s *service) DeleteException(ctx context.Context, id int) error {
	return s.repo.DeleteException(ctx, id)
}

func (s *service) Policy(ctx context.Context) (Policy, error) {
	p, err := s.repo.GetPolicy(ctx)
	if err != nil {
		return Policy{}, err
	}
	return *p, nil
}

func (s *service) UpdatePolicy(ctx context.Context, req UpdatePolicyRequest) (*Policy, error) {
	p := Policy{
		CancellationNoticeHours: req.CancellationNoticeHours,
		BookingWindowDays:       req.BookingWindowDays,
		MinBookingNoticeHours:   req.MinBookingNoticeHours,
		Timezone:                req.Timezone,
		CreditRefundOnCancel:    req.CreditRefundOnCancel,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.UpdatePolicy(ctx, p)
}

func (s *service) Resolver(ctx context.Context, now time.Time) (*Resolver, error) {
	policy, err := s.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	loc, err := policy.Location()
	if err != nil {
		return nil, err
	}
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	local := now.In(loc)
	from := local.AddDate(0, 0, -1).Format(dateLayout)
	to := local.AddDate(0, 0, policy.BookingWindowDays+1).Format(dateLayout)
	exceptions, err := s.repo.ListExceptions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load exceptions: %w", err)
	}

	return NewResolver(policy, templates, exceptions, now)
}

func parseWindow(startStr, endStr string) (Clock, Clock, error) {
	start, err := ParseClock(startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	end, err := ParseClock(endStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: end_time must be after start_time", ErrInvalidInput)
	}
	return start, end, nil
}
