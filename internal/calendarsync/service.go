package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionbook/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix  = "calendar:oauth:state:"
	stateTTL        = 10 * time.Minute
	defaultCalendar = "primary"
)

var (
	ErrInvalidState   = errors.New("unknown or expired OAuth state")
	ErrNoRefreshToken = errors.New("calendar provider did not return a refresh token")
)

type Service struct {
	repo     Repository
	provider Provider
	cipher   *TokenCipher
	queue    *Queue
	redis    *redis.Client
	now      func() time.Time
}

func NewService(repo Repository, provider Provider, cipher *TokenCipher, queue *Queue, rdb *redis.Client) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		cipher:   cipher,
		queue:    queue,
		redis:    rdb,
		now:      time.Now,
	}
}

func (s *Service) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse

	n, err := s.queue.Length(ctx)
	if err != nil {
		return resp, fmt.Errorf("queue length: %w", err)
	}
	resp.QueueLength = n

	integ, err := s.repo.GetIntegration(ctx)
	if errors.Is(err, ErrNotConnected) {
		return resp, nil
	}
	if err != nil {
		return resp, err
	}
	resp.Connected = true
	resp.Integration = integ
	return resp, nil
}

// ConnectURL starts the OAuth flow. The state is single use and expires.
func (s *Service) ConnectURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.redis.Set(ctx, stateKeyPrefix+state, s.now().Unix(), stateTTL).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *Service) Callback(ctx context.Context, state, code string) (*Integration, error) {
	if state == "" || code == "" {
		return nil, ErrInvalidState
	}
	err := s.redis.GetDel(ctx, stateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("check oauth state: %w", err)
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	accessEnc, err := s.cipher.Seal(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	refreshEnc, err := s.cipher.Seal(tok.RefreshToken)
	if err != nil {
		return nil, err
	}

	integ := &Integration{
		Provider:        s.provider.Name(),
		CalendarID:      defaultCalendar,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
	}
	if !tok.Expiry.IsZero() {
		integ.TokenExpiry = &tok.Expiry
	}
	if err := s.repo.SaveIntegration(ctx, integ); err != nil {
		return nil, fmt.Errorf("save integration: %w", err)
	}

	logger.Info("Calendar connected", "provider", integ.Provider, "integration_id", integ.ID)
	return integ, nil
}

// Disconnect revokes the upstream grant and removes the integration. A
// failed revoke is logged; the local row is removed regardless.
func (s *Service) Disconnect(ctx context.Context) error {
	integ, err := s.repo.GetIntegration(ctx)
	if err != nil {
		return err
	}

	if tok, err := openToken(s.cipher, integ); err != nil {
		logger.Warn("Cannot open stored calendar token, skipping revoke", "error", err)
	} else if err := s.provider.Revoke(ctx, tok); err != nil {
		logger.Warn("Failed to revoke calendar grant", "error", err)
	}

	if err := s.repo.DeleteIntegration(ctx, integ.ID); err != nil {
		return err
	}
	logger.Info("Calendar disconnected", "integration_id", integ.ID)
	return nil
}

func (s *Service) ResyncBooking(ctx context.Context, bookingID int) error {
	if _, err := s.repo.LoadBooking(ctx, bookingID); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, bookingID)
}

// ResyncAll queues every future booking whose mirror is not synced.
func (s *Service) ResyncAll(ctx context.Context) (int, error) {
	if _, err := s.repo.GetIntegration(ctx); err != nil {
		return 0, err
	}

	ids, err := s.repo.FutureUnsynced(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			return i, err
		}
	}

	logger.Info("Calendar resync queued", "bookings", len(ids))
	return len(ids), nil
}
