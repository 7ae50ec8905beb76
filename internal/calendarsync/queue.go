package calendarsync

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"sessionbook/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey      = "calendar:sync"
	failedKey     = "calendar:sync:failed"
	lockKeyPrefix = "calendar:sync:lock:"

	// MaxTries is how many times a task runs before it is parked in the
	// failed list.
	MaxTries = 3
)

// Queue is a Redis list of sync tasks. Producers LPUSH, workers BRPOP, so
// tasks are handed out oldest first.
type Queue struct {
	redis *redis.Client
	now   func() time.Time
	token func() string
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{redis: rdb, now: time.Now, token: uuid.NewString}
}

// unlockScript deletes the lock only if it still carries our token, so an
// expired lock taken over by another worker is left alone.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

func lockKey(bookingID int) string {
	return lockKeyPrefix + strconv.Itoa(bookingID)
}

// Lock claims a booking so only one worker reconciles it at a time. The
// returned unlock func is nil when another worker holds the claim.
func (q *Queue) Lock(ctx context.Context, bookingID int, ttl time.Duration) (unlock func(), err error) {
	key, token := lockKey(bookingID), q.token()
	ok, err := q.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, err
	}

	return func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := q.redis.Eval(uctx, unlockScript, []string{key}, token).Err(); err != nil {
			logger.Warn("Failed to release calendar sync lock", "booking_id", bookingID, "error", err)
		}
	}, nil
}

// Enqueue schedules a sync of the booking. It implements booking.SyncQueue.
func (q *Queue) Enqueue(ctx context.Context, bookingID int) error {
	task := Task{
		ID:         uuid.New(),
		BookingID:  bookingID,
		EnqueuedAt: q.now(),
	}
	if err := q.push(ctx, task); err != nil {
		return err
	}
	logger.Debug("Calendar sync queued", "task_id", task.ID, "booking_id", bookingID)
	return nil
}

func (q *Queue) push(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, queueKey, string(data)).Err()
}

// Pop blocks up to timeout for the next task. It returns nil, nil when the
// queue stayed empty.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.redis.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		logger.Error("Dropping malformed calendar sync task", "payload", result[1], "error", err)
		return nil, nil
	}
	return &task, nil
}

// Fail parks a task that ran out of tries.
func (q *Queue) Fail(ctx context.Context, task Task, cause error) error {
	data, err := json.Marshal(map[string]interface{}{
		"task":      task,
		"error":     cause.Error(),
		"failed_at": q.now(),
	})
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, failedKey, string(data)).Err()
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, queueKey).Result()
}
