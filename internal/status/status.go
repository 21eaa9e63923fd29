package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "cheatcheck_run_status:"
	statusTTL = 12 * time.Hour
)

// keyValue is the slice of the Redis API the tracker needs
type keyValue interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Tracker records the progress of drive runs in Redis. Entries expire and
// are never used as a record of past results.
type Tracker struct {
	client keyValue
	now    func() time.Time
}

func NewTracker(client keyValue) *Tracker {
	return &Tracker{client: client, now: time.Now}
}

func (t *Tracker) Update(ctx context.Context, driveID string, step models.Step) error {
	if !models.ValidSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := keyPrefix + driveID
	payload, err := json.Marshal(models.RunStatus{DriveID: driveID, Step: step, UpdatedAt: t.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	if err := t.client.Set(ctx, rkey, payload, statusTTL).Err(); err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("driveID", driveID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("driveID", driveID).
		Msg("Status updated in Redis")

	return nil
}

// Get returns the current status; drives without one are idle.
func (t *Tracker) Get(ctx context.Context, driveID string) (*models.RunStatus, error) {
	raw, err := t.client.Get(ctx, keyPrefix+driveID).Result()
	if errors.Is(err, redis.Nil) {
		return &models.RunStatus{DriveID: driveID, Step: models.StepIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status from Redis: %w", err)
	}

	var status models.RunStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}
