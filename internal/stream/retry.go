package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type deadLetterWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RetryHandler retries message processing and dead-letters what keeps failing
type RetryHandler struct {
	client        deadLetterWriter
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
}

func NewRetryHandler(client deadLetterWriter, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    3,
		baseDelay:     500 * time.Millisecond,
		maxDelay:      10 * time.Second,
	}
}

// RetryWithBackoff runs fn up to maxRetries+1 times, doubling the delay between attempts.
// When every attempt fails the message is moved to the dead letter stream.
func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, msgID string, fields map[string]interface{}) error {
	var lastErr error
	delay := h.baseDelay

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Err(lastErr).
				Str("message_id", msgID).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying message")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
			if delay > h.maxDelay {
				delay = h.maxDelay
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	if err := h.sendToDeadLetter(ctx, msgID, fields, lastErr); err != nil {
		return fmt.Errorf("processing failed: %w; dead letter failed: %v", lastErr, err)
	}
	return fmt.Errorf("processing failed after %d retries: %w", h.maxRetries, lastErr)
}

func (h *RetryHandler) sendToDeadLetter(ctx context.Context, msgID string, fields map[string]interface{}, cause error) error {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["originalId"] = msgID
	values["error"] = cause.Error()
	values["failedAt"] = time.Now().UTC().Format(time.RFC3339)

	id, err := h.client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.deadLetterKey,
		Values: values,
	}).Result()
	if err != nil {
		log.Error().Err(err).Str("message_id", msgID).Msg("Failed to dead-letter message")
		return err
	}

	log.Error().
		Err(cause).
		Str("message_id", msgID).
		Str("dead_letter_id", id).
		Str("stream", h.deadLetterKey).
		Msg("Message moved to dead letter stream")
	return nil
}
