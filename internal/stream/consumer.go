package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/metrics"
	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Ingester stores a parsed submission
type Ingester interface {
	ProcessSubmission(ctx context.Context, submission *models.Submission) error
}

// streamClient is the part of the Redis API the consumer uses
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XTrimMinID(ctx context.Context, key string, minID string) *redis.IntCmd
}

// Options configures a Consumer. Zero durations and counts fall back to defaults.
type Options struct {
	StreamKey string
	Group     string
	Name      string
	// Retention is how long entries stay in the stream before trimming
	Retention time.Duration

	BatchSize     int64
	Block         time.Duration
	ClaimIdle     time.Duration
	ClaimInterval time.Duration
	TrimInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.Block <= 0 {
		o.Block = time.Second
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = time.Minute
	}
	if o.ClaimInterval <= 0 {
		o.ClaimInterval = 30 * time.Second
	}
	if o.TrimInterval <= 0 {
		o.TrimInterval = time.Hour
	}
	return o
}

// Consumer reads submissions from a Redis stream consumer group and hands
// them to an Ingester. Entries are acked once stored or dead-lettered.
type Consumer struct {
	client   streamClient
	opts     Options
	ingester Ingester
	retry    *RetryHandler
	now      func() time.Time
}

func NewConsumer(client streamClient, ingester Ingester, retry *RetryHandler, opts Options) *Consumer {
	return &Consumer{
		client:   client,
		opts:     opts.withDefaults(),
		ingester: ingester,
		retry:    retry,
		now:      time.Now,
	}
}

// Start blocks until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	// Entries left pending by a crashed consumer
	if err := c.claimStale(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover pending entries on startup")
	}
	go c.trimLoop(ctx)

	lastClaim := c.now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if c.now().Sub(lastClaim) >= c.opts.ClaimInterval {
			if err := c.claimStale(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to recover pending entries")
			}
			lastClaim = c.now()
		}

		if err := c.readBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Error consuming messages")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	// "$" so a new group only sees entries added after it exists
	err := c.client.XGroupCreateMkStream(ctx, c.opts.StreamKey, c.opts.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.opts.Group).
		Str("stream", c.opts.StreamKey).
		Str("consumer", c.opts.Name).
		Msg("Consumer group ready")
	return nil
}

func (c *Consumer) readBatch(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Name,
		Streams:  []string{c.opts.StreamKey, ">"},
		Count:    c.opts.BatchSize,
		Block:    c.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, s := range streams {
		if s.Stream != c.opts.StreamKey {
			continue
		}
		c.handleAll(ctx, s.Messages)
	}
	return nil
}

// claimStale takes over entries another consumer read but never acked
func (c *Consumer) claimStale(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.opts.StreamKey,
		Group:  c.opts.Group,
		Idle:   c.opts.ClaimIdle,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.opts.StreamKey,
		Group:    c.opts.Group,
		Consumer: c.opts.Name,
		MinIdle:  c.opts.ClaimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to claim pending entries: %w", err)
	}

	log.Info().
		Int("pending", len(pending)).
		Int("claimed", len(claimed)).
		Msg("Recovered pending entries")

	c.handleAll(ctx, claimed)
	return nil
}

func (c *Consumer) handleAll(ctx context.Context, msgs []redis.XMessage) {
	for i := range msgs {
		if err := c.handle(ctx, &msgs[i]); err != nil {
			log.Error().Err(err).Str("message_id", msgs[i].ID).Msg("Failed to process message")
		}
	}
}

// handle stores one entry. Malformed and dead-lettered entries are acked too,
// so the pending list only ever holds entries still being worked on.
func (c *Consumer) handle(ctx context.Context, msg *redis.XMessage) error {
	streamMsg := toStreamMessage(msg)

	submission, err := ParseSubmission(streamMsg)
	if err != nil {
		metrics.SubmissionsIngested.WithLabelValues("invalid").Inc()
		c.ack(ctx, msg.ID)
		return err
	}

	err = c.retry.RetryWithBackoff(ctx, func() error {
		return c.ingester.ProcessSubmission(ctx, submission)
	}, msg.ID, msg.Values)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; leave it pending for the next claim
			return err
		}
		metrics.SubmissionsIngested.WithLabelValues("dead_lettered").Inc()
		c.ack(ctx, msg.ID)
		return err
	}

	metrics.SubmissionsIngested.WithLabelValues("stored").Inc()
	c.ack(ctx, msg.ID)
	return nil
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.opts.StreamKey, c.opts.Group, id).Err(); err != nil {
		log.Error().Err(err).Str("message_id", id).Msg("Failed to acknowledge message")
		return
	}
	log.Debug().Str("message_id", id).Msg("Message acknowledged")
}

// trim drops entries older than the retention window
func (c *Consumer) trim(ctx context.Context) error {
	cutoff := c.now().Add(-c.opts.Retention)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.opts.StreamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}
	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Trimmed stream")
	}
	return nil
}

func (c *Consumer) trimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TrimInterval)
	defer ticker.Stop()

	for {
		if err := c.trim(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to trim stream")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// keeps the string-valued fields of a raw stream entry
func toStreamMessage(msg *redis.XMessage) *StreamMessage {
	fields := make(map[string]string, len(msg.Values))
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}
	return &StreamMessage{ID: msg.ID, Fields: fields}
}
