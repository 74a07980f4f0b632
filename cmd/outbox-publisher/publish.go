package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/outbox"
)

// errNonRetryable marks publish failures that retrying cannot fix.
var errNonRetryable = errors.New("non-retryable outbox event")

type disposition int

const (
	published disposition = iota
	retryLater
	giveUp
)

// processBatch reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events)
		for _, event := range events {
			if err := s.settle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 {
		s.metrics.ObserveOutboxBatch(time.Since(started))
	}
	return claimed > 0, err
}

// settle publishes one row and records the outcome on it. Only a failure to
// write the outcome aborts the batch.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
		"topic":         s.topic,
	})

	outcome, cause := s.attempt(ctx, event)
	switch outcome {
	case published:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.OutboxPublished(string(event.EventType))
		s.logg.Info(ctx, "outbox event published")
		return nil
	case retryLater:
		s.metrics.OutboxFailed(string(event.EventType))
		s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "outbox publish failed, will retry")
		if err := s.repo.MarkFailedTx(tx, event.ID, cause); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		return nil
	default:
		s.metrics.OutboxFailed(string(event.EventType))
		s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "outbox event abandoned")
		if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		return nil
	}
}

func (s *Service) attempt(ctx context.Context, event models.OutboxEvent) (disposition, error) {
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return giveUp, fmt.Errorf("%w: decode envelope: %v", errNonRetryable, err)
	}
	if s.publisher == nil {
		return giveUp, fmt.Errorf("%w: orders publisher not configured", errNonRetryable)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := s.publisher.Publish(pubCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return giveUp, fmt.Errorf("%w: publisher returned no result", errNonRetryable)
	}
	if _, err := result.Get(pubCtx); err != nil {
		if event.AttemptCount+1 >= s.maxAttempts {
			return giveUp, fmt.Errorf("max publish attempts reached: %w", err)
		}
		return retryLater, err
	}
	return published, nil
}
