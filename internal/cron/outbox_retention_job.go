package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 30
	defaultOutboxMaxAttempts   = 10
)

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxRetentionRepo
	RetentionDays int
	// MaxAttempts matches the publisher limit; unpublished rows at the limit
	// are dead and age out like published ones.
	MaxAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type outboxRetentionJob struct {
	logg          *logger.Logger
	db            txRunner
	repo          outboxRetentionRepo
	retentionDays int
	maxAttempts   int
	now           func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultOutboxMaxAttempts
	}
	return &outboxRetentionJob{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repository,
		retentionDays: days,
		maxAttempts:   attempts,
		now:           time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.maxAttempts)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retentionDays,
		"rows_deleted":   deleted,
	}), "outbox retention cleanup complete")
	return nil
}
