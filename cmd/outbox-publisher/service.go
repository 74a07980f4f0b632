package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/metrics"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	OrdersPublisher() *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	Metrics    *metrics.Storefront
	// Publisher replaces the orders topic publisher, mostly in tests.
	Publisher publisher
}

// Service drains outbox_events to the order events topic. A batch shares one
// transaction so rows are claimed and marked together.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	pubsub      pubSubClient
	metrics     *metrics.Storefront
	publisher   publisher
	topic       string
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("outbox publisher: config is required")
	case params.Logger == nil:
		return nil, errors.New("outbox publisher: logger is required")
	case params.DB == nil:
		return nil, errors.New("outbox publisher: database is required")
	case params.PubSub == nil:
		return nil, errors.New("outbox publisher: pubsub is required")
	case params.Repository == nil:
		return nil, errors.New("outbox publisher: repository is required")
	}

	s := &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		pubsub:      params.PubSub,
		metrics:     params.Metrics,
		publisher:   params.Publisher,
		topic:       params.Config.PubSub.OrdersTopic,
		batchSize:   positiveOr(params.Config.Outbox.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(params.Config.Outbox.MaxAttempts, defaultMaxAttempts),
		poll:        defaultPoll,
	}
	if ms := params.Config.Outbox.PollIntervalMS; ms > 0 {
		s.poll = time.Duration(ms) * time.Millisecond
	}
	if s.publisher == nil {
		if topic := params.PubSub.OrdersPublisher(); topic != nil {
			s.publisher = topicPublisher{topic}
		}
	}
	return s, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	err := multierr.Combine(
		wrapIf("database ping", s.db.Ping(ctx)),
		wrapIf("pubsub ping", s.pubsub.Ping(ctx)),
	)
	if err != nil {
		s.logg.Error(ctx, "outbox dependencies not ready", err)
	}
	return err
}

func wrapIf(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", step, err)
}

// Run polls until ctx ends. Empty polls wait one interval; failed batches
// back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	wait := s.poll
	for ctx.Err() == nil {
		busy, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = nextBackoff(wait, s.poll, maxBackoff)
		case busy:
			wait = s.poll
			continue
		default:
			wait = s.poll
		}
		if err := sleepCtx(ctx, withJitter(wait)); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

type topicPublisher struct {
	topic *gcppubsub.Publisher
}

func (p topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.topic.Publish(ctx, msg)
}
