package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/little-explorers/storefront/pkg/db/models"
	"github.com/little-explorers/storefront/pkg/enums"
	"github.com/little-explorers/storefront/pkg/logger"
)

const currentVersion = 1

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// Service queues domain events inside the caller's transaction.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit writes event through tx. The row commits or rolls back with the
// state change that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("outbox emit needs the caller's transaction")
	}
	row, eventID, err := event.row()
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":     eventID,
		"event_type":   string(event.EventType),
		"aggregate_id": event.AggregateID.String(),
	}), "outbox event queued")
	return nil
}

// row wraps the event data in a versioned envelope and returns the row to
// insert together with the envelope's event id.
func (e DomainEvent) row() (*models.OutboxEvent, string, error) {
	if !e.EventType.IsValid() {
		return nil, "", fmt.Errorf("unknown outbox event type %q", e.EventType)
	}
	if !e.AggregateType.IsValid() {
		return nil, "", fmt.Errorf("unknown outbox aggregate type %q", e.AggregateType)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s data: %w", e.EventType, err)
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	env := PayloadEnvelope{
		Version:    currentVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      e.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s envelope: %w", e.EventType, err)
	}
	return &models.OutboxEvent{
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       payload,
	}, env.EventID, nil
}
