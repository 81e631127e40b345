// Package audit appends and lists change records for disputes, tasks and imports.
package audit

import (
	"context"
	"strconv"
	"time"

	"chargeback/internal/models"
	"chargeback/internal/repositories"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Entity types
const (
	EntityDispute     = "dispute"
	EntityTask        = "workflow_task"
	EntityVamp        = "vamp_record"
	EntityImport      = "status_import"
	EntityProject     = "project"
	EntityCustomField = "custom_field"
)

const systemActor = "system"

type actorKey struct{}

// WithActor returns a context carrying the acting user's identity.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or "system".
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return systemActor
}

// Recorder is the write side used by other services.
type Recorder interface {
	Record(ctx context.Context, entityType string, entityID uint, action string, details map[string]interface{})
}

type Service interface {
	Recorder
	List(ctx context.Context, entityType string, entityID uint, limit, offset int) ([]models.AuditLog, int64, error)
}

type service struct {
	repo repositories.AuditRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo repositories.AuditRepository, log *zap.Logger) Service {
	return &service{repo: repo, log: log, now: time.Now}
}

// Record appends an entry. A failed write is logged and never fails the
// operation being audited.
func (s *service) Record(ctx context.Context, entityType string, entityID uint, action string, details map[string]interface{}) {
	entry := &models.AuditLog{
		EventID:    uuid.NewString(),
		Actor:      ActorFrom(ctx),
		EntityType: entityType,
		Action:     action,
		Details:    models.JSON(details),
		CreatedAt:  s.now().UTC(),
	}
	if entityID != 0 {
		entry.EntityID = strconv.FormatUint(uint64(entityID), 10)
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn("audit write failed",
			zap.String("entity_type", entityType),
			zap.Uint("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, entityType string, entityID uint, limit, offset int) ([]models.AuditLog, int64, error) {
	id := ""
	if entityID != 0 {
		id = strconv.FormatUint(uint64(entityID), 10)
	}
	entries, total, err := s.repo.List(ctx, entityType, id, limit, offset)
	if err != nil {
		return nil, 0, eris.Wrap(err, "audit: list entries")
	}
	return entries, total, nil
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, string, uint, string, map[string]interface{}) {}
