package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/redisutil"
)

// AuditEntry is the fire-and-forget record appended after every mutating
// operation. Consumed downstream by the audit-log collaborator.
type AuditEntry struct {
	Actor        string         `json:"actor"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details,omitempty"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// AuditSink appends entries without ever failing the operation that produced
// them: sinks log their own errors and return nothing.
type AuditSink interface {
	Record(actor, action, resourceType, resourceID string, details map[string]any)
}

const auditStream = "audit:events"

// RedisAuditSink XADDs entries onto a Redis Stream. Each append runs in its
// own goroutine with a short timeout so a slow Redis never blocks or rolls
// back the core operation.
type RedisAuditSink struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisAuditSink(client *redis.Client, logger *zap.Logger) *RedisAuditSink {
	return &RedisAuditSink{client: client, logger: logger}
}

func (s *RedisAuditSink) Record(actor, action, resourceType, resourceID string, details map[string]any) {
	entry := AuditEntry{
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		RecordedAt:   time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := redisutil.PublishJSONToStream(ctx, s.client, auditStream, entry); err != nil {
			s.logger.Warn("failed to append audit entry",
				zap.String("action", action),
				zap.String("resource_id", resourceID),
				zap.Error(err),
			)
		}
	}()
}

// NopAuditSink for tests and DB-less dev runs.
type NopAuditSink struct{}

func (NopAuditSink) Record(string, string, string, string, map[string]any) {}
