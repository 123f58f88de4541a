package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stadtwache/internal/api"
	"stadtwache/internal/models"
	"stadtwache/internal/sos"
)

// QueuedAlert is one undelivered emergency alert, persisted so a critical
// failure does not silently discard it.
type QueuedAlert struct {
	ID          string `gorm:"primaryKey;size:36"`
	Kind        string
	Payload     string // serialized models.EmergencyAlert
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Queue is the durable offline alert queue, backed by a local sqlite file.
type Queue struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (and if needed creates) the queue database at path.
func Open(path string, log *zap.Logger) (*Queue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open alert queue %s: %w", path, err)
	}
	if err := db.AutoMigrate(&QueuedAlert{}); err != nil {
		return nil, fmt.Errorf("migrate alert queue: %w", err)
	}
	return &Queue{db: db, log: log}, nil
}

// Enqueue persists an alert for later redelivery.
func (q *Queue) Enqueue(ctx context.Context, alert *models.EmergencyAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode queued alert: %w", err)
	}
	entry := QueuedAlert{
		ID:        uuid.New().String(),
		Kind:      string(alert.Type),
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("persist queued alert: %w", err)
	}
	return nil
}

// Pending lists undelivered alerts, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]QueuedAlert, error) {
	var entries []QueuedAlert
	err := q.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list queued alerts: %w", err)
	}
	return entries, nil
}

// Flush attempts redelivery of every pending alert and returns how many
// went out. A transport failure ends the pass; a rejection is recorded
// on the entry and the pass continues.
func (q *Queue) Flush(ctx context.Context, sender sos.Sender) (int, error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for i := range entries {
		entry := &entries[i]
		var alert models.EmergencyAlert
		if err := json.Unmarshal([]byte(entry.Payload), &alert); err != nil {
			// Unreadable entries can never be delivered; mark them so
			// they stop blocking the queue.
			q.log.Error("dropping corrupt queued alert", zap.String("id", entry.ID), zap.Error(err))
			q.markDelivered(ctx, entry, "corrupt payload: "+err.Error())
			continue
		}

		ack, sendErr := sender.Send(ctx, &alert)
		if sendErr == nil {
			q.log.Info("queued alert delivered",
				zap.String("id", entry.ID),
				zap.String("broadcast_id", ack.BroadcastID))
			q.markDelivered(ctx, entry, "")
			delivered++
			continue
		}

		q.recordFailure(ctx, entry, sendErr)
		if _, rejected := api.IsRejection(sendErr); !rejected {
			q.log.Debug("backend unreachable, ending flush pass", zap.Error(sendErr))
			return delivered, sendErr
		}
	}
	return delivered, nil
}

// PruneDelivered removes delivered entries older than the retention window.
func (q *Queue) PruneDelivered(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	return q.db.WithContext(ctx).
		Where("delivered_at IS NOT NULL AND delivered_at < ?", cutoff).
		Delete(&QueuedAlert{}).Error
}

// Close releases the underlying database handle.
func (q *Queue) Close() error {
	sqlDB, err := q.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (q *Queue) markDelivered(ctx context.Context, entry *QueuedAlert, note string) {
	now := time.Now().UTC()
	updates := map[string]any{"delivered_at": &now}
	if note != "" {
		updates["last_error"] = note
	}
	if err := q.db.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
		q.log.Error("could not mark queued alert delivered", zap.String("id", entry.ID), zap.Error(err))
	}
}

func (q *Queue) recordFailure(ctx context.Context, entry *QueuedAlert, sendErr error) {
	err := q.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": sendErr.Error(),
	}).Error
	if err != nil {
		q.log.Error("could not record queue attempt", zap.String("id", entry.ID), zap.Error(err))
	}
}
