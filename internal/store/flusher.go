package store

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stadtwache/internal/sos"
)

const deliveredRetention = 24 * time.Hour

// Flusher retries queued alerts on a schedule, so an alert that survived a
// critical failure goes out as soon as connectivity returns.
type Flusher struct {
	cron  *cron.Cron
	queue *Queue
	log   *zap.Logger
}

// NewFlusher schedules Flush runs against the queue. schedule uses cron
// syntax, e.g. "@every 1m".
func NewFlusher(queue *Queue, sender sos.Sender, schedule string, log *zap.Logger) (*Flusher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	f := &Flusher{cron: c, queue: queue, log: log}
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		delivered, err := queue.Flush(ctx, sender)
		if err != nil {
			log.Debug("queue flush incomplete", zap.Int("delivered", delivered), zap.Error(err))
			return
		}
		if delivered > 0 {
			log.Info("queue flushed", zap.Int("delivered", delivered))
		}
		if err := queue.PruneDelivered(ctx, deliveredRetention); err != nil {
			log.Warn("queue prune failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Start begins scheduled flushing.
func (f *Flusher) Start() { f.cron.Start() }

// Stop halts the schedule and waits for a running flush to finish.
func (f *Flusher) Stop() {
	ctx := f.cron.Stop()
	<-ctx.Done()
}
