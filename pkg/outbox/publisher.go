package outbox

import (
	"context"
	"time"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
)

// TopicPublisher is the slice of the Pub/Sub publisher the relay needs.
type TopicPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Publisher relays pending outbox rows to Pub/Sub in order. A row that keeps
// failing past MaxAttempts is parked as terminal rather than blocking the
// stream forever.
type Publisher struct {
	repo  *Repository
	topic TopicPublisher
	cfg   config.OutboxConfig
	logg  *logger.Logger
}

func NewPublisher(repo *Repository, topic TopicPublisher, cfg config.OutboxConfig, logg *logger.Logger) *Publisher {
	return &Publisher{repo: repo, topic: topic, cfg: cfg, logg: logg}
}

// Run polls for pending events until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	interval := time.Duration(p.cfg.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.PublishBatch(ctx); err != nil && p.logg != nil {
				p.logg.Error(ctx, "outbox publish batch failed", err)
			}
		}
	}
}

// PublishBatch drains up to BatchSize pending events.
func (p *Publisher) PublishBatch(ctx context.Context) error {
	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	rows, err := p.repo.FetchPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, row := range rows {
		attributes := map[string]string{
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
		}

		if _, err := p.topic.Publish(ctx, row.Payload, attributes); err != nil {
			if row.Attempts+1 >= p.cfg.MaxAttempts {
				if markErr := p.repo.MarkTerminal(ctx, row.ID, err); markErr != nil {
					return markErr
				}
				if p.logg != nil {
					logCtx := p.logg.WithField(ctx, "event_id", row.ID.String())
					p.logg.Error(logCtx, "outbox event parked after max attempts", err)
				}
				continue
			}
			if markErr := p.repo.MarkFailed(ctx, row.ID, err); markErr != nil {
				return markErr
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}
