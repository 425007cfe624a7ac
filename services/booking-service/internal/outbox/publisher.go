package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Source hands out unpublished records. Records are marked published only
// when deliver returns nil.
type Source interface {
	Claim(ctx context.Context, limit int, deliver func(context.Context, []Record) error) error
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	source    Source
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(source Source, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		source:    source,
		logger:    logger,
		brokers:   brokers,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  p.brokers,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PublishBatch(ctx, writer); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch delivers one batch of pending events to w.
func (p *Publisher) PublishBatch(ctx context.Context, w MessageWriter) error {
	return p.source.Claim(ctx, p.batchSize, func(ctx context.Context, records []Record) error {
		if len(records) == 0 {
			return nil
		}
		ctx, span := otel.Tracer("outbox").Start(ctx, "outbox.publish")
		span.SetAttributes(attribute.Int("outbox.batch_size", len(records)))
		defer span.End()

		msgs := make([]kafka.Message, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, toMessage(ctx, r))
		}
		if err := w.WriteMessages(ctx, msgs...); err != nil {
			span.RecordError(err)
			return err
		}
		p.logger.Debug("outbox batch published", "count", len(records))
		return nil
	})
}

func toMessage(ctx context.Context, r Record) kafka.Message {
	msgCtx := otelx.Carrier{Traceparent: r.Traceparent, Tracestate: r.Tracestate}.Restore(ctx)
	msg := kafka.Message{
		Topic: r.EventType,
		Key:   []byte(r.AggregateID),
		Value: r.Payload,
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(r.EventID)},
			{Key: kafkax.HeaderEventType, Value: []byte(r.EventType)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)
	return msg
}

// PgSource claims records with FOR UPDATE SKIP LOCKED so several publisher
// replicas can share one table.
type PgSource struct {
	pool *db.Pool
	repo *Repository
}

func NewPgSource(pool *db.Pool, repo *Repository) *PgSource {
	return &PgSource{pool: pool, repo: repo}
}

func (s *PgSource) Claim(ctx context.Context, limit int, deliver func(context.Context, []Record) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		records, err := s.repo.FetchUnpublished(ctx, tx, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := deliver(ctx, records); err != nil {
			return err
		}
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return s.repo.MarkPublished(ctx, tx, ids)
	})
}
