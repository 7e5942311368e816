package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Stage string

const (
	StageFetchPage    Stage = "fetch_page"
	StageBreakdown    Stage = "breakdown"
	StageEpic         Stage = "epic"
	StageTicket       Stage = "ticket"
	StageLinkPage     Stage = "link_page"
	StageIngest       Stage = "ingest"
	StageRunFinished  Stage = "run_finished"
	StageRunFailed    Stage = "run_failed"
	StageIngestFailed Stage = "ingest_failed"
)

// ProgressEvent is one stage transition of a decomposition run or an ingestion pass.
type ProgressEvent struct {
	RunID    int64
	Stage    Stage
	PageURL  string
	EpicKey  string
	ItemKey  string
	Position int // 1-based ticket position, 0 when not applicable
	Total    int
	Error    string
	TraceID  *string
}

// ProgressPublisher fans pipeline progress out to whoever follows a run.
type ProgressPublisher interface {
	Publish(ctx context.Context, evt ProgressEvent) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) ProgressPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, evt ProgressEvent) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: eventFields(evt),
	}).Err(); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}

	p.logger.DebugContext(ctx, "published progress event", "run_id", evt.RunID, "stage", evt.Stage)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

func eventFields(evt ProgressEvent) map[string]any {
	fields := map[string]any{
		"run_id": strconv.FormatInt(evt.RunID, 10),
		"stage":  string(evt.Stage),
	}

	optional := map[string]string{
		"page_url": evt.PageURL,
		"epic_key": evt.EpicKey,
		"item_key": evt.ItemKey,
		"error":    evt.Error,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}

	if evt.Total > 0 {
		fields["position"] = evt.Position
		fields["total"] = evt.Total
	}
	if evt.TraceID != nil && *evt.TraceID != "" {
		fields["trace_id"] = *evt.TraceID
	}
	return fields
}

type noopPublisher struct{}

// NewNoopPublisher is used when no Redis is configured.
func NewNoopPublisher() ProgressPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, ProgressEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
