package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/reelhub/apiserver/internal/mq"
	"github.com/reelhub/apiserver/types"
)

// Moderation event types published on the moderation channel.
const (
	TypeReportCreated  = "report.created"
	TypeReportResolved = "report.resolved"
)

// ModerationEvent is the payload published whenever a report is filed or
// resolved, so moderation tooling can react asynchronously.
type ModerationEvent struct {
	Type       string    `json:"type"`
	ReportID   int       `json:"report_id"`
	MovieID    int       `json:"movie_id"`
	UserID     int       `json:"user_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits moderation events to a message broker. Publishing is
// best-effort: broker failures are logged and never fail the request that
// triggered the event. A nil Publisher is valid and publishes nothing.
type Publisher struct {
	mq      *mq.MQ
	channel string
	logger  *slog.Logger
}

func NewPublisher(queue *mq.MQ, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{mq: queue, channel: channel, logger: logger}
}

// ReportCreated publishes a report.created event.
func (p *Publisher) ReportCreated(ctx context.Context, report types.Report) {
	p.publish(ctx, ModerationEvent{
		Type:       TypeReportCreated,
		ReportID:   report.ID,
		MovieID:    report.MovieID,
		UserID:     report.UserID,
		Status:     report.Status,
		OccurredAt: time.Now(),
	})
}

// ReportResolved publishes a report.resolved event.
func (p *Publisher) ReportResolved(ctx context.Context, report types.Report) {
	p.publish(ctx, ModerationEvent{
		Type:       TypeReportResolved,
		ReportID:   report.ID,
		MovieID:    report.MovieID,
		UserID:     report.UserID,
		Status:     report.Status,
		OccurredAt: time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, event ModerationEvent) {
	if p == nil || p.mq == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal moderation event", slog.String("type", event.Type), slog.String("error", err.Error()))
		return
	}

	attrs := map[string]string{"type": event.Type}
	if _, err := p.mq.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.Error("publish moderation event",
			slog.String("type", event.Type),
			slog.Int("report_id", event.ReportID),
			slog.String("error", err.Error()),
		)
	}
}
