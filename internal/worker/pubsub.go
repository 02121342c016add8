package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types.
const (
	JobResolveLatest = "resolve_latest"
	JobHealthCheck   = "health_check"
)

// Processing errors.
var (
	ErrMalformedMessage = errors.New("malformed job message")
	ErrUnknownJob       = errors.New("unknown job type")
)

// JobMessage is the payload of a worker job message.
type JobMessage struct {
	JobType  string `json:"job_type"`
	Lookback int    `json:"lookback,omitempty"`
	Days     int    `json:"days,omitempty"`
}

// Processor executes job messages independently of the transport.
type Processor struct {
	refresh *RefreshJob
	health  *HealthCheck
	logger  zerolog.Logger
}

// NewProcessor creates a job processor. health may be nil.
func NewProcessor(refresh *RefreshJob, health *HealthCheck, logger zerolog.Logger) *Processor {
	return &Processor{refresh: refresh, health: health, logger: logger}
}

// Process decodes and runs one job.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobResolveLatest:
		return p.resolveLatest(ctx, msg)
	case JobHealthCheck:
		return p.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (p *Processor) resolveLatest(ctx context.Context, msg JobMessage) error {
	result := p.refresh.Run(ctx, RefreshConfig{Days: msg.Days, Lookback: msg.Lookback})

	// Exhausted dates are expected while imagery is being published;
	// only resolutions that could not run count against the job.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, len(result.Dates))
	}
	return nil
}

func (p *Processor) healthCheck(ctx context.Context) error {
	if p.health == nil {
		p.logger.Debug().Msg("health check not configured")
		return nil
	}
	if _, err := p.health.Run(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	p.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Resolutions are slow and upstream-bound; keep few in flight.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if Ack(h.handleMessage(ctx, msg.ID, msg.PublishTime, msg.Data)) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, id string, published time.Time, data []byte) error {
	start := time.Now()
	logger := h.logger.With().
		Str("message_id", id).
		Str("publish_time", published.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.processor.Process(ctx, data)
	switch {
	case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrUnknownJob):
		logger.Warn().Err(err).Msg("dropping message")
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
	default:
		logger.Info().Dur("duration", time.Since(start)).Msg("job completed successfully")
	}
	return err
}

// Ack reports whether a message that produced err should be acknowledged.
// Messages that can never succeed are acked to prevent redelivery.
func Ack(err error) bool {
	return err == nil || errors.Is(err, ErrMalformedMessage) || errors.Is(err, ErrUnknownJob)
}
