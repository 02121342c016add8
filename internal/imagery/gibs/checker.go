// Package gibs checks tile availability on a NASA GIBS compatible WMTS server.
package gibs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/provider/resilience"
)

const (
	// ProviderName identifies the tile server in the provider registry.
	ProviderName = "gibs"

	// DefaultTimeout bounds a single availability check.
	DefaultTimeout = 6 * time.Second

	tracerName = "github.com/elninowatch/elninowatch/internal/imagery/gibs"
)

// DefaultSampleTile is a zoom 3 tile covering the Peruvian coast on every
// GoogleMapsCompatible matrix set.
var DefaultSampleTile = imagery.TileCoord{Z: 3, X: 4, Y: 2}

// Reason explains the outcome of a single check.
type Reason string

const (
	ReasonAvailable      Reason = "AVAILABLE"
	ReasonBadStatus      Reason = "BAD_STATUS"
	ReasonBadContentType Reason = "BAD_CONTENT_TYPE"
	ReasonTransport      Reason = "TRANSPORT_ERROR"
	ReasonTimeout        Reason = "TIMEOUT"
	ReasonCircuitOpen    Reason = "CIRCUIT_OPEN"
)

// Check is the detailed outcome of one existence probe.
type Check struct {
	Source      imagery.SourceID
	Date        imagery.Date
	URL         string
	Available   bool
	Reason      Reason
	StatusCode  int
	ContentType string
	Duration    time.Duration
}

// ClientConfig holds configuration for the GIBS checker.
type ClientConfig struct {
	// SampleTile is the tile probed for every date (optional, defaults to DefaultSampleTile).
	SampleTile *imagery.TileCoord

	// Timeout bounds each check (optional, defaults to DefaultTimeout).
	// Ignored when HTTPClient is set; the client's own timeout applies.
	Timeout time.Duration

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilient client.
	HTTPClient *resilience.Client

	// Metrics records check counters (optional).
	Metrics *Metrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client issues metadata-only existence checks against tile addresses.
type Client struct {
	sample     imagery.TileCoord
	timeout    time.Duration
	httpClient *resilience.Client
	metrics    *Metrics
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient creates a new GIBS availability checker.
func NewClient(cfg ClientConfig) *Client {
	sample := DefaultSampleTile
	if cfg.SampleTile != nil {
		sample = *cfg.SampleTile
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ProbeClientConfig(ProviderName, timeout))
	} else {
		timeout = httpClient.Timeout()
	}

	return &Client{
		sample:     sample,
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer(tracerName),
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SampleTile returns the tile coordinate probed for each date.
func (c *Client) SampleTile() imagery.TileCoord {
	return c.sample
}

// CheckAvailable reports whether tiles for source exist on date.
// Every failure mode resolves to false; no error escapes.
func (c *Client) CheckAvailable(ctx context.Context, source imagery.Source, date imagery.Date) bool {
	return c.Check(ctx, source, date).Available
}

// CheckSent is CheckAvailable that also reports whether a request went out.
func (c *Client) CheckSent(ctx context.Context, source imagery.Source, date imagery.Date) (available, sent bool) {
	result := c.Check(ctx, source, date)
	return result.Available, result.Sent()
}

// Check probes the sample tile of source on date with a HEAD request.
func (c *Client) Check(ctx context.Context, source imagery.Source, date imagery.Date) (result Check) {
	url := source.TileURL(date, c.sample)
	result = Check{
		Source: source.ID,
		Date:   date,
		URL:    url,
	}

	ctx, span := c.tracer.Start(ctx, "gibs.check",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("imagery.source", string(source.ID)),
			attribute.String("imagery.date", date.String()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Bool("imagery.available", result.Available),
			attribute.String("imagery.reason", string(result.Reason)),
		)
		c.metrics.RecordCheck(ctx, source.ID, result.Reason, result.Duration)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		// Only reachable with a malformed base URL.
		result.Reason = ReasonTransport
		c.logger.Debug().Err(err).Str("url", url).Msg("tile check request invalid")
		return result
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Reason = classifyError(ctx, err)
		c.logger.Debug().
			Err(err).
			Str("url", url).
			Str("reason", string(result.Reason)).
			Msg("tile check failed")
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Reason = ReasonBadStatus
		c.logger.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("tile check status")
		return result
	}

	if !IsTileContentType(result.ContentType) {
		result.Reason = ReasonBadContentType
		c.logger.Debug().
			Str("url", url).
			Str("content_type", result.ContentType).
			Msg("tile check content type")
		return result
	}

	result.Available = true
	result.Reason = ReasonAvailable
	return result
}

// IsTileContentType reports whether a declared content type can be a tile.
// Image types, an empty type and generic binary are accepted; anything else,
// notably HTML error pages served with 200, is not.
func IsTileContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "" || strings.HasPrefix(ct, "image") || strings.Contains(ct, "octet-stream")
}

func classifyError(ctx context.Context, err error) Reason {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	default:
		var netTimeout interface{ Timeout() bool }
		if errors.As(err, &netTimeout) && netTimeout.Timeout() {
			return ReasonTimeout
		}
		return ReasonTransport
	}
}

// Sent reports whether the check reached upstream. A circuit-open check was
// rejected before any request was made.
func (c Check) Sent() bool {
	return c.Reason != ReasonCircuitOpen
}

// String formats the check for logs.
func (c Check) String() string {
	return fmt.Sprintf("%s@%s: %s", c.Source, c.Date, c.Reason)
}
