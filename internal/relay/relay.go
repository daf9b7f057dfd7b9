// Package relay forwards a JSON body to a fixed HTTP endpoint with a
// per-attempt timeout and a bounded, linearly backed-off retry.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"chat-relay/internal/reply"
	"chat-relay/internal/retry"
)

const instrumentationName = "chat-relay/relay"

// DefaultTimeouts is the per-attempt budget: a short first try, longer retries.
var DefaultTimeouts = []time.Duration{5 * time.Second, 8 * time.Second, 8 * time.Second}

// Transform turns a successful response body into the value returned by
// Forward. It must reject bodies that are not JSON.
type Transform func(body []byte) (json.RawMessage, error)

// Validate passes any valid JSON body through unchanged.
func Validate(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return nil, reply.ErrMalformed
	}
	return json.RawMessage(body), nil
}

type Relay struct {
	endpoint  string
	client    *http.Client
	timeouts  []time.Duration
	policy    retry.Policy
	sleeper   retry.Sleeper
	transform Transform
	logger    *slog.Logger

	tracer   trace.Tracer
	attempts metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

type Option func(*Relay)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) { r.client = c }
}

// WithTimeouts sets the per-attempt timeouts and the attempt count. The
// last timeout is reused when WithAttempts asks for more attempts.
func WithTimeouts(timeouts ...time.Duration) Option {
	return func(r *Relay) {
		if len(timeouts) == 0 {
			return
		}
		r.timeouts = timeouts
		r.policy.MaxAttempts = len(timeouts)
	}
}

// WithAttempts overrides the attempt count. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(r *Relay) {
		if n >= 1 {
			r.policy.MaxAttempts = n
		}
	}
}

// WithBackoff sets the linear backoff unit between attempts.
func WithBackoff(unit time.Duration) Option {
	return func(r *Relay) { r.policy.Backoff = retry.Linear(unit) }
}

func WithSleeper(s retry.Sleeper) Option {
	return func(r *Relay) { r.sleeper = s }
}

func WithTransform(t Transform) Option {
	return func(r *Relay) { r.transform = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Relay) { r.tracer = t }
}

// WithMeter replaces the meter the relay counters are registered on.
func WithMeter(m metric.Meter) Option {
	return func(r *Relay) { r.registerInstruments(m) }
}

// New builds a relay posting to endpoint. By default it makes three
// attempts with DefaultTimeouts, waits 1s then 2s between them, and
// rewrites {"message": m} replies into {"content": m}.
func New(endpoint string, opts ...Option) *Relay {
	r := &Relay{
		endpoint:  endpoint,
		client:    &http.Client{},
		timeouts:  DefaultTimeouts,
		policy:    retry.Policy{MaxAttempts: len(DefaultTimeouts), Backoff: retry.Linear(time.Second)},
		sleeper:   retry.TimerSleeper,
		transform: reply.Unwrap,
		logger:    slog.Default(),
		tracer:    otel.Tracer(instrumentationName),
	}
	r.registerInstruments(otel.Meter(instrumentationName))

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) registerInstruments(m metric.Meter) {
	var err error
	if r.attempts, err = m.Int64Counter("relay.attempts",
		metric.WithDescription("HTTP attempts made by the relay")); err != nil {
		r.logWarn("failed to create counter", "name", "relay.attempts", "error", err)
	}
	if r.failures, err = m.Int64Counter("relay.failures",
		metric.WithDescription("Failed relay attempts by kind")); err != nil {
		r.logWarn("failed to create counter", "name", "relay.failures", "error", err)
	}
	if r.duration, err = m.Float64Histogram("relay.duration_ms",
		metric.WithDescription("Wall time of a relay call including retries"),
		metric.WithUnit("ms")); err != nil {
		r.logWarn("failed to create histogram", "name", "relay.duration_ms", "error", err)
	}
}

func (r *Relay) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
		return
	}
	slog.Warn(msg, args...)
}

// Endpoint returns the destination URL.
func (r *Relay) Endpoint() string {
	return r.endpoint
}

// Forward POSTs body as JSON and returns the transformed response. Transport
// and backend failures are *Error. A cancelled ctx yields KindAbort without
// retrying.
func (r *Relay) Forward(ctx context.Context, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode relay body: %w", err)
	}

	ctx, span := r.tracer.Start(ctx, "relay.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("relay.endpoint", r.endpoint)))
	defer span.End()

	start := time.Now()
	var result json.RawMessage
	err = retry.Do(ctx, r.policy, r.sleeper, func(ctx context.Context, attempt int) error {
		out, err := r.attempt(ctx, attempt, payload)
		if err != nil {
			return err
		}
		result = out
		return nil
	})

	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		err = &Error{Kind: KindAbort, Err: ctx.Err()}
	}

	outcome := "success"
	if err != nil {
		kind, _ := KindOf(err)
		outcome = string(kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if r.duration != nil {
		r.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Relay) timeout(attempt int) time.Duration {
	if attempt-1 < len(r.timeouts) {
		return r.timeouts[attempt-1]
	}
	return r.timeouts[len(r.timeouts)-1]
}

// attempt runs one POST. Retryable failures are returned as *Error;
// terminal ones are wrapped with retry.Stop.
func (r *Relay) attempt(ctx context.Context, attempt int, payload []byte) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, retry.Stop(classifyContext(err))
	}

	timeout := r.timeout(attempt)
	ctx, span := r.tracer.Start(ctx, "relay.attempt",
		trace.WithAttributes(
			attribute.Int("relay.attempt", attempt),
			attribute.Int64("relay.timeout_ms", timeout.Milliseconds()),
		))
	defer span.End()

	if r.attempts != nil {
		r.attempts.Add(ctx, 1)
	}

	out, err := r.do(ctx, timeout, payload)
	if err != nil {
		kind, _ := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if r.failures != nil {
			r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
		}
		r.logger.Warn("relay attempt failed",
			slog.String("endpoint", r.endpoint),
			slog.Int("attempt", attempt),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))

		if kind == KindAbort || kind == KindParse {
			return nil, retry.Stop(err)
		}
		return nil, err
	}
	return out, nil
}

func (r *Relay) do(parent context.Context, timeout time.Duration, payload []byte) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, classify(parent, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(parent, err)
	}

	trace.SpanFromContext(parent).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindBackendStatus, Status: resp.StatusCode}
	}

	out, err := r.transform(body)
	if err != nil {
		return nil, &Error{Kind: KindParse, Status: resp.StatusCode, Err: err}
	}
	return out, nil
}

// classify maps a transport error to a Kind. The parent context tells a
// caller abort apart from the attempt's own deadline.
func classify(parent context.Context, err error) *Error {
	if perr := parent.Err(); perr != nil {
		return classifyContext(perr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindAbort, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

func classifyContext(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindAbort, Err: err}
}
