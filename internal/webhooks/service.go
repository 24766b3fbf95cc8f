// Package webhooks pushes ledger events to configured HTTP receivers.
package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC-SHA256 of the body when the endpoint has a secret.
const SignatureHeader = "X-Hotel-Signature"

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Option configures a Service.
type Option func(*Service)

// WithBackoff sets the wait before each retry. The number of attempts is
// len(delays)+1.
func WithBackoff(delays ...time.Duration) Option {
	return func(s *Service) { s.backoff = delays }
}

// WithTimeout bounds each delivery request.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.http.SetTimeout(d)
		}
	}
}

// WithMetricsRecorder configures the metrics callback.
func WithMetricsRecorder(fn MetricsRecorder) Option {
	return func(s *Service) { s.onMetrics = fn }
}

// WithDeliveryLog receives every attempt; used by tests and debug logging.
func WithDeliveryLog(fn func(Delivery)) Option {
	return func(s *Service) { s.onDelivery = fn }
}

// Service fans ledger events out to the configured endpoints.
type Service struct {
	endpoints  []Endpoint
	http       *resty.Client
	backoff    []time.Duration
	onMetrics  MetricsRecorder
	onDelivery func(Delivery)
	now        func() time.Time
	wg         sync.WaitGroup
	logger     *zap.Logger
}

// NewService creates a webhook Service. With no endpoints Dispatch is a no-op.
func NewService(endpoints []Endpoint, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		endpoints: endpoints,
		http: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "hotelledger-webhooks"),
		// Retry with exponential backoff: 1s, 5s, 25s.
		backoff: []time.Duration{1 * time.Second, 5 * time.Second, 25 * time.Second},
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch delivers the event to every matching endpoint in the background.
// Cancelling ctx aborts pending retries.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}

	for _, ep := range s.endpoints {
		if !ep.Wants(eventType) {
			continue
		}
		s.wg.Add(1)
		go func(ep Endpoint) {
			defer s.wg.Done()
			s.deliver(ctx, ep, event, body)
		}(ep)
	}
}

// Wait blocks until every in-flight delivery has finished or given up.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) deliver(ctx context.Context, ep Endpoint, event Event, body []byte) {
	signature := ""
	if ep.Secret != "" {
		signature = signPayload(body, ep.Secret)
	}

	attempts := len(s.backoff) + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.backoff[attempt-2]):
			case <-ctx.Done():
				s.logger.Warn("webhook: delivery abandoned",
					zap.String("url", ep.URL),
					zap.String("event", event.Type),
				)
				return
			}
		}

		d := s.post(ctx, ep.URL, body, signature)
		d.EventID, d.EventType, d.Attempt = event.ID, event.Type, attempt
		if s.onDelivery != nil {
			s.onDelivery(d)
		}
		if s.onMetrics != nil {
			s.onMetrics(d.Success)
		}
		if d.Success {
			return
		}

		s.logger.Warn("webhook: delivery failed",
			zap.String("url", ep.URL),
			zap.String("event", event.Type),
			zap.Int("attempt", attempt),
			zap.String("error", d.Error),
		)
	}
}

func (s *Service) post(ctx context.Context, url string, body []byte, signature string) Delivery {
	d := Delivery{URL: url}

	req := s.http.R().SetContext(ctx).SetBody(body)
	if signature != "" {
		req.SetHeader(SignatureHeader, signature)
	}
	resp, err := req.Post(url)
	if err != nil {
		d.Error = err.Error()
		return d
	}

	d.StatusCode = resp.StatusCode()
	d.Success = resp.IsSuccess()
	if !d.Success {
		d.Error = fmt.Sprintf("HTTP %d", d.StatusCode)
	}
	return d
}

// signPayload computes an HMAC-SHA256 signature.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
