// Package analytics reports page views and conversions. Delivery is best
// effort: failures are logged and never reach the intake flow.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"virtualcare/internal/config"
	"virtualcare/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conversion event naming used after a successful submission.
const (
	ConversionCategory = "Conversion"
	ConversionAction   = "Virtual Care App Conversion"
)

// Collector receives analytics events.
type Collector interface {
	PageView(ctx context.Context, page string)
	Conversion(ctx context.Context, category, action string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) PageView(context.Context, string)           {}
func (Nop) Conversion(context.Context, string, string) {}

// New returns a Measurement Protocol collector, or Nop when the
// measurement id or api secret is missing.
func New(cfg config.AnalyticsConfig, timeout time.Duration) Collector {
	if cfg.MeasurementID == "" || cfg.APISecret == "" {
		logging.Get(logging.CategoryAnalytics).Debug("analytics disabled: measurement id or api secret not set")
		return Nop{}
	}
	return NewMeasurementProtocol(cfg, &http.Client{Timeout: timeout})
}

// MeasurementProtocol sends GA4 Measurement Protocol events.
type MeasurementProtocol struct {
	client   *http.Client
	endpoint string
	clientID string
	log      *zap.Logger
}

// NewMeasurementProtocol builds a collector with a fresh client id.
func NewMeasurementProtocol(cfg config.AnalyticsConfig, client *http.Client) *MeasurementProtocol {
	q := url.Values{}
	q.Set("measurement_id", cfg.MeasurementID)
	q.Set("api_secret", cfg.APISecret)
	return &MeasurementProtocol{
		client:   client,
		endpoint: cfg.Endpoint + "?" + q.Encode(),
		clientID: uuid.NewString(),
		log:      logging.Get(logging.CategoryAnalytics),
	}
}

type event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

type payload struct {
	ClientID string  `json:"client_id"`
	Events   []event `json:"events"`
}

// PageView records a page_view for page.
func (m *MeasurementProtocol) PageView(ctx context.Context, page string) {
	m.send(ctx, event{Name: "page_view", Params: map[string]any{"page_location": page}})
}

// Conversion records a named conversion event. GA4 event names only allow
// letters, digits and underscores, so the action is folded into one and
// the original strings are kept as parameters.
func (m *MeasurementProtocol) Conversion(ctx context.Context, category, action string) {
	m.send(ctx, event{
		Name: EventName(action),
		Params: map[string]any{
			"event_category": category,
			"event_action":   action,
		},
	})
}

func (m *MeasurementProtocol) send(ctx context.Context, ev event) {
	body, err := json.Marshal(payload{ClientID: m.clientID, Events: []event{ev}})
	if err != nil {
		m.log.Warn("analytics marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		m.log.Warn("analytics request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Warn("analytics send failed", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		m.log.Warn("analytics rejected event", zap.String("event", ev.Name), zap.Int("status", resp.StatusCode))
		return
	}
	m.log.Debug("analytics event sent", zap.String("event", ev.Name))
}

// EventName converts free text into a GA4 event name.
func EventName(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" {
		return "event"
	}
	return name
}

// String describes the collector for logs.
func (m *MeasurementProtocol) String() string {
	return fmt.Sprintf("ga4(client=%s)", m.clientID)
}
