package enqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webpage-auditor/config"
	"webpage-auditor/internal/app/amqp/auditworker"
	"webpage-auditor/internal/app/reports"

	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func newTestHandler(cfg *config.Config) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    zap.NewNop().Sugar(),
		validator: validator.New(),
		newID:     func() string { return "evt-fixed" },
	}
}

func TestHandler_Handle_BadJSON(t *testing.T) {
	h := newTestHandler(&config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/audits/enqueue", strings.NewReader("{"))
	w := httptest.NewRecorder()

	h.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_MissingURL(t *testing.T) {
	h := newTestHandler(&config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/audits/enqueue", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_UnknownCheck(t *testing.T) {
	h := newTestHandler(&config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/audits/enqueue", strings.NewReader(`{"url":"https://example.com","checks":["lint"]}`))
	w := httptest.NewRecorder()

	h.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "InvalidRequest") {
		t.Fatalf("expected InvalidRequest category, body=%s", w.Body.String())
	}
}

func TestHandler_Handle_RabbitMQDisabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.RabbitMQ.URL = ""
	h := newTestHandler(cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/audits/enqueue", strings.NewReader(`{"url":"https://example.com"}`))
	w := httptest.NewRecorder()

	h.Handle(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_OK_PublishesEnvelope(t *testing.T) {
	var gotExchange, gotKey string
	var gotPublishing amqp.Publishing
	var gotQueued reports.CreateInput
	var gotResp struct {
		OK      bool   `json:"ok"`
		EventID string `json:"event_id"`
		ID      string `json:"id"`
	}

	cfg := &config.Config{}
	cfg.RabbitMQ.URL = "amqp://example"
	cfg.RabbitMQ.Exchange = "events"
	cfg.RabbitMQ.RoutingKey = "auditor.url.requested.v1"

	h := newTestHandler(cfg)
	h.store = queuedReportWriterFunc(func(ctx context.Context, in reports.CreateInput) (string, error) {
		gotQueued = in
		return in.EventID, nil
	})
	h.publish = func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
		gotExchange = exchange
		gotKey = key
		gotPublishing = msg
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/audits/enqueue", strings.NewReader(`{"url":"example.com/pricing","checks":["seo","validate","seo"]}`))
	w := httptest.NewRecorder()

	before := time.Now().UTC().Add(-1 * time.Second)
	h.Handle(w, req)
	after := time.Now().UTC().Add(1 * time.Second)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &gotResp); err != nil {
		t.Fatalf("unmarshal response: %v body=%s", err, w.Body.String())
	}
	if !gotResp.OK || gotResp.EventID != "evt-fixed" || gotResp.ID != "evt-fixed" {
		t.Fatalf("unexpected response: %+v", gotResp)
	}
	if gotExchange != "events" || gotKey != "auditor.url.requested.v1" {
		t.Fatalf("publish exchange=%q key=%q", gotExchange, gotKey)
	}
	if gotPublishing.ContentType != "application/json" {
		t.Fatalf("contentType=%q", gotPublishing.ContentType)
	}
	if gotPublishing.MessageId != "evt-fixed" {
		t.Fatalf("message id=%q", gotPublishing.MessageId)
	}
	if gotPublishing.Timestamp.Before(before) || gotPublishing.Timestamp.After(after) {
		t.Fatalf("timestamp=%s out of range", gotPublishing.Timestamp)
	}
	if gotQueued.URL != "http://example.com/pricing" || gotQueued.CreatedBy != "enqueue" {
		t.Fatalf("queued=%+v", gotQueued)
	}

	var env auditworker.AuditRequestedEnvelope
	if err := json.Unmarshal(gotPublishing.Body, &env); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if env.EventName != auditworker.EventName || env.EventID != "evt-fixed" {
		t.Fatalf("env=%+v", env)
	}
	if env.Data.URL != "http://example.com/pricing" {
		t.Fatalf("env.data.url=%q", env.Data.URL)
	}
	if strings.Join(env.Data.Checks, ",") != "seo,validate" {
		t.Fatalf("env.data.checks=%v", env.Data.Checks)
	}
}

type queuedReportWriterFunc func(ctx context.Context, in reports.CreateInput) (string, error)

func (f queuedReportWriterFunc) Enabled() bool { return true }

func (f queuedReportWriterFunc) CreateQueued(ctx context.Context, in reports.CreateInput) (string, error) {
	return f(ctx, in)
}
