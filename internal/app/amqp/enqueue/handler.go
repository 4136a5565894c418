package enqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"webpage-auditor/config"
	"webpage-auditor/internal/app/amqp/auditworker"
	"webpage-auditor/internal/app/reports"
	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/pkg/amqpclient"
	"webpage-auditor/internal/pkg/render"
	"webpage-auditor/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type publishFunc func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error

type Handler struct {
	cfg       *config.Config
	channel   *amqp.Channel
	logger    *zap.SugaredLogger
	store     queuedReportWriter
	validator *validator.Validate

	publish publishFunc
	newID   func() string
}

type queuedReportWriter interface {
	Enabled() bool
	CreateQueued(ctx context.Context, in reports.CreateInput) (string, error)
}

type NewHandlerParams struct {
	fx.In

	Cfg     *config.Config
	Channel *amqp.Channel `optional:"true"`
	Logger  *zap.SugaredLogger
	Store   *reports.Store `optional:"true"`
}

func NewHandler(p NewHandlerParams) *Handler {
	var publishFn publishFunc
	if p.Channel != nil {
		publishFn = p.Channel.PublishWithContext
	}

	h := &Handler{
		cfg:       p.Cfg,
		channel:   p.Channel,
		logger:    p.Logger,
		validator: validator.New(),
		publish:   publishFn,
		newID:     uuid.NewString,
	}
	if p.Store != nil {
		h.store = p.Store
	}
	return h
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Post("/v1/audits/enqueue", h.Handle)
}

type enqueueRequest struct {
	URL    string   `json:"url" validate:"required"`
	Checks []string `json:"checks"`
}

type enqueueResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"event_id"`
	ID      string `json:"id,omitempty"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		render.ChiErr(w, http.StatusBadRequest, "missing url")
		return
	}

	// Reject what the worker would reject, before anything is published.
	normalized, err := audit.NormalizeRequest(req.URL, req.Checks)
	if err != nil {
		render.ChiCategoryErr(w, http.StatusBadRequest, string(audit.CategoryOf(err)), audit.SafeMessage(err))
		return
	}

	if h.cfg.RabbitMQ.URL == "" || h.publish == nil {
		render.ChiErr(w, http.StatusServiceUnavailable, "rabbitmq disabled")
		return
	}

	topo := amqpclient.TopologyFromConfig(h.cfg)
	now := time.Now().UTC()
	eventID := h.newID()
	checks := make([]string, 0, len(normalized.Checks))
	for _, c := range normalized.Checks {
		checks = append(checks, string(c))
	}

	reportID := ""
	if h.store != nil && h.store.Enabled() {
		id, err := h.store.CreateQueued(r.Context(), reports.CreateInput{
			EventID:   eventID,
			URL:       normalized.URL,
			Checks:    checks,
			CreatedBy: "enqueue",
		})
		if err != nil {
			h.logger.Errorw("enqueue_persist_queued_failed", "event_id", eventID, "url", normalized.URL, "err", err)
		} else {
			reportID = id
		}
	}

	env := auditworker.AuditRequestedEnvelope{
		EventName: auditworker.EventName,
		EventID:   eventID,
		TS:        now,
		Data: auditworker.AuditRequestedEventData{
			URL:    normalized.URL,
			Checks: checks,
		},
	}
	body, err := json.Marshal(env)
	if err != nil {
		h.logger.Errorw("enqueue_marshal_failed", "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to encode message")
		return
	}

	if h.channel != nil && h.cfg.RabbitMQ.DeclareTopology {
		if err := amqpclient.DeclareExchange(h.channel, topo); err != nil {
			h.logger.Errorw("enqueue_exchange_declare_failed", "exchange", topo.Exchange, "err", err)
			render.ChiErr(w, http.StatusBadGateway, "rabbitmq exchange declare failed: "+topo.Exchange)
			return
		}
	}

	if err := h.publish(r.Context(), topo.Exchange, topo.RoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    now,
		MessageId:    eventID,
		Body:         body,
	}); err != nil {
		h.logger.Errorw(
			"enqueue_publish_failed",
			"exchange", topo.Exchange,
			"routing_key", topo.RoutingKey,
			"event_id", eventID,
			"url", normalized.URL,
			"err", err,
		)
		render.ChiErr(w, http.StatusBadGateway, "failed to publish message")
		return
	}

	h.logger.Infow("enqueue_published",
		"exchange", topo.Exchange,
		"routing_key", topo.RoutingKey,
		"event_id", eventID,
		"url", normalized.URL,
		"checks", strings.Join(checks, ","),
	)
	render.ChiJSON(w, http.StatusAccepted, enqueueResponse{OK: true, EventID: eventID, ID: reportID})
}

var _ router.Handler = (*Handler)(nil)
