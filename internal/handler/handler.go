// Package handler implements the webhook ingestion pipeline: rate check,
// size check, signature verification, payload validation and asynchronous
// dispatch to the processor registered for the message type.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/meridianstays/booking-webhook-app/internal/handler/processor"
	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
	"github.com/meridianstays/booking-webhook-app/internal/ratelimit"
	"github.com/meridianstays/booking-webhook-app/internal/validation"
)

// Stage identifies a step of the per-request pipeline. Stages are reported
// to the configured observer in the order they are reached; a request that
// fails a stage reports StageRejected and stops.
type Stage string

// Pipeline stages, in order of traversal.
const (
	StageReceived      Stage = "received"
	StageRateChecked   Stage = "rate_checked"
	StageSizeChecked   Stage = "size_checked"
	StageAuthenticated Stage = "authenticated"
	StageValidated     Stage = "validated"
	StageDispatched    Stage = "dispatched"
	StageResponded     Stage = "responded"
	StageRejected      Stage = "rejected"
)

// Option is a function that applies an option to a Handler.
type Option func(*Handler)

// PipelineError reports the stage at which a request was rejected.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func reject(stage Stage, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}

// Archiver persists accepted raw payloads for audit.
type Archiver interface {
	ArchivePayload(messageType, deliveryID string, body []byte) error
}

// ConversationLog persists agent query/response pairs.
type ConversationLog interface {
	SaveConversation(ctx context.Context, record models.ConversationRecord) error
}

// Handler sequences the ingestion pipeline for every inbound request and
// produces the HTTP-level response. It holds no per-request state; the only
// shared mutable state is owned by the rate limiter.
type Handler struct {
	ctx                context.Context
	logger             *slog.Logger
	secret             *validation.WebhookSecret
	limiter            *ratelimit.Limiter
	registry           *processor.Registry
	agent              processor.AgentInvoker
	archiver           Archiver
	conversations      ConversationLog
	maxPayloadSize     int64
	acceptUnknownTypes bool
	stageObserver      func(Stage)
	afterDispatch      func(msg *models.WebhookMessage, err error)

	dispatchWG sync.WaitGroup
}

// NewWebhookHandler creates a Handler from the supplied options. A webhook
// secret, rate limiter and processor registry are required.
func NewWebhookHandler(options ...Option) (*Handler, error) {
	_inst := &Handler{
		logger:         helpers.NewNoopLogger(),
		maxPayloadSize: 1 << 20,
	}
	for _, opt := range options {
		opt(_inst)
	}

	if _inst.ctx == nil {
		_inst.ctx = context.Background()
	}
	if _inst.secret == nil || *_inst.secret == "" {
		return nil, pkgerrors.New("a webhook secret is required")
	}
	if _inst.limiter == nil {
		return nil, pkgerrors.New("a rate limiter is required")
	}
	if _inst.registry == nil {
		return nil, pkgerrors.New("a processor registry is required")
	}

	return _inst, nil
}

// Receive runs the full ingestion pipeline for a webhook delivery. The
// returned response confirms acceptance, not completion: processors run
// detached from the request and their failures are logged, never surfaced
// to the caller.
func (h *Handler) Receive(req models.Request) (models.Response, error) {
	h.observe(StageReceived)
	body := []byte(req.Body)
	deliveryID := uuid.NewString()
	logger := h.logger.With(slog.String("deliveryID", deliveryID))
	logger.Debug("processing request...")

	if !h.limiter.Allow(req.Identity) {
		h.observe(StageRejected)
		return respond(http.StatusTooManyRequests, "too many requests, retry later"),
			reject(StageRateChecked, pkgerrors.New("rate limit exceeded"))
	}
	h.observe(StageRateChecked)

	if int64(len(body)) > h.maxPayloadSize {
		logger.Warn("rejecting oversized payload", slog.Int("size", len(body)))
		h.observe(StageRejected)
		return respond(http.StatusRequestEntityTooLarge, "payload too large"),
			reject(StageSizeChecked, pkgerrors.New("payload exceeds maximum size"))
	}
	h.observe(StageSizeChecked)

	if err := h.secret.ValidateSignature(body, req.Headers); err != nil {
		logger.Warn("validating signature", slog.Any("error", err))
		h.observe(StageRejected)
		// The response is deliberately generic: no detail about what differed.
		return respond(http.StatusUnauthorized, "invalid webhook signature"),
			reject(StageAuthenticated, err)
	}
	h.observe(StageAuthenticated)
	logger.Debug("request signature is valid")

	if contentType := req.Headers["content-type"]; !strings.HasPrefix(contentType, "application/json") {
		h.observe(StageRejected)
		return respond(http.StatusBadRequest, fmt.Sprintf("unsupported content type: %s", contentType)),
			reject(StageValidated, pkgerrors.Errorf("unsupported content type: %s", contentType))
	}

	receivedAt := time.Now().UTC()
	msg, err := validation.ParseMessage(body, receivedAt)
	if err != nil {
		var unknownType *validation.UnknownTypeError
		if !pkgerrors.As(err, &unknownType) || !h.acceptUnknownTypes {
			return h.rejectInvalid(logger, err)
		}
		logger.Info("accepting message of unknown type", slog.String("type", string(unknownType.Type)))
	}
	msg.DeliveryID = deliveryID
	h.observe(StageValidated)

	logger = logger.With(slog.String("type", string(msg.Type)))

	proc, _ := h.registry.Lookup(msg.Type)

	if h.archiver != nil {
		if err := h.archiver.ArchivePayload(string(msg.Type), deliveryID, body); err != nil {
			logger.Warn("failed to archive payload", slog.Any("error", err))
		}
	}

	h.dispatch(logger, proc, msg)
	h.observe(StageDispatched)

	response := respondData(http.StatusOK,
		fmt.Sprintf("message of type %q received and queued for processing", msg.Type),
		map[string]any{
			"received_at": receivedAt.Format(time.RFC3339Nano),
			"message_id":  msg.MessageID(),
		})
	h.observe(StageResponded)
	return response, nil
}

// Query answers a direct agent query. The signature is validated only when
// the header is present; rate limiting always applies.
func (h *Handler) Query(req models.Request) (models.Response, error) {
	body := []byte(req.Body)

	if !h.limiter.Allow(req.Identity) {
		return respond(http.StatusTooManyRequests, "too many requests, retry later"),
			pkgerrors.New("rate limit exceeded")
	}

	if _, found := req.Headers[validation.SignatureHeader]; found {
		if err := h.secret.ValidateSignature(body, req.Headers); err != nil {
			return respond(http.StatusUnauthorized, "invalid webhook signature"), err
		}
	}

	if h.agent == nil {
		return respond(http.StatusServiceUnavailable, "agent is not configured"),
			pkgerrors.New("agent is not configured")
	}

	var agentReq models.AgentRequest
	if err := json.Unmarshal(body, &agentReq); err != nil {
		return respond(http.StatusBadRequest, "invalid payload: body is not well-formed JSON"), err
	}
	if agentReq.Message == "" {
		return respond(http.StatusBadRequest, `invalid payload: field "message" is required`),
			pkgerrors.New("missing message field")
	}

	userID := agentReq.UserID
	if userID == "" {
		userID = "webhook_query"
	}

	answer, err := h.agent.ProcessMessage(h.ctx, agentReq.Message, userID)
	if err != nil {
		h.logger.Error("agent query failed", slog.Any("error", err))
		return respond(http.StatusInternalServerError, "failed to process the query"), err
	}

	if h.conversations != nil {
		if err := h.conversations.SaveConversation(h.ctx, models.ConversationRecord{
			UserID:   userID,
			Message:  agentReq.Message,
			Response: answer,
		}); err != nil {
			h.logger.Warn("failed to persist conversation", slog.Any("error", err))
		}
	}

	return respondData(http.StatusOK, answer, map[string]any{
		"query_time": time.Now().UTC().Format(time.RFC3339Nano),
		"context":    agentReq.Context,
	}), nil
}

// Drain blocks until all dispatched processor work has completed.
func (h *Handler) Drain() {
	h.dispatchWG.Wait()
}

// dispatch hands the message to its processor on a detached goroutine. The
// context deliberately survives client disconnects so collaborator side
// effects are never left half-applied by an abrupt cancellation. The
// per-delivery logger rides on the context: processors are shared across
// concurrent deliveries and must not be mutated per request.
func (h *Handler) dispatch(logger *slog.Logger, proc processor.Processor, msg *models.WebhookMessage) {
	ctx := processor.ContextWithLogger(context.WithoutCancel(h.ctx), logger)
	h.dispatchWG.Add(1)
	go func() {
		defer h.dispatchWG.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("processor panicked", slog.Any("panic", r))
			}
		}()
		err := proc.Process(ctx, msg)
		if err != nil {
			logger.Error("processor failure", slog.Any("error", err))
		}
		if h.afterDispatch != nil {
			h.afterDispatch(msg, err)
		}
	}()
}

func (h *Handler) rejectInvalid(logger *slog.Logger, err error) (models.Response, error) {
	logger.Warn("validating payload", slog.Any("error", err))
	h.observe(StageRejected)
	return respond(http.StatusBadRequest, err.Error()), reject(StageValidated, err)
}

func (h *Handler) observe(stage Stage) {
	if h.stageObserver != nil {
		h.stageObserver(stage)
	}
}

func respond(statusCode int, message string) models.Response {
	return marshalResponse(statusCode, models.WebhookResponse{
		Success: statusCode < http.StatusBadRequest,
		Message: message,
	})
}

func respondData(statusCode int, message string, data map[string]any) models.Response {
	return marshalResponse(statusCode, models.WebhookResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func marshalResponse(statusCode int, wr models.WebhookResponse) models.Response {
	body, _ := json.Marshal(wr)
	return models.Response{
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
		StatusCode: statusCode,
	}
}
