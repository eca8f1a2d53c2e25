// Package runtime adapts the webhook handler to its runtime environments:
// a standalone HTTP server and AWS Lambda behind an API gateway.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/meridianstays/booking-webhook-app/internal/handler"
	"github.com/meridianstays/booking-webhook-app/internal/helpers"
	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// Option is a function that applies an option to a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger instance for the runtime.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithPrefix mounts the entire webhook surface under a URL path prefix.
// The relative paths of the routes are unchanged.
func WithPrefix(prefix string) Option {
	return func(r *Runtime) {
		r.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithTrustProxy derives client identities from the X-Forwarded-For header.
func WithTrustProxy(trust bool) Option {
	return func(r *Runtime) {
		r.trustProxy = trust
	}
}

// WithMaxBodySize caps how many request body bytes are read. Reads are
// capped one byte above the limit so the pipeline can observe the overflow
// and reject with 413.
func WithMaxBodySize(size int64) Option {
	return func(r *Runtime) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithLambdaPayloadType selects the lambda response shape. Supported values
// are api-gateway-v1, api-gateway-v2 and lambda-url.
func WithLambdaPayloadType(payloadType string) Option {
	return func(r *Runtime) {
		r.payloadType = payloadType
	}
}

// Runtime exposes the handler over HTTP and Lambda entrypoints.
type Runtime struct {
	*handler.Handler
	logger      *slog.Logger
	prefix      string
	trustProxy  bool
	maxBodySize int64
	payloadType string
}

// NewRuntime creates a new runtime instance around the given handler.
func NewRuntime(hdl *handler.Handler, opts ...Option) *Runtime {
	_inst := &Runtime{Handler: hdl, maxBodySize: 1 << 20, payloadType: "api-gateway-v2"}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Routes are the relative paths of the webhook surface.
const (
	RouteReceive = "/webhook/receive"
	RouteQuery   = "/webhook/query"
	RouteHealth  = "/webhook/health"
)

// Mux returns the HTTP mux serving the webhook surface under the configured prefix.
func (r *Runtime) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(r.prefix+RouteReceive, r.handleReceive)
	mux.HandleFunc(r.prefix+RouteQuery, r.handleQuery)
	mux.HandleFunc(r.prefix+RouteHealth, r.handleHealth)
	return mux
}

func (r *Runtime) handleReceive(resp http.ResponseWriter, req *http.Request) {
	r.serve(resp, req, r.Handler.Receive)
}

func (r *Runtime) handleQuery(resp http.ResponseWriter, req *http.Request) {
	r.serve(resp, req, r.Handler.Query)
}

// handleHealth reports liveness. It deliberately touches neither the rate
// limiter nor the signature verifier so external monitoring cannot consume
// a client's budget or probe authentication.
func (r *Runtime) handleHealth(resp http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		helpers.RespondHTTP(models.WebhookResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed, resp)
		return
	}
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(resp).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Runtime) serve(resp http.ResponseWriter, req *http.Request, process func(models.Request) (models.Response, error)) {
	if req.Method != http.MethodPost {
		r.logger.Debug("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "method not allowed", slog.Any("method", req.Method))
		helpers.RespondHTTP(models.WebhookResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed, resp)
		return
	}

	r.logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.Any("method", req.Method), slog.Any("path", req.URL.Path))
	headers := make(map[string]string)
	for k, v := range req.Header {
		headers[strings.ToLower(k)] = v[0]
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, r.maxBodySize+1))
	if err != nil {
		r.logger.Error("failed to read request body", slog.Any("error", err))
		helpers.RespondHTTP(models.WebhookResponse{Message: "failed to read request body"}, http.StatusInternalServerError, resp)
		return
	}

	result, err := process(models.Request{
		Body:     string(body),
		Headers:  headers,
		Identity: helpers.ClientIdentity(req.RemoteAddr, headers, r.trustProxy),
	})
	if err != nil {
		r.logger.Warn("request rejected", slog.Any("error", err), slog.Int("status", result.StatusCode))
	}
	writeResponse(resp, result)
}

func writeResponse(resp http.ResponseWriter, result models.Response) {
	for k, v := range result.Headers {
		resp.Header().Set(k, v)
	}
	statusCode := result.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	resp.WriteHeader(statusCode)
	_, _ = resp.Write([]byte(result.Body))
}

// Lambda is the Lambda handler for the runtime.
func (r *Runtime) Lambda(_ context.Context, req events.APIGatewayV2HTTPRequest) (response any, err error) {
	r.logger.Info("received API Gateway request", slog.String("path", req.RawPath))

	headers := make(map[string]string)
	for k, v := range req.Headers {
		headers[strings.ToLower(k)] = v
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		if body, err = base64.StdEncoding.DecodeString(req.Body); err != nil {
			return r.lambdaResponse(models.Response{StatusCode: http.StatusBadRequest, Body: `{"success":false,"message":"invalid body encoding"}`})
		}
	}

	request := models.Request{
		Body:     string(body),
		Headers:  headers,
		Identity: helpers.ClientIdentity(req.RequestContext.HTTP.SourceIP, headers, r.trustProxy),
	}

	var result models.Response
	switch strings.TrimPrefix(req.RawPath, r.prefix) {
	case RouteHealth:
		health, _ := json.Marshal(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
		result = models.Response{StatusCode: http.StatusOK, Body: string(health)}
	case RouteReceive:
		result, err = r.Handler.Receive(request)
	case RouteQuery:
		result, err = r.Handler.Query(request)
	default:
		result = models.Response{StatusCode: http.StatusNotFound, Body: `{"success":false,"message":"not found"}`}
	}
	if err != nil {
		r.logger.Warn("request rejected", slog.Any("error", err), slog.Int("status", result.StatusCode))
	}

	return r.lambdaResponse(result)
}

func (r *Runtime) lambdaResponse(result models.Response) (any, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	switch r.payloadType {
	case "api-gateway-v1":
		return events.APIGatewayProxyResponse{
			Body:       result.Body,
			Headers:    headers,
			StatusCode: result.StatusCode,
		}, nil
	case "api-gateway-v2":
		return events.APIGatewayV2HTTPResponse{
			Body:       result.Body,
			Headers:    headers,
			StatusCode: result.StatusCode,
		}, nil
	case "lambda-url":
		return events.LambdaFunctionURLResponse{
			Body:       result.Body,
			Headers:    headers,
			StatusCode: result.StatusCode,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported lambda payload type: %s", r.payloadType)
	}
}
