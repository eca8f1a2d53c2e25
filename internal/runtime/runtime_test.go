package runtime_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianstays/booking-webhook-app/internal/handler"
	"github.com/meridianstays/booking-webhook-app/internal/handler/processor"
	"github.com/meridianstays/booking-webhook-app/internal/models"
	"github.com/meridianstays/booking-webhook-app/internal/ratelimit"
	"github.com/meridianstays/booking-webhook-app/internal/runtime"
	"github.com/meridianstays/booking-webhook-app/internal/validation"
)

const (
	testSecret          = "test-secret"
	reservationBody     = `{"type":"reservation_update","content":"Reservation confirmed","metadata":{"reservation_id":"res_abc123","status":"confirmed"}}`
	reservationBodySign = "c25cdc300b5fc105cb1fde3c43785c0205a9c5d3959f2d08e1e985eb2e60e520"
)

func newTestRuntime(t *testing.T, opts ...runtime.Option) *runtime.Runtime {
	t.Helper()

	registry := processor.NewRegistry(processor.NewDiscardProcessor())
	registry.Register(models.TypeReservationUpdate, processor.NewReservationUpdateProcessor(
		processor.NoopAgent{}, processor.NoopRecorder{}))
	registry.Register(models.TypePromo, processor.NewPromoProcessor(
		processor.NoopAgent{}, processor.NoopRecorder{}))
	registry.Register(models.TypeUserInfo, processor.NewUserInfoProcessor(
		processor.NoopAgent{}, processor.NoopRecorder{}))

	hdl, err := handler.NewWebhookHandler(
		handler.WithWebhookSecret(testSecret),
		handler.WithRateLimiter(ratelimit.NewLimiter(100, time.Minute)),
		handler.WithRegistry(registry),
	)
	require.NoError(t, err)
	t.Cleanup(hdl.Drain)

	return runtime.NewRuntime(hdl, opts...)
}

func postSigned(t *testing.T, server *httptest.Server, path, body, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) models.WebhookResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var wr models.WebhookResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wr))
	return wr
}

func TestHTTP_ReceiveSignedDelivery(t *testing.T) {
	server := httptest.NewServer(newTestRuntime(t).Mux())
	defer server.Close()

	resp := postSigned(t, server, runtime.RouteReceive, reservationBody, reservationBodySign)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	wr := decodeBody(t, resp)
	assert.True(t, wr.Success)
	assert.NotEmpty(t, wr.Data["message_id"])
}

func TestHTTP_ReceiveBadSignature(t *testing.T) {
	server := httptest.NewServer(newTestRuntime(t).Mux())
	defer server.Close()

	resp := postSigned(t, server, runtime.RouteReceive, reservationBody, strings.Repeat("00", 32))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, decodeBody(t, resp).Success)
}

func TestHTTP_ReceiveRequiresPOST(t *testing.T) {
	server := httptest.NewServer(newTestRuntime(t).Mux())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + runtime.RouteReceive)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHTTP_Health(t *testing.T) {
	server := httptest.NewServer(newTestRuntime(t).Mux())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + runtime.RouteHealth)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	_, err = time.Parse(time.RFC3339Nano, health["timestamp"])
	assert.NoError(t, err)
}

func TestHTTP_PrefixMounting(t *testing.T) {
	server := httptest.NewServer(newTestRuntime(t, runtime.WithPrefix("/hooks/v1")).Mux())
	defer server.Close()

	// Prefixed routes respond; bare routes do not exist.
	resp := postSigned(t, server, "/hooks/v1"+runtime.RouteReceive, reservationBody, reservationBodySign)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	bare, err := server.Client().Get(server.URL + runtime.RouteHealth)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, bare.StatusCode)
	_ = bare.Body.Close()
}

func TestHTTP_OversizedBody(t *testing.T) {
	server := httptest.NewServer(newTestRuntime(t, runtime.WithMaxBodySize(1<<20)).Mux())
	defer server.Close()

	body := `{"type":"user_info","content":"` + strings.Repeat("x", 1<<20) + `"}`
	secret := validation.WebhookSecret(testSecret)
	resp := postSigned(t, server, runtime.RouteReceive, body, secret.Sign([]byte(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestLambda_Receive(t *testing.T) {
	rt := newTestRuntime(t)

	response, err := rt.Lambda(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: runtime.RouteReceive,
		Headers: map[string]string{
			"Content-Type":        "application/json",
			"X-Webhook-Signature": reservationBodySign,
		},
		Body:            base64.StdEncoding.EncodeToString([]byte(reservationBody)),
		IsBase64Encoded: true,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{SourceIP: "198.51.100.9"},
		},
	})
	require.NoError(t, err)

	v2, ok := response.(events.APIGatewayV2HTTPResponse)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, v2.StatusCode)

	var wr models.WebhookResponse
	require.NoError(t, json.Unmarshal([]byte(v2.Body), &wr))
	assert.True(t, wr.Success)
}

func TestLambda_UnknownRoute(t *testing.T) {
	rt := newTestRuntime(t)

	response, err := rt.Lambda(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/nowhere",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{SourceIP: "198.51.100.9"},
		},
	})
	require.NoError(t, err)

	v2, ok := response.(events.APIGatewayV2HTTPResponse)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, v2.StatusCode)
}
