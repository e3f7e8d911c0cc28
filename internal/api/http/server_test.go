package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/app"
	"github.com/ownerdesk/ticket-engine/internal/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{Name: "ticket-engine-test", Version: "test"},
		Redis:  config.RedisConfig{LockTTLSeconds: 5},
		Logger: config.LoggerConfig{Level: "error"},
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			AccessTokenTTLMinutes:  5,
			BcryptCost:             4,
			BootstrapAdminEmail:    "root@example.com",
			BootstrapAdminPassword: "root-password",
		},
		Engine: config.EngineConfig{SweepConcurrency: 2, Timezone: "UTC", EnvelopeDueHours: 4},
	}
	container, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(container.Close)
	require.NoError(t, container.Bootstrap(context.Background()))

	s := &testServer{t: t, app: NewServer(container)}
	var login struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	status, body := s.do(http.MethodPost, "/auth/agents/login", map[string]string{"email": "root@example.com", "password": "root-password"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &login))
	s.token = login.Auth.Token
	return s
}

func (s *testServer) do(method, path string, payload any) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if s.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(s.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestTicketOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodPost, "/contacts", map[string]any{"name": "Ada", "email": "ada@example.com", "tier": "vip"})
	require.Equal(t, http.StatusCreated, status)
	contact := decode[map[string]any](t, body.Data)

	status, body = s.do(http.MethodPost, "/tickets", map[string]any{
		"subject":      "Printer on fire",
		"priority":     "high",
		"requester_id": contact["id"],
	})
	require.Equal(t, http.StatusCreated, status)
	ticket := decode[map[string]any](t, body.Data)
	ticketID := ticket["id"].(string)
	assert.Nil(t, ticket["owner_id"])
	assert.Regexp(t, `^TCK-\d{8}-[A-Z0-9]{4}$`, ticket["reference"])

	status, body = s.do(http.MethodPost, "/tickets/"+ticketID+"/accept", nil)
	require.Equal(t, http.StatusOK, status)
	accepted := decode[map[string]any](t, body.Data)
	assert.NotEmpty(t, accepted["owner_id"])

	status, body = s.do(http.MethodPost, "/tickets/"+ticketID+"/accept", nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_OWNED", body.Error.Code)

	status, body = s.do(http.MethodGet, "/tickets/"+ticketID+"/score", nil)
	require.Equal(t, http.StatusOK, status)
	score := decode[map[string]any](t, body.Data)
	assert.Equal(t, 70.0, score["base"])
	multipliers := score["multipliers"].(map[string]any)
	assert.Equal(t, 1.5, multipliers["vip_customer"])
	assert.Equal(t, 2.0, multipliers["sla_proximity"], "just under the four hour due time")

	status, body = s.do(http.MethodGet, "/agents/me/work-queue", nil)
	require.Equal(t, http.StatusOK, status)
	queue := decode[map[string]any](t, body.Data)
	assert.EqualValues(t, 1, queue["total"])

	status, body = s.do(http.MethodGet, "/tickets/"+ticketID+"/timeline?view=customer", nil)
	require.Equal(t, http.StatusOK, status)
	public := decode[[]map[string]any](t, body.Data)
	require.Len(t, public, 1, "system entries stay internal")
	assert.Equal(t, "email_inbound", public[0]["type"])
}

func TestErrorsRenderAsEnvelope(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodGet, "/tickets/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	status, body = s.do(http.MethodPost, "/tickets", map[string]any{"subject": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)

	s.token = ""
	status, body = s.do(http.MethodGet, "/agents/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	status, body = s.do(http.MethodPost, "/auth/agents/login", map[string]string{"email": "root@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, body.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body.Error)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
