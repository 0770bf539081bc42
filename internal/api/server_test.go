package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xi784/ha-blnet/internal/blnet"
	"github.com/xi784/ha-blnet/internal/entity"
	"github.com/xi784/ha-blnet/internal/metrics"
	"github.com/xi784/ha-blnet/internal/platform"
)

type testResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// createTestServer creates a server over a platform backed by an in-memory cache
func createTestServer(t *testing.T) (*Server, *platform.Platform, *blnet.Cache) {
	t.Helper()

	cache := blnet.NewCache()
	cache.Bind("3", "Pump")
	cache.Store("Pump", blnet.Record{Value: blnet.OnValue, FriendlyName: "Pump 1", Mode: blnet.AutoMode})

	entities, err := entity.Setup([]entity.Discovery{
		{ChannelID: "3", DeviceLabel: "Pump"},
		{ChannelID: "7", DeviceLabel: "Heater"},
	}, cache)
	require.NoError(t, err)

	m := metrics.New()
	p := platform.New(m)
	require.NoError(t, p.Register(entities...))

	return NewServer(p, Options{Metrics: m.Handler(), AllowedOrigins: []string{"*"}}), p, cache
}

func doRequest(t *testing.T, s *Server, method, path, body, contentType string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	var resp testResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestListEntities(t *testing.T) {
	s, p, _ := createTestServer(t)
	p.PollAll()

	w, resp := doRequest(t, s, http.MethodGet, "/entities", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Status)

	var snaps []platform.Snapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snaps))
	require.Len(t, snaps, 4)
	assert.Equal(t, "3_Pump", snaps[0].UniqueID)
	assert.Equal(t, "on", snaps[0].State)
	assert.Equal(t, "7_Heater", snaps[2].UniqueID)
	assert.Equal(t, "unknown", snaps[2].State)
}

func TestGetEntity(t *testing.T) {
	s, p, _ := createTestServer(t)
	p.PollAll()

	w, resp := doRequest(t, s, http.MethodGet, "/entities/3_Pump_mode", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap platform.Snapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snap))
	assert.Equal(t, "Pump automated", snap.Name)
	assert.Equal(t, "on", snap.State)
	assert.Equal(t, map[string]string{"friendly_name": "Pump 1 automated"}, snap.Attributes)

	w, resp = doRequest(t, s, http.MethodGet, "/entities/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", resp.Status)
}

func TestCommandEntity(t *testing.T) {
	s, _, cache := createTestServer(t)

	tests := []struct {
		name        string
		path        string
		body        string
		contentType string
		wantCode    int
		wantState   string
	}{
		{
			name:        "turn off",
			path:        "/entities/3_Pump",
			body:        `{"state":"off"}`,
			contentType: "application/json",
			wantCode:    http.StatusOK,
			wantState:   "off",
		},
		{
			name:        "turn on without content type",
			path:        "/entities/3_Pump",
			body:        `{"state":"on"}`,
			wantCode:    http.StatusOK,
			wantState:   "on",
		},
		{
			name:        "content type with charset",
			path:        "/entities/3_Pump_mode",
			body:        `{"state":"on"}`,
			contentType: "application/json; charset=utf-8",
			wantCode:    http.StatusOK,
			wantState:   "on",
		},
		{
			name:        "wrong content type",
			path:        "/entities/3_Pump",
			body:        `{"state":"on"}`,
			contentType: "text/plain",
			wantCode:    http.StatusBadRequest,
		},
		{
			name:        "invalid json",
			path:        "/entities/3_Pump",
			body:        `{"state":`,
			contentType: "application/json",
			wantCode:    http.StatusBadRequest,
		},
		{
			name:        "invalid state",
			path:        "/entities/3_Pump",
			body:        `{"state":"toggle"}`,
			contentType: "application/json",
			wantCode:    http.StatusBadRequest,
		},
		{
			name:        "unknown entity",
			path:        "/entities/nope",
			body:        `{"state":"on"}`,
			contentType: "application/json",
			wantCode:    http.StatusNotFound,
		},
		{
			name:        "command failure",
			path:        "/entities/7_Heater",
			body:        `{"state":"on"}`,
			contentType: "application/json",
			wantCode:    http.StatusBadGateway,
			wantState:   "on",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := doRequest(t, s, http.MethodPost, tt.path, tt.body, tt.contentType)
			assert.Equal(t, tt.wantCode, w.Code)

			if tt.wantState != "" {
				var snap platform.Snapshot
				require.NoError(t, json.Unmarshal(resp.Data, &snap))
				assert.Equal(t, tt.wantState, snap.State)
				assert.True(t, snap.AssumedState)
			}
		})
	}

	rec, _ := cache.Lookup("Pump")
	assert.Equal(t, blnet.AutoMode, rec.Mode)
	assert.Equal(t, blnet.OnValue, rec.Value)
}

func TestPoll(t *testing.T) {
	s, _, cache := createTestServer(t)

	w, resp := doRequest(t, s, http.MethodPost, "/poll", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":2}`, string(resp.Data))

	_, resp = doRequest(t, s, http.MethodPost, "/poll", "", "")
	assert.JSONEq(t, `{"updated":0}`, string(resp.Data))

	cache.Store("Heater", blnet.Record{Value: blnet.OffValue, FriendlyName: "Heater", Mode: blnet.ManualMode})
	_, resp = doRequest(t, s, http.MethodPost, "/poll", "", "")
	assert.JSONEq(t, `{"updated":4}`, string(resp.Data))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := createTestServer(t)
	doRequest(t, s, http.MethodPost, "/poll", "", "")

	w, _ := doRequest(t, s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `blnet_entity_polls_total{kind="output"} 1`)
	assert.Contains(t, w.Body.String(), `blnet_entity_missing_data_total{kind="mode"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := createTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/entities/3_Pump", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
